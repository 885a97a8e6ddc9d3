package filter

import (
	"context"

	"github.com/rushteam/vidrec/core"
	"github.com/rushteam/vidrec/pkg/dsl"
)

// RuleFilter 是基于 CEL 表达式的规则过滤器。
// Expr 描述“保留条件”：表达式为 false 的候选被过滤。
// 例如 `item.score >= 0.0` 剔除负分候选，
// `label.reason != "Exploration"` 关闭探索位。
//
// 运营规则通过配置下发（config.Config.RuleFilters），无需改代码。
type RuleFilter struct {
	// Expr CEL 表达式（保留条件）
	Expr string
}

func (f *RuleFilter) Name() string {
	return "filter.rule"
}

func (f *RuleFilter) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil || f.Expr == "" {
		return false, nil
	}
	keep, err := dsl.NewEval(item, rctx).Evaluate(f.Expr)
	if err != nil {
		return false, err
	}
	return !keep, nil
}
