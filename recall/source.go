// Package recall 把三种打分策略（双塔 / 混合 / 老虎机）封装为召回源。
// 每个召回源同时实现 Source 和 pipeline.Node 接口，可以直接在 Pipeline 中使用。
package recall

import (
	"context"

	"github.com/rushteam/vidrec/core"
)

// Source 是召回源的抽象：给定请求上下文，产出带分数与 reason 标签的候选集。
type Source interface {
	Name() string
	Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error)
}
