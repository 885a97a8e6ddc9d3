package rerank

import (
	"context"

	"github.com/rushteam/vidrec/core"
	"github.com/rushteam/vidrec/pipeline"
)

// TopNNode 是一个 Top-N 截断节点，用于在召回/过滤后截取前 N 个候选。
// 只做截断不做重排：候选顺序由上游召回源保证
// （双塔按分数降序，老虎机按选择顺序，混合的探索位固定在末位）。
type TopNNode struct {
	// N 要保留的候选数量（Top N）
	// 如果 N <= 0，则返回所有候选（不截断）
	N int
}

func (n *TopNNode) Name() string {
	return "rerank.topn"
}

func (n *TopNNode) Kind() pipeline.Kind {
	return pipeline.KindReRank
}

func (n *TopNNode) Process(
	_ context.Context,
	_ *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if n.N <= 0 {
		return items, nil
	}
	if len(items) <= n.N {
		return items, nil
	}
	return items[:n.N], nil
}
