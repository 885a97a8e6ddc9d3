package pipeline

import (
	"context"

	"github.com/rushteam/vidrec/core"
)

// Pipeline 把一次推荐请求拆成可组合的 Node 链（Recall → Filter → ReRank）。
// Service 层为每种算法组装一条固定的链。
type Pipeline struct {
	Nodes []Node
}

func (p *Pipeline) Run(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	cur := items
	for _, node := range p.Nodes {
		next, err := node.Process(ctx, rctx, cur)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}
