package recall

import (
	"context"

	"github.com/rushteam/vidrec/core"
	"github.com/rushteam/vidrec/model"
	"github.com/rushteam/vidrec/pipeline"
	"github.com/rushteam/vidrec/pkg/utils"
)

// BanditRecall 是多臂老虎机召回源（epsilon-greedy）。
//
// 与双塔/混合不同，老虎机没有离线重训：臂状态随交互同步更新，
// 本次召回直接基于选择开始时的臂均值稳定拷贝。
// 候选集为用户未交互过的全部视频；不足 k 个时返回可用数量。
type BanditRecall struct {
	Model *model.Bandit
	Store core.InteractionStore

	// TopK 返回 TopK 个视频，默认 5
	TopK int
}

func (r *BanditRecall) Name() string        { return "recall.bandit" }
func (r *BanditRecall) Kind() pipeline.Kind { return pipeline.KindRecall }

// Process 实现 Node 接口，直接调用 Recall
func (r *BanditRecall) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	return r.Recall(ctx, rctx)
}

// Recall 实现 Source 接口
func (r *BanditRecall) Recall(
	ctx context.Context,
	rctx *core.RecommendContext,
) ([]*core.Item, error) {
	if r.Model == nil || r.Store == nil || rctx == nil {
		return nil, nil
	}

	topK := r.TopK
	if topK <= 0 {
		topK = 5
	}

	videos, err := r.Store.Videos(ctx)
	if err != nil {
		return nil, err
	}
	available := make([]int64, 0, len(videos))
	for _, v := range videos {
		if !rctx.Seen(v.ID) {
			available = append(available, v.ID)
		}
	}

	choices := r.Model.ChooseCandidates(available, topK)
	out := make([]*core.Item, 0, len(choices))
	for _, c := range choices {
		it := core.NewItem(c.VideoID)
		it.Score = c.Score
		it.SetReason(c.Reason, "recall")
		it.PutLabel("recall_source", utils.Label{Value: "bandit", Source: "recall"})
		out = append(out, it)
	}
	return out, nil
}
