package recall

import (
	"context"
	"sort"

	"github.com/rushteam/vidrec/core"
	"github.com/rushteam/vidrec/model"
	"github.com/rushteam/vidrec/pipeline"
	"github.com/rushteam/vidrec/pkg/utils"
)

// ReasonTwoTower 是双塔召回的推荐理由。
const ReasonTwoTower = "Two Tower neural embedding similarity"

// TwoTowerRecall 是基于双塔模型的召回源。
//
// 核心流程：
//  1. 读取模型当前快照（原子指针，无锁读）
//  2. 模型未拟合或用户无向量（新用户）→ 走热度兜底
//  3. 否则对全量候选视频按余弦相似度打分，降序排列（同分取更小 videoId）
//
// 已交互视频的剔除交给下游 filter.WatchedFilter。
type TwoTowerRecall struct {
	Model    *model.TwoTower
	Store    core.InteractionStore
	Fallback *Popular
}

func (r *TwoTowerRecall) Name() string        { return "recall.two_tower" }
func (r *TwoTowerRecall) Kind() pipeline.Kind { return pipeline.KindRecall }

// Process 实现 Node 接口，直接调用 Recall
func (r *TwoTowerRecall) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	return r.Recall(ctx, rctx)
}

// Recall 实现 Source 接口
func (r *TwoTowerRecall) Recall(
	ctx context.Context,
	rctx *core.RecommendContext,
) ([]*core.Item, error) {
	if r.Model == nil || r.Store == nil || rctx == nil {
		return nil, nil
	}

	snap := r.Model.Snapshot()
	if !snap.Fitted {
		return r.fallback(ctx, rctx)
	}
	if _, ok := snap.UserEmb[rctx.UserID]; !ok {
		// 新用户：冷启动
		return r.fallback(ctx, rctx)
	}

	videos, err := r.Store.Videos(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]*core.Item, 0, len(videos))
	for _, v := range videos {
		it := core.NewItem(v.ID)
		if score, ok := snap.Score(rctx.UserID, v.ID); ok {
			it.Score = score
			it.SetReason(ReasonTwoTower, "recall")
		} else {
			// 快照之后新上架的视频还没有向量：以 0 分冷启动参与排序，
			// 不整体丢弃，下一轮重训后获得正常分数
			it.SetReason(ReasonColdStart, "recall")
		}
		it.PutLabel("recall_source", utils.Label{Value: "two_tower", Source: "recall"})
		out = append(out, it)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *TwoTowerRecall) fallback(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error) {
	if r.Fallback == nil {
		return nil, nil
	}
	return r.Fallback.Recall(ctx, rctx)
}
