package recall

import (
	"context"
	"math/rand"
	"sort"

	"github.com/rushteam/vidrec/core"
	"github.com/rushteam/vidrec/model"
	"github.com/rushteam/vidrec/pipeline"
	"github.com/rushteam/vidrec/pkg/utils"
)

// ReasonExploration 是混合召回探索位的推荐理由。
const ReasonExploration = "Exploration"

// ExplorationScore 是探索位的固定分数。
const ExplorationScore = 0.1

// HybridRecall 是内容 + 协同混合召回源。
//
// 结果布局固定为 5 个槽位：
//   - 前 4 位：按混合得分降序的候选（已排除用户历史）
//   - 第 5 位：探索位——从用户未交互过的视频中均匀随机抽取，
//     分数固定 0.1，reason "Exploration"。探索位无条件存在，
//     保证每次响应至少包含一个新内容。
//
// 用户无历史（冷启动）时 5 个槽位全部走热度兜底。
type HybridRecall struct {
	Model    *model.Hybrid
	Store    core.InteractionStore
	Fallback *Popular

	// Slots 响应槽位总数，默认 5（含 1 个探索位）
	Slots int

	// Rand 注入随机源（测试用；默认使用全局源）
	Rand *rand.Rand
}

func (r *HybridRecall) Name() string        { return "recall.hybrid" }
func (r *HybridRecall) Kind() pipeline.Kind { return pipeline.KindRecall }

// Process 实现 Node 接口，直接调用 Recall
func (r *HybridRecall) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	return r.Recall(ctx, rctx)
}

// Recall 实现 Source 接口
func (r *HybridRecall) Recall(
	ctx context.Context,
	rctx *core.RecommendContext,
) ([]*core.Item, error) {
	if r.Model == nil || r.Store == nil || rctx == nil {
		return nil, nil
	}

	slots := r.Slots
	if slots <= 0 {
		slots = 5
	}

	snap := r.Model.Snapshot()
	if !snap.Fitted || !snap.HasHistory(rctx.UserID) {
		// 冷启动：全部槽位走热度兜底
		if r.Fallback == nil {
			return nil, nil
		}
		return r.Fallback.Recall(ctx, rctx)
	}

	videos, err := r.Store.Videos(ctx)
	if err != nil {
		return nil, err
	}

	// 1. 对用户未消费过的候选打分
	scored := make([]*core.Item, 0, len(videos))
	unseen := make([]int64, 0, len(videos))
	for _, v := range videos {
		if rctx.Seen(v.ID) {
			continue
		}
		unseen = append(unseen, v.ID)
		sc, ok := snap.Score(rctx.UserID, v.ID)
		if !ok {
			continue
		}
		it := core.NewItem(v.ID)
		it.Score = sc.Score
		it.SetReason(snap.AttributionReason(v.ID, sc), "recall")
		it.PutLabel("recall_source", utils.Label{Value: "hybrid", Source: "recall"})
		scored = append(scored, it)
	}
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].ID < scored[j].ID
	})
	if len(scored) > slots-1 {
		scored = scored[:slots-1]
	}

	// 2. 探索位：未交互、且不与前面槽位重复的视频中均匀随机抽一个
	taken := make(map[int64]struct{}, len(scored))
	for _, it := range scored {
		taken[it.ID] = struct{}{}
	}
	pool := make([]int64, 0, len(unseen))
	for _, id := range unseen {
		if _, ok := taken[id]; !ok {
			pool = append(pool, id)
		}
	}
	if len(pool) > 0 {
		explore := core.NewItem(pool[r.randIntn(len(pool))])
		explore.Score = ExplorationScore
		explore.SetReason(ReasonExploration, "recall")
		explore.PutLabel("recall_source", utils.Label{Value: "hybrid", Source: "recall"})
		scored = append(scored, explore)
	}

	return scored, nil
}

func (r *HybridRecall) randIntn(n int) int {
	if r.Rand != nil {
		return r.Rand.Intn(n)
	}
	return rand.Intn(n)
}
