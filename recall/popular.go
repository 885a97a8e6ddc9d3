package recall

import (
	"context"

	"github.com/rushteam/vidrec/core"
	"github.com/rushteam/vidrec/pipeline"
	"github.com/rushteam/vidrec/pkg/conv"
	"github.com/rushteam/vidrec/pkg/utils"
)

// ReasonColdStart 是冷启动兜底的推荐理由。
const ReasonColdStart = "Cold start: popularity fallback"

// PopularKey 是热度榜（按播放量计数）在 KV 存储中的有序集合 key。
const PopularKey = "popular:videos"

// Popular 是热度召回源：从 KV 有序集合读取播放量最高的视频。
// 作为冷启动兜底（新用户 / 未拟合模型）使用，分数固定为 0。
//
// 槽位保证：只要存在足够多的未消费视频，就返回满 TopK 个——
// 榜单成员不足时按 videoId 升序从视频表补齐（零播放视频也参与热度排名），
// 用户已交互过的视频直接跳过，不依赖下游过滤。
type Popular struct {
	KV    core.KeyValueStore
	Store core.InteractionStore

	// Key 有序集合 key，默认 PopularKey
	Key string

	// TopK 返回 TopK 个视频，默认 5
	TopK int
}

func (r *Popular) Name() string        { return "recall.popular" }
func (r *Popular) Kind() pipeline.Kind { return pipeline.KindRecall }

// Process 实现 Node 接口，直接调用 Recall
func (r *Popular) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	return r.Recall(ctx, rctx)
}

// Recall 实现 Source 接口
func (r *Popular) Recall(
	ctx context.Context,
	rctx *core.RecommendContext,
) ([]*core.Item, error) {
	topK := r.TopK
	if topK <= 0 {
		topK = 5
	}

	ids := make([]int64, 0, topK)
	taken := make(map[int64]struct{}, topK)

	if r.KV != nil {
		key := r.Key
		if key == "" {
			key = PopularKey
		}
		// 读全榜再挑：已消费的成员要跳过，只取前 topK 个可用的
		members, err := r.KV.ZRange(ctx, key, 0, -1)
		if err == nil {
			for _, id := range conv.ConvertSlice(members, conv.ParseID) {
				if rctx.Seen(id) {
					continue
				}
				if _, dup := taken[id]; dup {
					continue
				}
				taken[id] = struct{}{}
				ids = append(ids, id)
				if len(ids) >= topK {
					break
				}
			}
		}
	}

	// 榜单成员不足 topK（冷系统只有少量视频被交互过）：
	// 按 videoId 升序从视频表补齐，零播放视频同样是候选
	if len(ids) < topK && r.Store != nil {
		videos, err := r.Store.Videos(ctx)
		if err != nil {
			return nil, err
		}
		for _, v := range videos {
			if rctx.Seen(v.ID) {
				continue
			}
			if _, dup := taken[v.ID]; dup {
				continue
			}
			taken[v.ID] = struct{}{}
			ids = append(ids, v.ID)
			if len(ids) >= topK {
				break
			}
		}
	}

	out := make([]*core.Item, 0, len(ids))
	for _, id := range ids {
		it := core.NewItem(id)
		it.SetReason(ReasonColdStart, "recall")
		it.PutLabel("recall_source", utils.Label{Value: "popular", Source: "recall"})
		out = append(out, it)
	}
	return out, nil
}
