package core

import "github.com/rushteam/vidrec/pkg/utils"

// RecommendContext 承载一次推荐请求的用户/场景信息，贯穿整个 Pipeline 透传。
type RecommendContext struct {
	UserID int64

	// Algorithm 是本次请求指定的算法名（twoTower / hybrid / bandit）。
	Algorithm string

	// History 是用户已交互过的视频集合，由 Service 在进入 Pipeline 前填充。
	// Filter / Recall 节点据此排除已消费内容。
	History map[int64]struct{}

	// Labels 是用户级标签，可驱动整个 Pipeline 行为（例如：新用户）。
	Labels map[string]utils.Label

	// Params 请求级上下文参数。
	Params map[string]any
}

// Seen 返回用户是否已经交互过该视频。
func (rctx *RecommendContext) Seen(videoID int64) bool {
	if rctx == nil || rctx.History == nil {
		return false
	}
	_, ok := rctx.History[videoID]
	return ok
}

// PutLabel 写入用户级 Label。
func (rctx *RecommendContext) PutLabel(key string, lbl utils.Label) {
	if rctx.Labels == nil {
		rctx.Labels = make(map[string]utils.Label)
	}
	if old, ok := rctx.Labels[key]; ok {
		rctx.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	rctx.Labels[key] = lbl
}

// GetLabel 获取用户级 Label。
func (rctx *RecommendContext) GetLabel(key string) (utils.Label, bool) {
	if rctx.Labels == nil {
		return utils.Label{}, false
	}
	lbl, ok := rctx.Labels[key]
	return lbl, ok
}
