package filter

import (
	"context"

	"github.com/rushteam/vidrec/core"
)

// WatchedFilter 过滤掉用户已经交互过的视频（饱和候选）。
// 历史集合由 Service 在构造 RecommendContext 时一次性填充，
// 过滤过程不再访问存储。
type WatchedFilter struct{}

func (f *WatchedFilter) Name() string {
	return "filter.watched"
}

func (f *WatchedFilter) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil || rctx == nil {
		return false, nil
	}
	return rctx.Seen(item.ID), nil
}
