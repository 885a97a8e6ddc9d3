package core

import "github.com/rushteam/vidrec/pkg/utils"

// Item 是推荐链路中的统一承载结构：候选视频、分数、标签。
// Labels 用于解释与策略驱动（对外暴露的 reason 即来自 Label）；Score 用于排序决策。
type Item struct {
	ID     int64
	Score  float64
	Labels map[string]utils.Label
}

func NewItem(id int64) *Item {
	return &Item{
		ID:     id,
		Score:  0,
		Labels: make(map[string]utils.Label),
	}
}

// PutLabel 写入 Label；若已存在同名 key，则按默认 Merge 规则累积。
func (it *Item) PutLabel(key string, lbl utils.Label) {
	if it.Labels == nil {
		it.Labels = make(map[string]utils.Label)
	}
	if old, ok := it.Labels[key]; ok {
		it.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	it.Labels[key] = lbl
}

// Reason 返回候选的推荐理由（"reason" Label 的值），没有则返回空串。
func (it *Item) Reason() string {
	if it.Labels == nil {
		return ""
	}
	return it.Labels["reason"].Value
}

// SetReason 覆盖写入推荐理由。与 PutLabel 不同，理由不做 Merge：
// 对外只展示最终归因，不展示历史。
func (it *Item) SetReason(reason, source string) {
	if it.Labels == nil {
		it.Labels = make(map[string]utils.Label)
	}
	it.Labels["reason"] = utils.Label{Value: reason, Source: source}
}
