package core

import "time"

// Video 是推荐候选的基本单元。内容由外部灌入（ingestion），引擎只读。
type Video struct {
	ID     int64
	Text   string   // 描述文本
	Labels []string // 标签集合
}

// User 注册时创建，引擎不修改用户属性。
type User struct {
	ID       int64
	Username string
}

// Interaction 是一条用户-视频交互事件。只追加、全量保留：
// 同一 (userId, videoId) 的多次交互都是独立的历史证据，不做 last-write-wins。
type Interaction struct {
	UserID         int64
	VideoID        int64
	WatchedPercent int        // [0, 100]
	Liked          int        // -1 / 0 / 1
	WhenReacted    *int       // [0, 100]，可选：点赞/点踩发生时的播放进度
	Timestamp      time.Time
}

// Validate 校验字段范围。越界返回 INVALID_INPUT 领域错误，交互不应入库。
func (i *Interaction) Validate() error {
	if i.Liked != -1 && i.Liked != 0 && i.Liked != 1 {
		return NewDomainError(ModuleStore, ErrorCodeInvalidInput, "interaction: liked must be -1, 0 or 1")
	}
	if i.WatchedPercent < 0 || i.WatchedPercent > 100 {
		return NewDomainError(ModuleStore, ErrorCodeInvalidInput, "interaction: watched_percent must be in [0, 100]")
	}
	if i.WhenReacted != nil && (*i.WhenReacted < 0 || *i.WhenReacted > 100) {
		return NewDomainError(ModuleStore, ErrorCodeInvalidInput, "interaction: whenReacted must be in [0, 100]")
	}
	return nil
}

// Weight 返回该交互在用户画像里的权重：
// watched/100 × (1.5 点赞 / 0.3 点踩 / 1.0 中性)。
// TwoTower 的用户向量加权与 Hybrid 的用户权重向量共用此定义。
func (i *Interaction) Weight() float64 {
	w := float64(i.WatchedPercent) / 100.0
	switch i.Liked {
	case 1:
		w *= 1.5
	case -1:
		w *= 0.3
	}
	return w
}

// VideoStats 是单个视频的聚合统计。
// Comments/Shares 为外部计数器，引擎本身不追踪时为 0。
type VideoStats struct {
	VideoID         int64   `json:"videoId"`
	Likes           int64   `json:"likes"`
	Dislikes        int64   `json:"dislikes"`
	Comments        int64   `json:"comments"`
	Shares          int64   `json:"shares"`
	Views           int64   `json:"views"`
	AvgWatchPercent float64 `json:"avg_watch_percent"`
	CompletionRate  float64 `json:"completion_rate"` // watched ≥ 90 的占比
}

// Counts 是全局聚合计数，供 /stats 使用。
type Counts struct {
	Interactions int64
	Videos       int64
	Users        int64 // 交互表中去重后的用户数
}
