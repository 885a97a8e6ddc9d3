package model

import (
	"sync/atomic"
	"time"

	"github.com/rushteam/vidrec/content"
	"github.com/rushteam/vidrec/core"
)

// TwoTower 是双塔模型（User Tower + Item Tower）。
//
// 核心思想：
//   - Item Tower：视频向量直接取内容索引的 TF-IDF 向量
//   - User Tower：用户向量 = 交互过的视频向量按交互权重加权求和后归一化
//   - 相似度计算：User Embedding 和 Item Embedding 的余弦相似度
//
// 快照语义：Fit 离线构建一个全新的 TwoTowerSnapshot，构建完成后一次性
// 原子发布；读者要么看到上一版完整快照，要么看到新版完整快照，
// 永远不会看到写到一半的状态。快照发布后不再修改。
type TwoTower struct {
	snapshot atomic.Pointer[TwoTowerSnapshot]
}

// TwoTowerSnapshot 是一次 Fit 的产物，发布后只读。
type TwoTowerSnapshot struct {
	UserEmb  map[int64]content.Vector
	VideoEmb map[int64]content.Vector
	FittedAt time.Time
	Fitted   bool
}

func NewTwoTower() *TwoTower {
	m := &TwoTower{}
	m.snapshot.Store(&TwoTowerSnapshot{})
	return m
}

func (m *TwoTower) Name() string { return "two_tower" }

// Fit 基于数据快照与内容索引重建嵌入并原子发布。
// 空数据集返回 REFIT_FAILED，保留上一版快照。
// 一旦成功 Fit 过，后续的重训只会进入新的 Fitted 状态，不会回退到未拟合。
func (m *TwoTower) Fit(snap *core.DataSnapshot, idx *content.Index) error {
	if snap == nil || len(snap.Interactions) == 0 || len(snap.Videos) == 0 {
		return core.NewDomainError(core.ModuleModel, core.ErrorCodeRefitFailed, "two_tower: empty dataset")
	}

	next := &TwoTowerSnapshot{
		UserEmb:  make(map[int64]content.Vector),
		VideoEmb: make(map[int64]content.Vector, len(snap.Videos)),
		FittedAt: time.Now(),
		Fitted:   true,
	}

	for _, v := range snap.Videos {
		if vec := idx.VectorOf(v.ID); vec != nil {
			next.VideoEmb[v.ID] = vec
		}
	}

	// 用户向量：多次交互视为累加的证据，权重叠加后整体归一化
	sums := make(map[int64]content.Vector)
	for _, in := range snap.Interactions {
		vec := idx.VectorOf(in.VideoID)
		if vec == nil {
			continue
		}
		sum, ok := sums[in.UserID]
		if !ok {
			sum = make(content.Vector)
			sums[in.UserID] = sum
		}
		sum.AddScaled(vec, in.Weight())
	}
	for userID, sum := range sums {
		norm := sum.Normalized()
		if len(norm) > 0 {
			next.UserEmb[userID] = norm
		}
	}

	m.snapshot.Store(next)
	return nil
}

// Snapshot 返回当前已发布的快照（永不为 nil）。
func (m *TwoTower) Snapshot() *TwoTowerSnapshot {
	return m.snapshot.Load()
}

// Fitted 返回模型是否至少成功拟合过一次。
func (m *TwoTower) Fitted() bool {
	return m.snapshot.Load().Fitted
}

// Score 返回 user × video 的余弦相似度。
// 用户或视频缺少向量（冷启动）时返回 ok=false，由调用方走 fallback。
func (s *TwoTowerSnapshot) Score(userID, videoID int64) (float64, bool) {
	if !s.Fitted {
		return 0, false
	}
	userEmb, ok := s.UserEmb[userID]
	if !ok {
		return 0, false
	}
	videoEmb, ok := s.VideoEmb[videoID]
	if !ok {
		return 0, false
	}
	return content.Cosine(userEmb, videoEmb), true
}
