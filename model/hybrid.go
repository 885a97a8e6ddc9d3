package model

import (
	"sync/atomic"
	"time"

	"github.com/rushteam/vidrec/content"
	"github.com/rushteam/vidrec/core"
)

// Hybrid 是内容 + 协同混合模型。
//
// 离线部分（Fit）：
//   - 物品-物品相似度矩阵：全量视频两两计算内容余弦相似度（对称，自相似不参与推荐）
//   - 用户权重向量：对每个交互视频累积交互权重（见 core.Interaction.Weight）
//
// 在线打分：
//   score(candidate) = Σ_{v∈history} weight(v) × sim(v, candidate) / Σ weight(v)
//
// 快照语义与 TwoTower 一致：整体构建、原子发布、发布后只读。
type Hybrid struct {
	snapshot atomic.Pointer[HybridSnapshot]
}

// HybridSnapshot 是一次 Fit 的产物，发布后只读。
type HybridSnapshot struct {
	// Sim 物品-物品相似度（对称；不含自相似项）
	Sim map[int64]map[int64]float64

	// UserWeights userID -> videoID -> 累积交互权重
	UserWeights map[int64]map[int64]float64

	// idx 保留内容索引用于归因（标签重合 vs 文本重合）
	idx *content.Index

	FittedAt time.Time
	Fitted   bool
}

// HybridScore 是一次打分的结果：分数与贡献最大的历史视频。
// TopContributor 决定对外的归因 reason（见 AttributionReason）。
type HybridScore struct {
	Score          float64
	TopContributor int64
}

func NewHybrid() *Hybrid {
	m := &Hybrid{}
	m.snapshot.Store(&HybridSnapshot{})
	return m
}

func (m *Hybrid) Name() string { return "hybrid" }

// Fit 重建相似度矩阵与用户权重并原子发布。空数据集返回 REFIT_FAILED。
func (m *Hybrid) Fit(snap *core.DataSnapshot, idx *content.Index) error {
	if snap == nil || len(snap.Videos) == 0 {
		return core.NewDomainError(core.ModuleModel, core.ErrorCodeRefitFailed, "hybrid: empty dataset")
	}

	next := &HybridSnapshot{
		Sim:         make(map[int64]map[int64]float64, len(snap.Videos)),
		UserWeights: make(map[int64]map[int64]float64),
		idx:         idx,
		FittedAt:    time.Now(),
		Fitted:      len(snap.Interactions) > 0,
	}

	// 相似度矩阵只算上三角，对称回填
	for i, a := range snap.Videos {
		if next.Sim[a.ID] == nil {
			next.Sim[a.ID] = make(map[int64]float64)
		}
		va := idx.VectorOf(a.ID)
		for _, b := range snap.Videos[i+1:] {
			sim := content.Cosine(va, idx.VectorOf(b.ID))
			if sim == 0 {
				continue
			}
			next.Sim[a.ID][b.ID] = sim
			if next.Sim[b.ID] == nil {
				next.Sim[b.ID] = make(map[int64]float64)
			}
			next.Sim[b.ID][a.ID] = sim
		}
	}

	// 同一 (user, video) 的多次交互按加性证据累积
	for _, in := range snap.Interactions {
		uw, ok := next.UserWeights[in.UserID]
		if !ok {
			uw = make(map[int64]float64)
			next.UserWeights[in.UserID] = uw
		}
		uw[in.VideoID] += in.Weight()
	}

	m.snapshot.Store(next)
	return nil
}

// Snapshot 返回当前已发布的快照（永不为 nil）。
func (m *Hybrid) Snapshot() *HybridSnapshot {
	return m.snapshot.Load()
}

// Fitted 返回模型是否至少观测过一条交互并成功拟合。
func (m *Hybrid) Fitted() bool {
	return m.snapshot.Load().Fitted
}

// HasHistory 返回用户是否有交互历史（无历史走冷启动）。
func (s *HybridSnapshot) HasHistory(userID int64) bool {
	return len(s.UserWeights[userID]) > 0
}

// Score 对候选打分。用户无历史或权重和为 0 时返回 ok=false。
func (s *HybridSnapshot) Score(userID, candidate int64) (HybridScore, bool) {
	if !s.Fitted {
		return HybridScore{}, false
	}
	weights := s.UserWeights[userID]
	if len(weights) == 0 {
		return HybridScore{}, false
	}

	var sum, weightSum, best float64
	var top int64
	for videoID, w := range weights {
		weightSum += w
		contrib := w * s.Sim[videoID][candidate]
		sum += contrib
		// 最大加权项决定归因；并列时取更小的 videoId，保证确定性
		if contrib > best || (contrib == best && (top == 0 || videoID < top)) {
			best = contrib
			top = videoID
		}
	}
	if weightSum == 0 {
		return HybridScore{}, false
	}
	return HybridScore{Score: sum / weightSum, TopContributor: top}, true
}

// AttributionReason 根据最大贡献视频与候选的重合方式给出归因：
// 两者存在标签词重合 → "Content-based similarity"；
// 否则（相似度来自描述文本） → "Item-based similarity"。
func (s *HybridSnapshot) AttributionReason(candidate int64, sc HybridScore) string {
	if s.idx != nil && s.idx.SharesLabelTerm(sc.TopContributor, candidate) {
		return "Content-based similarity"
	}
	return "Item-based similarity"
}
