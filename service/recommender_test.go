package service

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/rushteam/vidrec/core"
	"github.com/rushteam/vidrec/model"
	"github.com/rushteam/vidrec/recall"
	"github.com/rushteam/vidrec/store"
)

func seedVideos(t *testing.T, rec *Recommender) {
	t.Helper()
	videos := []*core.Video{
		{ID: 10, Text: "space rockets launch", Labels: []string{"space"}},
		{ID: 11, Text: "rockets and space stations", Labels: []string{"space"}},
		{ID: 12, Text: "space telescope images", Labels: []string{"space"}},
		{ID: 13, Text: "rockets landing space", Labels: []string{"space"}},
		{ID: 14, Text: "space suits for rockets", Labels: []string{"space"}},
		{ID: 15, Text: "pasta carbonara recipe", Labels: []string{"food"}},
	}
	if err := rec.SeedVideos(context.Background(), videos); err != nil {
		t.Fatalf("SeedVideos() error = %v", err)
	}
}

func newTestRecommender(t *testing.T, opts ...Option) (*Recommender, *store.MemoryStore) {
	t.Helper()
	m := store.NewMemoryStore()
	opts = append([]Option{WithRand(rand.New(rand.NewSource(1)))}, opts...)
	rec := NewRecommender(m, m, opts...)
	seedVideos(t, rec)
	return rec, m
}

func TestRecommendUnknownAlgorithm(t *testing.T) {
	rec, _ := newTestRecommender(t)
	_, err := rec.Recommend(context.Background(), "pagerank", 1)
	if !core.IsUnknownAlgorithm(err) {
		t.Errorf("Recommend(pagerank) error = %v, want UNKNOWN_ALGORITHM", err)
	}
}

func TestRecommendColdStart(t *testing.T) {
	rec, _ := newTestRecommender(t, WithEpsilon(0))

	tests := []struct {
		algorithm  string
		label      string
		wantReason string
	}{
		{algorithm: AlgorithmTwoTower, label: "Two Tower", wantReason: recall.ReasonColdStart},
		{algorithm: AlgorithmHybrid, label: "Hybrid (Item-based + Content-based)", wantReason: recall.ReasonColdStart},
		{algorithm: AlgorithmBandit, label: "Multi-Armed Bandit (Epsilon-Greedy)", wantReason: model.ReasonColdStart},
	}

	for _, tt := range tests {
		t.Run(tt.algorithm, func(t *testing.T) {
			resp, err := rec.Recommend(context.Background(), tt.algorithm, 42)
			if err != nil {
				t.Fatalf("Recommend() error = %v", err)
			}
			if resp.Algorithm != tt.label {
				t.Errorf("algorithm label = %q, want %q", resp.Algorithm, tt.label)
			}
			if len(resp.Recommendations) != 5 {
				t.Fatalf("len = %d, want 5", len(resp.Recommendations))
			}
			for _, r := range resp.Recommendations {
				if r.Reason != tt.wantReason {
					t.Errorf("reason = %q, want %q", r.Reason, tt.wantReason)
				}
			}
		})
	}
}

func TestRecordInteractionInvalid(t *testing.T) {
	rec, _ := newTestRecommender(t)
	err := rec.RecordInteraction(context.Background(), &core.Interaction{UserID: 1, VideoID: 10, Liked: 5})
	if !core.IsInvalidInput(err) {
		t.Fatalf("RecordInteraction() error = %v, want INVALID_INPUT", err)
	}

	// 校验失败无任何副作用
	stats, err := rec.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.TotalInteractions != 0 || stats.BanditArms != 0 {
		t.Errorf("stats after invalid interaction = %+v, want no side effects", stats)
	}
}

func TestRecordInteractionSideEffects(t *testing.T) {
	rec, m := newTestRecommender(t)
	ctx := context.Background()

	if err := rec.RecordInteraction(ctx, &core.Interaction{UserID: 1, VideoID: 10, WatchedPercent: 90, Liked: 1}); err != nil {
		t.Fatalf("RecordInteraction() error = %v", err)
	}

	stats, err := rec.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.TotalInteractions != 1 || stats.TotalUsers != 1 || stats.BanditArms != 1 {
		t.Errorf("stats = %+v", stats)
	}

	// 热度榜同步加一
	score, err := m.ZScore(ctx, recall.PopularKey, "10")
	if err != nil || score != 1 {
		t.Errorf("popularity score = %v, %v; want 1, nil", score, err)
	}
}

func TestRecommendHybridAfterRefresh(t *testing.T) {
	rec, _ := newTestRecommender(t, WithEpsilon(0))
	ctx := context.Background()

	if err := rec.RecordInteraction(ctx, &core.Interaction{UserID: 1, VideoID: 10, WatchedPercent: 90, Liked: 1}); err != nil {
		t.Fatalf("RecordInteraction() error = %v", err)
	}
	if err := rec.NewScheduler(time.Minute, nil).Refresh(ctx); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	resp, err := rec.Recommend(ctx, AlgorithmHybrid, 1)
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if len(resp.Recommendations) != 5 {
		t.Fatalf("len = %d, want 5", len(resp.Recommendations))
	}

	seen := map[int64]bool{}
	for _, r := range resp.Recommendations {
		if r.VideoID == 10 {
			t.Error("watched video must not be recommended")
		}
		if seen[r.VideoID] {
			t.Errorf("video %d appears twice", r.VideoID)
		}
		seen[r.VideoID] = true
	}

	last := resp.Recommendations[4]
	if last.Reason != recall.ReasonExploration {
		t.Errorf("last slot reason = %q, want %q", last.Reason, recall.ReasonExploration)
	}
	if last.Score != recall.ExplorationScore {
		t.Errorf("exploration score = %v, want %v", last.Score, recall.ExplorationScore)
	}
}

func TestRecommendTwoTowerAfterRefresh(t *testing.T) {
	rec, _ := newTestRecommender(t)
	ctx := context.Background()

	if err := rec.RecordInteraction(ctx, &core.Interaction{UserID: 1, VideoID: 10, WatchedPercent: 90, Liked: 1}); err != nil {
		t.Fatalf("RecordInteraction() error = %v", err)
	}
	if err := rec.NewScheduler(time.Minute, nil).Refresh(ctx); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	resp, err := rec.Recommend(ctx, AlgorithmTwoTower, 1)
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if len(resp.Recommendations) == 0 || len(resp.Recommendations) > 5 {
		t.Fatalf("len = %d, want 1..5", len(resp.Recommendations))
	}
	for i, r := range resp.Recommendations {
		if r.VideoID == 10 {
			t.Error("watched video must be filtered out")
		}
		if r.Reason != recall.ReasonTwoTower {
			t.Errorf("reason = %q, want %q", r.Reason, recall.ReasonTwoTower)
		}
		if i > 0 && r.Score > resp.Recommendations[i-1].Score {
			t.Errorf("scores not descending at %d", i)
		}
	}
}

func TestRecommendBanditExploitsAfterFeedback(t *testing.T) {
	rec, _ := newTestRecommender(t, WithEpsilon(0))
	ctx := context.Background()

	// 用户 2 给视频 12 高奖励；用户 1 请求时视频 12 应排第一
	if err := rec.RecordInteraction(ctx, &core.Interaction{UserID: 2, VideoID: 12, WatchedPercent: 100, Liked: 1}); err != nil {
		t.Fatalf("RecordInteraction() error = %v", err)
	}

	resp, err := rec.Recommend(ctx, AlgorithmBandit, 1)
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if len(resp.Recommendations) != 5 {
		t.Fatalf("len = %d, want 5", len(resp.Recommendations))
	}
	first := resp.Recommendations[0]
	if first.VideoID != 12 || first.Reason != model.ReasonExploitBest {
		t.Errorf("first = %d (%q), want 12 (%q)", first.VideoID, first.Reason, model.ReasonExploitBest)
	}
}

func TestRecommendFallbackFullWithPartialLeaderboard(t *testing.T) {
	// 模型未拟合、榜单只有 1 个成员、用户自己有历史：
	// 兜底响应仍须返回满 5 条，且不含已观看视频
	rec, _ := newTestRecommender(t, WithEpsilon(0))
	ctx := context.Background()

	if err := rec.RecordInteraction(ctx, &core.Interaction{UserID: 1, VideoID: 10, WatchedPercent: 90, Liked: 1}); err != nil {
		t.Fatalf("RecordInteraction() error = %v", err)
	}

	for _, algorithm := range []string{AlgorithmTwoTower, AlgorithmHybrid} {
		t.Run(algorithm, func(t *testing.T) {
			resp, err := rec.Recommend(ctx, algorithm, 1)
			if err != nil {
				t.Fatalf("Recommend() error = %v", err)
			}
			if len(resp.Recommendations) != 5 {
				t.Fatalf("len = %d, want 5 (6 videos exist)", len(resp.Recommendations))
			}
			for _, r := range resp.Recommendations {
				if r.VideoID == 10 {
					t.Error("watched video must not appear in the fallback response")
				}
			}
		})
	}
}

func TestBanditStateSurvivesRestart(t *testing.T) {
	m := store.NewMemoryStore()
	rec := NewRecommender(m, m, WithEpsilon(0))
	seedVideos(t, rec)
	ctx := context.Background()

	if err := rec.RecordInteraction(ctx, &core.Interaction{UserID: 2, VideoID: 12, WatchedPercent: 100, Liked: 1}); err != nil {
		t.Fatalf("RecordInteraction() error = %v", err)
	}

	// 同一 KV 之上重建服务：臂状态从持久化恢复
	restarted := NewRecommender(m, m, WithEpsilon(0))

	stats, err := restarted.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.BanditArms != 1 {
		t.Fatalf("bandit_arms after restart = %d, want 1", stats.BanditArms)
	}

	resp, err := restarted.Recommend(ctx, AlgorithmBandit, 1)
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	first := resp.Recommendations[0]
	if first.VideoID != 12 || first.Reason != model.ReasonExploitBest {
		t.Errorf("first = %d (%q), want 12 (%q): restored rewards must drive exploitation", first.VideoID, first.Reason, model.ReasonExploitBest)
	}
}

func TestStatsIdempotent(t *testing.T) {
	rec, _ := newTestRecommender(t)
	ctx := context.Background()
	if err := rec.RecordInteraction(ctx, &core.Interaction{UserID: 1, VideoID: 10, WatchedPercent: 50}); err != nil {
		t.Fatalf("RecordInteraction() error = %v", err)
	}

	a, err := rec.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	b, err := rec.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if *a != *b {
		t.Errorf("stats not idempotent: %+v vs %+v", a, b)
	}
}

func TestVideoStats(t *testing.T) {
	rec, _ := newTestRecommender(t)
	ctx := context.Background()
	if err := rec.RecordInteraction(ctx, &core.Interaction{UserID: 1, VideoID: 10, WatchedPercent: 95, Liked: 1}); err != nil {
		t.Fatalf("RecordInteraction() error = %v", err)
	}

	stats, err := rec.VideoStats(ctx, 10)
	if err != nil {
		t.Fatalf("VideoStats() error = %v", err)
	}
	if stats.Views != 1 || stats.Likes != 1 || stats.CompletionRate != 1 {
		t.Errorf("stats = %+v", stats)
	}

	if _, err := rec.VideoStats(ctx, 999); !core.IsNotFound(err) {
		t.Errorf("VideoStats(999) error = %v, want NOT_FOUND", err)
	}
}

func TestRuleFilterDropsExplorationSlot(t *testing.T) {
	rec, _ := newTestRecommender(t,
		WithEpsilon(0),
		WithRuleFilters([]string{`label.reason != "Exploration"`}),
	)
	ctx := context.Background()

	if err := rec.RecordInteraction(ctx, &core.Interaction{UserID: 1, VideoID: 10, WatchedPercent: 90, Liked: 1}); err != nil {
		t.Fatalf("RecordInteraction() error = %v", err)
	}
	if err := rec.NewScheduler(time.Minute, nil).Refresh(ctx); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	resp, err := rec.Recommend(ctx, AlgorithmHybrid, 1)
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	for _, r := range resp.Recommendations {
		if r.Reason == recall.ReasonExploration {
			t.Errorf("exploration slot must be filtered by rule, got %+v", r)
		}
	}
}
