package refresh

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rushteam/vidrec/core"
	"github.com/rushteam/vidrec/model"
	"github.com/rushteam/vidrec/store"
)

func seedStore(t *testing.T, m *store.MemoryStore) {
	t.Helper()
	ctx := context.Background()
	videos := []*core.Video{
		{ID: 1, Text: "space rockets", Labels: []string{"space"}},
		{ID: 2, Text: "space stations", Labels: []string{"space"}},
		{ID: 3, Text: "pasta recipe", Labels: []string{"food"}},
	}
	for _, v := range videos {
		if err := m.AddVideo(ctx, v); err != nil {
			t.Fatalf("AddVideo() error = %v", err)
		}
	}
	if err := m.AppendInteraction(ctx, &core.Interaction{UserID: 1, VideoID: 1, WatchedPercent: 80, Liked: 1}); err != nil {
		t.Fatalf("AppendInteraction() error = %v", err)
	}
}

func TestRefreshEmptyStoreKeepsUnfitted(t *testing.T) {
	m := store.NewMemoryStore()
	tt := model.NewTwoTower()
	hy := model.NewHybrid()
	s := NewScheduler(m, tt, hy, time.Minute, nil)

	err := s.Refresh(context.Background())
	if !core.IsRefitFailed(err) {
		t.Errorf("Refresh() on empty store error = %v, want REFIT_FAILED", err)
	}
	if tt.Fitted() || hy.Fitted() {
		t.Error("models must stay unfitted after failed refresh")
	}
}

func TestRefreshFitsModels(t *testing.T) {
	m := store.NewMemoryStore()
	seedStore(t, m)

	tt := model.NewTwoTower()
	hy := model.NewHybrid()
	s := NewScheduler(m, tt, hy, time.Minute, nil)

	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if !tt.Fitted() {
		t.Error("two tower must be fitted")
	}
	if !hy.Fitted() {
		t.Error("hybrid must be fitted")
	}
}

func TestRefreshConcurrent(t *testing.T) {
	m := store.NewMemoryStore()
	seedStore(t, m)
	s := NewScheduler(m, model.NewTwoTower(), model.NewHybrid(), time.Minute, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.Refresh(context.Background()); err != nil {
				t.Errorf("Refresh() error = %v", err)
			}
		}()
	}
	wg.Wait()
}

func TestSchedulerStartStop(t *testing.T) {
	m := store.NewMemoryStore()
	seedStore(t, m)

	tt := model.NewTwoTower()
	hy := model.NewHybrid()
	s := NewScheduler(m, tt, hy, 10*time.Millisecond, nil)

	s.Start()
	defer s.Stop()

	deadline := time.After(2 * time.Second)
	for !tt.Fitted() || !hy.Fitted() {
		select {
		case <-deadline:
			t.Fatal("models not fitted within deadline")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestSchedulerStopWithoutStart(t *testing.T) {
	s := NewScheduler(store.NewMemoryStore(), model.NewTwoTower(), model.NewHybrid(), time.Minute, nil)
	s.Stop() // 不应 panic
}

func TestNewSchedulerDefaults(t *testing.T) {
	s := NewScheduler(store.NewMemoryStore(), model.NewTwoTower(), model.NewHybrid(), 0, nil)
	if s.Period != 30*time.Second {
		t.Errorf("default period = %v, want 30s", s.Period)
	}
	if s.Logger == nil {
		t.Error("logger must default to nop")
	}
}
