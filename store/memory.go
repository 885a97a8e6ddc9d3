package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rushteam/vidrec/core"
)

// MemoryStore 是内存实现的 InteractionStore + KeyValueStore，
// 用于测试/开发/单进程部署。进程重启后数据丢失。
type MemoryStore struct {
	mu           sync.RWMutex
	interactions []*core.Interaction
	videos       map[int64]*core.Video
	data         map[string][]byte
	zsets        map[string]map[string]float64 // zset key -> member -> score
}

var (
	_ core.InteractionStore = (*MemoryStore)(nil)
	_ core.KeyValueStore    = (*MemoryStore)(nil)
)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		videos: make(map[int64]*core.Video),
		data:   make(map[string][]byte),
		zsets:  make(map[string]map[string]float64),
	}
}

func (m *MemoryStore) Name() string { return "memory" }

func (m *MemoryStore) AppendInteraction(ctx context.Context, in *core.Interaction) error {
	if err := in.Validate(); err != nil {
		return err
	}

	cp := *in
	if cp.Timestamp.IsZero() {
		cp.Timestamp = time.Now()
	}
	if in.WhenReacted != nil {
		w := *in.WhenReacted
		cp.WhenReacted = &w
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.interactions = append(m.interactions, &cp)
	return nil
}

func (m *MemoryStore) AddVideo(ctx context.Context, v *core.Video) error {
	cp := core.Video{ID: v.ID, Text: v.Text, Labels: append([]string(nil), v.Labels...)}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.videos[v.ID] = &cp
	return nil
}

func (m *MemoryStore) Videos(ctx context.Context) ([]*core.Video, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.videosLocked(), nil
}

// videosLocked 返回按 ID 升序的视频副本列表，调用方需持有读锁。
func (m *MemoryStore) videosLocked() []*core.Video {
	out := make([]*core.Video, 0, len(m.videos))
	for _, v := range m.videos {
		cp := *v
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *MemoryStore) UserHistory(ctx context.Context, userID int64) ([]*core.Interaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*core.Interaction, 0)
	for _, in := range m.interactions {
		if in.UserID == userID {
			cp := *in
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MemoryStore) Snapshot(ctx context.Context) (*core.DataSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := &core.DataSnapshot{
		Interactions: make([]*core.Interaction, 0, len(m.interactions)),
		Videos:       m.videosLocked(),
		TakenAt:      time.Now(),
	}
	for _, in := range m.interactions {
		cp := *in
		snap.Interactions = append(snap.Interactions, &cp)
	}
	return snap, nil
}

func (m *MemoryStore) StatsFor(ctx context.Context, videoID int64) (*core.VideoStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.videos[videoID]; !ok {
		return nil, core.ErrStoreNotFound
	}

	stats := &core.VideoStats{VideoID: videoID}
	var watchedSum, completed int64
	for _, in := range m.interactions {
		if in.VideoID != videoID {
			continue
		}
		stats.Views++
		watchedSum += int64(in.WatchedPercent)
		if in.WatchedPercent >= 90 {
			completed++
		}
		switch in.Liked {
		case 1:
			stats.Likes++
		case -1:
			stats.Dislikes++
		}
	}
	if stats.Views > 0 {
		stats.AvgWatchPercent = float64(watchedSum) / float64(stats.Views)
		stats.CompletionRate = float64(completed) / float64(stats.Views)
	}
	return stats, nil
}

func (m *MemoryStore) Counts(ctx context.Context) (*core.Counts, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	users := make(map[int64]struct{})
	for _, in := range m.interactions {
		users[in.UserID] = struct{}{}
	}
	return &core.Counts{
		Interactions: int64(len(m.interactions)),
		Videos:       int64(len(m.videos)),
		Users:        int64(len(users)),
	}, nil
}

func (m *MemoryStore) Close() error { return nil }

// KeyValueStore 实现（热度榜等轻量状态）

func (m *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.data[key]
	if !ok {
		return nil, core.ErrStoreNotFound
	}
	return v, nil
}

func (m *MemoryStore) Set(ctx context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *MemoryStore) ZIncrBy(ctx context.Context, key string, incr float64, member string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.zsets[key] == nil {
		m.zsets[key] = make(map[string]float64)
	}
	m.zsets[key][member] += incr
	return nil
}

func (m *MemoryStore) ZRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	zset, ok := m.zsets[key]
	if !ok || len(zset) == 0 {
		return nil, nil
	}

	// 转换为 slice 并按 score 降序排序；同分按 member 升序，保证确定性
	type pair struct {
		member string
		score  float64
	}
	pairs := make([]pair, 0, len(zset))
	for mem, s := range zset {
		pairs = append(pairs, pair{member: mem, score: s})
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].score != pairs[j].score {
			return pairs[i].score > pairs[j].score
		}
		return pairs[i].member < pairs[j].member
	})

	if start < 0 {
		start = 0
	}
	if stop < 0 || stop >= int64(len(pairs)) {
		stop = int64(len(pairs)) - 1
	}
	if start > stop {
		return nil, nil
	}

	result := make([]string, 0, stop-start+1)
	for i := start; i <= stop && i < int64(len(pairs)); i++ {
		result = append(result, pairs[i].member)
	}
	return result, nil
}

func (m *MemoryStore) ZScore(ctx context.Context, key string, member string) (float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	zset, ok := m.zsets[key]
	if !ok {
		return 0, core.ErrStoreNotFound
	}
	score, ok := zset[member]
	if !ok {
		return 0, core.ErrStoreNotFound
	}
	return score, nil
}
