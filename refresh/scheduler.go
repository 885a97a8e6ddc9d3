// Package refresh 负责双塔/混合模型的周期性离线重训。
// 老虎机不在此列：它随交互同步更新。
package refresh

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/rushteam/vidrec/content"
	"github.com/rushteam/vidrec/core"
	"github.com/rushteam/vidrec/model"
	"github.com/rushteam/vidrec/pkg/logging"
)

// Scheduler 周期性地（默认 30s）基于 InteractionStore 快照重建内容索引并
// 重训 TwoTower / Hybrid，重训产物整体构建后原子发布。
//
// 约束：
//   - 重训永不阻塞在线读：读者只会看到上一版或新版完整快照
//   - singleflight 保证同一时刻至多一次重训在进行（tick 与手动触发不叠加）
//   - 单次重训失败（如空数据集）只记日志并保留旧快照，循环继续
type Scheduler struct {
	Store    core.InteractionStore
	TwoTower *model.TwoTower
	Hybrid   *model.Hybrid

	// Period 重训周期，默认 30 秒
	Period time.Duration

	Logger *logging.Logger

	group  singleflight.Group
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func NewScheduler(store core.InteractionStore, twoTower *model.TwoTower, hybrid *model.Hybrid, period time.Duration, logger *logging.Logger) *Scheduler {
	if period <= 0 {
		period = 30 * time.Second
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Scheduler{
		Store:    store,
		TwoTower: twoTower,
		Hybrid:   hybrid,
		Period:   period,
		Logger:   logger,
	}
}

// Start 启动后台重训循环。重复调用只生效一次。
func (s *Scheduler) Start() {
	s.once.Do(func() {
		ctx, cancel := context.WithCancel(context.Background())
		s.cancel = cancel
		s.done = make(chan struct{})
		go s.run(ctx)
	})
}

// Stop 停止循环并等待当前 tick 退出。未 Start 过时为空操作。
func (s *Scheduler) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.Period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Refresh(ctx); err != nil {
				// 失败保留旧快照，循环继续
				s.Logger.Warn("model refresh failed", "err", err)
			}
		}
	}
}

// Refresh 立即执行一次重训（singleflight 合并并发请求）。
// 失败返回 REFIT_FAILED 语义的错误，调用方可据此区分但不应终止服务。
func (s *Scheduler) Refresh(ctx context.Context) error {
	_, err, _ := s.group.Do("refit", func() (any, error) {
		return nil, s.refit(ctx)
	})
	return err
}

func (s *Scheduler) refit(ctx context.Context) error {
	started := time.Now()

	snap, err := s.Store.Snapshot(ctx)
	if err != nil {
		return core.NewDomainError(core.ModuleScheduler, core.ErrorCodeRefitFailed, "snapshot: "+err.Error())
	}

	// 内容索引整体重建（不做增量词表更新）
	idx := content.Build(snap.Videos)

	// 两个模型互不依赖，并行重训；各自失败只影响自己的快照
	var g errgroup.Group
	g.Go(func() error { return s.TwoTower.Fit(snap, idx) })
	g.Go(func() error { return s.Hybrid.Fit(snap, idx) })
	if err := g.Wait(); err != nil {
		return err
	}

	s.Logger.Info("models refreshed",
		"videos", len(snap.Videos),
		"interactions", len(snap.Interactions),
		"elapsed", time.Since(started),
	)
	return nil
}
