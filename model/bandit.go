package model

import (
	"math"
	"math/rand"
	"sort"
	"sync"
)

// 多臂老虎机的推荐理由
const (
	ReasonExplore     = "Exploration (random)"
	ReasonExploitBest = "Exploitation (best performing)"
	ReasonExploit     = "Exploitation"
	ReasonColdStart   = "Cold start (no data)"
)

// Arm 是一个视频对应的臂：拉动次数与累计奖励。创建后永不删除。
type Arm struct {
	PullCount   int64   `json:"pulls"`
	TotalReward float64 `json:"reward"`
}

// AverageReward = TotalReward / max(PullCount, 1)。
func (a *Arm) AverageReward() float64 {
	return a.TotalReward / math.Max(float64(a.PullCount), 1)
}

// Bandit 是 epsilon-greedy 多臂老虎机。
//
// 与 TwoTower/Hybrid 不同，Bandit 不走定时重训：Update 同步更新臂状态，
// 对下一次 ChooseCandidates 立即可见。
//
// 并发约束：臂的更新持写锁；一次候选选择在开始时对所有臂均值做一份
// 稳定拷贝，之后的挑选不再读共享状态，避免在选择过程中看到改了一半的奖励。
type Bandit struct {
	mu   sync.RWMutex
	arms map[int64]*Arm

	epsilon float64
	rng     *rand.Rand
}

// BanditChoice 是一次选择的结果。
type BanditChoice struct {
	VideoID int64
	Score   float64
	Reason  string
}

type BanditOption func(*Bandit)

// WithEpsilon 设置探索概率（默认 0.1）。
func WithEpsilon(epsilon float64) BanditOption {
	return func(b *Bandit) { b.epsilon = epsilon }
}

// WithRand 注入随机源（测试/回放用；默认使用全局源）。
func WithRand(rng *rand.Rand) BanditOption {
	return func(b *Bandit) { b.rng = rng }
}

func NewBandit(opts ...BanditOption) *Bandit {
	b := &Bandit{
		arms:    make(map[int64]*Arm),
		epsilon: 0.1,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Bandit) Name() string { return "bandit" }

// Update 按交互计算奖励并同步更新臂：
// reward = (liked==1 ? 1.0 : liked==-1 ? -0.5 : 0.0) + watched/100。
// 臂在首次奖励时惰性创建。
func (b *Bandit) Update(videoID int64, liked int, watchedPercent int) {
	var reward float64
	switch liked {
	case 1:
		reward = 1.0
	case -1:
		reward = -0.5
	}
	reward += float64(watchedPercent) / 100.0

	b.mu.Lock()
	defer b.mu.Unlock()
	arm, ok := b.arms[videoID]
	if !ok {
		arm = &Arm{}
		b.arms[videoID] = arm
	}
	arm.TotalReward += reward
	arm.PullCount++
}

// ArmCount 返回当前臂数量。
func (b *Bandit) ArmCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.arms)
}

// Arms 返回所有臂状态的稳定拷贝（持久化用）。
func (b *Bandit) Arms() map[int64]Arm {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[int64]Arm, len(b.arms))
	for id, arm := range b.arms {
		out[id] = *arm
	}
	return out
}

// Restore 以给定臂状态整体替换当前状态（进程重启后从持久化恢复用）。
func (b *Bandit) Restore(arms map[int64]Arm) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.arms = make(map[int64]*Arm, len(arms))
	for id, arm := range arms {
		cp := arm
		b.arms[id] = &cp
	}
}

// ArmAverages 返回所有臂均值的稳定拷贝。
func (b *Bandit) ArmAverages() map[int64]float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[int64]float64, len(b.arms))
	for id, arm := range b.arms {
		out[id] = arm.AverageReward()
	}
	return out
}

// ChooseCandidates 从 available 中用 epsilon-greedy 选出至多 k 个视频（不放回）。
//   - 概率 ε：均匀随机选一个，reason "Exploration (random)"，score 0
//   - 否则：选均值最高的有臂视频；首个利用位 reason "Exploitation (best performing)"，
//     后续利用位 "Exploitation"；均值并列取更小的 videoId
//   - 没有任何有臂视频可利用时随机选择，reason "Cold start (no data)"
//
// available 少于 k 时返回全部。
func (b *Bandit) ChooseCandidates(available []int64, k int) []BanditChoice {
	if len(available) == 0 || k <= 0 {
		return nil
	}

	// 选择开始时取一份稳定的均值拷贝，整个过程不再碰共享状态
	averages := b.ArmAverages()

	remaining := make([]int64, len(available))
	copy(remaining, available)
	sort.Slice(remaining, func(i, j int) bool { return remaining[i] < remaining[j] })

	if k > len(remaining) {
		k = len(remaining)
	}

	out := make([]BanditChoice, 0, k)
	exploited := false
	for len(out) < k {
		var pick int
		var choice BanditChoice

		if b.randFloat() < b.epsilon {
			pick = b.randIntn(len(remaining))
			choice = BanditChoice{VideoID: remaining[pick], Reason: ReasonExplore}
		} else {
			pick = -1
			bestAvg := math.Inf(-1)
			for i, id := range remaining {
				avg, ok := averages[id]
				if !ok {
					continue
				}
				// remaining 升序，avg 相同时保留先遇到的更小 videoId
				if avg > bestAvg {
					bestAvg = avg
					pick = i
				}
			}
			if pick >= 0 {
				reason := ReasonExploit
				if !exploited {
					reason = ReasonExploitBest
					exploited = true
				}
				choice = BanditChoice{VideoID: remaining[pick], Score: bestAvg, Reason: reason}
			} else {
				// 没有任何臂可利用：冷启动随机
				pick = b.randIntn(len(remaining))
				choice = BanditChoice{VideoID: remaining[pick], Reason: ReasonColdStart}
			}
		}

		out = append(out, choice)
		remaining = append(remaining[:pick], remaining[pick+1:]...)
	}

	// 被选中的视频确保臂已创建（零计数），使其出现在 bandit_arms 统计中
	b.touch(out)
	return out
}

func (b *Bandit) touch(choices []BanditChoice) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, c := range choices {
		if _, ok := b.arms[c.VideoID]; !ok {
			b.arms[c.VideoID] = &Arm{}
		}
	}
}

func (b *Bandit) randFloat() float64 {
	if b.rng != nil {
		return b.rng.Float64()
	}
	return rand.Float64()
}

func (b *Bandit) randIntn(n int) int {
	if b.rng != nil {
		return b.rng.Intn(n)
	}
	return rand.Intn(n)
}
