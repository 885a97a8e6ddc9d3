// Package service 是推荐引擎的对外门面：算法分发、交互写入、统计聚合。
package service

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/rushteam/vidrec/core"
	"github.com/rushteam/vidrec/filter"
	"github.com/rushteam/vidrec/model"
	"github.com/rushteam/vidrec/pipeline"
	"github.com/rushteam/vidrec/pkg/conv"
	"github.com/rushteam/vidrec/pkg/logging"
	"github.com/rushteam/vidrec/recall"
	"github.com/rushteam/vidrec/refresh"
	"github.com/rushteam/vidrec/rerank"
)

// 算法名（路由参数）与人类可读标签
const (
	AlgorithmTwoTower = "twoTower"
	AlgorithmHybrid   = "hybrid"
	AlgorithmBandit   = "bandit"
)

// banditStateKey 是老虎机臂状态在 KV 存储中的持久化 key。
const banditStateKey = "bandit:arms"

var algorithmLabels = map[string]string{
	AlgorithmTwoTower: "Two Tower",
	AlgorithmHybrid:   "Hybrid (Item-based + Content-based)",
	AlgorithmBandit:   "Multi-Armed Bandit (Epsilon-Greedy)",
}

// Recommendation 是单条推荐结果。
type Recommendation struct {
	VideoID int64   `json:"videoId"`
	Score   float64 `json:"score"`
	Reason  string  `json:"reason"`
}

// RecommendResponse 是一次推荐请求的响应。
type RecommendResponse struct {
	Recommendations []Recommendation `json:"recommendations"`
	Algorithm       string           `json:"algorithm"`
}

// Stats 是全局统计。
type Stats struct {
	TotalInteractions int64 `json:"total_interactions"`
	TotalVideos       int64 `json:"total_videos"`
	TotalUsers        int64 `json:"total_users"`
	BanditArms        int   `json:"bandit_arms"`
	TwoTowerFitted    bool  `json:"two_tower_fitted"`
	HybridFitted      bool  `json:"hybrid_fitted"`
}

// Recommender 组合存储、三个模型与每种算法的固定 Pipeline。
//
// 写路径：RecordInteraction → 校验入库 → Bandit 同步更新 → 热度榜计数
// → 臂状态持久化（进程重启后从 KV 恢复）。
// 读路径：Recommend → 选中算法的 Pipeline（recall → filter → topn）。
// 双塔/混合的快照由 refresh.Scheduler 周期性重建，读写互不阻塞。
type Recommender struct {
	store core.InteractionStore
	kv    core.KeyValueStore

	twoTower *model.TwoTower
	hybrid   *model.Hybrid
	bandit   *model.Bandit

	pipelines map[string]*pipeline.Pipeline
	topK      int
	logger    *logging.Logger
}

type Option func(*options)

type options struct {
	topK        int
	epsilon     float64
	ruleFilters []string
	rng         *rand.Rand
	logger      *logging.Logger
}

// WithTopK 设置每次推荐的槽位数（默认 5）。
func WithTopK(k int) Option {
	return func(o *options) { o.topK = k }
}

// WithEpsilon 设置老虎机探索概率（默认 0.1）。
func WithEpsilon(epsilon float64) Option {
	return func(o *options) { o.epsilon = epsilon }
}

// WithRuleFilters 附加 CEL 规则过滤表达式（保留条件），应用于所有算法。
func WithRuleFilters(exprs []string) Option {
	return func(o *options) { o.ruleFilters = exprs }
}

// WithRand 注入随机源（测试/回放用）。
func WithRand(rng *rand.Rand) Option {
	return func(o *options) { o.rng = rng }
}

// WithLogger 设置日志器。
func WithLogger(logger *logging.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// NewRecommender 组装模型与 Pipeline。kv 承载热度榜，可与 store 为同一实例
// （MemoryStore 同时实现两个接口）。
func NewRecommender(store core.InteractionStore, kv core.KeyValueStore, opts ...Option) *Recommender {
	o := &options{topK: 5, epsilon: 0.1, logger: logging.Nop()}
	for _, opt := range opts {
		opt(o)
	}

	r := &Recommender{
		store:    store,
		kv:       kv,
		twoTower: model.NewTwoTower(),
		hybrid:   model.NewHybrid(),
		topK:     o.topK,
		logger:   o.logger,
	}

	banditOpts := []model.BanditOption{model.WithEpsilon(o.epsilon)}
	if o.rng != nil {
		banditOpts = append(banditOpts, model.WithRand(o.rng))
	}
	r.bandit = model.NewBandit(banditOpts...)
	r.loadBanditState(context.Background())

	fallback := &recall.Popular{KV: kv, Store: store, TopK: o.topK}

	var ruleNode *filter.FilterNode
	if len(o.ruleFilters) > 0 {
		filters := make([]filter.Filter, 0, len(o.ruleFilters))
		for _, expr := range o.ruleFilters {
			filters = append(filters, &filter.RuleFilter{Expr: expr})
		}
		ruleNode = &filter.FilterNode{Filters: filters}
	}

	build := func(nodes ...pipeline.Node) *pipeline.Pipeline {
		if ruleNode != nil {
			// 规则过滤在截断（末位 TopN）前生效
			last := nodes[len(nodes)-1]
			nodes = append(nodes[:len(nodes)-1], ruleNode, last)
		}
		return &pipeline.Pipeline{Nodes: nodes}
	}

	hybridRecall := &recall.HybridRecall{Model: r.hybrid, Store: store, Fallback: fallback, Slots: o.topK}
	if o.rng != nil {
		hybridRecall.Rand = o.rng
	}

	r.pipelines = map[string]*pipeline.Pipeline{
		AlgorithmTwoTower: build(
			&recall.TwoTowerRecall{Model: r.twoTower, Store: store, Fallback: fallback},
			&filter.FilterNode{Filters: []filter.Filter{&filter.WatchedFilter{}}},
			&rerank.TopNNode{N: o.topK},
		),
		AlgorithmHybrid: build(
			hybridRecall,
			&rerank.TopNNode{N: o.topK},
		),
		AlgorithmBandit: build(
			&recall.BanditRecall{Model: r.bandit, Store: store, TopK: o.topK},
			&rerank.TopNNode{N: o.topK},
		),
	}
	return r
}

// NewScheduler 创建与本服务绑定的模型刷新调度器。
func (r *Recommender) NewScheduler(period time.Duration, logger *logging.Logger) *refresh.Scheduler {
	return refresh.NewScheduler(r.store, r.twoTower, r.hybrid, period, logger)
}

// Recommend 按算法名分发推荐请求。未知算法返回 UNKNOWN_ALGORITHM。
func (r *Recommender) Recommend(ctx context.Context, algorithm string, userID int64) (*RecommendResponse, error) {
	pl, ok := r.pipelines[algorithm]
	if !ok {
		return nil, core.NewDomainError(core.ModuleService, core.ErrorCodeUnknownAlgorithm, "unknown algorithm: "+algorithm)
	}

	history, err := r.store.UserHistory(ctx, userID)
	if err != nil {
		return nil, err
	}
	rctx := &core.RecommendContext{
		UserID:    userID,
		Algorithm: algorithm,
		History:   make(map[int64]struct{}, len(history)),
	}
	for _, in := range history {
		rctx.History[in.VideoID] = struct{}{}
	}

	items, err := pl.Run(ctx, rctx, nil)
	if err != nil {
		return nil, err
	}

	resp := &RecommendResponse{
		Recommendations: make([]Recommendation, 0, len(items)),
		Algorithm:       algorithmLabels[algorithm],
	}
	for _, it := range items {
		resp.Recommendations = append(resp.Recommendations, Recommendation{
			VideoID: it.ID,
			Score:   it.Score,
			Reason:  it.Reason(),
		})
	}
	return resp, nil
}

// RecordInteraction 校验并写入一条交互：
// 入库成功后同步更新老虎机臂，并为热度榜计一次播放。
// 校验失败（INVALID_INPUT）时无任何副作用。
func (r *Recommender) RecordInteraction(ctx context.Context, in *core.Interaction) error {
	if err := r.store.AppendInteraction(ctx, in); err != nil {
		return err
	}

	r.bandit.Update(in.VideoID, in.Liked, in.WatchedPercent)

	if r.kv != nil {
		if err := r.kv.ZIncrBy(ctx, recall.PopularKey, 1, conv.FormatID(in.VideoID)); err != nil {
			// 热度榜失败不影响交互本身
			r.logger.Warn("popularity update failed", "videoId", in.VideoID, "err", err)
		}
		r.saveBanditState(ctx)
	}
	return nil
}

// loadBanditState 从 KV 恢复老虎机臂状态（进程重启后奖励历史不丢失）。
// 没有持久化状态或解析失败时保持空臂，从零学起。
func (r *Recommender) loadBanditState(ctx context.Context) {
	if r.kv == nil {
		return
	}
	data, err := r.kv.Get(ctx, banditStateKey)
	if err != nil {
		if !core.IsNotFound(err) {
			r.logger.Warn("bandit state load failed", "err", err)
		}
		return
	}

	var raw map[string]model.Arm
	if err := json.Unmarshal(data, &raw); err != nil {
		r.logger.Warn("bandit state corrupted, starting fresh", "err", err)
		return
	}
	arms := make(map[int64]model.Arm, len(raw))
	for key, arm := range raw {
		if id, ok := conv.ParseID(key); ok {
			arms[id] = arm
		}
	}
	r.bandit.Restore(arms)
}

// saveBanditState 把当前臂状态写回 KV。失败只记日志，不影响交互写入。
func (r *Recommender) saveBanditState(ctx context.Context) {
	arms := r.bandit.Arms()
	raw := make(map[string]model.Arm, len(arms))
	for id, arm := range arms {
		raw[conv.FormatID(id)] = arm
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return
	}
	if err := r.kv.Set(ctx, banditStateKey, data); err != nil {
		r.logger.Warn("bandit state persist failed", "err", err)
	}
}

// Stats 返回全局统计。无写入时两次调用结果相同。
func (r *Recommender) Stats(ctx context.Context) (*Stats, error) {
	counts, err := r.store.Counts(ctx)
	if err != nil {
		return nil, err
	}
	return &Stats{
		TotalInteractions: counts.Interactions,
		TotalVideos:       counts.Videos,
		TotalUsers:        counts.Users,
		BanditArms:        r.bandit.ArmCount(),
		TwoTowerFitted:    r.twoTower.Fitted(),
		HybridFitted:      r.hybrid.Fitted(),
	}, nil
}

// VideoStats 返回单个视频的聚合统计。
func (r *Recommender) VideoStats(ctx context.Context, videoID int64) (*core.VideoStats, error) {
	return r.store.StatsFor(ctx, videoID)
}

// SeedVideos 灌入视频内容（外部 ingestion 入口）。
func (r *Recommender) SeedVideos(ctx context.Context, videos []*core.Video) error {
	for _, v := range videos {
		if err := r.store.AddVideo(ctx, v); err != nil {
			return err
		}
	}
	return nil
}
