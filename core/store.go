package core

import (
	"context"
	"time"
)

// InteractionStore 是交互/视频数据的领域接口，所有模型的唯一事实来源。
//
// 设计原则：
//   - 定义在领域层（core），由基础设施层（store）实现
//   - 遵循依赖倒置原则：领域层定义接口，基础设施层实现接口
//
// 实现：
//   - store.MemoryStore（内存，测试/开发/原型）
//   - store.SQLiteStore（gorm + sqlite，轻量持久化）
type InteractionStore interface {
	// Name 返回存储后端名称（用于日志/监控）
	Name() string

	// AppendInteraction 校验并追加一条交互。字段越界返回 INVALID_INPUT，
	// 交互不入库。同一 (user, video) 的历史交互全部保留。
	AppendInteraction(ctx context.Context, in *Interaction) error

	// AddVideo 灌入一条视频内容（外部 ingestion 使用，引擎只读）。
	AddVideo(ctx context.Context, v *Video) error

	// Videos 返回当前全部视频。
	Videos(ctx context.Context) ([]*Video, error)

	// UserHistory 返回用户的全部交互（按写入顺序）。
	UserHistory(ctx context.Context, userID int64) ([]*Interaction, error)

	// Snapshot 返回一个不可变的时间点视图，供模型离线重训使用。
	// 读者永远不会看到写到一半的交互。
	Snapshot(ctx context.Context) (*DataSnapshot, error)

	// StatsFor 返回单个视频的聚合统计；视频不存在返回 NOT_FOUND。
	StatsFor(ctx context.Context, videoID int64) (*VideoStats, error)

	// Counts 返回全局聚合计数。
	Counts(ctx context.Context) (*Counts, error)

	// Close 关闭连接/释放资源
	Close() error
}

// DataSnapshot 是 InteractionStore 的时间点深拷贝。重训任务基于它离线
// 构建下一版模型快照，与在线写入互不阻塞。
type DataSnapshot struct {
	Interactions []*Interaction
	Videos       []*Video
	TakenAt      time.Time
}

// KeyValueStore 是 KV 存储接口，支撑热度榜（有序集合）与老虎机臂状态
// 持久化等轻量状态。
//
// 实现：
//   - store.MemoryStore 实现此接口
//   - store.RedisStore 实现此接口（多进程部署时共享热度榜）
type KeyValueStore interface {
	// Get 读取单个 key 的值；不存在返回 NOT_FOUND。
	Get(ctx context.Context, key string) ([]byte, error)

	// Set 写入单个 key-value。
	Set(ctx context.Context, key string, value []byte) error

	// ZIncrBy 对有序集合成员的分数做增量（用于播放量计数）。
	ZIncrBy(ctx context.Context, key string, incr float64, member string) error

	// ZRange 按分数降序获取有序集合成员（用于 TopN 热门召回）。
	ZRange(ctx context.Context, key string, start, stop int64) ([]string, error)

	// ZScore 获取成员的分数；不存在返回 NOT_FOUND。
	ZScore(ctx context.Context, key string, member string) (float64, error)
}

// Store 错误定义（使用统一的 DomainError）
var (
	// ErrStoreNotFound 表示 key 不存在
	ErrStoreNotFound = NewDomainError(ModuleStore, ErrorCodeNotFound, "store: key not found")

	// ErrStoreNotSupported 表示操作不支持
	ErrStoreNotSupported = NewDomainError(ModuleStore, ErrorCodeNotSupported, "store: operation not supported")
)
