// Package config 加载服务配置（YAML + 环境变量覆盖）。
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 是服务级配置。
type Config struct {
	Server struct {
		Addr string `yaml:"addr"` // 监听地址，默认 ":8000"
		Mode string `yaml:"mode"` // dev / prod，影响日志编码
	} `yaml:"server"`

	Store struct {
		// Backend 交互存储后端：memory / sqlite
		Backend string `yaml:"backend"`
		// SQLitePath sqlite 数据库文件路径（backend=sqlite 时生效）
		SQLitePath string `yaml:"sqlite_path"`
		// RedisAddr 热度榜 KV 的 Redis 地址；为空时热度榜使用内存实现
		RedisAddr string `yaml:"redis_addr"`
		RedisDB   int    `yaml:"redis_db"`
	} `yaml:"store"`

	Refresh struct {
		// Period 模型重训周期，默认 30s
		Period time.Duration `yaml:"period"`
	} `yaml:"refresh"`

	Bandit struct {
		// Epsilon 探索概率，默认 0.1
		Epsilon float64 `yaml:"epsilon"`
	} `yaml:"bandit"`

	// TopK 每次推荐的槽位数，默认 5
	TopK int `yaml:"top_k"`

	// RuleFilters CEL 规则过滤表达式（保留条件），应用于所有算法
	RuleFilters []string `yaml:"rule_filters"`

	// VideosFile 启动时灌入的视频内容文件（JSON 数组，可选）
	VideosFile string `yaml:"videos_file"`
}

// Default 返回带默认值的配置。
func Default() *Config {
	cfg := &Config{}
	cfg.Server.Addr = ":8000"
	cfg.Server.Mode = "dev"
	cfg.Store.Backend = "memory"
	cfg.Store.SQLitePath = "./vidrec.db"
	cfg.Refresh.Period = 30 * time.Second
	cfg.Bandit.Epsilon = 0.1
	cfg.TopK = 5
	return cfg
}

// Load 从 YAML 文件加载配置；path 为空时仅返回默认值。
// 环境变量 VIDREC_ADDR / VIDREC_SQLITE_PATH / VIDREC_REDIS_ADDR 优先级最高。
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if addr := os.Getenv("VIDREC_ADDR"); addr != "" {
		cfg.Server.Addr = addr
	}
	if p := os.Getenv("VIDREC_SQLITE_PATH"); p != "" {
		cfg.Store.SQLitePath = p
	}
	if addr := os.Getenv("VIDREC_REDIS_ADDR"); addr != "" {
		cfg.Store.RedisAddr = addr
	}

	if cfg.Refresh.Period <= 0 {
		cfg.Refresh.Period = 30 * time.Second
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}
	return cfg, nil
}
