package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Server.Addr != ":8000" {
		t.Errorf("default addr = %q", cfg.Server.Addr)
	}
	if cfg.Refresh.Period != 30*time.Second {
		t.Errorf("default period = %v", cfg.Refresh.Period)
	}
	if cfg.Bandit.Epsilon != 0.1 {
		t.Errorf("default epsilon = %v", cfg.Bandit.Epsilon)
	}
	if cfg.TopK != 5 {
		t.Errorf("default topK = %d", cfg.TopK)
	}
	if cfg.Store.Backend != "memory" {
		t.Errorf("default backend = %q", cfg.Store.Backend)
	}
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
server:
  addr: ":9000"
  mode: prod
store:
  backend: sqlite
  sqlite_path: /tmp/test.db
refresh:
  period: 10s
bandit:
  epsilon: 0.2
top_k: 3
rule_filters:
  - 'item.score >= 0.0'
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Addr != ":9000" || cfg.Server.Mode != "prod" {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Store.Backend != "sqlite" || cfg.Store.SQLitePath != "/tmp/test.db" {
		t.Errorf("store = %+v", cfg.Store)
	}
	if cfg.Refresh.Period != 10*time.Second {
		t.Errorf("period = %v", cfg.Refresh.Period)
	}
	if cfg.Bandit.Epsilon != 0.2 {
		t.Errorf("epsilon = %v", cfg.Bandit.Epsilon)
	}
	if cfg.TopK != 3 {
		t.Errorf("topK = %d", cfg.TopK)
	}
	if len(cfg.RuleFilters) != 1 {
		t.Errorf("ruleFilters = %v", cfg.RuleFilters)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Error("Load() expected error for missing file")
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("VIDREC_ADDR", ":7000")
	t.Setenv("VIDREC_REDIS_ADDR", "localhost:6379")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Addr != ":7000" {
		t.Errorf("addr = %q, want :7000", cfg.Server.Addr)
	}
	if cfg.Store.RedisAddr != "localhost:6379" {
		t.Errorf("redis addr = %q", cfg.Store.RedisAddr)
	}
}

func TestLoadNormalizesInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("top_k: -1\nrefresh:\n  period: 0s\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.TopK != 5 {
		t.Errorf("topK = %d, want default 5", cfg.TopK)
	}
	if cfg.Refresh.Period != 30*time.Second {
		t.Errorf("period = %v, want default 30s", cfg.Refresh.Period)
	}
}
