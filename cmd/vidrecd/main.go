package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rushteam/vidrec/config"
	"github.com/rushteam/vidrec/core"
	"github.com/rushteam/vidrec/pkg/logging"
	"github.com/rushteam/vidrec/server"
	"github.com/rushteam/vidrec/service"
	"github.com/rushteam/vidrec/store"
)

func main() {
	configPath := flag.String("config", "", "path to config yaml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}

	logger, err := logging.New(cfg.Server.Mode)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	// 交互存储
	var interactions core.InteractionStore
	var kv core.KeyValueStore

	mem := store.NewMemoryStore()
	switch cfg.Store.Backend {
	case "sqlite":
		s, err := store.NewSQLiteStore(cfg.Store.SQLitePath)
		if err != nil {
			logger.Error("open sqlite store", "path", cfg.Store.SQLitePath, "err", err)
			os.Exit(1)
		}
		interactions = s
		kv = mem
	default:
		interactions = mem
		kv = mem
	}
	defer interactions.Close()

	// 热度榜可切换为 Redis（多进程共享）
	if cfg.Store.RedisAddr != "" {
		r, err := store.NewRedisStore(cfg.Store.RedisAddr, cfg.Store.RedisDB)
		if err != nil {
			logger.Error("connect redis", "addr", cfg.Store.RedisAddr, "err", err)
			os.Exit(1)
		}
		defer r.Close()
		kv = r
	}

	rec := service.NewRecommender(interactions, kv,
		service.WithTopK(cfg.TopK),
		service.WithEpsilon(cfg.Bandit.Epsilon),
		service.WithRuleFilters(cfg.RuleFilters),
		service.WithLogger(logger),
	)

	if cfg.VideosFile != "" {
		if err := seedVideos(rec, cfg.VideosFile); err != nil {
			logger.Error("seed videos", "file", cfg.VideosFile, "err", err)
			os.Exit(1)
		}
	}

	sched := rec.NewScheduler(cfg.Refresh.Period, logger)
	sched.Start()
	defer sched.Stop()

	srv := server.New(rec, logger)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run(cfg.Server.Addr) }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		logger.Error("server exited", "err", err)
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
	}
}

type videoFile struct {
	ID     int64    `json:"videoId"`
	Text   string   `json:"text"`
	Labels []string `json:"labels"`
}

func seedVideos(rec *service.Recommender, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var rows []videoFile
	if err := json.Unmarshal(data, &rows); err != nil {
		return err
	}
	videos := make([]*core.Video, 0, len(rows))
	for _, r := range rows {
		videos = append(videos, &core.Video{ID: r.ID, Text: r.Text, Labels: r.Labels})
	}
	return rec.SeedVideos(context.Background(), videos)
}
