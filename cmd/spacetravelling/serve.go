package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/eringen/spacetravelling"
	"github.com/eringen/spacetravelling/content"
	"github.com/eringen/spacetravelling/metrics"
)

// ServeCmd serves the site over HTTP.
type ServeCmd struct {
	Addr      string `help:"Listen address (overrides config)"`
	NoMetrics bool   `help:"Disable the /metrics endpoint"`
}

func (s *ServeCmd) Run(cli *CLI, ctx context.Context) error {
	cfg, err := spacetravelling.LoadConfig(cli.Config)
	if err != nil {
		return err
	}
	if s.Addr != "" {
		cfg.Addr = s.Addr
	}

	var rec metrics.Recorder = metrics.NoopRecorder{}
	if !s.NoMetrics {
		rec = metrics.NewPrometheusRecorder(nil)
	}
	src, err := newSource(cfg, rec)
	if err != nil {
		return err
	}

	opts := []spacetravelling.Option{
		spacetravelling.WithRecorder(rec),
		spacetravelling.WithLogger(slog.Default()),
	}
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		cache := spacetravelling.NewRedisCache(rdb, spacetravelling.DefaultRedisPrefix, 2*cfg.RevalidateWindow)
		if err := cache.Ping(ctx); err != nil {
			_ = cache.Close()
			return fmt.Errorf("redis %s: %w", cfg.RedisAddr, err)
		}
		opts = append(opts, spacetravelling.WithCache(cache))
		slog.Info("Using Redis page cache", "addr", cfg.RedisAddr)
	}
	if fsrc, ok := src.(*content.FileSource); ok {
		opts = append(opts, spacetravelling.WithWatcher(fsrc.Watch))
		slog.Info("Watching content directory", "dir", fsrc.Dir)
	}

	app := spacetravelling.New(cfg, newSite(cfg, src, rec), opts...)
	defer app.Close()
	return app.Start(ctx)
}
