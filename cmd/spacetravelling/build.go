package main

import (
	"context"
	"io/fs"
	"log/slog"

	"github.com/eringen/spacetravelling"
	"github.com/eringen/spacetravelling/generate"
	"github.com/eringen/spacetravelling/metrics"
)

// BuildCmd exports the site to a directory.
type BuildCmd struct {
	Out         string `short:"o" help:"Output directory (cleaned first)" default:"./out" type:"path"`
	Banners     bool   `help:"Download banner images and serve resized copies locally"`
	Concurrency int    `help:"Posts rendered in parallel" default:"4"`
}

func (b *BuildCmd) Run(cli *CLI, ctx context.Context) error {
	cfg, err := spacetravelling.LoadConfig(cli.Config)
	if err != nil {
		return err
	}
	rec := metrics.NoopRecorder{}
	src, err := newSource(cfg, rec)
	if err != nil {
		return err
	}
	assets, err := fs.Sub(spacetravelling.EmbeddedAssets, "embedded")
	if err != nil {
		return err
	}

	exp := &generate.Exporter{
		Site:        newSite(cfg, src, rec),
		Assets:      assets,
		Banners:     b.Banners,
		Concurrency: b.Concurrency,
		Logger:      slog.Default(),
		Recorder:    rec,
	}
	report, err := exp.Export(ctx, b.Out)
	if err != nil {
		return err
	}
	slog.Info("Build complete",
		"out", b.Out,
		"pages", report.Pages,
		"posts", report.Posts,
		"duration", report.Duration)
	return nil
}
