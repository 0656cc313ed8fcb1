package main

import (
	"fmt"
	"log/slog"

	"github.com/eringen/spacetravelling"
	"github.com/eringen/spacetravelling/content"
	"github.com/eringen/spacetravelling/generate"
	"github.com/eringen/spacetravelling/metrics"
	"github.com/eringen/spacetravelling/viewmodel"
)

// newSource returns a FileSource when a content directory is configured,
// and a CMS client otherwise.
func newSource(cfg spacetravelling.SiteConfig, rec metrics.Recorder) (content.Source, error) {
	if cfg.ContentDir != "" {
		src := content.NewFileSource(cfg.ContentDir)
		src.Lang = cfg.Prismic.Lang
		return src, nil
	}
	retry, err := cfg.Prismic.Retry.Policy()
	if err != nil {
		return nil, fmt.Errorf("prismic.retry: %w", err)
	}
	client, err := content.NewClient(content.Config{
		Repository:  cfg.Prismic.Repository,
		Endpoint:    cfg.Prismic.Endpoint,
		AccessToken: cfg.Prismic.AccessToken,
		Lang:        cfg.Prismic.Lang,
		Retry:       retry,
		Recorder:    rec,
	})
	if err != nil {
		return nil, fmt.Errorf("content client: %w", err)
	}
	return client, nil
}

func newSite(cfg spacetravelling.SiteConfig, src content.Source, rec metrics.Recorder) *generate.Site {
	builder := viewmodel.NewBuilder(cfg.Locale, nil)
	return generate.NewSite(src, builder, cfg.SiteOptions(slog.Default(), rec))
}
