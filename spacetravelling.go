// Package spacetravelling serves a blog whose posts live in a headless CMS.
// Pages are generated on first request, cached, persisted to SQLite and
// regenerated in the background once they are older than the revalidation
// window.
//
// Rendering lives in the generate package; this package owns the HTTP
// surface, the page cache and the revalidation lifecycle.
package spacetravelling

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eringen/spacetravelling/generate"
	"github.com/eringen/spacetravelling/internal/logfields"
	"github.com/eringen/spacetravelling/metrics"
	"github.com/eringen/spacetravelling/viewmodel"
	"github.com/eringen/spacetravelling/views"
)

// Build triggers, recorded on every BuildRun.
const (
	TriggerSchedule = "schedule"
	TriggerWebhook  = "webhook"
	TriggerWatch    = "watch"
)

const shutdownTimeout = 10 * time.Second

// App is the central spacetravelling application. It wires together the
// site renderer, page cache, store, handlers and middleware.
type App struct {
	Config      SiteConfig
	Echo        *echo.Echo
	Site        *generate.Site
	Store       *Store
	Cache       PageCache
	Revalidator *Revalidator
	Scheduler   *Scheduler

	limiter      *AttemptLimiter
	recorder     metrics.Recorder
	log          *slog.Logger
	assets       fs.FS
	customRoutes []func(*App)
	watch        func(ctx context.Context, onChange func()) error

	ready bool
	runMu sync.Mutex     // serializes full revalidation runs
	bg    sync.WaitGroup // queued revalidation runs
}

// New creates a new App serving site with the given configuration.
func New(cfg SiteConfig, site *generate.Site, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config: cfg,
		Echo:   echo.New(),
		Site:   site,
	}
	a.Echo.HideBanner = true

	for _, opt := range opts {
		opt(a)
	}
	if a.log == nil {
		a.log = slog.Default()
	}
	if a.Cache == nil {
		a.Cache = NewMemoryCache()
	}
	a.recorder = metrics.OrNoop(a.recorder)
	if assets, err := fs.Sub(EmbeddedAssets, "embedded"); err == nil {
		a.assets = assets
	}
	return a
}

// SiteOptions returns the generate.Options matching cfg.
func (c SiteConfig) SiteOptions(log *slog.Logger, rec metrics.Recorder) generate.Options {
	c.setDefaults()
	return generate.Options{
		Site: views.SiteConfig{
			Name:        c.Name,
			URL:         c.URL,
			Description: c.Description,
			Author:      c.Author,
			Locale:      viewmodel.LookupLocale(c.Locale),
		},
		Lang:           c.Prismic.Lang,
		PageSize:       c.PageSize,
		FeedSize:       c.FeedSize,
		PrerenderLimit: c.PrerenderLimit,
		Logger:         log,
		Recorder:       rec,
	}
}

// Setup opens the store, then registers middleware and routes. Start calls
// it; tests call it directly and drive a.Echo.
func (a *App) Setup() error {
	if a.ready {
		return nil
	}
	if a.Site == nil {
		return errors.New("spacetravelling: Site is required")
	}
	if a.Config.SessionSecret == "" {
		return errors.New("spacetravelling: SessionSecret is required")
	}

	if a.Store == nil {
		store, err := NewStore(a.Config.DatabasePath)
		if err != nil {
			return fmt.Errorf("spacetravelling: init store: %w", err)
		}
		a.Store = store
	}

	a.Revalidator = NewRevalidator(a.Cache, a.Store, a.Config.RevalidateWindow, a.log, a.recorder)
	a.limiter = NewAttemptLimiter(5, time.Minute)

	a.setupMiddleware()
	a.setupRoutes()
	for _, fn := range a.customRoutes {
		fn(a)
	}
	a.ready = true
	return nil
}

// Start sets the app up, warms the page cache from the store, schedules
// periodic revalidation and serves HTTP until ctx is cancelled.
func (a *App) Start(ctx context.Context) error {
	if err := a.Setup(); err != nil {
		return err
	}

	if n, err := a.Revalidator.Warm(ctx); err != nil {
		a.log.Warn("Cache warm-up failed", logfields.Error(err))
	} else {
		a.log.Info("Cache warmed from store", logfields.Pages(n))
	}
	a.bg.Add(1)
	go func() {
		defer a.bg.Done()
		a.Prerender(ctx)
	}()

	sched, err := NewScheduler()
	if err != nil {
		return err
	}
	if err := sched.Every(a.Config.RevalidateInterval, "revalidate", func() {
		if _, err := a.RevalidateAll(ctx, TriggerSchedule); err != nil {
			a.log.Error("Scheduled revalidation failed", logfields.Error(err))
		}
	}); err != nil {
		return err
	}
	a.Scheduler = sched
	sched.Start()

	if a.watch != nil {
		a.bg.Add(1)
		go func() {
			defer a.bg.Done()
			if err := a.watch(ctx, func() { a.QueueRevalidation(TriggerWatch) }); err != nil {
				a.log.Error("Content watcher stopped", logfields.Error(err))
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("Listening", slog.String("addr", a.Config.Addr), logfields.URL(a.Config.URL))
		errCh <- a.Echo.Start(a.Config.Addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.Echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("spacetravelling: shutdown: %w", err)
	}
	return nil
}

func (a *App) setupRoutes() {
	e := a.Echo

	// Embedded stylesheet, logo and favicon.
	if a.assets != nil {
		assets := http.FileServer(http.FS(a.assets))
		e.GET("/public/*", echo.WrapHandler(http.StripPrefix("/public/", assets)))
	}
	e.GET("/favicon.svg", a.handleFavicon)
	e.GET("/robots.txt", a.handleRobots)
	e.GET("/healthz", handleHealth)
	if p, ok := a.recorder.(*metrics.PrometheusRecorder); ok {
		e.GET("/metrics", echo.WrapHandler(p.Handler()))
	}

	// Generated pages
	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/feed.xml", a.handleFeed)
	e.GET("/", a.handleHome)
	e.GET("/page/:n/", a.handleListing)
	e.GET("/post/:slug/", a.handlePost)

	// API
	e.POST("/api/revalidate", a.handleRevalidate)
	e.GET("/api/builds", a.handleBuilds)
	e.GET("/api/preview", a.handlePreview)
	e.GET("/api/exit-preview", handleExitPreview)
}

// Close stops background work and releases resources. Call this when the
// app is shutting down.
func (a *App) Close() error {
	if a.Scheduler != nil {
		if err := a.Scheduler.Stop(); err != nil {
			a.log.Warn("Scheduler stop failed", logfields.Error(err))
		}
	}
	if a.limiter != nil {
		a.limiter.Stop()
	}
	a.bg.Wait()
	if a.Revalidator != nil {
		a.Revalidator.Wait()
	}
	var errs []error
	if c, ok := a.Cache.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
	}
	return errors.Join(errs...)
}
