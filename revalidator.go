package spacetravelling

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/eringen/spacetravelling/content"
	"github.com/eringen/spacetravelling/generate"
	"github.com/eringen/spacetravelling/internal/logfields"
	"github.com/eringen/spacetravelling/metrics"
)

// DefaultRenderTimeout bounds one page generation, CMS fetches included.
const DefaultRenderTimeout = 30 * time.Second

// Revalidator serves generated pages from a PageCache and regenerates them
// once they are older than the revalidation window. Regenerations of the
// same key are collapsed into one render.
type Revalidator struct {
	cache   PageCache
	store   *Store
	window  time.Duration
	timeout time.Duration
	log     *slog.Logger
	rec     metrics.Recorder
	now     func() time.Time

	group    singleflight.Group
	wg       sync.WaitGroup
	inflight sync.Map // key -> struct{}, background regenerations
	failures sync.Map // key -> error, last failed fallback generation
}

// NewRevalidator returns a Revalidator over cache. store may be nil, in
// which case pages are not persisted.
func NewRevalidator(cache PageCache, store *Store, window time.Duration, log *slog.Logger, rec metrics.Recorder) *Revalidator {
	if log == nil {
		log = slog.Default()
	}
	return &Revalidator{
		cache:   cache,
		store:   store,
		window:  window,
		timeout: DefaultRenderTimeout,
		log:     log,
		rec:     metrics.OrNoop(rec),
		now:     time.Now,
	}
}

// Window returns the revalidation window.
func (r *Revalidator) Window() time.Duration { return r.window }

// Serve returns the page for t. A fresh page is returned as is. A stale page
// is returned while a regeneration runs in the background. On a miss the
// page is generated before returning.
func (r *Revalidator) Serve(ctx context.Context, t Target) (Page, State, error) {
	if p, ok := r.lookup(ctx, t.Key); ok {
		return p, r.cached(t, p), nil
	}
	p, err := r.generateShared(ctx, t)
	if err != nil {
		r.rec.IncPageResult(t.Kind, metrics.ResultError)
		return Page{}, StateMiss, err
	}
	r.count(t.Kind, p, metrics.ResultMiss)
	return p, StateMiss, nil
}

// Fallback is Serve for pages that have a placeholder. On a miss it starts
// the generation in the background and returns StateMiss with an empty page
// right away. If the last background generation for t failed, that error is
// returned once and the next call starts over.
func (r *Revalidator) Fallback(ctx context.Context, t Target) (Page, State, error) {
	if p, ok := r.lookup(ctx, t.Key); ok {
		return p, r.cached(t, p), nil
	}
	if v, ok := r.failures.LoadAndDelete(t.Key); ok {
		r.rec.IncPageResult(t.Kind, metrics.ResultError)
		return Page{}, StateMiss, v.(error)
	}
	r.background(t)
	r.rec.IncPageResult(t.Kind, metrics.ResultFallback)
	return Page{}, StateMiss, nil
}

// Refresh regenerates t now, regardless of the age of the cached page.
func (r *Revalidator) Refresh(ctx context.Context, t Target) (Page, error) {
	return r.generateShared(ctx, t)
}

// Invalidate drops the page stored under key.
func (r *Revalidator) Invalidate(ctx context.Context, key string) error {
	r.failures.Delete(key)
	if err := r.cache.Delete(ctx, key); err != nil {
		return fmt.Errorf("invalidate %s: %w", key, err)
	}
	if r.store != nil {
		if err := r.store.DeletePage(ctx, key); err != nil {
			return fmt.Errorf("invalidate %s: %w", key, err)
		}
	}
	return nil
}

// Prune drops every NotFound page from the cache and the store and returns
// how many were dropped.
func (r *Revalidator) Prune(ctx context.Context) (int, error) {
	keys, err := r.cache.Keys(ctx)
	if err != nil {
		return 0, fmt.Errorf("prune: %w", err)
	}
	n := 0
	for _, key := range keys {
		p, ok, err := r.cache.Get(ctx, key)
		if err != nil {
			return n, fmt.Errorf("prune %s: %w", key, err)
		}
		if !ok || !p.NotFound {
			continue
		}
		if err := r.Invalidate(ctx, key); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// Keys returns the keys currently held by the cache.
func (r *Revalidator) Keys(ctx context.Context) ([]string, error) {
	return r.cache.Keys(ctx)
}

// Warm loads every page snapshot from the store into the cache and returns
// how many were loaded.
func (r *Revalidator) Warm(ctx context.Context) (int, error) {
	if r.store == nil {
		return 0, nil
	}
	pages, err := r.store.ListPages(ctx)
	if err != nil {
		return 0, fmt.Errorf("warm cache: %w", err)
	}
	n := 0
	for _, p := range pages {
		if p.NotFound {
			continue
		}
		if err := r.cache.Put(ctx, p); err != nil {
			return n, fmt.Errorf("warm cache %s: %w", p.Key, err)
		}
		n++
	}
	return n, nil
}

// Wait blocks until background regenerations have finished.
func (r *Revalidator) Wait() {
	r.wg.Wait()
}

func (r *Revalidator) fresh(p Page) bool {
	return r.now().Sub(p.GeneratedAt) < r.window
}

func (r *Revalidator) cached(t Target, p Page) State {
	if r.fresh(p) {
		r.count(t.Kind, p, metrics.ResultFresh)
		return StateFresh
	}
	r.background(t)
	r.count(t.Kind, p, metrics.ResultStale)
	return StateStale
}

func (r *Revalidator) count(kind string, p Page, result metrics.ResultLabel) {
	if p.NotFound {
		result = metrics.ResultNotFound
	}
	r.rec.IncPageResult(kind, result)
}

// lookup reads the cache, then the store. Store hits are copied into the
// cache. A NotFound page older than the window is dropped and reported as a
// miss so it is checked again.
func (r *Revalidator) lookup(ctx context.Context, key string) (Page, bool) {
	p, ok, err := r.cache.Get(ctx, key)
	if err != nil {
		r.log.Warn("Page cache read failed", logfields.Key(key), logfields.Error(err))
	} else if ok && p.NotFound && !r.fresh(p) {
		if err := r.cache.Delete(ctx, key); err != nil {
			r.log.Warn("Page cache delete failed", logfields.Key(key), logfields.Error(err))
		}
		return Page{}, false
	} else if ok {
		return p, true
	}
	if r.store == nil {
		return Page{}, false
	}
	p, err = r.store.GetPage(ctx, key)
	if err != nil {
		if !IsNotFound(err) {
			r.log.Warn("Page store read failed", logfields.Key(key), logfields.Error(err))
		}
		return Page{}, false
	}
	if p.NotFound {
		return Page{}, false
	}
	if err := r.cache.Put(ctx, p); err != nil {
		r.log.Warn("Page cache write failed", logfields.Key(key), logfields.Error(err))
	}
	return p, true
}

func (r *Revalidator) background(t Target) {
	if _, busy := r.inflight.LoadOrStore(t.Key, struct{}{}); busy {
		return
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer r.inflight.Delete(t.Key)
		if _, err := r.generateShared(context.Background(), t); err != nil {
			r.log.Error("Background regeneration failed", logfields.Key(t.Key), logfields.Kind(t.Kind), logfields.Error(err))
		}
	}()
}

// generateShared joins the in-flight generation of t.Key, or starts one.
// The generation itself runs detached from ctx so one cancelled request
// does not fail the others waiting on it.
func (r *Revalidator) generateShared(ctx context.Context, t Target) (Page, error) {
	ch := r.group.DoChan(t.Key, func() (any, error) {
		return r.generate(t)
	})
	select {
	case <-ctx.Done():
		return Page{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Page{}, res.Err
		}
		return res.Val.(Page), nil
	}
}

func (r *Revalidator) generate(t Target) (Page, error) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	start := r.now()
	body, err := t.Render(ctx)
	page := Page{
		Key:         t.Key,
		Kind:        t.Kind,
		ContentType: t.ContentType,
		GeneratedAt: r.now(),
	}
	switch {
	case err == nil:
		page.Body = body
	case isMissing(err):
		page.NotFound = true
	default:
		r.failures.Store(t.Key, err)
		return Page{}, fmt.Errorf("generate %s: %w", t.Key, err)
	}
	r.failures.Delete(t.Key)

	if err := r.cache.Put(ctx, page); err != nil {
		r.log.Warn("Page cache write failed", logfields.Key(t.Key), logfields.Error(err))
	}
	// Only the cache holds NotFound pages; a snapshot of a page that is gone
	// is dropped.
	switch {
	case r.store == nil:
	case page.NotFound:
		if err := r.store.DeletePage(ctx, t.Key); err != nil {
			r.log.Warn("Page snapshot delete failed", logfields.Key(t.Key), logfields.Error(err))
		}
	default:
		if err := r.store.SavePage(ctx, page); err != nil {
			r.log.Warn("Page snapshot failed", logfields.Key(t.Key), logfields.Error(err))
		}
	}
	r.log.Debug("Page generated",
		logfields.Key(t.Key),
		logfields.Kind(t.Kind),
		slog.Bool("not_found", page.NotFound),
		logfields.Duration(r.now().Sub(start)))
	return page, nil
}

// isMissing reports errors that mean the page does not exist; those are
// cached as NotFound pages.
func isMissing(err error) bool {
	return errors.Is(err, content.ErrNotFound) || errors.Is(err, generate.ErrPageOutOfRange)
}
