package spacetravelling

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eringen/spacetravelling/content"
	"github.com/eringen/spacetravelling/generate"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestRevalidator(t *testing.T, store *Store) (*Revalidator, *clock) {
	t.Helper()
	clk := &clock{now: time.Date(2021, 3, 25, 19, 25, 0, 0, time.UTC)}
	r := NewRevalidator(NewMemoryCache(), store, 30*time.Minute, nil, nil)
	r.now = clk.Now
	t.Cleanup(r.Wait)
	return r, clk
}

// countingTarget renders "<key> #<n>" where n counts the renders.
func countingTarget(key string, calls *atomic.Int32) Target {
	return Target{
		Key:         key,
		Kind:        generate.KindPost,
		ContentType: "text/html; charset=UTF-8",
		Render: func(context.Context) ([]byte, error) {
			n := calls.Add(1)
			return []byte(fmt.Sprintf("%s #%d", key, n)), nil
		},
	}
}

func TestServeMissThenFresh(t *testing.T) {
	r, _ := newTestRevalidator(t, nil)
	var calls atomic.Int32
	target := countingTarget("/post/a/", &calls)

	p, state, err := r.Serve(context.Background(), target)
	require.NoError(t, err)
	assert.Equal(t, StateMiss, state)
	assert.Equal(t, "/post/a/ #1", string(p.Body))
	assert.Equal(t, "text/html; charset=UTF-8", p.ContentType)

	p, state, err = r.Serve(context.Background(), target)
	require.NoError(t, err)
	assert.Equal(t, StateFresh, state)
	assert.Equal(t, "/post/a/ #1", string(p.Body))
	assert.Equal(t, int32(1), calls.Load())
}

func TestServeStaleRegeneratesInBackground(t *testing.T) {
	r, clk := newTestRevalidator(t, nil)
	var calls atomic.Int32
	target := countingTarget("/", &calls)

	_, _, err := r.Serve(context.Background(), target)
	require.NoError(t, err)

	clk.Advance(29 * time.Minute)
	_, state, err := r.Serve(context.Background(), target)
	require.NoError(t, err)
	assert.Equal(t, StateFresh, state)

	clk.Advance(time.Minute)
	p, state, err := r.Serve(context.Background(), target)
	require.NoError(t, err)
	assert.Equal(t, StateStale, state)
	assert.Equal(t, "/ #1", string(p.Body), "stale page is served while regenerating")

	r.Wait()
	p, state, err = r.Serve(context.Background(), target)
	require.NoError(t, err)
	assert.Equal(t, StateFresh, state)
	assert.Equal(t, "/ #2", string(p.Body))
}

func TestServeCollapsesConcurrentMisses(t *testing.T) {
	r, _ := newTestRevalidator(t, nil)
	var calls atomic.Int32
	release := make(chan struct{})
	target := Target{
		Key:  "/post/slow/",
		Kind: generate.KindPost,
		Render: func(context.Context) ([]byte, error) {
			calls.Add(1)
			<-release
			return []byte("slow"), nil
		},
	}

	var wg sync.WaitGroup
	bodies := make([]string, 10)
	for i := range bodies {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, _, err := r.Serve(context.Background(), target)
			if err == nil {
				bodies[i] = string(p.Body)
			}
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, b := range bodies {
		assert.Equal(t, "slow", b)
	}
}

func TestServeCachesNotFound(t *testing.T) {
	r, _ := newTestRevalidator(t, nil)
	var calls atomic.Int32
	target := Target{
		Key:  "/post/gone/",
		Kind: generate.KindPost,
		Render: func(context.Context) ([]byte, error) {
			calls.Add(1)
			return nil, fmt.Errorf("post gone: %w", content.ErrNotFound)
		},
	}

	p, state, err := r.Serve(context.Background(), target)
	require.NoError(t, err)
	assert.Equal(t, StateMiss, state)
	assert.True(t, p.NotFound)

	p, state, err = r.Serve(context.Background(), target)
	require.NoError(t, err)
	assert.Equal(t, StateFresh, state)
	assert.True(t, p.NotFound)
	assert.Equal(t, int32(1), calls.Load())
}

func TestServeDoesNotCacheErrors(t *testing.T) {
	r, _ := newTestRevalidator(t, nil)
	var calls atomic.Int32
	boom := errors.New("cms unavailable")
	target := Target{
		Key:  "/",
		Kind: generate.KindIndex,
		Render: func(context.Context) ([]byte, error) {
			calls.Add(1)
			return nil, boom
		},
	}

	_, _, err := r.Serve(context.Background(), target)
	assert.ErrorIs(t, err, boom)
	_, _, err = r.Serve(context.Background(), target)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int32(2), calls.Load())

	keys, err := r.Keys(context.Background())
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestServeKeepsStalePageWhenRegenerationFails(t *testing.T) {
	r, clk := newTestRevalidator(t, nil)
	var fail atomic.Bool
	target := Target{
		Key:  "/",
		Kind: generate.KindIndex,
		Render: func(context.Context) ([]byte, error) {
			if fail.Load() {
				return nil, errors.New("cms unavailable")
			}
			return []byte("home"), nil
		},
	}
	_, _, err := r.Serve(context.Background(), target)
	require.NoError(t, err)

	fail.Store(true)
	clk.Advance(time.Hour)
	p, state, err := r.Serve(context.Background(), target)
	require.NoError(t, err)
	assert.Equal(t, StateStale, state)
	r.Wait()

	p, state, err = r.Serve(context.Background(), target)
	require.NoError(t, err)
	assert.Equal(t, StateStale, state)
	assert.Equal(t, "home", string(p.Body))
}

func TestFallbackGeneratesInBackground(t *testing.T) {
	r, _ := newTestRevalidator(t, nil)
	var calls atomic.Int32
	target := countingTarget("/post/new/", &calls)

	p, state, err := r.Fallback(context.Background(), target)
	require.NoError(t, err)
	assert.Equal(t, StateMiss, state)
	assert.Empty(t, p.Key)

	r.Wait()
	p, state, err = r.Fallback(context.Background(), target)
	require.NoError(t, err)
	assert.Equal(t, StateFresh, state)
	assert.Equal(t, "/post/new/ #1", string(p.Body))
}

func TestFallbackReportsFailureOnce(t *testing.T) {
	r, _ := newTestRevalidator(t, nil)
	boom := errors.New("render failed")
	target := Target{
		Key:    "/post/bad/",
		Kind:   generate.KindPost,
		Render: func(context.Context) ([]byte, error) { return nil, boom },
	}

	_, state, err := r.Fallback(context.Background(), target)
	require.NoError(t, err)
	assert.Equal(t, StateMiss, state)
	r.Wait()

	_, _, err = r.Fallback(context.Background(), target)
	assert.ErrorIs(t, err, boom)

	// The failure was reported; the next request retries.
	_, _, err = r.Fallback(context.Background(), target)
	assert.NoError(t, err)
}

func TestPagesPersistAcrossRestarts(t *testing.T) {
	store := setupTestStore(t)
	r, _ := newTestRevalidator(t, store)
	var calls atomic.Int32
	target := countingTarget("/post/kept/", &calls)

	_, _, err := r.Serve(context.Background(), target)
	require.NoError(t, err)

	restarted, _ := newTestRevalidator(t, store)
	p, state, err := restarted.Serve(context.Background(), target)
	require.NoError(t, err)
	assert.Equal(t, StateFresh, state)
	assert.Equal(t, "/post/kept/ #1", string(p.Body))
	assert.Equal(t, int32(1), calls.Load())

	n, err := restarted.Warm(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRefreshAndInvalidate(t *testing.T) {
	store := setupTestStore(t)
	r, _ := newTestRevalidator(t, store)
	var calls atomic.Int32
	target := countingTarget("/post/x/", &calls)
	ctx := context.Background()

	_, _, err := r.Serve(ctx, target)
	require.NoError(t, err)
	p, err := r.Refresh(ctx, target)
	require.NoError(t, err)
	assert.Equal(t, "/post/x/ #2", string(p.Body))

	require.NoError(t, r.Invalidate(ctx, target.Key))
	_, err = store.GetPage(ctx, target.Key)
	assert.True(t, IsNotFound(err))
	_, state, err := r.Serve(ctx, target)
	require.NoError(t, err)
	assert.Equal(t, StateMiss, state)
}

func TestNotFoundPagesExpireAndStayOutOfTheStore(t *testing.T) {
	store := setupTestStore(t)
	r, clk := newTestRevalidator(t, store)
	var calls atomic.Int32
	target := Target{
		Key:  "/post/gone/",
		Kind: generate.KindPost,
		Render: func(context.Context) ([]byte, error) {
			calls.Add(1)
			return nil, content.ErrNotFound
		},
	}
	ctx := context.Background()

	p, _, err := r.Serve(ctx, target)
	require.NoError(t, err)
	assert.True(t, p.NotFound)
	_, err = store.GetPage(ctx, target.Key)
	assert.True(t, IsNotFound(err), "NotFound pages are not persisted")

	clk.Advance(30 * time.Minute)
	p, state, err := r.Serve(ctx, target)
	require.NoError(t, err)
	assert.Equal(t, StateMiss, state, "an expired NotFound page is checked again")
	assert.True(t, p.NotFound)
	assert.Equal(t, int32(2), calls.Load())
}

func TestNotFoundDropsStoredSnapshot(t *testing.T) {
	store := setupTestStore(t)
	r, clk := newTestRevalidator(t, store)
	ctx := context.Background()
	require.NoError(t, store.SavePage(ctx, Page{Key: "/post/deleted/", Kind: generate.KindPost, Body: []byte("old"), GeneratedAt: clk.Now()}))

	_, err := r.Refresh(ctx, Target{
		Key:    "/post/deleted/",
		Kind:   generate.KindPost,
		Render: func(context.Context) ([]byte, error) { return nil, content.ErrNotFound },
	})
	require.NoError(t, err)
	_, err = store.GetPage(ctx, "/post/deleted/")
	assert.True(t, IsNotFound(err))

	restarted, _ := newTestRevalidator(t, store)
	n, err := restarted.Warm(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestPruneDropsNotFoundPages(t *testing.T) {
	r, _ := newTestRevalidator(t, nil)
	var calls atomic.Int32
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, _, err := r.Serve(ctx, Target{
			Key:    fmt.Sprintf("/post/bogus-%d/", i),
			Kind:   generate.KindPost,
			Render: func(context.Context) ([]byte, error) { return nil, content.ErrNotFound },
		})
		require.NoError(t, err)
	}
	_, _, err := r.Serve(ctx, countingTarget("/post/real/", &calls))
	require.NoError(t, err)

	n, err := r.Prune(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	keys, err := r.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"/post/real/"}, keys)
}
