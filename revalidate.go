package spacetravelling

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eringen/spacetravelling/internal/logfields"
)

// RevalidateSecretHeader carries the webhook secret. The "secret" query
// parameter is accepted too, for CMS webhooks that cannot set headers.
const RevalidateSecretHeader = "X-Revalidate-Secret"

type revalidateResponse struct {
	Revalidated bool     `json:"revalidated"`
	Queued      bool     `json:"queued,omitempty"`
	Keys        []string `json:"keys,omitempty"`
	Error       string   `json:"error,omitempty"`
}

// RevalidateAll drops cached NotFound pages, regenerates every other cached
// page plus the home page and records the run. Runs never overlap.
func (a *App) RevalidateAll(ctx context.Context, trigger string) (BuildRun, error) {
	a.runMu.Lock()
	defer a.runMu.Unlock()

	run := BuildRun{Trigger: trigger, StartedAt: time.Now()}
	pruned, err := a.Revalidator.Prune(ctx)
	if err != nil {
		return run, err
	}
	keys, err := a.Revalidator.Keys(ctx)
	if err != nil {
		return run, err
	}
	if !slices.Contains(keys, "/") {
		keys = append(keys, "/")
	}

	var errs []error
	for _, key := range keys {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		t, ok := a.targetFor(key)
		if !ok {
			continue
		}
		if _, err := a.Revalidator.Refresh(ctx, t); err != nil {
			a.log.Warn("Revalidation of page failed", logfields.Key(key), logfields.Trigger(trigger), logfields.Error(err))
			errs = append(errs, err)
			continue
		}
		run.Pages++
	}
	run.FinishedAt = time.Now()
	err = errors.Join(errs...)
	if err != nil {
		run.Err = err.Error()
	}

	d := run.FinishedAt.Sub(run.StartedAt)
	a.recorder.ObserveBuildDuration(trigger, d)
	a.recorder.IncBuildOutcome(trigger, err == nil)
	if a.Store != nil {
		recorded, serr := a.Store.RecordBuild(context.WithoutCancel(ctx), run)
		if serr != nil {
			a.log.Warn("Recording build run failed", logfields.Error(serr))
		} else {
			run = recorded
		}
	}
	a.log.Info("Revalidation complete",
		logfields.BuildID(run.ID),
		logfields.Trigger(trigger),
		logfields.Pages(run.Pages),
		logfields.Duration(d),
		slog.Int("pruned", pruned),
		slog.Int("failed", len(errs)))
	return run, err
}

// QueueRevalidation starts RevalidateAll in the background.
func (a *App) QueueRevalidation(trigger string) {
	a.bg.Add(1)
	go func() {
		defer a.bg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), a.Config.RevalidateWindow)
		defer cancel()
		if _, err := a.RevalidateAll(ctx, trigger); err != nil {
			a.log.Error("Queued revalidation failed", logfields.Trigger(trigger), logfields.Error(err))
		}
	}()
}

// Prerender generates the home page and the posts returned by Site.Paths
// unless they are already cached.
func (a *App) Prerender(ctx context.Context) {
	targets := []Target{a.listingTarget(1)}
	slugs, err := a.Site.Paths(ctx)
	if err != nil {
		a.log.Warn("Listing static paths failed", logfields.Error(err))
	}
	for _, slug := range slugs {
		targets = append(targets, a.postTarget(slug))
	}
	for _, t := range targets {
		if _, _, err := a.Revalidator.Serve(ctx, t); err != nil {
			a.log.Warn("Prerender failed", logfields.Key(t.Key), logfields.Error(err))
		}
	}
	a.log.Info("Prerender complete", logfields.Pages(len(targets)))
}

// authorize checks the webhook secret and counts failures per IP. It
// writes the response and returns false when the request must stop.
func (a *App) authorize(c echo.Context) (bool, error) {
	if a.Config.RevalidateSecret == "" {
		return false, echo.ErrNotFound
	}
	ip := c.RealIP()
	if !a.limiter.Check(ip) {
		return false, c.JSON(http.StatusTooManyRequests, revalidateResponse{Error: "too many attempts, try again later"})
	}
	secret := c.Request().Header.Get(RevalidateSecretHeader)
	if secret == "" {
		secret = c.QueryParam("secret")
	}
	if subtle.ConstantTimeCompare([]byte(secret), []byte(a.Config.RevalidateSecret)) != 1 {
		a.limiter.Record(ip)
		return false, c.JSON(http.StatusUnauthorized, revalidateResponse{Error: "invalid secret"})
	}
	return true, nil
}

func (a *App) handleRevalidate(c echo.Context) error {
	if ok, err := a.authorize(c); !ok {
		return err
	}

	slug := c.QueryParam("slug")
	if slug == "" {
		slug = c.FormValue("slug")
	}
	if slug == "" {
		a.QueueRevalidation(TriggerWebhook)
		return c.JSON(http.StatusAccepted, revalidateResponse{Queued: true})
	}
	if _, ok := postSlug("/post/" + slug + "/"); !ok {
		return c.JSON(http.StatusBadRequest, revalidateResponse{Error: "invalid slug"})
	}

	ctx := c.Request().Context()
	targets := []Target{a.postTarget(slug), a.listingTarget(1), a.feedTarget(), a.sitemapTarget()}
	keys := make([]string, 0, len(targets))
	for _, t := range targets {
		if _, err := a.Revalidator.Refresh(ctx, t); err != nil {
			c.Logger().Errorf("revalidate %s: %v", t.Key, err)
			return c.JSON(http.StatusInternalServerError, revalidateResponse{Keys: keys, Error: err.Error()})
		}
		keys = append(keys, t.Key)
	}
	return c.JSON(http.StatusOK, revalidateResponse{Revalidated: true, Keys: keys})
}

func (a *App) handleBuilds(c echo.Context) error {
	if ok, err := a.authorize(c); !ok {
		return err
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	builds, err := a.Store.ListBuilds(c.Request().Context(), limit)
	if err != nil {
		return err
	}
	if builds == nil {
		builds = []BuildRun{}
	}
	return c.JSON(http.StatusOK, builds)
}
