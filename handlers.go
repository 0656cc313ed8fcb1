package spacetravelling

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/eringen/spacetravelling/content"
)

// CacheStateHeader reports whether a page was served fresh, stale or
// generated for the request.
const CacheStateHeader = "X-Cache"

func (a *App) handleHome(c echo.Context) error {
	return a.servePage(c, a.listingTarget(1), false)
}

func (a *App) handleListing(c echo.Context) error {
	n, err := strconv.Atoi(c.Param("n"))
	if err != nil || n < 1 {
		return echo.ErrNotFound
	}
	if n == 1 {
		return c.Redirect(http.StatusMovedPermanently, "/")
	}
	return a.servePage(c, a.listingTarget(n), false)
}

func (a *App) handlePost(c echo.Context) error {
	slug := c.Param("slug")
	if slug == "" {
		return echo.ErrNotFound
	}
	if ref := previewRef(c); ref != "" {
		return a.servePreview(c, slug, ref)
	}
	return a.servePage(c, a.postTarget(slug), true)
}

func (a *App) handleFeed(c echo.Context) error {
	return a.servePage(c, a.feedTarget(), false)
}

func (a *App) handleSitemap(c echo.Context) error {
	return a.servePage(c, a.sitemapTarget(), false)
}

// servePage answers from the revalidator. With fallback set, a page that is
// not generated yet is answered with the loading placeholder, which reloads
// until the page is ready.
func (a *App) servePage(c echo.Context, t Target, fallback bool) error {
	ctx := c.Request().Context()
	var (
		p     Page
		state State
		err   error
	)
	if fallback {
		p, state, err = a.Revalidator.Fallback(ctx, t)
	} else {
		p, state, err = a.Revalidator.Serve(ctx, t)
	}
	if err != nil {
		return err
	}
	c.Response().Header().Set(CacheStateHeader, state.String())
	if fallback && state == StateMiss && p.Key == "" {
		slug, _ := postSlug(t.Key)
		body, err := a.Site.RenderLoading(ctx, slug)
		if err != nil {
			return err
		}
		c.Response().Header().Set("Cache-Control", "no-store")
		return c.HTMLBlob(http.StatusOK, body)
	}
	if p.NotFound {
		return echo.ErrNotFound
	}
	return RenderPage(c, http.StatusOK, p)
}

// servePreview renders slug at the preview ref, bypassing cache and store.
func (a *App) servePreview(c echo.Context, slug, ref string) error {
	body, err := a.Site.RenderPost(c.Request().Context(), slug, content.QueryOptions{Ref: ref})
	if err != nil {
		if errors.Is(err, content.ErrNotFound) {
			return echo.ErrNotFound
		}
		return err
	}
	c.Response().Header().Set("Cache-Control", "no-store")
	return c.HTMLBlob(http.StatusOK, body)
}

func (a *App) handleFavicon(c echo.Context) error {
	if a.assets == nil {
		return echo.ErrNotFound
	}
	data, err := fs.ReadFile(a.assets, "favicon.svg")
	if err != nil {
		return echo.ErrNotFound
	}
	return c.Blob(http.StatusOK, "image/svg+xml", data)
}

func (a *App) handleRobots(c echo.Context) error {
	return c.Blob(http.StatusOK, echo.MIMETextPlainCharsetUTF8, a.Site.RenderRobots())
}

func handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// httpErrorHandler renders the 404 and 500 pages. Error responses are never
// stored by shared caches.
func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	c.Response().Header().Set("Cache-Control", "no-store")
	var he *echo.HTTPError
	ok := errors.As(err, &he)
	code := http.StatusInternalServerError
	if ok {
		code = he.Code
	}
	var render func(context.Context) ([]byte, error)
	switch {
	case code == http.StatusNotFound:
		render = a.Site.RenderNotFound
	case code >= 500:
		c.Logger().Errorf("server error on %s: %v", c.Request().URL.Path, err)
		render = a.Site.RenderServerError
	default:
		a.Echo.DefaultHTTPErrorHandler(err, c)
		return
	}
	body, rerr := render(c.Request().Context())
	if rerr != nil {
		c.Logger().Errorf("render error page: %v", rerr)
		_ = c.String(code, http.StatusText(code))
		return
	}
	_ = c.HTMLBlob(code, body)
}
