package spacetravelling

import (
	"context"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/eringen/spacetravelling/content"
	"github.com/eringen/spacetravelling/generate"
	"github.com/eringen/spacetravelling/viewmodel"
	"github.com/eringen/spacetravelling/views"
)

// Page keys of the site-wide documents.
const (
	FeedKey    = "/feed.xml"
	SitemapKey = "/sitemap.xml"
)

const mimeRSS = "application/rss+xml; charset=UTF-8"

func (a *App) listingTarget(n int) Target {
	return Target{
		Key:         views.ListingPath(n),
		Kind:        generate.KindIndex,
		ContentType: echo.MIMETextHTMLCharsetUTF8,
		Render: func(ctx context.Context) ([]byte, error) {
			return a.Site.RenderIndex(ctx, n)
		},
	}
}

func (a *App) postTarget(slug string) Target {
	return Target{
		Key:         viewmodel.PostLink(slug),
		Kind:        generate.KindPost,
		ContentType: echo.MIMETextHTMLCharsetUTF8,
		Render: func(ctx context.Context) ([]byte, error) {
			return a.Site.RenderPost(ctx, slug, content.QueryOptions{})
		},
	}
}

func (a *App) feedTarget() Target {
	return Target{
		Key:         FeedKey,
		Kind:        generate.KindFeed,
		ContentType: mimeRSS,
		Render:      a.Site.RenderFeed,
	}
}

func (a *App) sitemapTarget() Target {
	return Target{
		Key:         SitemapKey,
		Kind:        generate.KindSitemap,
		ContentType: echo.MIMEApplicationXMLCharsetUTF8,
		Render:      a.Site.RenderSitemap,
	}
}

// targetFor maps a page key back to the target that generates it.
func (a *App) targetFor(key string) (Target, bool) {
	switch key {
	case "/":
		return a.listingTarget(1), true
	case FeedKey:
		return a.feedTarget(), true
	case SitemapKey:
		return a.sitemapTarget(), true
	}
	if n, ok := listingPage(key); ok {
		return a.listingTarget(n), true
	}
	if slug, ok := postSlug(key); ok {
		return a.postTarget(slug), true
	}
	return Target{}, false
}

// listingPage parses "/page/<n>/" with n >= 2.
func listingPage(key string) (int, bool) {
	rest, ok := trimSegment(key, "/page/")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 2 || strconv.Itoa(n) != rest {
		return 0, false
	}
	return n, true
}

// postSlug parses "/post/<slug>/".
func postSlug(key string) (string, bool) {
	return trimSegment(key, "/post/")
}

func trimSegment(key, prefix string) (string, bool) {
	if !strings.HasPrefix(key, prefix) || !strings.HasSuffix(key, "/") {
		return "", false
	}
	seg := strings.TrimSuffix(strings.TrimPrefix(key, prefix), "/")
	if seg == "" || strings.Contains(seg, "/") {
		return "", false
	}
	return seg, true
}
