// Package generate turns CMS content into rendered pages. Site renders single
// pages on demand for the HTTP app; Exporter writes the whole site to a
// directory.
package generate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/a-h/templ"

	"github.com/eringen/spacetravelling/content"
	"github.com/eringen/spacetravelling/internal/logfields"
	"github.com/eringen/spacetravelling/metrics"
	"github.com/eringen/spacetravelling/viewmodel"
	"github.com/eringen/spacetravelling/views"
)

// Page kinds, used as metric labels and cache key prefixes.
const (
	KindIndex    = "index"
	KindPost     = "post"
	KindLoading  = "loading"
	KindNotFound = "not_found"
	KindError    = "error"
	KindFeed     = "feed"
	KindSitemap  = "sitemap"
)

// ErrPageOutOfRange is returned for listing pages past the last one.
var ErrPageOutOfRange = errors.New("listing page out of range")

// Options configures a Site.
type Options struct {
	Site           views.SiteConfig
	Lang           string // content language; "" uses the source default
	PageSize       int    // posts per listing page (default 10)
	FeedSize       int    // posts in feed.xml (default 20)
	PrerenderLimit int    // > 0 pre-renders only the newest N posts
	Logger         *slog.Logger
	Recorder       metrics.Recorder
}

// Site fetches content, builds view-models and renders pages.
type Site struct {
	src     content.Source
	builder viewmodel.Builder
	opts    Options
	log     *slog.Logger
	rec     metrics.Recorder
}

// NewSite returns a Site reading from src.
func NewSite(src content.Source, builder viewmodel.Builder, opts Options) *Site {
	if opts.PageSize <= 0 {
		opts.PageSize = 10
	}
	if opts.FeedSize <= 0 {
		opts.FeedSize = 20
	}
	if opts.Site.Name == "" {
		opts.Site.Name = "spacetravelling"
	}
	if opts.Site.Locale.Months[0] == "" {
		opts.Site.Locale = builder.Locale
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Site{
		src:     src,
		builder: builder,
		opts:    opts,
		log:     log,
		rec:     metrics.OrNoop(opts.Recorder),
	}
}

// Config returns the site settings pages are rendered with.
func (s *Site) Config() views.SiteConfig { return s.opts.Site }

func (s *Site) queryOptions(opts content.QueryOptions) content.QueryOptions {
	if opts.Lang == "" {
		opts.Lang = s.opts.Lang
	}
	return opts
}

// Paths returns the slugs to pre-render, newest first. All published posts
// are returned unless PrerenderLimit is set.
func (s *Site) Paths(ctx context.Context) ([]string, error) {
	slugs, err := s.Slugs(ctx)
	if err != nil {
		return nil, err
	}
	if s.opts.PrerenderLimit > 0 && len(slugs) > s.opts.PrerenderLimit {
		slugs = slugs[:s.opts.PrerenderLimit]
	}
	return slugs, nil
}

// Slugs returns the slug of every published post, newest first.
func (s *Site) Slugs(ctx context.Context) ([]string, error) {
	docs, err := content.ListAll(ctx, s.src, content.Query{
		QueryOptions: s.queryOptions(content.QueryOptions{}),
		Type:         content.PostType,
	})
	if err != nil {
		return nil, fmt.Errorf("static paths: %w", err)
	}
	seen := make(map[string]struct{}, len(docs))
	slugs := make([]string, 0, len(docs))
	for _, d := range docs {
		if d.UID == "" {
			continue
		}
		if _, ok := seen[d.UID]; ok {
			continue
		}
		seen[d.UID] = struct{}{}
		slugs = append(slugs, d.UID)
	}
	return slugs, nil
}

// Listing returns page n (1-based) of the post listing. Posts that fail
// validation are logged and left out.
func (s *Site) Listing(ctx context.Context, n int, opts content.QueryOptions) (viewmodel.Listing, error) {
	if n < 1 {
		n = 1
	}
	res, err := s.src.Search(ctx, content.Query{
		QueryOptions: s.queryOptions(opts),
		Type:         content.PostType,
		Page:         n,
		PageSize:     s.opts.PageSize,
	})
	if err != nil {
		return viewmodel.Listing{}, fmt.Errorf("listing page %d: %w", n, err)
	}
	if n > 1 && n > res.TotalPages {
		return viewmodel.Listing{}, fmt.Errorf("listing page %d of %d: %w", n, res.TotalPages, ErrPageOutOfRange)
	}
	listing := viewmodel.Listing{
		Posts:      make([]viewmodel.Summary, 0, len(res.Results)),
		Page:       n,
		TotalPages: res.TotalPages,
	}
	for _, doc := range res.Results {
		sum, err := s.builder.Summary(doc)
		if err != nil {
			s.invalid(doc, err)
			continue
		}
		listing.Posts = append(listing.Posts, sum)
	}
	if res.HasNext() {
		listing.NextPage = n + 1
	}
	if n > 1 {
		listing.PrevPage = n - 1
	}
	return listing, nil
}

// Post fetches and builds the post with the given slug.
func (s *Site) Post(ctx context.Context, slug string, opts content.QueryOptions) (viewmodel.Post, error) {
	doc, err := s.src.ByUID(ctx, content.PostType, slug, s.queryOptions(opts))
	if err != nil {
		return viewmodel.Post{}, fmt.Errorf("post %s: %w", slug, err)
	}
	post, err := s.builder.Build(*doc)
	if err != nil {
		s.invalid(*doc, err)
		return viewmodel.Post{}, err
	}
	return post, nil
}

// ResolveSlug returns the slug of the document with the given ID, for
// preview links that only carry a document ID.
func (s *Site) ResolveSlug(ctx context.Context, id string, opts content.QueryOptions) (string, error) {
	opts = s.queryOptions(opts)
	opts.Lang = "*"
	doc, err := s.src.ByID(ctx, id, opts)
	if err != nil {
		return "", fmt.Errorf("document %s: %w", id, err)
	}
	if doc.UID == "" {
		return "", fmt.Errorf("document %s has no uid: %w", id, content.ErrNotFound)
	}
	return doc.UID, nil
}

func (s *Site) invalid(doc content.Document, err error) {
	var ve *viewmodel.ValidationError
	if errors.As(err, &ve) {
		s.rec.IncValidationError(ve.Field)
	}
	s.log.Warn("invalid post document", logfields.Slug(doc.UID), slog.String("id", doc.ID), logfields.Error(err))
}

// RenderIndex renders listing page n.
func (s *Site) RenderIndex(ctx context.Context, n int) ([]byte, error) {
	listing, err := s.Listing(ctx, n, content.QueryOptions{})
	if err != nil {
		return nil, err
	}
	return s.RenderListing(ctx, listing)
}

// RenderListing renders an already fetched listing page.
func (s *Site) RenderListing(ctx context.Context, listing viewmodel.Listing) ([]byte, error) {
	return s.render(ctx, KindIndex, views.Home(s.opts.Site, listing))
}

// RenderPost renders the detail page of slug. A non-empty opts.Ref renders
// a preview.
func (s *Site) RenderPost(ctx context.Context, slug string, opts content.QueryOptions) ([]byte, error) {
	post, err := s.Post(ctx, slug, opts)
	if err != nil {
		return nil, err
	}
	return s.RenderPostPage(ctx, post, opts.Ref != "")
}

// RenderPostPage renders an already built post.
func (s *Site) RenderPostPage(ctx context.Context, post viewmodel.Post, preview bool) ([]byte, error) {
	return s.render(ctx, KindPost, views.PostPage(s.opts.Site, post, preview))
}

// RenderLoading renders the fallback placeholder for slug.
func (s *Site) RenderLoading(ctx context.Context, slug string) ([]byte, error) {
	return s.render(ctx, KindLoading, views.Loading(s.opts.Site, slug))
}

// RenderNotFound renders the 404 page.
func (s *Site) RenderNotFound(ctx context.Context) ([]byte, error) {
	return s.render(ctx, KindNotFound, views.NotFound(s.opts.Site))
}

// RenderServerError renders the 500 page.
func (s *Site) RenderServerError(ctx context.Context) ([]byte, error) {
	return s.render(ctx, KindError, views.ServerError(s.opts.Site))
}

func (s *Site) render(ctx context.Context, kind string, c templ.Component) ([]byte, error) {
	start := time.Now()
	var buf bytes.Buffer
	if err := c.Render(ctx, &buf); err != nil {
		return nil, fmt.Errorf("render %s: %w", kind, err)
	}
	s.rec.ObserveRender(kind, time.Since(start))
	return buf.Bytes(), nil
}
