package views

import (
	"context"
	"io"
	"strconv"

	"github.com/a-h/templ"

	"github.com/eringen/spacetravelling/richtext"
	"github.com/eringen/spacetravelling/viewmodel"
)

// LoadingRefresh is how often the fallback placeholder reloads itself while
// the real page is generated.
const LoadingRefresh = 2

// Home renders one page of the post listing.
func Home(site SiteConfig, listing viewmodel.Listing) templ.Component {
	meta := PageMeta{
		Title:       "Home | " + site.Name,
		Description: site.Description,
		URL:         PageURL(site, listing.Page),
		OGType:      "website",
		JSONLD:      WebsiteJsonLD(site),
	}
	if listing.Page > 1 {
		meta.Title = "Page " + strconv.Itoa(listing.Page) + " | " + site.Name
	}
	return Layout(site, meta, templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newWriter(ctx, w)
		h.raw(`<section class="posts">`)
		for _, p := range listing.Posts {
			h.raw(`<article class="post-item"><a`)
			h.attr("href", p.Link)
			h.raw("><h1>")
			h.text(p.Title)
			h.raw("</h1>")
			if p.Subtitle != "" {
				h.raw("<p>")
				h.text(p.Subtitle)
				h.raw("</p>")
			}
			h.raw(`</a><div class="info"><time`)
			h.attr("datetime", p.PublishedAt.Format("2006-01-02"))
			h.raw(`><span class="icon icon-calendar"></span>`)
			h.text(p.PublishedDate)
			h.raw(`</time>`)
			if p.Author != "" {
				h.raw(`<span><span class="icon icon-user"></span>`)
				h.text(p.Author)
				h.raw("</span>")
			}
			h.raw("</div></article>")
		}
		h.raw(`<nav class="pagination">`)
		if listing.PrevPage > 0 {
			h.raw(`<a class="prev-page"`)
			h.attr("href", ListingPath(listing.PrevPage))
			h.raw(">")
			h.text(site.text().Previous)
			h.raw("</a>")
		}
		if listing.NextPage > 0 {
			h.raw(`<a class="load-more"`)
			h.attr("href", ListingPath(listing.NextPage))
			h.raw(">")
			h.text(site.text().LoadMore)
			h.raw("</a>")
		}
		h.raw("</nav></section>")
		return h.err
	}))
}

// PostPage renders the detail view of a post.
func PostPage(site SiteConfig, post viewmodel.Post, preview bool) templ.Component {
	meta := PageMeta{
		Title:       post.Title + " | " + site.Name,
		Description: post.Subtitle,
		URL:         PostURL(site, post.Slug),
		OGType:      "article",
		Image:       post.BannerURL,
		JSONLD:      BlogPostingJsonLD(site, post),
		NoIndex:     preview,
		Preview:     preview,
	}
	return Layout(site, meta, templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newWriter(ctx, w)
		if src := richtext.SafeURL(post.BannerURL); src != "" {
			alt := post.BannerAlt
			if alt == "" {
				alt = "banner"
			}
			h.raw(`<img class="banner" fetchpriority="high" src="`, src, `"`)
			h.attr("alt", alt)
			h.raw("/>")
		}
		h.raw(`<article class="post"><h1>`)
		h.text(post.Title)
		h.raw(`</h1><div class="info"><time`)
		h.attr("datetime", post.PublishedAt.Format("2006-01-02"))
		h.raw(`><span class="icon icon-calendar"></span>`)
		h.text(post.PublishedDate)
		h.raw("</time>")
		if post.Author != "" {
			h.raw(`<span><span class="icon icon-user"></span>`)
			h.text(post.Author)
			h.raw("</span>")
		}
		h.raw(`<span><span class="icon icon-clock"></span>`)
		h.text(strconv.Itoa(post.ReadingMinutes) + " " + site.text().Minutes)
		h.raw("</span></div>")
		for _, sec := range post.Sections {
			h.raw(`<section class="post-section"><h3>`)
			h.text(sec.Heading)
			h.raw(`</h3><div class="post-body">`)
			h.component(richtext.Component(sec.Body))
			h.raw("</div></section>")
		}
		h.raw("</article>")
		return h.err
	}))
}

// Loading renders the placeholder served while a post that was not
// pre-rendered is generated. It reloads itself every LoadingRefresh seconds.
func Loading(site SiteConfig, slug string) templ.Component {
	text := site.text()
	meta := PageMeta{
		Title:   text.Loading + " | " + site.Name,
		URL:     PostURL(site, slug),
		Refresh: LoadingRefresh,
		NoIndex: true,
	}
	return Layout(site, meta, templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newWriter(ctx, w)
		h.raw(`<div class="loading" role="status">`)
		h.text(text.Loading)
		h.raw("</div>")
		return h.err
	}))
}

// NotFound renders the 404 page.
func NotFound(site SiteConfig) templ.Component {
	text := site.text()
	meta := PageMeta{Title: "404 | " + site.Name, NoIndex: true}
	return Layout(site, meta, templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newWriter(ctx, w)
		h.raw(`<div class="error-page"><h1>404</h1><p>`)
		h.text(text.NotFound)
		h.raw(`</p><a href="/">`)
		h.text(site.Name)
		h.raw("</a></div>")
		return h.err
	}))
}

// ServerError renders the 500 page.
func ServerError(site SiteConfig) templ.Component {
	text := site.text()
	meta := PageMeta{Title: "500 | " + site.Name, NoIndex: true}
	return Layout(site, meta, templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newWriter(ctx, w)
		h.raw(`<div class="error-page"><h1>500</h1><p>`)
		h.text(text.Failed)
		h.raw(`</p><a href="/">`)
		h.text(site.Name)
		h.raw("</a></div>")
		return h.err
	}))
}
