package views

import (
	"context"
	"io"
	"strconv"

	"github.com/a-h/templ"
)

// Layout wraps body in the document shell: head metadata, header and the
// optional preview banner.
func Layout(site SiteConfig, meta PageMeta, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newWriter(ctx, w)
		h.raw("<!DOCTYPE html><html")
		h.attr("lang", site.Lang())
		h.raw(`><head><meta charset="utf-8"/><meta name="viewport" content="width=device-width, initial-scale=1"/>`)
		if meta.Refresh > 0 {
			h.raw(`<meta http-equiv="refresh" content="`, strconv.Itoa(meta.Refresh), `"/>`)
		}
		h.raw("<title>")
		h.text(meta.Title)
		h.raw("</title>")
		if meta.Description != "" {
			h.raw(`<meta name="description"`)
			h.attr("content", meta.Description)
			h.raw("/>")
		}
		if meta.NoIndex {
			h.raw(`<meta name="robots" content="noindex"/>`)
		}
		if meta.URL != "" {
			h.raw(`<link rel="canonical"`)
			h.attr("href", meta.URL)
			h.raw(`/><meta property="og:url"`)
			h.attr("content", meta.URL)
			h.raw("/>")
		}
		h.raw(`<meta property="og:title"`)
		h.attr("content", meta.Title)
		h.raw(`/><meta property="og:site_name"`)
		h.attr("content", site.Name)
		h.raw("/>")
		if meta.OGType != "" {
			h.raw(`<meta property="og:type"`)
			h.attr("content", meta.OGType)
			h.raw("/>")
		}
		if meta.Image != "" {
			h.raw(`<meta property="og:image"`)
			h.attr("content", meta.Image)
			h.raw("/>")
		}
		h.raw(`<link rel="icon" type="image/svg+xml" href="/favicon.svg"/>`)
		h.raw(`<link rel="alternate" type="application/rss+xml" href="/feed.xml"`)
		h.attr("title", site.Name)
		h.raw(`/><link rel="stylesheet" href="/public/styles.css"/>`)
		if meta.JSONLD != "" {
			// JSON-LD is produced by encoding/json, which escapes <, > and &.
			h.raw(`<script type="application/ld+json">`, meta.JSONLD, "</script>")
		}
		h.raw("</head><body>")
		if meta.Preview {
			h.raw(`<div class="preview-banner">`)
			h.text(site.text().Preview)
			h.raw(` <a href="/api/exit-preview">&times;</a></div>`)
		}
		h.component(Header(site))
		h.raw(`<main class="container">`)
		h.component(body)
		h.raw("</main></body></html>")
		return h.err
	})
}

// Header renders the site logo linking back to the listing.
func Header(site SiteConfig) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newWriter(ctx, w)
		h.raw(`<header class="header"><a href="/" class="logo"><img src="/public/logo.svg" alt="logo"/><span>`)
		h.text(site.Name)
		h.raw("</span></a></header>")
		return h.err
	})
}
