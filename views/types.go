package views

import "github.com/eringen/spacetravelling/viewmodel"

// SiteConfig holds the site-wide settings every page needs. Handlers and the
// exporter pass the same value so nothing is hardcoded in templates.
type SiteConfig struct {
	Name        string // SITE_NAME  (default "spacetravelling")
	URL         string // SITE_URL   (default "http://localhost:3000")
	Description string
	Author      string
	Locale      viewmodel.Locale
}

// Lang returns the value of the html lang attribute.
func (s SiteConfig) Lang() string {
	if s.Locale.Months[0] == "" {
		return "en"
	}
	return s.Locale.Tag.String()
}

func (s SiteConfig) text() viewmodel.Locale {
	if s.Locale.Months[0] == "" {
		return viewmodel.LookupLocale("")
	}
	return s.Locale
}

// PageMeta carries per-page OpenGraph and SEO metadata into the <head> template.
type PageMeta struct {
	Title       string
	Description string
	URL         string // canonical + og:url
	OGType      string // "website" or "article"
	Image       string // og:image
	JSONLD      string
	Refresh     int  // seconds; adds a meta refresh when > 0
	NoIndex     bool // placeholders and error pages
	Preview     bool // shows the preview banner
}
