// Package viewmodel turns raw CMS documents into the read-only shapes the
// page templates render: formatted dates, reading time and plain fields.
package viewmodel

import (
	"strings"
	"time"

	"github.com/eringen/spacetravelling/content"
)

// Post is the detail page view-model.
type Post struct {
	Slug           string
	Title          string
	Subtitle       string
	BannerURL      string
	BannerAlt      string
	Author         string
	PublishedAt    time.Time
	PublishedDate  string
	Sections       []content.Section
	WordCount      int
	ReadingMinutes int
}

// Summary is one entry of the post listing.
type Summary struct {
	Slug          string
	Title         string
	Subtitle      string
	Author        string
	PublishedAt   time.Time
	PublishedDate string
	Link          string
}

// Listing is one page of the post listing.
type Listing struct {
	Posts      []Summary
	Page       int
	TotalPages int
	NextPage   int // 0 when this is the last page
	PrevPage   int // 0 on the first page
}

// Builder holds the settings view-models are derived with. The zero value
// formats dates in English, in UTC, at DefaultWordsPerMinute.
type Builder struct {
	Locale         Locale
	Location       *time.Location
	WordsPerMinute int
}

// NewBuilder returns a Builder for a BCP 47 locale tag and a time zone.
func NewBuilder(locale string, loc *time.Location) Builder {
	return Builder{Locale: LookupLocale(locale), Location: loc, WordsPerMinute: DefaultWordsPerMinute}
}

func (b Builder) locale() Locale {
	if b.Locale.Months[0] == "" {
		return locales[0]
	}
	return b.Locale
}

// PostLink returns the canonical path of a post.
func PostLink(slug string) string {
	return "/post/" + slug + "/"
}

// Build derives the detail view-model from doc. It fails with a
// *ValidationError when the slug, title or publication date is unusable.
func (b Builder) Build(doc content.Document) (Post, error) {
	publishedAt, date, err := b.header(doc)
	if err != nil {
		return Post{}, err
	}
	words := WordCount(doc.Data.Content)
	return Post{
		Slug:           doc.UID,
		Title:          strings.TrimSpace(doc.Data.Title),
		Subtitle:       strings.TrimSpace(doc.Data.Subtitle),
		BannerURL:      doc.Data.Banner.URL,
		BannerAlt:      doc.Data.Banner.Alt,
		Author:         strings.TrimSpace(doc.Data.Author),
		PublishedAt:    publishedAt,
		PublishedDate:  date,
		Sections:       doc.Data.Content,
		WordCount:      words,
		ReadingMinutes: minutes(words, b.WordsPerMinute),
	}, nil
}

// Summary derives the listing entry for doc.
func (b Builder) Summary(doc content.Document) (Summary, error) {
	publishedAt, date, err := b.header(doc)
	if err != nil {
		return Summary{}, err
	}
	return Summary{
		Slug:          doc.UID,
		Title:         strings.TrimSpace(doc.Data.Title),
		Subtitle:      strings.TrimSpace(doc.Data.Subtitle),
		Author:        strings.TrimSpace(doc.Data.Author),
		PublishedAt:   publishedAt,
		PublishedDate: date,
		Link:          PostLink(doc.UID),
	}, nil
}

// FormatDate formats ts with the builder's locale and time zone.
func (b Builder) FormatDate(ts string) (string, error) {
	return FormatDate(ts, b.locale(), b.Location)
}

func (b Builder) header(doc content.Document) (time.Time, string, error) {
	if strings.TrimSpace(doc.UID) == "" {
		return time.Time{}, "", &ValidationError{Field: "uid", Err: ErrMissingField}
	}
	if strings.TrimSpace(doc.Data.Title) == "" {
		return time.Time{}, "", &ValidationError{Slug: doc.UID, Field: "title", Err: ErrMissingField}
	}
	if doc.FirstPublicationDate == nil || strings.TrimSpace(*doc.FirstPublicationDate) == "" {
		return time.Time{}, "", &ValidationError{Slug: doc.UID, Field: "first_publication_date", Err: ErrMissingPublicationDate}
	}
	t, err := content.ParseTimestamp(strings.TrimSpace(*doc.FirstPublicationDate))
	if err != nil {
		return time.Time{}, "", &ValidationError{Slug: doc.UID, Field: "first_publication_date", Err: ErrInvalidPublicationDate}
	}
	loc := b.Location
	if loc == nil {
		loc = time.UTC
	}
	t = t.In(loc)
	return t, b.locale().FormatMonthDate(t), nil
}
