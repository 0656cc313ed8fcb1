package viewmodel

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/eringen/spacetravelling/content"
)

func strPtr(s string) *string { return &s }

func sampleDoc() content.Document {
	return content.Document{
		UID:                  "hello-world",
		FirstPublicationDate: strPtr("2021-03-25T19:25:00+0000"),
		Data: content.PostData{
			Title:  "Hello World",
			Banner: content.Image{URL: "https://images.example.com/banner.png"},
			Author: "Joseph Oliveira",
			Content: []content.Section{
				{Heading: "Hello World", Body: []content.Block{{Type: "paragraph", Text: "a b c d"}}},
			},
		},
	}
}

func TestCountWords(t *testing.T) {
	tests := []struct {
		input string
		want  int
	}{
		{"", 0},
		{"   ", 0},
		{"one", 1},
		{"  Hello World  ", 2},
		{"tabs\tand\nnewlines  here", 4},
	}
	for _, tt := range tests {
		if got := CountWords(tt.input); got != tt.want {
			t.Errorf("CountWords(%q) = %d, want %d", tt.input, got, tt.want)
		}
	}
}

func TestReadingTime(t *testing.T) {
	words := func(n int) string { return strings.TrimSpace(strings.Repeat("w ", n)) }
	tests := []struct {
		name     string
		sections []content.Section
		want     int
	}{
		{"empty", nil, 0},
		{"heading and body", sampleDoc().Data.Content, 1},
		{"exactly 200", []content.Section{{Heading: words(100), Body: []content.Block{{Text: words(100)}}}}, 1},
		{"201 rounds up", []content.Section{{Heading: words(1), Body: []content.Block{{Text: words(200)}}}}, 2},
		{"across sections", []content.Section{
			{Heading: words(2), Body: []content.Block{{Text: words(150)}, {Text: words(150)}}},
			{Heading: words(2), Body: []content.Block{{Text: words(100)}}},
		}, 3},
	}
	for _, tt := range tests {
		if got := ReadingTime(tt.sections); got != tt.want {
			t.Errorf("%s: ReadingTime = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestFormatDate(t *testing.T) {
	tests := []struct {
		ts     string
		locale string
		want   string
	}{
		{"2021-03-25T19:25:00+0000", "en", "25 Mar 2021"},
		{"2021-03-25T19:25:00+0000", "", "25 Mar 2021"},
		{"2021-03-25T19:25:00+0000", "pt-BR", "25 mar 2021"},
		{"2021-03-05T00:00:00Z", "en-US", "05 Mar 2021"},
		{"2021-12-31T23:30:00.123-0300", "en", "01 Jan 2022"},
		{"2021-07-04", "es", "04 jul 2021"},
		{"2021-02-10T08:00:00+01:00", "xx-unknown", "10 Feb 2021"},
	}
	for _, tt := range tests {
		got, err := FormatDate(tt.ts, LookupLocale(tt.locale), nil)
		if err != nil {
			t.Fatalf("FormatDate(%q, %q) error: %v", tt.ts, tt.locale, err)
		}
		if got != tt.want {
			t.Errorf("FormatDate(%q, %q) = %q, want %q", tt.ts, tt.locale, got, tt.want)
		}
	}
}

func TestFormatDateInLocation(t *testing.T) {
	saoPaulo := time.FixedZone("BRT", -3*60*60)
	got, err := FormatDate("2021-03-25T01:00:00+0000", LookupLocale("pt-BR"), saoPaulo)
	if err != nil {
		t.Fatal(err)
	}
	if got != "24 mar 2021" {
		t.Errorf("got %q, want %q", got, "24 mar 2021")
	}
}

func TestFormatDateInvalid(t *testing.T) {
	for _, ts := range []string{"", "yesterday", "25/03/2021"} {
		if _, err := FormatDate(ts, LookupLocale("en"), nil); err == nil {
			t.Errorf("FormatDate(%q) should fail", ts)
		}
	}
}

func TestBuild(t *testing.T) {
	post, err := NewBuilder("en", nil).Build(sampleDoc())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if post.PublishedDate != "25 Mar 2021" {
		t.Errorf("PublishedDate = %q", post.PublishedDate)
	}
	if post.ReadingMinutes != 1 || post.WordCount != 6 {
		t.Errorf("ReadingMinutes = %d, WordCount = %d, want 1 and 6", post.ReadingMinutes, post.WordCount)
	}
	if post.Title != "Hello World" || post.Author != "Joseph Oliveira" || post.Slug != "hello-world" {
		t.Errorf("unexpected fields: %+v", post)
	}
	if post.BannerURL != "https://images.example.com/banner.png" {
		t.Errorf("BannerURL = %q", post.BannerURL)
	}
	if len(post.Sections) != 1 || post.Sections[0].Heading != "Hello World" {
		t.Errorf("Sections = %+v", post.Sections)
	}
}

func TestBuildIsPure(t *testing.T) {
	b := NewBuilder("pt-BR", nil)
	first, err := b.Build(sampleDoc())
	if err != nil {
		t.Fatal(err)
	}
	second, err := b.Build(sampleDoc())
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Build not deterministic:\n%+v\n%+v", first, second)
	}
}

func TestBuildEmptyContent(t *testing.T) {
	doc := sampleDoc()
	doc.Data.Content = nil
	post, err := Builder{}.Build(doc)
	if err != nil {
		t.Fatal(err)
	}
	if post.ReadingMinutes != 0 {
		t.Errorf("ReadingMinutes = %d, want 0", post.ReadingMinutes)
	}
	if len(post.Sections) != 0 {
		t.Errorf("Sections = %v, want empty", post.Sections)
	}
}

func TestBuildValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*content.Document)
		field  string
		want   error
	}{
		{"missing date", func(d *content.Document) { d.FirstPublicationDate = nil }, "first_publication_date", ErrMissingPublicationDate},
		{"blank date", func(d *content.Document) { d.FirstPublicationDate = strPtr(" ") }, "first_publication_date", ErrMissingPublicationDate},
		{"bad date", func(d *content.Document) { d.FirstPublicationDate = strPtr("not a date") }, "first_publication_date", ErrInvalidPublicationDate},
		{"missing uid", func(d *content.Document) { d.UID = "" }, "uid", ErrMissingField},
		{"missing title", func(d *content.Document) { d.Data.Title = "" }, "title", ErrMissingField},
	}
	for _, tt := range tests {
		doc := sampleDoc()
		tt.mutate(&doc)
		_, err := NewBuilder("en", nil).Build(doc)
		if err == nil {
			t.Fatalf("%s: expected error", tt.name)
		}
		if !errors.Is(err, ErrValidation) {
			t.Errorf("%s: errors.Is(err, ErrValidation) = false", tt.name)
		}
		if !errors.Is(err, tt.want) {
			t.Errorf("%s: err = %v, want %v", tt.name, err, tt.want)
		}
		var ve *ValidationError
		if !errors.As(err, &ve) || ve.Field != tt.field {
			t.Errorf("%s: field = %v, want %q", tt.name, ve, tt.field)
		}
	}
}

func TestSummary(t *testing.T) {
	doc := sampleDoc()
	doc.Data.Subtitle = "  Pensando em sincronização  "
	s, err := NewBuilder("pt-BR", nil).Summary(doc)
	if err != nil {
		t.Fatal(err)
	}
	if s.Link != "/post/hello-world/" {
		t.Errorf("Link = %q", s.Link)
	}
	if s.Subtitle != "Pensando em sincronização" {
		t.Errorf("Subtitle = %q", s.Subtitle)
	}
	if s.PublishedDate != "25 mar 2021" {
		t.Errorf("PublishedDate = %q", s.PublishedDate)
	}
}
