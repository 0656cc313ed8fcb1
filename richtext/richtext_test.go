package richtext

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/eringen/spacetravelling/content"
)

func render(blocks []content.Block) string {
	var buf bytes.Buffer
	Render(&buf, blocks)
	return buf.String()
}

func TestFormatSpansStrongAndEm(t *testing.T) {
	tests := []struct {
		text     string
		spans    []content.Span
		expected string
	}{
		{"plain", nil, "plain"},
		{"bold text", []content.Span{{Start: 0, End: 4, Type: "strong"}}, "<strong>bold</strong> text"},
		{"some italic", []content.Span{{Start: 5, End: 11, Type: "em"}}, "some <em>italic</em>"},
		{
			"bold italic text",
			[]content.Span{{Start: 0, End: 16, Type: "strong"}, {Start: 5, End: 11, Type: "em"}},
			"<strong>bold <em>italic</em> text</strong>",
		},
	}
	for _, tt := range tests {
		got := FormatSpans(tt.text, tt.spans)
		if got != tt.expected {
			t.Errorf("FormatSpans(%q) = %q, want %q", tt.text, got, tt.expected)
		}
	}
}

func TestFormatSpansOverlapping(t *testing.T) {
	spans := []content.Span{{Start: 0, End: 4, Type: "strong"}, {Start: 2, End: 6, Type: "em"}}
	got := FormatSpans("abcdef", spans)
	expected := "<strong>ab<em>cd</em></strong><em>ef</em>"
	if got != expected {
		t.Errorf("FormatSpans overlapping = %q, want %q", got, expected)
	}
}

func TestFormatSpansRuneOffsets(t *testing.T) {
	got := FormatSpans("ção é", []content.Span{{Start: 4, End: 5, Type: "em"}})
	if got != "ção <em>é</em>" {
		t.Errorf("got %q", got)
	}
}

func TestFormatSpansIgnoresInvalidRanges(t *testing.T) {
	spans := []content.Span{
		{Start: 3, End: 2, Type: "strong"},
		{Start: -1, End: 2, Type: "strong"},
		{Start: 0, End: 99, Type: "em"},
	}
	if got := FormatSpans("abc", spans); got != "abc" {
		t.Errorf("got %q, want %q", got, "abc")
	}
}

func TestFormatSpansEscapesAndBreaks(t *testing.T) {
	got := FormatSpans("<b>&\nnext", nil)
	expected := "&lt;b&gt;&amp;<br/>next"
	if got != expected {
		t.Errorf("got %q, want %q", got, expected)
	}
}

func TestFormatSpansHyperlink(t *testing.T) {
	tests := []struct {
		name     string
		data     content.SpanData
		expected string
	}{
		{
			"same tab",
			content.SpanData{URL: "https://example.com/a_b"},
			`see <a href="https://example.com/a_b" class="underline decoration-2 underline-offset-4">docs</a>`,
		},
		{
			"new tab",
			content.SpanData{URL: "https://example.com", Target: "_blank"},
			`see <a href="https://example.com" class="underline decoration-2 underline-offset-4" target="_blank" rel="noopener noreferrer">docs</a>`,
		},
		{"unsafe scheme", content.SpanData{URL: "javascript:alert(1)"}, "see docs"},
		{"empty", content.SpanData{}, "see docs"},
	}
	for _, tt := range tests {
		spans := []content.Span{{Start: 4, End: 8, Type: "hyperlink", Data: tt.data}}
		got := FormatSpans("see docs", spans)
		if got != tt.expected {
			t.Errorf("%s:\n  got:  %q\n  want: %q", tt.name, got, tt.expected)
		}
	}
}

func TestRenderParagraphsAndHeadings(t *testing.T) {
	got := render([]content.Block{
		{Type: "heading2", Text: "Title"},
		{Type: "paragraph", Text: "Body"},
		{Type: "heading7", Text: "Odd"},
		{Type: "paragraph", Text: "   "},
	})
	expected := "<h2>Title</h2><p>Body</p><p>Odd</p>"
	if got != expected {
		t.Errorf("Render = %q, want %q", got, expected)
	}
}

func TestRenderGroupsLists(t *testing.T) {
	got := render([]content.Block{
		{Type: "list-item", Text: "one"},
		{Type: "list-item", Text: "two"},
		{Type: "o-list-item", Text: "first"},
		{Type: "paragraph", Text: "after"},
		{Type: "list-item", Text: "last"},
	})
	expected := "<ul><li>one</li><li>two</li></ul><ol><li>first</li></ol><p>after</p><ul><li>last</li></ul>"
	if got != expected {
		t.Errorf("Render = %q, want %q", got, expected)
	}
}

func TestRenderPreformatted(t *testing.T) {
	got := render([]content.Block{{Type: "preformatted", Text: "if a < b {\n}"}})
	expected := `<pre class="code-block"><code>if a &lt; b {` + "\n" + `}</code></pre>`
	if got != expected {
		t.Errorf("Render = %q, want %q", got, expected)
	}
}

func TestRenderImages(t *testing.T) {
	got := render([]content.Block{
		{Type: "image", URL: "https://images.example.com/a.png", Alt: `a "quoted" alt`},
		{Type: "image", URL: "https://images.example.com/b.png"},
		{Type: "image", URL: "javascript:alert(1)"},
	})
	if strings.Count(got, "<img") != 2 {
		t.Fatalf("expected 2 images: %q", got)
	}
	if !strings.Contains(got, `fetchpriority="high" alt="a &#34;quoted&#34; alt"`) {
		t.Errorf("first image should be high priority with escaped alt: %q", got)
	}
	if !strings.Contains(got, `loading="lazy"`) {
		t.Errorf("second image should be lazy: %q", got)
	}
	if strings.Contains(got, "javascript") {
		t.Errorf("unsafe image URL rendered: %q", got)
	}
}

func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	err := Component([]content.Block{{Type: "paragraph", Text: "hi"}}).Render(context.Background(), &buf)
	if err != nil {
		t.Fatal(err)
	}
	if buf.String() != "<p>hi</p>" {
		t.Errorf("Component = %q", buf.String())
	}
}

func TestFormatSpansUTF16Offsets(t *testing.T) {
	tests := []struct {
		text     string
		spans    []content.Span
		expected string
	}{
		// The rocket is two UTF-16 code units.
		{"\U0001F680 go", []content.Span{{Start: 3, End: 5, Type: "strong"}}, "\U0001F680 <strong>go</strong>"},
		{"\U0001F680\U0001F680 x", []content.Span{{Start: 0, End: 4, Type: "em"}}, "<em>\U0001F680\U0001F680</em> x"},
		{"ção é", []content.Span{{Start: 4, End: 5, Type: "strong"}}, "ção <strong>é</strong>"},
		// Past the end in code units.
		{"\U0001F680", []content.Span{{Start: 0, End: 3, Type: "strong"}}, "\U0001F680"},
		// Inside the surrogate pair only.
		{"\U0001F680", []content.Span{{Start: 0, End: 1, Type: "strong"}}, "\U0001F680"},
	}
	for _, tt := range tests {
		got := FormatSpans(tt.text, tt.spans)
		if got != tt.expected {
			t.Errorf("FormatSpans(%q) = %q, want %q", tt.text, got, tt.expected)
		}
	}
}

func TestSafeURL(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"https://example.com", "https://example.com"},
		{"http://example.com?a=1&b=2", "http://example.com?a=1&amp;b=2"},
		{"/relative/path", "/relative/path"},
		{"#anchor", "#anchor"},
		{"mailto:me@example.com", "mailto:me@example.com"},
		{"javascript:alert(1)", ""},
		{"data:text/html,hi", ""},
		{"no-scheme", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := SafeURL(tt.input); got != tt.expected {
			t.Errorf("SafeURL(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}
