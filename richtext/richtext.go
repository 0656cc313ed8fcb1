// Package richtext renders CMS rich text blocks to HTML as a templ component.
package richtext

import (
	"bytes"
	"context"
	"html"
	"io"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"unicode/utf16"

	"github.com/a-h/templ"

	"github.com/eringen/spacetravelling/content"
)

// Component returns a templ.Component that renders blocks as HTML.
func Component(blocks []content.Block) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var buf bytes.Buffer
		Render(&buf, blocks)
		_, err := w.Write(buf.Bytes())
		return err
	})
}

// Render writes the HTML representation of blocks to buf. Consecutive list
// items are grouped into one list.
func Render(buf *bytes.Buffer, blocks []content.Block) {
	imageCount := 0
	list := ""

	flushList := func() {
		if list != "" {
			buf.WriteString("</" + list + ">")
			list = ""
		}
	}

	for _, b := range blocks {
		if b.Type == "list-item" || b.Type == "o-list-item" {
			tag := "ul"
			if b.Type == "o-list-item" {
				tag = "ol"
			}
			if list != tag {
				flushList()
				buf.WriteString("<" + tag + ">")
				list = tag
			}
			buf.WriteString("<li>")
			buf.WriteString(FormatSpans(b.Text, b.Spans))
			buf.WriteString("</li>")
			continue
		}
		flushList()

		if level := headingLevel(b.Type); level > 0 {
			h := "h" + strconv.Itoa(level)
			buf.WriteString("<" + h + ">")
			buf.WriteString(FormatSpans(b.Text, b.Spans))
			buf.WriteString("</" + h + ">")
			continue
		}

		switch b.Type {
		case "preformatted":
			buf.WriteString(`<pre class="code-block"><code>`)
			buf.WriteString(html.EscapeString(b.Text))
			buf.WriteString("</code></pre>")
		case "image":
			src := SafeURL(b.URL)
			if src == "" {
				continue
			}
			imageCount++
			loadAttr := `loading="lazy"`
			if imageCount == 1 {
				loadAttr = `fetchpriority="high"`
			}
			buf.WriteString(`<img ` + loadAttr + ` alt="` + html.EscapeString(b.Alt) + `" src="` + src + `" decoding="async"/>`)
		default:
			if strings.TrimSpace(b.Text) == "" {
				continue
			}
			buf.WriteString("<p>")
			buf.WriteString(FormatSpans(b.Text, b.Spans))
			buf.WriteString("</p>")
		}
	}
	flushList()
}

func headingLevel(t string) int {
	if len(t) != len("heading1") || !strings.HasPrefix(t, "heading") {
		return 0
	}
	n := int(t[len(t)-1] - '0')
	if n < 1 || n > 6 {
		return 0
	}
	return n
}

// FormatSpans escapes text and applies strong, em and hyperlink spans.
// Offsets are UTF-16 code units, as the CMS reports them. Spans that overlap
// without nesting are split so the output stays well formed.
func FormatSpans(text string, spans []content.Span) string {
	runes := []rune(text)
	offsets := runeOffsets(runes)
	valid := make([]content.Span, 0, len(spans))
	for _, s := range spans {
		if s.Start < 0 || s.End >= len(offsets) || s.Start >= s.End {
			continue
		}
		s.Start, s.End = offsets[s.Start], offsets[s.End]
		if s.Start >= s.End {
			continue
		}
		valid = append(valid, s)
	}
	// Outer spans open first.
	sort.SliceStable(valid, func(i, j int) bool {
		if valid[i].Start != valid[j].Start {
			return valid[i].Start < valid[j].Start
		}
		return valid[i].End > valid[j].End
	})

	var sb strings.Builder
	var stack []content.Span
	next := 0
	for pos := 0; pos <= len(runes); pos++ {
		stack = closeSpans(&sb, stack, pos)
		for next < len(valid) && valid[next].Start == pos {
			sb.WriteString(openTag(valid[next]))
			stack = append(stack, valid[next])
			next++
		}
		if pos == len(runes) {
			break
		}
		if runes[pos] == '\n' {
			sb.WriteString("<br/>")
			continue
		}
		sb.WriteString(html.EscapeString(string(runes[pos])))
	}
	return sb.String()
}

// runeOffsets maps every UTF-16 offset into runes to a rune offset. An
// offset inside a surrogate pair maps to the start of its rune.
func runeOffsets(runes []rune) []int {
	offsets := make([]int, 0, len(runes)+1)
	for i, r := range runes {
		offsets = append(offsets, i)
		if utf16.RuneLen(r) == 2 {
			offsets = append(offsets, i)
		}
	}
	return append(offsets, len(runes))
}

// closeSpans closes every span on the stack ending at pos, reopening any
// span popped on the way that is still open.
func closeSpans(sb *strings.Builder, stack []content.Span, pos int) []content.Span {
	ending := false
	for _, s := range stack {
		if s.End <= pos {
			ending = true
			break
		}
	}
	if !ending {
		return stack
	}
	var reopen []content.Span
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		sb.WriteString(closeTag(top))
		if top.End > pos {
			reopen = append(reopen, top)
		}
		still := false
		for _, s := range stack {
			if s.End <= pos {
				still = true
				break
			}
		}
		if !still {
			break
		}
	}
	for i := len(reopen) - 1; i >= 0; i-- {
		sb.WriteString(openTag(reopen[i]))
		stack = append(stack, reopen[i])
	}
	return stack
}

func openTag(s content.Span) string {
	switch s.Type {
	case "strong":
		return "<strong>"
	case "em":
		return "<em>"
	case "hyperlink":
		href := SafeURL(s.Data.URL)
		if href == "" {
			return ""
		}
		attrs := `class="underline decoration-2 underline-offset-4"`
		if s.Data.Target == "_blank" {
			attrs += ` target="_blank" rel="noopener noreferrer"`
		}
		return `<a href="` + href + `" ` + attrs + `>`
	}
	return ""
}

func closeTag(s content.Span) string {
	switch s.Type {
	case "strong":
		return "</strong>"
	case "em":
		return "</em>"
	case "hyperlink":
		if SafeURL(s.Data.URL) == "" {
			return ""
		}
		return "</a>"
	}
	return ""
}

// SafeURL validates and sanitizes a URL for use in HTML attributes.
func SafeURL(raw string) string {
	val := strings.TrimSpace(html.UnescapeString(raw))
	if val == "" {
		return ""
	}
	if strings.HasPrefix(val, "/") || strings.HasPrefix(val, "#") {
		return html.EscapeString(val)
	}
	parsed, err := url.Parse(val)
	if err != nil || parsed.Scheme == "" {
		return ""
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https", "mailto", "tel":
		return html.EscapeString(val)
	default:
		return ""
	}
}
