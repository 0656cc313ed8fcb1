package generate

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/eringen/spacetravelling/content"
	"github.com/eringen/spacetravelling/views"
)

type rssXML struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title       string    `xml:"title"`
	Link        string    `xml:"link"`
	Description string    `xml:"description"`
	Language    string    `xml:"language,omitempty"`
	Items       []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	Author      string `xml:"author,omitempty"`
	PubDate     string `xml:"pubDate"`
	GUID        string `xml:"guid"`
}

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

// RenderFeed renders an RSS 2.0 feed of the newest posts.
func (s *Site) RenderFeed(ctx context.Context) ([]byte, error) {
	start := time.Now()
	res, err := s.src.Search(ctx, content.Query{
		QueryOptions: s.queryOptions(content.QueryOptions{}),
		Type:         content.PostType,
		Page:         1,
		PageSize:     s.opts.FeedSize,
	})
	if err != nil {
		return nil, fmt.Errorf("feed: %w", err)
	}
	site := s.opts.Site
	items := make([]rssItem, 0, len(res.Results))
	for _, doc := range res.Results {
		sum, err := s.builder.Summary(doc)
		if err != nil {
			s.invalid(doc, err)
			continue
		}
		postURL := views.PostURL(site, sum.Slug)
		items = append(items, rssItem{
			Title:       sum.Title,
			Link:        postURL,
			Description: sum.Subtitle,
			Author:      sum.Author,
			PubDate:     sum.PublishedAt.Format(time.RFC1123Z),
			GUID:        postURL,
		})
	}
	feed := rssXML{
		Version: "2.0",
		Channel: rssChannel{
			Title:       site.Name,
			Link:        views.PageURL(site, 1),
			Description: site.Description,
			Language:    site.Lang(),
			Items:       items,
		},
	}
	out, err := encodeXML(feed)
	if err != nil {
		return nil, fmt.Errorf("feed: %w", err)
	}
	s.rec.ObserveRender(KindFeed, time.Since(start))
	return out, nil
}

// RenderSitemap renders a sitemap listing every listing page and post.
func (s *Site) RenderSitemap(ctx context.Context) ([]byte, error) {
	start := time.Now()
	docs, err := content.ListAll(ctx, s.src, content.Query{
		QueryOptions: s.queryOptions(content.QueryOptions{}),
		Type:         content.PostType,
	})
	if err != nil {
		return nil, fmt.Errorf("sitemap: %w", err)
	}
	site := s.opts.Site
	urls := []sitemapURL{{Loc: views.PageURL(site, 1)}}
	for n := 2; n <= ListingPages(len(docs), s.opts.PageSize); n++ {
		urls = append(urls, sitemapURL{Loc: views.PageURL(site, n)})
	}
	for _, doc := range docs {
		if doc.UID == "" {
			continue
		}
		urls = append(urls, sitemapURL{
			Loc:     views.PostURL(site, doc.UID),
			LastMod: lastModified(doc),
		})
	}
	out, err := encodeXML(sitemapURLSet{
		XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs:  urls,
	})
	if err != nil {
		return nil, fmt.Errorf("sitemap: %w", err)
	}
	s.rec.ObserveRender(KindSitemap, time.Since(start))
	return out, nil
}

// RenderRobots renders robots.txt pointing at the sitemap.
func (s *Site) RenderRobots() []byte {
	sitemap := strings.TrimSuffix(views.PageURL(s.opts.Site, 1), "/") + "/sitemap.xml"
	return []byte("User-agent: *\nAllow: /\nDisallow: /api/\n\nSitemap: " + sitemap + "\n")
}

// ListingPages returns how many listing pages n posts fill.
func ListingPages(n, pageSize int) int {
	if n <= 0 || pageSize <= 0 {
		return 1
	}
	return (n + pageSize - 1) / pageSize
}

func lastModified(doc content.Document) string {
	for _, ts := range []*string{doc.LastPublicationDate, doc.FirstPublicationDate} {
		if ts == nil {
			continue
		}
		if t, err := content.ParseTimestamp(*ts); err == nil {
			return t.UTC().Format("2006-01-02")
		}
	}
	return ""
}

func encodeXML(v any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	if err := xml.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
