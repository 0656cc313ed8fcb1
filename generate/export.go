package generate

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/eringen/spacetravelling/content"
	"github.com/eringen/spacetravelling/internal/logfields"
	"github.com/eringen/spacetravelling/metrics"
)

// TriggerExport labels build metrics for static exports.
const TriggerExport = "export"

// ErrUnsafeSlug is returned for slugs that cannot be used as a directory name.
var ErrUnsafeSlug = errors.New("slug is not a safe path segment")

// Exporter writes a complete static copy of a Site to a directory:
//
//	index.html, page/<n>/index.html, post/<slug>/index.html, 404.html,
//	feed.xml, sitemap.xml, robots.txt, favicon.svg, public/...
type Exporter struct {
	Site        *Site
	Assets      fs.FS // copied to public/
	Banners     bool  // download and resize banners into public/banners
	Concurrency int   // posts rendered in parallel (default 4)
	HTTPClient  *http.Client
	Logger      *slog.Logger
	Recorder    metrics.Recorder
}

// Report summarizes an export.
type Report struct {
	Pages    int
	Posts    int
	Duration time.Duration
}

// Export removes outDir, then regenerates every page into it. A post that
// fails to fetch, validate or render fails the whole export.
func (e *Exporter) Export(ctx context.Context, outDir string) (Report, error) {
	start := time.Now()
	rec := metrics.OrNoop(e.Recorder)
	report, err := e.export(ctx, outDir)
	report.Duration = time.Since(start)
	rec.ObserveBuildDuration(TriggerExport, report.Duration)
	rec.IncBuildOutcome(TriggerExport, err == nil)
	return report, err
}

func (e *Exporter) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

func (e *Exporter) export(ctx context.Context, outDir string) (Report, error) {
	var report Report
	if e.Site == nil {
		return report, errors.New("export: no site")
	}
	clean := filepath.Clean(outDir)
	if outDir == "" || clean == "/" || clean == "." {
		return report, fmt.Errorf("export: refusing to use %q as output directory", outDir)
	}
	if err := os.RemoveAll(clean); err != nil {
		return report, fmt.Errorf("export: clean %s: %w", clean, err)
	}
	if err := os.MkdirAll(clean, 0o755); err != nil {
		return report, fmt.Errorf("export: create %s: %w", clean, err)
	}
	log := e.logger().With(logfields.Path(clean))

	if e.Assets != nil {
		if err := e.writeAssets(clean); err != nil {
			return report, err
		}
	}

	// Listing pages.
	for n := 1; ; n++ {
		listing, err := e.Site.Listing(ctx, n, content.QueryOptions{})
		if err != nil {
			return report, fmt.Errorf("export: %w", err)
		}
		body, err := e.Site.RenderListing(ctx, listing)
		if err != nil {
			return report, fmt.Errorf("export: %w", err)
		}
		rel := "index.html"
		if n > 1 {
			rel = path.Join("page", fmt.Sprint(n), "index.html")
		}
		if err := writeFile(clean, rel, body); err != nil {
			return report, err
		}
		report.Pages++
		if listing.NextPage == 0 {
			break
		}
	}

	slugs, err := e.Site.Slugs(ctx)
	if err != nil {
		return report, fmt.Errorf("export: %w", err)
	}
	posts, err := e.writePosts(ctx, clean, slugs)
	report.Posts = posts
	report.Pages += posts
	if err != nil {
		return report, err
	}

	extras := []struct {
		rel    string
		render func(context.Context) ([]byte, error)
	}{
		{"404.html", e.Site.RenderNotFound},
		{"feed.xml", e.Site.RenderFeed},
		{"sitemap.xml", e.Site.RenderSitemap},
		{"robots.txt", func(context.Context) ([]byte, error) { return e.Site.RenderRobots(), nil }},
	}
	for _, x := range extras {
		body, err := x.render(ctx)
		if err != nil {
			return report, fmt.Errorf("export %s: %w", x.rel, err)
		}
		if err := writeFile(clean, x.rel, body); err != nil {
			return report, err
		}
		report.Pages++
	}

	log.Info("Export complete", logfields.Pages(report.Pages), slog.Int("posts", report.Posts))
	return report, nil
}

func (e *Exporter) writePosts(ctx context.Context, outDir string, slugs []string) (int, error) {
	limit := e.Concurrency
	if limit < 1 {
		limit = 4
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	var (
		mu      sync.Mutex
		written int
	)
	for _, slug := range slugs {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			if err := checkSlug(slug); err != nil {
				return fmt.Errorf("export post %q: %w", slug, err)
			}
			post, err := e.Site.Post(gctx, slug, content.QueryOptions{})
			if err != nil {
				return fmt.Errorf("export post %s: %w", slug, err)
			}
			if e.Banners && post.BannerURL != "" && !strings.HasPrefix(post.BannerURL, "/") {
				local, err := e.localizeBanner(gctx, outDir, slug, post.BannerURL)
				if err != nil {
					e.logger().Warn("Banner kept remote", logfields.Slug(slug), logfields.URL(post.BannerURL), logfields.Error(err))
				} else {
					post.BannerURL = local
				}
			}
			body, err := e.Site.RenderPostPage(gctx, post, false)
			if err != nil {
				return fmt.Errorf("export post %s: %w", slug, err)
			}
			if err := writeFile(outDir, path.Join("post", slug, "index.html"), body); err != nil {
				return err
			}
			mu.Lock()
			written++
			mu.Unlock()
			return nil
		})
	}
	err := g.Wait()
	return written, err
}

func (e *Exporter) writeAssets(outDir string) error {
	return fs.WalkDir(e.Assets, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		data, err := fs.ReadFile(e.Assets, p)
		if err != nil {
			return fmt.Errorf("export asset %s: %w", p, err)
		}
		if path.Base(p) == "favicon.svg" {
			if err := writeFile(outDir, "favicon.svg", data); err != nil {
				return err
			}
		}
		return writeFile(outDir, path.Join("public", p), data)
	})
}

func checkSlug(slug string) error {
	if slug == "" || slug == "." || slug == ".." || strings.ContainsAny(slug, `/\`) {
		return ErrUnsafeSlug
	}
	return nil
}

func writeFile(outDir, rel string, data []byte) error {
	full := filepath.Join(outDir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("export: create dir for %s: %w", rel, err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return fmt.Errorf("export: write %s: %w", rel, err)
	}
	return nil
}
