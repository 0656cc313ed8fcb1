package generate

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eringen/spacetravelling/content"
	"github.com/eringen/spacetravelling/viewmodel"
)

func TestExportWritesSite(t *testing.T) {
	site, _ := newTestSite(t, 3, Options{PageSize: 2})
	out := filepath.Join(t.TempDir(), "out")
	require.NoError(t, os.MkdirAll(out, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(out, "stale.html"), []byte("old"), 0o644))

	exp := &Exporter{
		Site: site,
		Assets: fstest.MapFS{
			"styles.css":  {Data: []byte("body{}")},
			"favicon.svg": {Data: []byte("<svg/>")},
		},
	}
	report, err := exp.Export(context.Background(), out)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Posts)
	// 2 listing pages + 3 posts + 404, feed, sitemap, robots
	assert.Equal(t, 9, report.Pages)

	for _, rel := range []string{
		"index.html",
		"page/2/index.html",
		"post/post-1/index.html",
		"post/post-2/index.html",
		"post/post-3/index.html",
		"404.html",
		"feed.xml",
		"sitemap.xml",
		"robots.txt",
		"favicon.svg",
		"public/styles.css",
		"public/favicon.svg",
	} {
		assert.FileExists(t, filepath.Join(out, filepath.FromSlash(rel)))
	}
	assert.NoFileExists(t, filepath.Join(out, "stale.html"))
	assert.NoDirExists(t, filepath.Join(out, "page", "1"))

	body, err := os.ReadFile(filepath.Join(out, "post", "post-2", "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(body), "02 mar 2021")
	assert.Contains(t, string(body), "1 min")
}

func TestExportFailsOnInvalidPost(t *testing.T) {
	site, dir := newTestSite(t, 2, Options{})
	writeDoc(t, dir, "broken", "", "")

	_, err := (&Exporter{Site: site}).Export(context.Background(), filepath.Join(t.TempDir(), "out"))
	require.Error(t, err)
	assert.ErrorIs(t, err, viewmodel.ErrValidation)
	assert.Contains(t, err.Error(), "broken")
}

func TestExportRefusesRoot(t *testing.T) {
	site, _ := newTestSite(t, 1, Options{})
	for _, dir := range []string{"", "/", "."} {
		_, err := (&Exporter{Site: site}).Export(context.Background(), dir)
		assert.Error(t, err, "dir %q", dir)
	}
}

func TestCheckSlug(t *testing.T) {
	for _, slug := range []string{"", ".", "..", "a/b", `a\b`} {
		assert.ErrorIs(t, checkSlug(slug), ErrUnsafeSlug, "slug %q", slug)
	}
	assert.NoError(t, checkSlug("como-utilizar-hooks"))
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 255, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestResizeBanner(t *testing.T) {
	out, err := resizeBanner(bytes.NewReader(pngBytes(t, 2400, 600)))
	require.NoError(t, err)
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 1200, cfg.Width)
	assert.Equal(t, 300, cfg.Height)

	small, err := resizeBanner(bytes.NewReader(pngBytes(t, 400, 100)))
	require.NoError(t, err)
	cfg, err = jpeg.DecodeConfig(bytes.NewReader(small))
	require.NoError(t, err)
	assert.Equal(t, 400, cfg.Width)

	_, err = resizeBanner(bytes.NewReader([]byte("not an image")))
	assert.Error(t, err)
}

func TestExportLocalizesBanners(t *testing.T) {
	img := pngBytes(t, 1600, 400)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.png" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(img)
	}))
	defer srv.Close()

	dir := t.TempDir()
	writeDoc(t, dir, "with-banner", "2021-03-25T19:25:00+0000", `,"banner":{"url":"`+srv.URL+`/banner.png"}`)
	writeDoc(t, dir, "broken-banner", "2021-03-24T19:25:00+0000", `,"banner":{"url":"`+srv.URL+`/missing.png"}`)
	site := NewSite(content.NewFileSource(dir), viewmodel.NewBuilder("en", nil), Options{})

	out := filepath.Join(t.TempDir(), "out")
	exp := &Exporter{Site: site, Banners: true, HTTPClient: srv.Client()}
	_, err := exp.Export(context.Background(), out)
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(out, "public", "banners", "with-banner.jpg"))
	body, err := os.ReadFile(filepath.Join(out, "post", "with-banner", "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(body), `src="/public/banners/with-banner.jpg"`)

	body, err = os.ReadFile(filepath.Join(out, "post", "broken-banner", "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(body), srv.URL+"/missing.png")
}
