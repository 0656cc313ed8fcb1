package generate

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"golang.org/x/image/draw"
)

const (
	maxBannerWidth = 1200
	jpegQuality    = 80
	maxBannerSize  = 20 << 20 // 20MB
	bannersSubdir  = "public/banners"
)

// resizeBanner decodes an image from src, shrinks it to maxBannerWidth if
// wider, and encodes it as JPEG.
func resizeBanner(src io.Reader) ([]byte, error) {
	img, _, err := image.Decode(src)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w > maxBannerWidth {
		newH := h * maxBannerWidth / w
		dst := image.NewRGBA(image.Rect(0, 0, maxBannerWidth, newH))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// localizeBanner downloads the banner at rawURL, writes a resized copy under
// outDir and returns its site-relative URL.
func (e *Exporter) localizeBanner(ctx context.Context, outDir, slug, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	client := e.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download banner: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download banner: status %d", resp.StatusCode)
	}

	data, err := resizeBanner(io.LimitReader(resp.Body, maxBannerSize))
	if err != nil {
		return "", err
	}
	dir := filepath.Join(outDir, filepath.FromSlash(bannersSubdir))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create banners dir: %w", err)
	}
	name := slug + ".jpg"
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("write banner: %w", err)
	}
	return "/" + bannersSubdir + "/" + name, nil
}
