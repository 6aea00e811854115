// Package thumbnail locates, fetches and normalizes the preview image stored
// next to an acquired item.
package thumbnail

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	_ "image/png" // PNG decoder registration
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // WebP decoder registration

	"vibetube/internal/fileutil"
)

// Extensions yt-dlp may write for --write-thumbnail, in lookup order.
var Extensions = []string{"jpg", "jpeg", "png", "webp"}

// Locate returns the first existing <base>.<ext> thumbnail.
func Locate(base string) (string, bool) {
	for _, ext := range Extensions {
		candidate := base + "." + ext
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
	}
	return "", false
}

// Fetcher downloads thumbnails over HTTP.
type Fetcher struct {
	client *http.Client
}

// NewFetcher constructs a Fetcher whose requests are bounded by timeout.
func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Fetcher{client: &http.Client{Timeout: timeout}}
}

// Fetch downloads rawURL to dest. Non-200 responses are errors.
func (f *Fetcher) Fetch(ctx context.Context, rawURL, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("build thumbnail request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch thumbnail: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch thumbnail: unexpected status %s", resp.Status)
	}

	if err := fileutil.WriteAtomic(dest, resp.Body, 0o644); err != nil {
		return fmt.Errorf("write thumbnail: %w", err)
	}
	return nil
}

// ConvertToJPEG decodes src (jpeg, png or webp) and writes a JPEG copy to
// dest, flattening transparency onto white.
func ConvertToJPEG(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open thumbnail: %w", err)
	}
	defer in.Close()

	img, _, err := image.Decode(in)
	if err != nil {
		return fmt.Errorf("decode thumbnail: %w", err)
	}
	bounds := img.Bounds()
	flat := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(flat, flat.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(flat, flat.Bounds(), img, bounds.Min, draw.Over)

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create jpeg: %w", err)
	}
	if err := jpeg.Encode(out, flat, &jpeg.Options{Quality: 90}); err != nil {
		out.Close()
		return fmt.Errorf("encode jpeg: %w", err)
	}
	return out.Close()
}

// Reference returns the /downloads/ URL under which the daemon serves path,
// escaping each segment of the path relative to root.
func Reference(root, path string) (string, error) {
	if strings.TrimSpace(root) == "" {
		return "", errors.New("storage root is empty")
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "", fmt.Errorf("relative thumbnail path: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("thumbnail %q is outside storage root %q", path, root)
	}
	segments := strings.Split(filepath.ToSlash(rel), "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return "/downloads/" + strings.Join(segments, "/"), nil
}
