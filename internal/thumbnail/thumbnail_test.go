package thumbnail_test

import (
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
	"time"

	"vibetube/internal/thumbnail"
)

func TestLocatePrefersJPG(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "clip")
	for _, ext := range []string{"webp", "jpg"} {
		if err := os.WriteFile(base+"."+ext, []byte("x"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	got, ok := thumbnail.Locate(base)
	if !ok || got != base+".jpg" {
		t.Fatalf("expected jpg thumbnail, got %q ok=%v", got, ok)
	}
	if _, ok := thumbnail.Locate(filepath.Join(dir, "other")); ok {
		t.Fatal("expected no thumbnail for unknown base")
	}
}

func TestFetchWritesBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.jpg" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("image-bytes"))
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "thumb.jpg")
	fetcher := thumbnail.NewFetcher(time.Second)
	if err := fetcher.Fetch(context.Background(), server.URL+"/t.jpg", dest); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	data, err := os.ReadFile(dest)
	if err != nil || string(data) != "image-bytes" {
		t.Fatalf("unexpected thumbnail contents %q err=%v", data, err)
	}
	if err := fetcher.Fetch(context.Background(), server.URL+"/missing.jpg", dest+"2"); err == nil {
		t.Fatal("expected error for 404")
	}
}

func TestConvertToJPEG(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.png")
	img := image.NewNRGBA(image.Rect(0, 0, 4, 3))
	img.Set(1, 1, color.NRGBA{R: 255, A: 128})
	f, err := os.Create(src)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	f.Close()

	dest := filepath.Join(dir, "out.jpg")
	if err := thumbnail.ConvertToJPEG(src, dest); err != nil {
		t.Fatalf("ConvertToJPEG: %v", err)
	}
	out, err := os.Open(dest)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer out.Close()
	decoded, err := jpeg.Decode(out)
	if err != nil {
		t.Fatalf("decode jpeg: %v", err)
	}
	if decoded.Bounds().Dx() != 4 || decoded.Bounds().Dy() != 3 {
		t.Fatalf("unexpected bounds %v", decoded.Bounds())
	}

	bad := filepath.Join(dir, "bad.webp")
	if err := os.WriteFile(bad, []byte("not an image"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := thumbnail.ConvertToJPEG(bad, filepath.Join(dir, "bad.jpg")); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestReferenceEscapesSegments(t *testing.T) {
	root := "/srv/media"
	got, err := thumbnail.Reference(root, "/srv/media/default/My Clip #1/My Clip #1.jpg")
	if err != nil {
		t.Fatalf("Reference: %v", err)
	}
	want := "/downloads/default/My%20Clip%20%231/My%20Clip%20%231.jpg"
	if got != want {
		t.Fatalf("Reference = %q, want %q", got, want)
	}
	if _, err := thumbnail.Reference(root, "/elsewhere/x.jpg"); err == nil {
		t.Fatal("expected error for path outside root")
	}
}
