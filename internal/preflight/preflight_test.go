package preflight

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"vibetube/internal/config"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckJellyfin_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Emby-Token") != "good-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	result := CheckJellyfin(context.Background(), srv.URL, "good-key")
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
}

func TestCheckJellyfin_BadKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	result := CheckJellyfin(context.Background(), srv.URL, "bad-key")
	if result.Passed {
		t.Fatal("expected failure for bad key")
	}
}

func TestCheckJellyfin_MissingKey(t *testing.T) {
	result := CheckJellyfin(context.Background(), "http://localhost:8096", "")
	if result.Passed {
		t.Fatal("expected failure for missing key")
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	if results := RunAll(context.Background(), nil); results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_ReportsMissingDownloader(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.StateDir = t.TempDir()
	cfg.Paths.StorageRoot = t.TempDir()
	cfg.Downloader.Binary = "clearly-not-a-real-yt-dlp"
	cfg.Jellyfin.Enabled = false

	results := RunAll(context.Background(), &cfg)
	failed := Failed(results)
	if len(failed) != 1 || failed[0].Name != "yt-dlp" {
		t.Fatalf("expected only the downloader to fail, got %+v", failed)
	}
}

func TestRunAll_IncludesJellyfinWhenEnabled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.Paths.StateDir = t.TempDir()
	cfg.Paths.StorageRoot = t.TempDir()
	cfg.Jellyfin.Enabled = true
	cfg.Jellyfin.URL = srv.URL
	cfg.Jellyfin.APIKey = "test"

	found := false
	for _, r := range RunAll(context.Background(), &cfg) {
		if r.Name == "Jellyfin" {
			found = true
			if !r.Passed {
				t.Errorf("Jellyfin check failed: %s", r.Detail)
			}
		}
	}
	if !found {
		t.Fatal("expected Jellyfin check in results")
	}
}

type fakeVersion struct {
	version string
	err     error
}

func (f fakeVersion) Version(context.Context) (string, error) { return f.version, f.err }

func TestCheckDownloader(t *testing.T) {
	if r := CheckDownloader(context.Background(), fakeVersion{version: "2025.01.01"}); !r.Passed || r.Detail != "version 2025.01.01" {
		t.Fatalf("unexpected result %+v", r)
	}
	if r := CheckDownloader(context.Background(), fakeVersion{err: errors.New("boom")}); r.Passed {
		t.Fatal("expected failure")
	}
}

func TestCheckJellyfinFromConfigDisabled(t *testing.T) {
	cfg := config.Default()
	cfg.Jellyfin.Enabled = false
	if r := CheckJellyfinFromConfig(context.Background(), &cfg); !r.Passed || r.Detail != "Disabled" {
		t.Fatalf("unexpected result %+v", r)
	}
}
