package credentials_test

import (
	"context"
	"os"
	"sync"
	"testing"

	"vibetube/internal/catalog"
	"vibetube/internal/credentials"
	"vibetube/internal/logging"
	"vibetube/internal/testsupport"
)

func TestPathRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	cache := credentials.New(store, cfg.CredentialPath(), logging.NewNop())
	ctx := context.Background()

	path, err := cache.Path(ctx)
	if err != nil {
		t.Fatalf("Path: %v", err)
	}
	if path != "" {
		t.Fatalf("expected no credentials initially, got %q", path)
	}

	if _, err := store.SetSetting(ctx, catalog.SettingCookies, "cookie-text-1"); err != nil {
		t.Fatalf("SetSetting: %v", err)
	}
	path, err = cache.Path(ctx)
	if err != nil {
		t.Fatalf("Path: %v", err)
	}
	assertFile(t, path, "cookie-text-1")
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("expected mode 0600, got %v", info.Mode().Perm())
	}

	if _, err := store.SetSetting(ctx, catalog.SettingCookies, "cookie-text-2"); err != nil {
		t.Fatalf("SetSetting: %v", err)
	}
	path, err = cache.Path(ctx)
	if err != nil {
		t.Fatalf("Path: %v", err)
	}
	assertFile(t, path, "cookie-text-2")

	if _, err := store.SetSetting(ctx, catalog.SettingCookies, ""); err != nil {
		t.Fatalf("SetSetting: %v", err)
	}
	path, err = cache.Path(ctx)
	if err != nil {
		t.Fatalf("Path: %v", err)
	}
	if path != "" {
		t.Fatalf("expected empty path after clearing, got %q", path)
	}
	if testsupport.Exists(t, cfg.CredentialPath()) {
		t.Fatal("expected credential file removed")
	}
}

func TestPathRewritesDeletedFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	cache := credentials.New(store, cfg.CredentialPath(), logging.NewNop())
	ctx := context.Background()

	if _, err := store.SetSetting(ctx, catalog.SettingCookies, "abc"); err != nil {
		t.Fatalf("SetSetting: %v", err)
	}
	path, err := cache.Path(ctx)
	if err != nil {
		t.Fatalf("Path: %v", err)
	}
	if err := os.Remove(path); err != nil {
		t.Fatalf("remove: %v", err)
	}
	path, err = cache.Path(ctx)
	if err != nil {
		t.Fatalf("Path: %v", err)
	}
	assertFile(t, path, "abc")
}

func TestPathConcurrentCallers(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	cache := credentials.New(store, cfg.CredentialPath(), logging.NewNop())
	ctx := context.Background()
	if _, err := store.SetSetting(ctx, catalog.SettingCookies, "shared"); err != nil {
		t.Fatalf("SetSetting: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := cache.Path(ctx); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent Path: %v", err)
	}
	assertFile(t, cfg.CredentialPath(), "shared")
}

func assertFile(t *testing.T, path, want string) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	if string(data) != want {
		t.Fatalf("unexpected credential contents %q, want %q", data, want)
	}
}
