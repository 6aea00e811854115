package daemonctl_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"vibetube/internal/api"
	"vibetube/internal/catalog"
	"vibetube/internal/daemonctl"
	"vibetube/internal/testsupport"
)

func TestBuildDependencySummary(t *testing.T) {
	cases := []struct {
		name     string
		deps     []api.DependencyStatus
		severity string
		detail   string
	}{
		{name: "empty", severity: "info", detail: "No dependency checks configured"},
		{
			name:     "all available",
			deps:     []api.DependencyStatus{{Available: true}, {Available: true, Optional: true}},
			severity: "ok",
			detail:   "2/2 available",
		},
		{
			name:     "optional missing",
			deps:     []api.DependencyStatus{{Available: true}, {Optional: true}},
			severity: "warn",
			detail:   "1/2 available (missing: 0 required, 1 optional)",
		},
		{
			name:     "required missing",
			deps:     []api.DependencyStatus{{}, {Optional: true}},
			severity: "error",
			detail:   "0/2 available (missing: 1 required, 1 optional)",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := daemonctl.BuildDependencySummary(tc.deps)
			if got.Severity != tc.severity || got.Detail != tc.detail {
				t.Fatalf("summary = %+v, want severity %q detail %q", got, tc.severity, tc.detail)
			}
		})
	}
}

func TestReadPID(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "none.pid")
	if pid, err := daemonctl.ReadPID(missing); err != nil || pid != 0 {
		t.Fatalf("ReadPID(missing) = %d, %v", pid, err)
	}

	valid := filepath.Join(dir, "valid.pid")
	if err := os.WriteFile(valid, []byte("4242\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if pid, err := daemonctl.ReadPID(valid); err != nil || pid != 4242 {
		t.Fatalf("ReadPID(valid) = %d, %v", pid, err)
	}

	garbage := filepath.Join(dir, "garbage.pid")
	if err := os.WriteFile(garbage, []byte("abc"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := daemonctl.ReadPID(garbage); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestForceKillRefusesCurrentProcess(t *testing.T) {
	pidPath := filepath.Join(t.TempDir(), "vibetube.pid")
	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := daemonctl.ForceKillProcess(pidPath, "", 0)
	if err == nil || !strings.Contains(err.Error(), "refusing") {
		t.Fatalf("expected refusal, got %v", err)
	}
}

func TestForceKillWithoutPID(t *testing.T) {
	if _, err := daemonctl.ForceKillProcess(filepath.Join(t.TempDir(), "none.pid"), "", 0); err == nil {
		t.Fatal("expected error without pid")
	}
}

func TestProcessInfoWithoutSocket(t *testing.T) {
	alive, pid, err := daemonctl.ProcessInfo(filepath.Join(t.TempDir(), "missing.sock"))
	if err != nil || alive || pid != 0 {
		t.Fatalf("ProcessInfo = %v, %d, %v", alive, pid, err)
	}
}

func TestWaitForShutdownWithoutSocket(t *testing.T) {
	if err := daemonctl.WaitForShutdown(filepath.Join(t.TempDir(), "missing.sock"), time.Second); err != nil {
		t.Fatalf("WaitForShutdown: %v", err)
	}
}

func TestStopAndTerminateNotRunning(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if _, err := daemonctl.StopAndTerminate(cfg, time.Second); !errors.Is(err, daemonctl.ErrDaemonNotRunning) {
		t.Fatalf("expected ErrDaemonNotRunning, got %v", err)
	}
}

func TestBuildStatusSnapshotOffline(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Downloader.Binary = "vibetube-missing-binary"

	snapshot, err := daemonctl.BuildStatusSnapshot(context.Background(), cfg)
	if err != nil {
		t.Fatalf("BuildStatusSnapshot: %v", err)
	}
	if snapshot.Running || snapshot.Stats.Total != 0 {
		t.Fatalf("unexpected offline snapshot %+v", snapshot.StatusResponse)
	}
	if _, err := os.Stat(cfg.DatabasePath()); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("offline status should not create the database: %v", err)
	}
	if snapshot.Summary.MissingRequired == 0 {
		t.Fatalf("expected missing downloader, got %+v", snapshot.Summary)
	}

	store := testsupport.MustOpenStore(t, cfg)
	testsupport.AddSource(t, store, catalog.KindPlaylist, "PL1", true, "a", "b")
	snapshot, err = daemonctl.BuildStatusSnapshot(context.Background(), cfg)
	if err != nil {
		t.Fatalf("BuildStatusSnapshot: %v", err)
	}
	if snapshot.Stats.Total != 2 || snapshot.Stats.Pending != 2 {
		t.Fatalf("expected catalog stats, got %+v", snapshot.Stats)
	}
}
