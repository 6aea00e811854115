package daemon_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"vibetube/internal/catalog"
	"vibetube/internal/config"
	"vibetube/internal/daemon"
	"vibetube/internal/daemonrun"
	"vibetube/internal/logging"
	"vibetube/internal/services"
	"vibetube/internal/services/ytdlp"
	"vibetube/internal/sources"
	"vibetube/internal/testsupport"
	"vibetube/internal/workflow"
)

type fixture struct {
	cfg    *config.Config
	store  *catalog.Store
	tool   *testsupport.FakeTool
	daemon *daemon.Daemon
}

func newFixture(t *testing.T, ids ...string) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Workflow.StartLoops = false
	store := testsupport.MustOpenStore(t, cfg)
	tool := testsupport.NewFakeTool(ids...)
	components, err := daemonrun.Wire(cfg, store, logging.NewNop(), daemonrun.WireOptions{
		ClientOpts: []ytdlp.Option{ytdlp.WithExecutor(tool.Executor())},
	})
	if err != nil {
		t.Fatalf("Wire: %v", err)
	}
	t.Cleanup(func() {
		components.Daemon.Close()
		components.Close()
	})
	return &fixture{cfg: cfg, store: store, tool: tool, daemon: components.Daemon}
}

func (f *fixture) addVideo(t *testing.T, id string) *catalog.Item {
	t.Helper()
	if _, err := f.daemon.AddSource(context.Background(), sources.AddRequest{
		Kind:        catalog.KindVideo,
		ExternalID:  id,
		AutoAcquire: true,
	}); err != nil {
		t.Fatalf("AddSource: %v", err)
	}
	return testsupport.MustItem(t, f.store, id)
}

func TestDaemonStartStop(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := f.daemon.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	status := f.daemon.Status(ctx)
	if !status.Running {
		t.Fatal("expected daemon to report running")
	}
	if len(status.Loops) != 3 {
		t.Fatalf("expected 3 loops, got %d", len(status.Loops))
	}
	for _, loop := range status.Loops {
		if loop.Running {
			t.Fatalf("loop %s should not auto-start", loop.Name)
		}
	}

	if err := f.daemon.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	f.daemon.Stop()
	if f.daemon.Status(ctx).Running {
		t.Fatal("expected daemon to be stopped")
	}
}

func TestSecondInstanceIsRejected(t *testing.T) {
	f := newFixture(t)
	other, err := daemonrun.Wire(f.cfg, f.store, logging.NewNop(), daemonrun.WireOptions{})
	if err != nil {
		t.Fatalf("Wire: %v", err)
	}
	t.Cleanup(func() { other.Close() })

	ctx := context.Background()
	if err := f.daemon.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	err = other.Daemon.Start(ctx)
	if err == nil || !strings.Contains(err.Error(), "already running") {
		t.Fatalf("expected lock rejection, got %v", err)
	}
}

func TestLoopControl(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.daemon.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	changed, err := f.daemon.StartLoop(workflow.LoopScanner)
	if err != nil || !slices.Equal(changed, []string{workflow.LoopScanner}) {
		t.Fatalf("StartLoop = %v, %v", changed, err)
	}
	changed, err = f.daemon.StartLoop("")
	if err != nil || !slices.Equal(changed, []string{workflow.LoopQueue, workflow.LoopPoller}) {
		t.Fatalf("StartLoop(all) = %v, %v", changed, err)
	}
	changed, err = f.daemon.StopLoop("")
	if err != nil || len(changed) != 3 {
		t.Fatalf("StopLoop(all) = %v, %v", changed, err)
	}
	if _, err := f.daemon.StartLoop("bogus"); !errors.Is(err, workflow.ErrUnknownLoop) {
		t.Fatalf("expected ErrUnknownLoop, got %v", err)
	}
}

func TestTriggerDownloadWaitAcquires(t *testing.T) {
	f := newFixture(t)
	item := f.addVideo(t, "v1")

	result, err := f.daemon.TriggerDownload(context.Background(), item.ID, true)
	if err != nil {
		t.Fatalf("TriggerDownload: %v", err)
	}
	if !result.Started || !result.Waited || !result.Outcome.Success {
		t.Fatalf("unexpected result %+v", result)
	}
	if !result.Item.Acquired {
		t.Fatalf("returned item should be acquired: %+v", result.Item)
	}
	if !testsupport.Exists(t, result.Item.OutputPath) {
		t.Fatalf("expected media at %s", result.Item.OutputPath)
	}

	again, err := f.daemon.TriggerDownload(context.Background(), item.ID, false)
	if err != nil {
		t.Fatalf("second TriggerDownload: %v", err)
	}
	if again.Started || !again.Outcome.Success {
		t.Fatalf("acquired item should not start a download: %+v", again)
	}
	testsupport.CheckInvariants(t, f.store)
}

func TestTriggerDownloadUnknownItem(t *testing.T) {
	f := newFixture(t)
	if _, err := f.daemon.TriggerDownload(context.Background(), 999, true); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTriggerDownloadBackgroundFinishesBeforeStop(t *testing.T) {
	f := newFixture(t)
	item := f.addVideo(t, "v1")
	ctx := context.Background()
	if err := f.daemon.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	result, err := f.daemon.TriggerDownload(ctx, item.ID, false)
	if err != nil || !result.Started {
		t.Fatalf("TriggerDownload = %+v, %v", result, err)
	}
	f.daemon.Stop()
	if got := testsupport.MustItem(t, f.store, "v1"); !got.Acquired {
		t.Fatalf("Stop should wait for the acquisition, item %+v", got)
	}
}

func TestTriggerRefreshAndScan(t *testing.T) {
	f := newFixture(t, "a", "b")
	ctx := context.Background()
	if _, err := f.daemon.AddSource(ctx, sources.AddRequest{
		Kind:        catalog.KindChannel,
		ExternalID:  "UC1",
		AutoAcquire: true,
	}); err != nil {
		t.Fatalf("AddSource: %v", err)
	}

	f.tool.SetEntries("a", "b", "c")
	refreshed, err := f.daemon.TriggerRefresh(ctx, true)
	if err != nil {
		t.Fatalf("TriggerRefresh: %v", err)
	}
	if refreshed.Sources != 1 || refreshed.NewItems != 1 {
		t.Fatalf("unexpected refresh result %+v", refreshed)
	}

	item := testsupport.MustItem(t, f.store, "c")
	result, err := f.daemon.TriggerDownload(ctx, item.ID, true)
	if err != nil || !result.Outcome.Success {
		t.Fatalf("TriggerDownload = %+v, %v", result, err)
	}
	if err := os.Remove(result.Item.OutputPath); err != nil {
		t.Fatalf("remove: %v", err)
	}
	changed, err := f.daemon.TriggerScan(ctx, true)
	if err != nil || changed != 1 {
		t.Fatalf("TriggerScan = %d, %v", changed, err)
	}
	changed, err = f.daemon.TriggerScan(ctx, true)
	if err != nil || changed != 0 {
		t.Fatalf("second TriggerScan = %d, %v", changed, err)
	}
	testsupport.CheckInvariants(t, f.store)
}

func TestItemMaintenance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.tool.FailDownloads("v1")
	item := f.addVideo(t, "v1")

	result, err := f.daemon.TriggerDownload(ctx, item.ID, true)
	if err != nil {
		t.Fatalf("TriggerDownload: %v", err)
	}
	if result.Outcome.Success || !result.Item.Failed {
		t.Fatalf("expected failure, got %+v", result)
	}

	if ok, err := f.daemon.ResetFailed(ctx, item.ID); err != nil || !ok {
		t.Fatalf("ResetFailed = %v, %v", ok, err)
	}
	if ok, err := f.daemon.ResetFailed(ctx, item.ID); err != nil || ok {
		t.Fatalf("second ResetFailed = %v, %v", ok, err)
	}
	if ok, err := f.daemon.ResetMissing(ctx, item.ID); err != nil || ok {
		t.Fatalf("ResetMissing on present item = %v, %v", ok, err)
	}
	skip, err := f.daemon.ToggleSkip(ctx, item.ID)
	if err != nil || !skip {
		t.Fatalf("ToggleSkip = %v, %v", skip, err)
	}
	if _, err := f.daemon.DeleteItemFiles(ctx, item.ID); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("DeleteItemFiles on pending item: %v", err)
	}
	if _, err := f.daemon.ToggleSkip(ctx, 999); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("ToggleSkip unknown item: %v", err)
	}
}

func TestBucketAdministration(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	bucket, err := f.daemon.AddBucket(ctx, "Music Videos", "clips", false)
	if err != nil {
		t.Fatalf("AddBucket: %v", err)
	}
	wantPath := filepath.Join(f.cfg.Paths.StorageRoot, "music_videos")
	if bucket.Path != wantPath {
		t.Fatalf("bucket path = %q, want %q", bucket.Path, wantPath)
	}
	if info, err := os.Stat(wantPath); err != nil || !info.IsDir() {
		t.Fatalf("bucket directory not created: %v", err)
	}
	if _, err := f.daemon.AddBucket(ctx, "Music Videos", "", false); !errors.Is(err, catalog.ErrBucketExists) {
		t.Fatalf("expected ErrBucketExists, got %v", err)
	}

	if _, err := f.daemon.SetDefaultBucket(ctx, "Music Videos"); err != nil {
		t.Fatalf("SetDefaultBucket: %v", err)
	}
	if err := f.daemon.RemoveBucket(ctx, "Music Videos"); !errors.Is(err, catalog.ErrDefaultBucket) {
		t.Fatalf("expected ErrDefaultBucket, got %v", err)
	}
	if _, err := f.daemon.SetDefaultBucket(ctx, "Default"); err != nil {
		t.Fatalf("SetDefaultBucket(Default): %v", err)
	}
	if err := f.daemon.RemoveBucket(ctx, "Music Videos"); err != nil {
		t.Fatalf("RemoveBucket: %v", err)
	}
	if err := f.daemon.RemoveBucket(ctx, "nope"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSettingValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		key, value string
		want       string
		wantErr    bool
	}{
		{key: catalog.SettingCheckInterval, value: " 120 ", want: "120"},
		{key: catalog.SettingCheckInterval, value: "soon", wantErr: true},
		{key: catalog.SettingDownloadDelay, value: "0", wantErr: true},
		{key: catalog.SettingAutoDownload, value: "FALSE", want: "false"},
		{key: catalog.SettingAutoDownload, value: "maybe", wantErr: true},
		{key: catalog.SettingDownloadPath, value: "", wantErr: true},
		{key: "bogus", value: "1", wantErr: true},
	}
	for _, tc := range cases {
		setting, err := f.daemon.SetSetting(ctx, tc.key, tc.value)
		if tc.wantErr {
			if !errors.Is(err, services.ErrValidation) {
				t.Fatalf("SetSetting(%s, %q): expected validation error, got %v", tc.key, tc.value, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("SetSetting(%s, %q): %v", tc.key, tc.value, err)
		}
		if setting.Value != tc.want {
			t.Fatalf("SetSetting(%s) stored %q, want %q", tc.key, setting.Value, tc.want)
		}
	}

	first, err := f.daemon.SetSetting(ctx, catalog.SettingCookies, "# Netscape HTTP Cookie File\n")
	if err != nil {
		t.Fatalf("set cookies: %v", err)
	}
	if err := f.daemon.ClearCookies(ctx); err != nil {
		t.Fatalf("ClearCookies: %v", err)
	}
	cleared, err := f.daemon.GetSetting(ctx, catalog.SettingCookies)
	if err != nil {
		t.Fatalf("GetSetting: %v", err)
	}
	if cleared.Value != "" || cleared.Version <= first.Version {
		t.Fatalf("unexpected cleared setting %+v (previous version %d)", cleared, first.Version)
	}
	if _, err := f.daemon.GetSetting(ctx, "bogus"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTestNotificationWithoutTopic(t *testing.T) {
	f := newFixture(t)
	sent, message, err := f.daemon.TestNotification(context.Background())
	if err != nil || sent {
		t.Fatalf("TestNotification = %v, %q, %v", sent, message, err)
	}
	if message != "ntfy topic not configured" {
		t.Fatalf("unexpected message %q", message)
	}
}

func TestRequestShutdownInvokesHook(t *testing.T) {
	f := newFixture(t)
	if f.daemon.RequestShutdown() {
		t.Fatal("expected false without a hook")
	}
	called := false
	f.daemon.OnShutdown(func() { called = true })
	if !f.daemon.RequestShutdown() || !called {
		t.Fatal("expected hook to run")
	}
}
