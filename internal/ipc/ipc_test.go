package ipc_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"vibetube/internal/catalog"
	"vibetube/internal/daemonrun"
	"vibetube/internal/ipc"
	"vibetube/internal/logging"
	"vibetube/internal/services/ytdlp"
	"vibetube/internal/testsupport"
)

func startServer(t *testing.T) (*ipc.Client, *catalog.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Workflow.StartLoops = false
	store := testsupport.MustOpenStore(t, cfg)
	tool := testsupport.NewFakeTool()
	components, err := daemonrun.Wire(cfg, store, logging.NewNop(), daemonrun.WireOptions{
		ClientOpts: []ytdlp.Option{ytdlp.WithExecutor(tool.Executor())},
	})
	if err != nil {
		t.Fatalf("Wire: %v", err)
	}
	d := components.Daemon
	t.Cleanup(func() {
		d.Close()
		components.Close()
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := d.Start(ctx); err != nil {
		t.Fatalf("daemon start: %v", err)
	}

	// Unix socket paths are length-limited; keep this one short.
	dir, err := os.MkdirTemp("", "vt-ipc")
	if err != nil {
		t.Fatalf("MkdirTemp: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	socket := filepath.Join(dir, "vibetube.sock")

	srv, err := ipc.NewServer(ctx, socket, d, logging.NewNop())
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping IPC server test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	t.Cleanup(srv.Close)

	client, err := ipc.Dial(socket)
	if err != nil {
		t.Fatalf("ipc.Dial: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client, store
}

func TestIPCStatusAndLoops(t *testing.T) {
	client, _ := startServer(t)

	status, err := client.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !status.Running || len(status.Loops) != 3 {
		t.Fatalf("unexpected status %+v", status)
	}

	started, err := client.StartLoop("poller")
	if err != nil || len(started.Changed) != 1 || started.Changed[0] != "poller" {
		t.Fatalf("StartLoop = %+v, %v", started, err)
	}
	stopped, err := client.StopLoop("")
	if err != nil || len(stopped.Changed) != 1 {
		t.Fatalf("StopLoop = %+v, %v", stopped, err)
	}
	if _, err := client.StartLoop("bogus"); err == nil || !strings.Contains(err.Error(), "unknown loop") {
		t.Fatalf("expected unknown loop error, got %v", err)
	}
}

func TestIPCSourceAndItemRoundTrip(t *testing.T) {
	client, store := startServer(t)

	added, err := client.SourceAdd(ipc.SourceAddRequest{Kind: "video", ExternalID: "v1", AutoAcquire: true})
	if err != nil {
		t.Fatalf("SourceAdd: %v", err)
	}
	if added.Items != 1 || added.Source.Kind != "video" {
		t.Fatalf("unexpected add response %+v", added)
	}
	if _, err := client.SourceAdd(ipc.SourceAddRequest{Kind: "podcast", ExternalID: "x"}); err == nil {
		t.Fatal("expected invalid kind to fail")
	}

	list, err := client.SourceList()
	if err != nil || len(list.Sources) != 1 {
		t.Fatalf("SourceList = %+v, %v", list, err)
	}

	items, err := client.ItemList(ipc.ItemListRequest{Query: "video v1"})
	if err != nil || len(items.Items) != 1 {
		t.Fatalf("ItemList = %+v, %v", items, err)
	}
	id := items.Items[0].ID

	download, err := client.ItemDownload(id, true)
	if err != nil {
		t.Fatalf("ItemDownload: %v", err)
	}
	if !download.Success || !download.Waited || download.Item.Status != catalog.StatusAcquired {
		t.Fatalf("unexpected download response %+v", download)
	}

	shown, err := client.ItemShow(id)
	if err != nil || !shown.Item.Acquired {
		t.Fatalf("ItemShow = %+v, %v", shown, err)
	}
	if _, err := client.ItemShow(999); err == nil {
		t.Fatal("expected missing item error")
	}

	deleted, err := client.ItemDeleteFiles(id)
	if err != nil || deleted.AlreadyGone {
		t.Fatalf("ItemDeleteFiles = %+v, %v", deleted, err)
	}
	reset, err := client.ItemResetMissing(id)
	if err != nil || !reset.Value {
		t.Fatalf("ItemResetMissing = %+v, %v", reset, err)
	}

	removed, err := client.SourceRemove(added.Source.ID, false)
	if err != nil {
		t.Fatalf("SourceRemove: %v", err)
	}
	if removed.Name == "" {
		t.Fatalf("expected removed source name")
	}
	testsupport.CheckInvariants(t, store)
}

func TestIPCBucketsAndSettings(t *testing.T) {
	client, _ := startServer(t)

	bucket, err := client.BucketAdd(ipc.BucketAddRequest{Name: "Shorts", Default: true})
	if err != nil || !bucket.Bucket.IsDefault {
		t.Fatalf("BucketAdd = %+v, %v", bucket, err)
	}
	buckets, err := client.BucketList()
	if err != nil || len(buckets.Buckets) != 2 {
		t.Fatalf("BucketList = %+v, %v", buckets, err)
	}
	if err := client.BucketRemove("Shorts"); err == nil {
		t.Fatal("expected removing the default bucket to fail")
	}

	if _, err := client.SettingSet("youtube_cookies", "secret-cookie"); err != nil {
		t.Fatalf("SettingSet: %v", err)
	}
	cookies, err := client.SettingGet("youtube_cookies")
	if err != nil {
		t.Fatalf("SettingGet: %v", err)
	}
	if strings.Contains(cookies.Setting.Value, "secret") {
		t.Fatalf("cookie value leaked: %q", cookies.Setting.Value)
	}
	if err := client.SettingClearCookies(); err != nil {
		t.Fatalf("SettingClearCookies: %v", err)
	}
	if _, err := client.SettingSet("check_interval", "never"); err == nil {
		t.Fatal("expected validation error")
	}

	notify, err := client.TestNotification()
	if err != nil || notify.Sent {
		t.Fatalf("TestNotification = %+v, %v", notify, err)
	}
}

func TestIPCTriggers(t *testing.T) {
	client, _ := startServer(t)

	refresh, err := client.Refresh(true)
	if err != nil || !refresh.Waited || refresh.Sources != 0 {
		t.Fatalf("Refresh = %+v, %v", refresh, err)
	}
	scan, err := client.Scan(true)
	if err != nil || scan.Changed != 0 {
		t.Fatalf("Scan = %+v, %v", scan, err)
	}
}
