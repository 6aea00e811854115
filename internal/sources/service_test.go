package sources_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"vibetube/internal/catalog"
	"vibetube/internal/library"
	"vibetube/internal/logging"
	"vibetube/internal/resolver"
	"vibetube/internal/services"
	"vibetube/internal/services/ytdlp"
	"vibetube/internal/sources"
	"vibetube/internal/testsupport"
)

// listing serves flat listings from a mutable id list.
type listing struct {
	mu      sync.Mutex
	entries []string
	fail    bool
}

func (l *listing) set(ids ...string) {
	l.mu.Lock()
	l.entries = ids
	l.mu.Unlock()
}

func (l *listing) handler(ctx context.Context, args []string) (ytdlp.Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fail {
		return ytdlp.Result{Stderr: []byte("ERROR: unavailable")}, errors.New("exit status 1")
	}
	if testsupport.HasArg(args, "--no-playlist") {
		id := strings.TrimPrefix(args[0], ytdlp.VideoURL(""))
		return ytdlp.Result{Stdout: []byte(entry(id) + "\n")}, nil
	}
	lines := make([]string, 0, len(l.entries))
	for _, id := range l.entries {
		lines = append(lines, entry(id))
	}
	return ytdlp.Result{Stdout: []byte(strings.Join(lines, "\n"))}, nil
}

func entry(id string) string {
	return fmt.Sprintf(`{"id":%q,"title":"Video %s","channel":"Chan","upload_date":"20240102","duration":61}`, id, id)
}

func newService(t *testing.T, list *listing) (*sources.Service, *catalog.Store, string) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()
	client := ytdlp.New("yt-dlp", ytdlp.WithExecutor(&testsupport.FakeExecutor{Handler: list.handler}))
	res := resolver.New(client, nil, nil, logger)
	svc := sources.NewService(store, res, library.NewScanner(store, nil, logger), nil, logger)
	return svc, store, cfg.Paths.StorageRoot
}

func TestAddNamesSourcesByKind(t *testing.T) {
	list := &listing{}
	list.set("a", "b")
	svc, store, _ := newService(t, list)
	ctx := context.Background()

	tests := []struct {
		kind catalog.Kind
		id   string
		name string
	}{
		{catalog.KindChannel, "UC1", "Chan"},
		{catalog.KindPlaylist, "PL1", "Playlist PL1"},
		{catalog.KindVideo, "v1", "Video v1"},
	}
	for _, tc := range tests {
		res, err := svc.Add(ctx, sources.AddRequest{Kind: tc.kind, ExternalID: tc.id, AutoAcquire: true})
		if err != nil {
			t.Fatalf("Add %s: %v", tc.kind, err)
		}
		if res.Source.Name != tc.name {
			t.Fatalf("%s name = %q, want %q", tc.kind, res.Source.Name, tc.name)
		}
		if res.Source.BucketID == nil {
			t.Fatalf("%s: expected default bucket assignment", tc.kind)
		}
	}

	if _, err := svc.Add(ctx, sources.AddRequest{Kind: catalog.KindChannel, ExternalID: "UC1"}); !errors.Is(err, catalog.ErrSourceExists) {
		t.Fatalf("expected duplicate rejection, got %v", err)
	}
	v1 := testsupport.MustItem(t, store, "v1")
	if v1.Duration != 61 || v1.UploadDate != "20240102" {
		t.Fatalf("video item fields not stored: %+v", v1)
	}
}

func TestAddRejectsEmptySource(t *testing.T) {
	list := &listing{}
	svc, store, _ := newService(t, list)
	if _, err := svc.Add(context.Background(), sources.AddRequest{Kind: catalog.KindChannel, ExternalID: "UCempty"}); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if src, _ := store.SourceByExternalID(context.Background(), "UCempty"); src != nil {
		t.Fatal("empty source must not be registered")
	}
}

func TestRefreshAddsOnlyUnseenItems(t *testing.T) {
	list := &listing{}
	list.set("a", "b", "c")
	svc, store, _ := newService(t, list)
	ctx := context.Background()

	res, err := svc.Add(ctx, sources.AddRequest{Kind: catalog.KindChannel, ExternalID: "UC1", AutoAcquire: false})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if res.Items != 3 {
		t.Fatalf("expected 3 initial items, got %d", res.Items)
	}
	before, _ := store.GetSource(ctx, res.Source.ID)

	time.Sleep(10 * time.Millisecond)
	list.set("a", "b", "c", "d")
	result, err := svc.Refresh(ctx)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if result.Sources != 1 || result.NewItems != 1 {
		t.Fatalf("unexpected refresh result %+v", result)
	}

	items, err := store.ItemsBySource(ctx, res.Source.ID)
	if err != nil {
		t.Fatalf("ItemsBySource: %v", err)
	}
	if len(items) != 4 {
		t.Fatalf("expected 4 items, got %d", len(items))
	}
	if d := testsupport.MustItem(t, store, "d"); !d.Skip {
		t.Fatal("item of a non-auto source should be inserted skipped")
	}
	if a := testsupport.MustItem(t, store, "a"); a.Skip {
		t.Fatal("initial items are not skipped")
	}
	after, _ := store.GetSource(ctx, res.Source.ID)
	if !after.LastChecked.After(before.LastChecked) {
		t.Fatalf("last_checked not advanced: %v -> %v", before.LastChecked, after.LastChecked)
	}

	again, err := svc.Refresh(ctx)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if again.NewItems != 0 {
		t.Fatalf("expected no new items on repeat refresh, got %d", again.NewItems)
	}
}

func TestRefreshToleratesResolveFailure(t *testing.T) {
	list := &listing{}
	list.set("a")
	svc, store, _ := newService(t, list)
	ctx := context.Background()
	res, err := svc.Add(ctx, sources.AddRequest{Kind: catalog.KindPlaylist, ExternalID: "PL1", AutoAcquire: true})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	before, _ := store.GetSource(ctx, res.Source.ID)

	time.Sleep(10 * time.Millisecond)
	list.mu.Lock()
	list.fail = true
	list.mu.Unlock()
	result, err := svc.Refresh(ctx)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if result.Sources != 1 || result.NewItems != 0 {
		t.Fatalf("unexpected refresh result %+v", result)
	}
	after, _ := store.GetSource(ctx, res.Source.ID)
	if !after.LastChecked.After(before.LastChecked) {
		t.Fatal("last_checked should advance even when nothing resolved")
	}
}

func TestToggleAutoAndRemove(t *testing.T) {
	list := &listing{}
	list.set("a", "b")
	svc, store, root := newService(t, list)
	ctx := context.Background()
	res, err := svc.Add(ctx, sources.AddRequest{Kind: catalog.KindChannel, ExternalID: "UC1", AutoAcquire: true})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	auto, err := svc.ToggleAuto(ctx, res.Source.ID)
	if err != nil || auto {
		t.Fatalf("ToggleAuto: %v %v", auto, err)
	}

	a := testsupport.MustItem(t, store, "a")
	path := filepath.Join(root, "default", "Video a", "Video a.mp4")
	testsupport.WriteFile(t, path, 20000)
	if err := store.MarkAcquired(ctx, a.ID, catalog.Acquisition{OutputPath: path}); err != nil {
		t.Fatalf("MarkAcquired: %v", err)
	}

	removed, err := svc.Remove(ctx, res.Source.ID, true)
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if removed.FilesDeleted != 1 || removed.FilesTotal != 1 {
		t.Fatalf("unexpected remove result %+v", removed)
	}
	if testsupport.Exists(t, filepath.Dir(path)) {
		t.Fatal("expected item folder to be removed")
	}
	if item, _ := store.ItemByExternalID(ctx, "b"); item != nil {
		t.Fatal("expected items to cascade with the source")
	}
	if _, err := svc.Remove(ctx, res.Source.ID, false); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found on second remove, got %v", err)
	}
}

func TestRefreshHonorsAutoAcquireToggle(t *testing.T) {
	list := &listing{}
	svc, store, _ := newService(t, list)
	ctx := context.Background()
	src := testsupport.AddSource(t, store, catalog.KindChannel, "UC1", true)

	list.set("a", "b", "c")
	first, err := svc.Refresh(ctx)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if first.Sources != 1 || first.NewItems != 3 {
		t.Fatalf("unexpected first refresh %+v", first)
	}
	initial := map[string]*catalog.Item{}
	for _, id := range []string{"a", "b", "c"} {
		item := testsupport.MustItem(t, store, id)
		if item.Skip {
			t.Fatalf("item %s of an auto source inserted skipped", id)
		}
		initial[id] = item
	}

	auto, err := svc.ToggleAuto(ctx, src.ID)
	if err != nil || auto {
		t.Fatalf("ToggleAuto = %v, %v; want false", auto, err)
	}

	list.set("a", "b", "c", "d")
	second, err := svc.Refresh(ctx)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if second.NewItems != 1 {
		t.Fatalf("expected 1 new item, got %+v", second)
	}
	if d := testsupport.MustItem(t, store, "d"); !d.Skip {
		t.Fatal("item discovered after disabling auto should be skipped")
	}
	for id, before := range initial {
		after := testsupport.MustItem(t, store, id)
		if after.Skip != before.Skip || after.Acquired != before.Acquired || after.Failed != before.Failed || after.Title != before.Title {
			t.Fatalf("item %s changed: %+v -> %+v", id, before, after)
		}
	}
	items, err := store.ItemsBySource(ctx, src.ID)
	if err != nil || len(items) != 4 {
		t.Fatalf("ItemsBySource = %d items, %v", len(items), err)
	}
	testsupport.CheckInvariants(t, store)
}
