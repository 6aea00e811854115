package testsupport

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"vibetube/internal/services/ytdlp"
)

// FakeTool answers yt-dlp invocations like a well-behaved downloader: info
// lookups return a generated entry, flat listings return Entries, downloads
// write an output file of FileSize bytes and --version reports Version.
type FakeTool struct {
	mu       sync.Mutex
	entries  []string
	failIDs  map[string]bool
	fileSize int64
}

// NewFakeTool returns a tool listing ids and writing 20000-byte downloads.
func NewFakeTool(ids ...string) *FakeTool {
	return &FakeTool{entries: ids, failIDs: map[string]bool{}, fileSize: 20000}
}

// SetEntries replaces the flat listing.
func (f *FakeTool) SetEntries(ids ...string) {
	f.mu.Lock()
	f.entries = ids
	f.mu.Unlock()
}

// FailDownloads makes every download of id fail.
func (f *FakeTool) FailDownloads(id string) {
	f.mu.Lock()
	f.failIDs[id] = true
	f.mu.Unlock()
}

// Executor wraps the tool in a FakeExecutor.
func (f *FakeTool) Executor() *FakeExecutor {
	return &FakeExecutor{Handler: f.Handle}
}

// Handle implements a FakeExecutor handler.
func (f *FakeTool) Handle(_ context.Context, args []string) (ytdlp.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case HasArg(args, "--version"):
		return ytdlp.Result{Stdout: []byte("2024.08.06\n")}, nil
	case HasArg(args, "--no-playlist"):
		id := strings.TrimPrefix(args[0], ytdlp.VideoURL(""))
		return ytdlp.Result{Stdout: []byte(EntryJSON(id) + "\n")}, nil
	case HasArg(args, "--flat-playlist"):
		lines := make([]string, 0, len(f.entries))
		for _, id := range f.entries {
			lines = append(lines, EntryJSON(id))
		}
		return ytdlp.Result{Stdout: []byte(strings.Join(lines, "\n"))}, nil
	}

	output := OutputArg(args)
	if output == "" {
		return ytdlp.Result{}, nil
	}
	id := strings.TrimPrefix(args[len(args)-1], ytdlp.VideoURL(""))
	if f.failIDs[id] {
		return ytdlp.Result{Stderr: []byte("ERROR: Video unavailable")}, errors.New("exit status 1")
	}
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return ytdlp.Result{}, err
	}
	if err := os.WriteFile(output, make([]byte, f.fileSize), 0o644); err != nil {
		return ytdlp.Result{}, err
	}
	return ytdlp.Result{}, nil
}

// EntryJSON renders the metadata object FakeTool reports for id.
func EntryJSON(id string) string {
	return fmt.Sprintf(`{"id":%q,"title":"Video %s","channel":"Chan","upload_date":"20240102","duration":61}`, id, id)
}
