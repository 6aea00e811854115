package testsupport

import (
	"context"
	"sync"

	"vibetube/internal/services/ytdlp"
)

// FakeExecutor records yt-dlp invocations and answers them with Handler.
// A nil Handler succeeds with empty output.
type FakeExecutor struct {
	Handler func(ctx context.Context, args []string) (ytdlp.Result, error)

	mu    sync.Mutex
	calls [][]string
}

// Run implements ytdlp.Executor.
func (f *FakeExecutor) Run(ctx context.Context, _ string, args []string) (ytdlp.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, append([]string(nil), args...))
	handler := f.Handler
	f.mu.Unlock()
	if handler == nil {
		return ytdlp.Result{}, nil
	}
	return handler(ctx, args)
}

// Calls returns a copy of every recorded argument list.
func (f *FakeExecutor) Calls() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]string, len(f.calls))
	copy(out, f.calls)
	return out
}

// DownloadCalls returns only the invocations that carried an output path.
func (f *FakeExecutor) DownloadCalls() [][]string {
	var out [][]string
	for _, call := range f.Calls() {
		if OutputArg(call) != "" {
			out = append(out, call)
		}
	}
	return out
}

// OutputArg returns the value following -o, or "".
func OutputArg(args []string) string {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == "-o" {
			return args[i+1]
		}
	}
	return ""
}

// HasArg reports whether args contains value.
func HasArg(args []string, value string) bool {
	for _, arg := range args {
		if arg == value {
			return true
		}
	}
	return false
}
