package ytdlp

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"vibetube/internal/services"
)

// DetailLimit caps the stderr excerpt recorded for a failed item.
const DetailLimit = 500

// ToolError reports a non-zero exit from yt-dlp.
type ToolError struct {
	Op       string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ToolError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		msg = "unknown error"
	}
	return fmt.Sprintf("yt-dlp %s failed (exit %d): %s", e.Op, e.ExitCode, services.Truncate(msg, 200))
}

func (e *ToolError) Unwrap() error { return e.Err }

func (e *ToolError) Is(target error) bool { return target == services.ErrExternalTool }

// TimeoutError reports an invocation that exceeded its bound.
type TimeoutError struct {
	Op    string
	After time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("yt-dlp %s timed out after %s", e.Op, e.After)
}

func (e *TimeoutError) Is(target error) bool { return target == services.ErrTimeout }

// Detail renders the diagnostic stored on a failed item: the tool's stderr
// truncated to DetailLimit characters, "unknown error" when stderr was empty,
// or "timed out after <d>" for a timeout.
func Detail(err error) string {
	if err == nil {
		return ""
	}
	var timeout *TimeoutError
	if errors.As(err, &timeout) {
		return fmt.Sprintf("timed out after %s", timeout.After)
	}
	var tool *ToolError
	if errors.As(err, &tool) {
		stderr := strings.TrimSpace(tool.Stderr)
		if stderr == "" {
			return "unknown error"
		}
		return services.Truncate(stderr, DetailLimit)
	}
	return services.Truncate(err.Error(), DetailLimit)
}
