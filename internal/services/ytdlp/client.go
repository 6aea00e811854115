package ytdlp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Result is the captured output of one invocation.
type Result struct {
	Stdout []byte
	Stderr []byte
}

// Executor abstracts command execution for testability. Implementations
// return the captured output even when the command fails.
type Executor interface {
	Run(ctx context.Context, binary string, args []string) (Result, error)
}

// Format selects the download format arguments.
type Format int

const (
	// FormatPrimary requests separate mp4 video and m4a audio merged into mp4.
	FormatPrimary Format = iota
	// FormatFallback requests the best single-file format.
	FormatFallback
)

func (f Format) String() string {
	if f == FormatFallback {
		return "fallback"
	}
	return "primary"
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// WithInfoTimeout bounds detailed lookups and flat listings. Zero disables the bound.
func WithInfoTimeout(d time.Duration) Option {
	return func(c *Client) { c.infoTimeout = d }
}

// WithDownloadTimeout bounds each download attempt. Zero disables the bound.
func WithDownloadTimeout(d time.Duration) Option {
	return func(c *Client) { c.downloadTimeout = d }
}

// Client wraps yt-dlp CLI interactions.
type Client struct {
	binary          string
	infoTimeout     time.Duration
	downloadTimeout time.Duration
	exec            Executor
}

// New constructs a yt-dlp client.
func New(binary string, opts ...Option) *Client {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "yt-dlp"
	}
	client := &Client{binary: binary, exec: commandExecutor{}}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Binary returns the configured executable.
func (c *Client) Binary() string { return c.binary }

// VideoURL returns the watch page for a single item.
func VideoURL(id string) string {
	return "https://www.youtube.com/watch?v=" + id
}

// ChannelURL returns the uploads listing of a channel.
func ChannelURL(id string) string {
	return "https://www.youtube.com/channel/" + id + "/videos"
}

// PlaylistURL returns the listing of a playlist.
func PlaylistURL(id string) string {
	return "https://www.youtube.com/playlist?list=" + id
}

// Info performs a detailed lookup of a single item.
func (c *Client) Info(ctx context.Context, id, cookies string) (*Info, error) {
	args := []string{VideoURL(id), "--dump-json", "--no-playlist"}
	args = appendCookies(args, cookies)
	res, err := c.run(ctx, "info", c.infoTimeout, args)
	if err != nil {
		return nil, err
	}
	return parseInfo(res.Stdout)
}

// List performs a flat listing of a channel or playlist URL.
func (c *Client) List(ctx context.Context, url, cookies string) ([]Info, error) {
	args := []string{url, "--dump-json", "--flat-playlist"}
	args = appendCookies(args, cookies)
	res, err := c.run(ctx, "list", c.infoTimeout, args)
	if err != nil {
		return nil, err
	}
	return parseListing(res.Stdout)
}

// Download fetches url into output using the requested format.
func (c *Client) Download(ctx context.Context, url, output string, format Format, cookies string) error {
	var args []string
	switch format {
	case FormatFallback:
		args = []string{"-f", "best", "--no-check-certificate", "--write-thumbnail"}
	default:
		args = []string{
			"-f", "bestvideo[ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]/best",
			"--merge-output-format", "mp4",
			"--no-check-certificate",
			"--write-thumbnail",
		}
	}
	args = appendCookies(args, cookies)
	args = append(args, "-o", output, url)
	_, err := c.run(ctx, "download "+format.String(), c.downloadTimeout, args)
	return err
}

// Version returns the tool's reported version string.
func (c *Client) Version(ctx context.Context) (string, error) {
	res, err := c.run(ctx, "version", 10*time.Second, []string{"--version"})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(res.Stdout)), nil
}

func appendCookies(args []string, cookies string) []string {
	if strings.TrimSpace(cookies) == "" {
		return args
	}
	return append(args, "--cookies", cookies)
}

func (c *Client) run(ctx context.Context, op string, timeout time.Duration, args []string) (Result, error) {
	runCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	res, err := c.exec.Run(runCtx, c.binary, args)
	if err == nil {
		return res, nil
	}
	if timeout > 0 && ctx.Err() == nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return res, &TimeoutError{Op: op, After: timeout}
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, fmt.Errorf("yt-dlp %s: %w", op, ctxErr)
	}
	exitCode := -1
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		exitCode = exitErr.ExitCode()
	}
	return res, &ToolError{Op: op, ExitCode: exitCode, Stderr: string(res.Stderr), Err: err}
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string) (Result, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = 5 * time.Second
	err := cmd.Run()
	return Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}, err
}
