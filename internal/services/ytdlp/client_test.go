package ytdlp_test

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"vibetube/internal/services"
	"vibetube/internal/services/ytdlp"
)

type stubExecutor struct {
	stdout string
	stderr string
	err    error
	block  bool
	args   [][]string
}

func (s *stubExecutor) Run(ctx context.Context, binary string, args []string) (ytdlp.Result, error) {
	s.args = append(s.args, append([]string(nil), args...))
	if s.block {
		<-ctx.Done()
		return ytdlp.Result{}, ctx.Err()
	}
	return ytdlp.Result{Stdout: []byte(s.stdout), Stderr: []byte(s.stderr)}, s.err
}

func TestInfoBuildsArgumentsAndParses(t *testing.T) {
	exec := &stubExecutor{stdout: `{"id":"abc","title":"Clip","channel":"Chan","upload_date":"20240102","duration":61.6,"thumbnail":"https://i/x.jpg","description":"d"}`}
	client := ytdlp.New("yt-dlp", ytdlp.WithExecutor(exec))

	info, err := client.Info(context.Background(), "abc", "/tmp/cookies.txt")
	if err != nil {
		t.Fatalf("Info returned error: %v", err)
	}
	want := []string{"https://www.youtube.com/watch?v=abc", "--dump-json", "--no-playlist", "--cookies", "/tmp/cookies.txt"}
	if !reflect.DeepEqual(exec.args[0], want) {
		t.Fatalf("unexpected args: %v", exec.args[0])
	}
	if info.Title != "Clip" || info.ChannelName() != "Chan" || info.DurationSeconds() != 62 || info.ThumbnailURL() != "https://i/x.jpg" {
		t.Fatalf("unexpected info: %+v", info)
	}
}

func TestListParsesOneObjectPerLine(t *testing.T) {
	exec := &stubExecutor{stdout: "{\"id\":\"a\",\"title\":\"A\"}\n\n{\"id\":\"b\",\"title\":\"B\",\"thumbnails\":[{\"url\":\"s\"},{\"url\":\"l\"}]}\n"}
	client := ytdlp.New("yt-dlp", ytdlp.WithExecutor(exec))

	entries, err := client.List(context.Background(), ytdlp.ChannelURL("UC1"), "")
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	want := []string{"https://www.youtube.com/channel/UC1/videos", "--dump-json", "--flat-playlist"}
	if !reflect.DeepEqual(exec.args[0], want) {
		t.Fatalf("unexpected args: %v", exec.args[0])
	}
	if len(entries) != 2 || entries[1].ThumbnailURL() != "l" {
		t.Fatalf("unexpected entries: %+v", entries)
	}
}

func TestListRejectsGarbage(t *testing.T) {
	client := ytdlp.New("yt-dlp", ytdlp.WithExecutor(&stubExecutor{stdout: "not json\n"}))
	if _, err := client.List(context.Background(), ytdlp.PlaylistURL("PL1"), ""); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestDownloadArguments(t *testing.T) {
	exec := &stubExecutor{}
	client := ytdlp.New("yt-dlp", ytdlp.WithExecutor(exec))
	ctx := context.Background()

	if err := client.Download(ctx, "URL", "/out/a.mp4", ytdlp.FormatPrimary, "/c.txt"); err != nil {
		t.Fatalf("primary download: %v", err)
	}
	if err := client.Download(ctx, "URL", "/out/a.mp4", ytdlp.FormatFallback, ""); err != nil {
		t.Fatalf("fallback download: %v", err)
	}
	primary := []string{
		"-f", "bestvideo[ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]/best",
		"--merge-output-format", "mp4", "--no-check-certificate", "--write-thumbnail",
		"--cookies", "/c.txt", "-o", "/out/a.mp4", "URL",
	}
	fallback := []string{"-f", "best", "--no-check-certificate", "--write-thumbnail", "-o", "/out/a.mp4", "URL"}
	if !reflect.DeepEqual(exec.args[0], primary) {
		t.Fatalf("unexpected primary args: %v", exec.args[0])
	}
	if !reflect.DeepEqual(exec.args[1], fallback) {
		t.Fatalf("unexpected fallback args: %v", exec.args[1])
	}
}

func TestFailureCarriesStderrDetail(t *testing.T) {
	stderr := strings.Repeat("x", 700)
	client := ytdlp.New("yt-dlp", ytdlp.WithExecutor(&stubExecutor{stderr: stderr, err: errors.New("exit status 1")}))

	err := client.Download(context.Background(), "URL", "/out", ytdlp.FormatPrimary, "")
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool classification, got %v", err)
	}
	if got := ytdlp.Detail(err); len(got) != ytdlp.DetailLimit {
		t.Fatalf("expected detail truncated to %d, got %d", ytdlp.DetailLimit, len(got))
	}
}

func TestFailureWithoutStderrIsUnknown(t *testing.T) {
	client := ytdlp.New("yt-dlp", ytdlp.WithExecutor(&stubExecutor{err: errors.New("exit status 1")}))
	err := client.Download(context.Background(), "URL", "/out", ytdlp.FormatFallback, "")
	if got := ytdlp.Detail(err); got != "unknown error" {
		t.Fatalf("expected unknown error, got %q", got)
	}
}

func TestTimeoutIsDistinctFailure(t *testing.T) {
	client := ytdlp.New("yt-dlp",
		ytdlp.WithExecutor(&stubExecutor{block: true}),
		ytdlp.WithDownloadTimeout(20*time.Millisecond),
	)
	err := client.Download(context.Background(), "URL", "/out", ytdlp.FormatPrimary, "")
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
	if got := ytdlp.Detail(err); got != "timed out after 20ms" {
		t.Fatalf("unexpected detail %q", got)
	}
	if services.FailureKind(err) != "timeout" {
		t.Fatalf("unexpected failure kind %q", services.FailureKind(err))
	}
}

func TestNormalizeUploadDate(t *testing.T) {
	cases := map[string]string{
		"20240102":            "20240102",
		"2024-01-02":          "20240102",
		"2024-01-02T10:00:00": "20240102",
		"":                    "",
	}
	for in, want := range cases {
		if got := ytdlp.NormalizeUploadDate(in); got != want {
			t.Fatalf("NormalizeUploadDate(%q) = %q, want %q", in, got, want)
		}
	}
}
