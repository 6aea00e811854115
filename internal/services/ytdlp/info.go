package ytdlp

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// Info is the subset of yt-dlp's JSON metadata VibeTube consumes. Flat
// listing entries populate fewer fields than detailed lookups.
type Info struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Channel     string      `json:"channel"`
	Uploader    string      `json:"uploader"`
	UploadDate  string      `json:"upload_date"`
	Duration    float64     `json:"duration"`
	Thumbnail   string      `json:"thumbnail"`
	Thumbnails  []Thumbnail `json:"thumbnails"`
	Description string      `json:"description"`
	WebpageURL  string      `json:"webpage_url"`
}

// Thumbnail is one entry of the thumbnails array.
type Thumbnail struct {
	URL string `json:"url"`
}

// DurationSeconds returns the duration rounded to whole seconds.
func (i *Info) DurationSeconds() int {
	if i == nil || i.Duration <= 0 {
		return 0
	}
	return int(math.Round(i.Duration))
}

// ThumbnailURL prefers the primary thumbnail and falls back to the last
// (largest) entry of the thumbnails array.
func (i *Info) ThumbnailURL() string {
	if i == nil {
		return ""
	}
	if strings.TrimSpace(i.Thumbnail) != "" {
		return i.Thumbnail
	}
	for idx := len(i.Thumbnails) - 1; idx >= 0; idx-- {
		if url := strings.TrimSpace(i.Thumbnails[idx].URL); url != "" {
			return url
		}
	}
	return ""
}

// ChannelName returns the channel label, falling back to the uploader.
func (i *Info) ChannelName() string {
	if i == nil {
		return ""
	}
	if strings.TrimSpace(i.Channel) != "" {
		return i.Channel
	}
	return i.Uploader
}

// NormalizeUploadDate converts ISO style dates (YYYY-MM-DD) to YYYYMMDD.
func NormalizeUploadDate(value string) string {
	value = strings.TrimSpace(value)
	if !strings.Contains(value, "-") {
		return value
	}
	value = strings.ReplaceAll(value, "-", "")
	if len(value) > 8 {
		value = value[:8]
	}
	return value
}

func parseInfo(data []byte) (*Info, error) {
	var info Info
	if err := json.Unmarshal(bytes.TrimSpace(data), &info); err != nil {
		return nil, fmt.Errorf("decode yt-dlp json: %w", err)
	}
	return &info, nil
}

// parseListing decodes one JSON object per non-blank line.
func parseListing(data []byte) ([]Info, error) {
	var entries []Info
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 {
			continue
		}
		var info Info
		if err := json.Unmarshal(text, &info); err != nil {
			return nil, fmt.Errorf("decode listing line %d: %w", line, err)
		}
		entries = append(entries, info)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read listing: %w", err)
	}
	return entries, nil
}
