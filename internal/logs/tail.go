package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

const maxLineBytes = 1024 * 1024

// Last returns up to n trailing lines of path and the offset just past them.
// A missing file yields no lines and offset zero.
func Last(path string, n int) ([]string, int64, error) {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if n <= 0 {
		end, err := file.Seek(0, io.SeekEnd)
		if err != nil {
			return nil, 0, fmt.Errorf("seek log file: %w", err)
		}
		return nil, end, nil
	}

	ring := make([]string, n)
	count := 0
	var offset int64
	err = scanLines(file, func(line string, next int64) {
		ring[count%n] = line
		count++
		offset = next
	})
	if err != nil {
		return nil, 0, err
	}

	kept := min(count, n)
	lines := make([]string, kept)
	start := count - kept
	for i := range kept {
		lines[i] = ring[(start+i)%n]
	}
	return lines, offset, nil
}

// Follow calls emit for every complete line appended to path after offset,
// polling every interval until ctx is done.
func Follow(ctx context.Context, path string, offset int64, interval time.Duration, emit func(string)) error {
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var identity os.FileInfo
	for {
		next, info, err := readFrom(path, offset, identity, emit)
		if err != nil {
			return err
		}
		offset, identity = next, info

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// readFrom emits the complete lines after offset. It starts over when the
// file was replaced or truncated since the last read.
func readFrom(path string, offset int64, previous os.FileInfo, emit func(string)) (int64, os.FileInfo, error) {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil, nil
	}
	if err != nil {
		return offset, previous, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return offset, previous, fmt.Errorf("stat log file: %w", err)
	}
	if (previous != nil && !os.SameFile(previous, info)) || info.Size() < offset {
		offset = 0
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return offset, info, fmt.Errorf("seek log file: %w", err)
	}

	next := offset
	err = scanLines(file, func(line string, end int64) {
		emit(line)
		next = offset + end
	})
	return next, info, err
}

// scanLines reports each newline-terminated line with the offset following
// it, relative to the reader's start. A trailing partial line is left for the
// next read.
func scanLines(r io.Reader, fn func(line string, next int64)) error {
	reader := bufio.NewReaderSize(r, 64*1024)
	var pos int64
	for {
		line, err := reader.ReadString('\n')
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read log file: %w", err)
		}
		pos += int64(len(line))
		if len(line) > maxLineBytes {
			line = line[:maxLineBytes] + "\n"
		}
		fn(line[:len(line)-1], pos)
	}
}
