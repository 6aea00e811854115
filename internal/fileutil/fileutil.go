// Package fileutil installs files atomically: content is streamed to a
// sibling temp file which is renamed over the destination only once it has
// been written and closed.
package fileutil

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
)

// WriteAtomic streams r to path with the given mode. Partial writes never
// become visible at path.
func WriteAtomic(path string, r io.Reader, mode os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		return err
	}
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// WriteFileAtomic is WriteAtomic for in-memory content.
func WriteFileAtomic(path string, data []byte, mode os.FileMode) error {
	return WriteAtomic(path, bytes.NewReader(data), mode)
}
