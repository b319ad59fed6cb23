// Package store is the content-addressed-by-stage artifact directory for one
// media item. The presence and well-formedness of a stage's declared output
// files is the sole evidence of completion; nothing here is a second source
// of truth.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"inkcast/internal/faults"
	"inkcast/internal/types"
)

// Store roots all item directories under a single work directory.
type Store struct {
	root string
}

func New(root string) *Store {
	return &Store{root: root}
}

// Root returns the work directory.
func (s *Store) Root() string { return s.root }

// ItemDir returns (and creates) the artifact directory for an item.
func (s *Store) ItemDir(id string) (string, error) {
	dir := filepath.Join(s.root, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create item dir: %w", err)
	}
	return dir, nil
}

// Lock takes a non-blocking advisory lock on the item directory. The pipeline
// is single-writer per item; a second concurrent run fails fast here instead
// of racing the file-existence skip checks.
func (s *Store) Lock(id string) (*flock.Flock, error) {
	dir, err := s.ItemDir(id)
	if err != nil {
		return nil, err
	}
	fl := flock.New(filepath.Join(dir, ".lock"))
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock item dir: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("item %s is locked by another run", id)
	}
	return fl, nil
}

// WriteMetadata records the item identity once. Existing metadata is kept so
// reruns do not churn the file.
func (s *Store) WriteMetadata(item types.Item) error {
	dir, err := s.ItemDir(item.ID)
	if err != nil {
		return err
	}
	path := filepath.Join(dir, "item.json")
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	return WriteJSON(path, item)
}

// WriteJSON marshals v and writes it atomically (temp file + rename) so a
// crash mid-write never leaves a half-written artifact that passes the
// existence check.
func WriteJSON(path string, v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	return WriteFile(path, append(raw, '\n'))
}

// ReadJSON reads and unmarshals path. A present-but-unparseable file is an
// integrity error: the producing stage is treated as never completed.
func ReadJSON(path string, v any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return faults.Wrap(faults.ErrMissingInput, "", filepath.Base(path), err)
		}
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return faults.Wrap(faults.ErrIntegrity, "", filepath.Base(path), err)
	}
	return nil
}

// WriteFile writes b atomically via a temp file in the same directory.
func WriteFile(path string, b []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

// CopyFile duplicates src to dst, creating parent directories.
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	b, err := io.ReadAll(in)
	if err != nil {
		return err
	}
	return WriteFile(dst, b)
}

// OutputValid is the minimal structural check for a declared stage output:
// the file exists, is non-empty, and parses if it claims to be JSON. Glob
// patterns (video.*) are satisfied by any matching non-empty file.
func OutputValid(path string) bool {
	if strings.ContainsAny(filepath.Base(path), "*?[") {
		matches, err := filepath.Glob(path)
		if err != nil || len(matches) == 0 {
			return false
		}
		sort.Strings(matches)
		for _, m := range matches {
			if name := filepath.Base(m); strings.HasPrefix(name, ".") {
				continue
			}
			if OutputValid(m) {
				return true
			}
		}
		return false
	}

	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	if info.IsDir() {
		entries, err := os.ReadDir(path)
		return err == nil && len(entries) > 0
	}
	if info.Size() == 0 {
		return false
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		raw, err := os.ReadFile(path)
		if err != nil {
			return false
		}
		return json.Valid(raw)
	}
	return true
}

// RemoveOutput deletes a declared stage output so a forced rerun starts from
// a clean slate. Glob patterns remove every match; a missing file is fine.
func RemoveOutput(path string) error {
	if strings.ContainsAny(filepath.Base(path), "*?[") {
		matches, err := filepath.Glob(path)
		if err != nil {
			return err
		}
		for _, m := range matches {
			if err := os.RemoveAll(m); err != nil {
				return err
			}
		}
		return nil
	}
	return os.RemoveAll(path)
}

// FindVideo locates the downloaded media file for an item. The fetcher lets
// the downloader pick the container, so the extension is not fixed.
func FindVideo(dir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "video.*"))
	if err != nil {
		return "", err
	}
	sort.Strings(matches)
	for _, m := range matches {
		if strings.HasSuffix(m, ".part") || strings.HasPrefix(filepath.Base(m), ".") {
			continue
		}
		return m, nil
	}
	return "", faults.Wrap(faults.ErrMissingInput, "", "video file", os.ErrNotExist)
}

// ModTime reports a file's modification time, zero when absent.
func ModTime(path string) time.Time {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}
