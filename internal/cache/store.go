// Package cache persists per-repository engine state as JSON documents under
// the user cache directory: the ordered commit-id history and the review
// progress record.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

// CorruptError reports a cache file that exists but cannot be read or
// decoded. Callers typically treat it like an absent cache after surfacing
// the problem.
type CorruptError struct {
	Path string
	Err  error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("cache file corrupt: %s: %v", e.Path, e.Err)
}

func (e *CorruptError) Unwrap() error { return e.Err }

// Store resolves cache file locations for repositories and handles the JSON
// round trip. One document per concern per repository; keys inside each
// document are emitted in a stable sorted order for diffability.
type Store struct {
	root string
}

// NewStore places cache files under root, defaulting to revq's directory in
// the XDG cache home.
func NewStore(root string) *Store {
	if root == "" {
		root = filepath.Join(xdg.CacheHome, "revq")
	}
	return &Store{root: root}
}

// repoDir derives a stable per-repository directory from the absolute
// repository path: the base name for readability plus a hash for uniqueness.
func (s *Store) repoDir(repoPath string) string {
	sum := sha256.Sum256([]byte(repoPath))
	name := filepath.Base(repoPath) + "-" + hex.EncodeToString(sum[:6])
	return filepath.Join(s.root, name)
}

// read decodes the named document for repo. ok is false when no file exists
// yet; undecodable content is a CorruptError.
func (s *Store) read(repoPath, name string, v any) (bool, error) {
	path := filepath.Join(s.repoDir(repoPath), name)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, &CorruptError{Path: path, Err: err}
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, &CorruptError{Path: path, Err: err}
	}
	return true, nil
}

// write persists the named document for repo atomically: a temp file in the
// same directory renamed over the target, so readers never observe a partial
// document.
func (s *Store) write(repoPath, name string, v any) error {
	dir := s.repoDir(repoPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cache: %w", err)
	}
	data = append(data, '\n')
	tmp, err := os.CreateTemp(dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("create cache temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close cache temp file: %w", err)
	}
	if err := os.Rename(tmpName, filepath.Join(dir, name)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace cache file: %w", err)
	}
	return nil
}
