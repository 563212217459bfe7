package matcher

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/snapmatch/snapmatch/internal/apperr"
)

// Store manages per-session matched-image directories under a common root.
// A session's results live in <root>/<sessionID>/ and only files carrying
// the configured name prefix are user-facing.
type Store struct {
	root   string
	prefix string
}

// NewStore creates a store rooted at root, filtering on prefix.
func NewStore(root, prefix string) *Store {
	return &Store{root: root, prefix: prefix}
}

// Prefix returns the user-facing file name prefix.
func (s *Store) Prefix() string {
	return s.prefix
}

// SessionDir returns the matched-image directory for a session.
func (s *Store) SessionDir(sessionID string) string {
	return filepath.Join(s.root, sessionID)
}

// Reset deletes and recreates a session's matched directory so every capture
// starts from an empty result set.
func (s *Store) Reset(sessionID string) error {
	dir := s.SessionDir(sessionID)
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("clearing matched directory: %w", err)
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating matched directory: %w", err)
	}
	return nil
}

// Remove deletes a session's matched directory entirely.
func (s *Store) Remove(sessionID string) error {
	if err := os.RemoveAll(s.SessionDir(sessionID)); err != nil {
		return fmt.Errorf("removing matched directory: %w", err)
	}
	return nil
}

// List returns the names of a session's matched files. Order is whatever the
// filesystem yields; callers must not rely on it.
func (s *Store) List(sessionID string) ([]string, error) {
	entries, err := os.ReadDir(s.SessionDir(sessionID))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading matched directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), s.prefix) {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// Path resolves a matched file by name, confined to the session directory.
// Names containing separators or dot-dot segments are rejected before any
// filesystem access.
func (s *Store) Path(sessionID, name string) (string, error) {
	if name == "" || name != filepath.Base(name) ||
		strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return "", apperr.New(apperr.Validation, "invalid file name")
	}

	path := filepath.Join(s.SessionDir(sessionID), name)
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return "", apperr.New(apperr.NotFound, "file not found")
	}
	if err != nil {
		return "", fmt.Errorf("stat matched file: %w", err)
	}
	if info.IsDir() {
		return "", apperr.New(apperr.NotFound, "file not found")
	}
	return path, nil
}

// Open opens a matched file for reading after Path validation.
func (s *Store) Open(sessionID, name string) (*os.File, error) {
	path, err := s.Path(sessionID, name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path) //nolint:gosec // path confined by Path
	if err != nil {
		return nil, fmt.Errorf("opening matched file: %w", err)
	}
	return f, nil
}
