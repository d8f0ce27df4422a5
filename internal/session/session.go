// Package session owns the persisted browser profile directory that lets a
// login survive across runs. It is purely filesystem state; the directory's
// internal format belongs to the browser layer and is never inspected here.
//
// At most one live store may act on a given profile at a time. Two
// simultaneous runs against the same profile are an unguarded hazard; callers
// embedding the engine in a scheduler must serialize per profile.
package session

import (
	"fmt"
	"os"
	"path/filepath"
)

// Store manages one browser profile directory.
type Store struct {
	dir string
}

// NewStore returns a store over an explicit profile directory.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// DefaultStore places the profile under the user cache directory, e.g.
// ~/.cache/gradepilot/profile on Linux.
func DefaultStore() (*Store, error) {
	cache, err := os.UserCacheDir()
	if err != nil {
		return nil, fmt.Errorf("locating user cache dir: %w", err)
	}
	return NewStore(filepath.Join(cache, "gradepilot", "profile")), nil
}

// ProfilePath returns the profile directory path.
func (s *Store) ProfilePath() string { return s.dir }

// HasReusableSession reports whether a profile directory with content exists.
// Whether it is actually honored is the login machine's decision; a
// fresh-login directive bypasses it.
func (s *Store) HasReusableSession() bool {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return false
	}
	return len(entries) > 0
}

// Ensure creates the profile directory if needed, restricted to the owner.
func (s *Store) Ensure() error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("creating profile dir: %w", err)
	}
	return nil
}

// Clear removes the whole profile tree. Clearing an absent profile is a
// no-op, so it is always safe to call.
func (s *Store) Clear() error {
	if err := os.RemoveAll(s.dir); err != nil {
		return fmt.Errorf("clearing profile dir: %w", err)
	}
	return nil
}
