package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasReusableSession(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "profile")
	s := NewStore(dir)

	assert.False(t, s.HasReusableSession(), "absent profile")

	require.NoError(t, s.Ensure())
	assert.False(t, s.HasReusableSession(), "empty profile")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "Cookies"), []byte("x"), 0o600))
	assert.True(t, s.HasReusableSession())
}

func TestEnsureRestrictsPermissions(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "profile")
	s := NewStore(dir)
	require.NoError(t, s.Ensure())

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o700), info.Mode().Perm())
}

func TestClearIsIdempotent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "profile")
	s := NewStore(dir)
	require.NoError(t, s.Ensure())
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Cookies"), []byte("x"), 0o600))

	require.NoError(t, s.Clear())
	assert.False(t, s.HasReusableSession())

	// Clearing again, with nothing there, still succeeds.
	require.NoError(t, s.Clear())
}
