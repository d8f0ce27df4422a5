package bundle

import (
	"archive/zip"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/gradepilot/internal/testutil"
)

func TestResolveSortsAndDeduplicates(t *testing.T) {
	root := testutil.WriteProjectFiles(t, map[string]string{
		"util.cpp": "b",
		"main.cpp": "a",
		"main.h":   "c",
	})

	// main.cpp matches both patterns; it must appear once.
	manifest, err := Resolve(root, Spec{
		Include: []string{"*.cpp", "main*"},
		Output:  "submission.zip",
	})
	require.NoError(t, err)
	assert.Equal(t, Manifest{"main.cpp", "main.h", "util.cpp"}, manifest)
}

func TestResolveExcludesOwnArchiveAndToolFiles(t *testing.T) {
	root := testutil.WriteProjectFiles(t, map[string]string{
		"main.cpp":        "a",
		"submission.zip":  "stale archive from a previous run",
		"gradepilot.hcl":  `course = "CAB202"`,
		".gradepilot.env": "GRADEPILOT_USERNAME=n1",
		".hidden.cpp":     "hidden",
	})

	manifest, err := Resolve(root, Spec{Include: []string{"*"}, Output: "submission.zip"})
	require.NoError(t, err)
	assert.Equal(t, Manifest{"main.cpp"}, manifest)
}

func TestResolveSkipsDependencyCaches(t *testing.T) {
	root := testutil.WriteProjectFiles(t, map[string]string{
		"main.py":              "a",
		"__pycache__/main.pyc": "cache",
		"node_modules/x/y.js":  "dep",
		".git/config":          "git",
	})

	manifest, err := Resolve(root, Spec{Include: []string{"*"}, Output: "out.zip"})
	require.NoError(t, err)
	assert.Equal(t, Manifest{"main.py"}, manifest)
}

func TestResolveAppliesIgnoreOverlay(t *testing.T) {
	root := testutil.WriteProjectFiles(t, map[string]string{
		"main.cpp":         "a",
		"secret.txt":       "do not ship",
		"notes.txt":        "ship",
		".gradepilotignore": "secret.txt\n",
	})

	manifest, err := Resolve(root, Spec{Include: []string{"*"}, Output: "out.zip"})
	require.NoError(t, err)
	assert.Equal(t, Manifest{"main.cpp", "notes.txt"}, manifest)
}

func TestResolveBaseNameRuleForFlatPatterns(t *testing.T) {
	root := testutil.WriteProjectFiles(t, map[string]string{
		"main.go":        "a",
		"pkg/deep/sub.go": "b",
		"pkg/readme.md":  "c",
	})

	// A pattern without a separator matches anywhere in the tree.
	manifest, err := Resolve(root, Spec{Include: []string{"*.go"}, Output: "out.zip"})
	require.NoError(t, err)
	assert.Equal(t, Manifest{"main.go", "pkg/deep/sub.go"}, manifest)

	// A pattern with a separator matches the relative path.
	manifest, err = Resolve(root, Spec{Include: []string{"pkg/**/*.go"}, Output: "out.zip"})
	require.NoError(t, err)
	assert.Equal(t, Manifest{"pkg/deep/sub.go"}, manifest)
}

func TestResolveEmptyManifestIsHardFailure(t *testing.T) {
	root := testutil.WriteProjectFiles(t, map[string]string{
		"script.py": "print()",
	})

	_, err := Resolve(root, Spec{Include: []string{"*.java"}, Output: "out.zip"})
	require.ErrorIs(t, err, ErrEmptyManifest)

	_, err = Resolve(root, Spec{Include: nil, Output: "out.zip"})
	require.ErrorIs(t, err, ErrEmptyManifest)
}

func TestBuildWritesArchiveWithManifestContents(t *testing.T) {
	root := testutil.WriteProjectFiles(t, map[string]string{
		"main.cpp":  "int main() {}",
		"util.h":    "#pragma once",
		"notes.txt": "not code",
	})

	manifest, archivePath, err := Build(context.Background(), root, Spec{
		Include: []string{"*.cpp", "*.h"},
		Output:  "submission.zip",
	})
	require.NoError(t, err)
	assert.Equal(t, Manifest{"main.cpp", "util.h"}, manifest)

	zr, err := zip.OpenReader(archivePath)
	require.NoError(t, err)
	defer zr.Close()

	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"main.cpp", "util.h"}, names)
}

func TestBuildIsIdempotentOverUnchangedFiles(t *testing.T) {
	root := testutil.WriteProjectFiles(t, map[string]string{
		"main.cpp": "int main() {}",
		"util.h":   "#pragma once",
	})
	spec := Spec{Include: []string{"*.cpp", "*.h"}, Output: "submission.zip"}

	first, _, err := Build(context.Background(), root, spec)
	require.NoError(t, err)

	// The second run sees the archive from the first; it must not include
	// it, and the manifest must be byte-for-byte identical.
	second, _, err := Build(context.Background(), root, spec)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
