// Package bundle turns include patterns into a deterministic file manifest
// and a zip archive ready for upload. Deterministic output matters: runs
// over unchanged files must produce the same manifest, so a missing file is
// a bundling problem and never mistaken for a platform bug.
package bundle

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	ignore "github.com/sabhiram/go-gitignore"

	"github.com/vk/gradepilot/internal/ctxlog"
)

// ErrEmptyManifest is returned when no files survive pattern expansion and
// exclusion. An empty submission is never silently sent.
var ErrEmptyManifest = errors.New("no files matched the bundle patterns")

// IgnoreFile is the optional gitignore-style overlay consulted at the
// project root.
const IgnoreFile = ".gradepilotignore"

// deniedFiles are the tool's own files, never bundled regardless of patterns.
var deniedFiles = map[string]bool{
	"gradepilot.hcl":  true,
	".gradepilot.env": true,
	IgnoreFile:        true,
}

// deniedDirs are common dependency caches skipped during the walk.
var deniedDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"__pycache__":  true,
	"vendor":       true,
}

// Spec describes one bundling request.
type Spec struct {
	// Include is the ordered list of glob patterns. A pattern without a
	// path separator matches against base names anywhere in the tree;
	// a pattern with a separator matches against the full relative path.
	// doublestar syntax, so "src/**/*.go" works.
	Include []string

	// Output is the archive file name, excluded from its own manifest.
	Output string
}

// Manifest is the sorted, deduplicated set of relative paths to archive.
type Manifest []string

// Build expands the spec against root, writes the archive at root/Output and
// returns the manifest plus the archive path. The archive is written to a
// temp file and renamed into place, overwriting any prior archive.
func Build(ctx context.Context, root string, spec Spec) (Manifest, string, error) {
	logger := ctxlog.FromContext(ctx)

	manifest, err := Resolve(root, spec)
	if err != nil {
		return nil, "", err
	}
	logger.Debug("Manifest resolved.", "files", len(manifest))

	archivePath := filepath.Join(root, spec.Output)
	if err := writeArchive(root, archivePath, manifest); err != nil {
		return nil, "", err
	}
	logger.Info("Archive created.", "path", archivePath, "files", len(manifest))
	return manifest, archivePath, nil
}

// Resolve computes the manifest without writing anything.
func Resolve(root string, spec Spec) (Manifest, error) {
	if len(spec.Include) == 0 {
		return nil, fmt.Errorf("%w: no include patterns given", ErrEmptyManifest)
	}

	overlay := loadOverlay(root)

	seen := map[string]bool{}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path != root && (strings.HasPrefix(name, ".") || deniedDirs[name]) {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if strings.HasPrefix(name, ".") || deniedFiles[name] || rel == spec.Output {
			return nil
		}
		if overlay != nil && overlay.MatchesPath(rel) {
			return nil
		}
		if !matchesAny(spec.Include, rel, name) {
			return nil
		}
		seen[rel] = true
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}

	if len(seen) == 0 {
		return nil, fmt.Errorf("%w: %v", ErrEmptyManifest, spec.Include)
	}

	manifest := make(Manifest, 0, len(seen))
	for rel := range seen {
		manifest = append(manifest, rel)
	}
	sort.Strings(manifest)
	return manifest, nil
}

// matchesAny applies the base-name rule for separator-free patterns.
func matchesAny(patterns []string, rel, base string) bool {
	for _, p := range patterns {
		target := rel
		if !strings.Contains(p, "/") {
			target = base
		}
		if ok, err := doublestar.Match(p, target); err == nil && ok {
			return true
		}
	}
	return false
}

// loadOverlay compiles the ignore-file overlay when present.
func loadOverlay(root string) *ignore.GitIgnore {
	path := filepath.Join(root, IgnoreFile)
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	gi, err := ignore.CompileIgnoreFile(path)
	if err != nil {
		return nil
	}
	return gi
}

func writeArchive(root, archivePath string, manifest Manifest) error {
	dir := filepath.Dir(archivePath)
	tmp, err := os.CreateTemp(dir, ".bundle-*")
	if err != nil {
		return fmt.Errorf("creating temp archive: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	zw := zip.NewWriter(tmp)
	for _, rel := range manifest {
		if err := addFile(zw, root, rel); err != nil {
			zw.Close()
			tmp.Close()
			return err
		}
	}
	if err := zw.Close(); err != nil {
		tmp.Close()
		return fmt.Errorf("finalizing archive: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("flushing archive: %w", err)
	}

	if err := os.Rename(tmpName, archivePath); err != nil {
		return fmt.Errorf("replacing archive: %w", err)
	}
	return nil
}

// addFile stores one file deflate-compressed. The same method is used for
// every entry regardless of content type.
func addFile(zw *zip.Writer, root, rel string) error {
	f, err := os.Open(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		return fmt.Errorf("opening %s: %w", rel, err)
	}
	defer f.Close()

	w, err := zw.Create(rel)
	if err != nil {
		return fmt.Errorf("adding %s to archive: %w", rel, err)
	}
	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("compressing %s: %w", rel, err)
	}
	return nil
}
