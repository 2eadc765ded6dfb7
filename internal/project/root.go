package project

import (
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
)

// ManifestName is the file name searched for by FindManifest.
const ManifestName = "cdef.toml"

// FindManifest looks for cdef.toml in startDir and then in each parent
// directory. A directory that happens to be named cdef.toml is skipped.
func FindManifest(startDir string) (path string, ok bool, err error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for d := range ancestors(dir) {
		candidate := filepath.Join(d, ManifestName)
		st, err := os.Stat(candidate)
		switch {
		case err == nil && st.Mode().IsRegular():
			return candidate, true, nil
		case err != nil && !errors.Is(err, os.ErrNotExist):
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
	}
	return "", false, nil
}

// ancestors yields dir and every parent up to the filesystem root.
func ancestors(dir string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for {
			if !yield(dir) {
				return
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				return
			}
			dir = parent
		}
	}
}
