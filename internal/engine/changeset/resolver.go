// Package changeset maps changed files onto scanned directories for
// update-mode planning, and collects those changes from git.
package changeset

import (
	"path/filepath"
	"strings"
)

// ResolveChangedDirs walks each changed file's ancestors from its parent up
// to root (inclusive) and returns every ancestor present in scanned, keyed
// by rel path ("." for root). Relative files are taken relative to root;
// files outside root contribute nothing.
func ResolveChangedDirs(root string, changedFiles []string, scanned map[string]bool) map[string]bool {
	out := make(map[string]bool)
	if len(changedFiles) == 0 || len(scanned) == 0 {
		return out
	}
	root = filepath.Clean(root)

	for _, f := range changedFiles {
		if !filepath.IsAbs(f) {
			f = filepath.Join(root, f)
		}
		dir := filepath.Dir(filepath.Clean(f))
		for {
			rel, ok := relUnder(root, dir)
			if !ok {
				break
			}
			if scanned[rel] {
				out[rel] = true
			}
			if dir == root {
				break
			}
			next := filepath.Dir(dir)
			if next == dir {
				break
			}
			dir = next
		}
	}
	return out
}

// relUnder returns path's POSIX rel form under root, or false when path
// lies outside root.
func relUnder(root, path string) (string, bool) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "", false
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}
