package changeset

import (
	"path/filepath"
	"sort"
	"strings"

	"layered/internal/engine/globs"
	"layered/internal/engine/tree"
)

// FilterOptions mirror the scan inputs so update mode selects the same
// files a full scan would.
type FilterOptions struct {
	Include     globs.List
	Ignore      globs.List
	Rules       tree.PruneRules
	SummaryFile string
}

// FilterChanged keeps the changed files that belong to the input tree under
// root. Summary-file edits, always-ignored segments, ignore matches and
// include misses are dropped. Files under a default-skip directory survive
// only when every such segment name is mentioned by an include pattern, so
// broad includes like "**/*.js" never pull dependency trees in.
func FilterChanged(root string, files []string, opts FilterOptions) []string {
	summary := opts.SummaryFile
	if summary == "" {
		summary = tree.DefaultSummaryFile
	}
	root = filepath.Clean(root)

	seen := make(map[string]bool, len(files))
	var out []string
	for _, f := range files {
		if !filepath.IsAbs(f) {
			f = filepath.Join(root, f)
		}
		f = filepath.Clean(f)
		if seen[f] || filepath.Base(f) == summary {
			continue
		}
		rel, ok := relUnder(root, f)
		if !ok || rel == "." {
			continue
		}
		parts := strings.Split(rel, "/")
		if !keepSegments(parts, opts) {
			continue
		}
		if opts.Ignore.Match(rel) {
			continue
		}
		if !opts.Include.Empty() && !opts.Include.Match(rel) {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

func keepSegments(parts []string, opts FilterOptions) bool {
	for _, part := range parts {
		if opts.Rules.AlwaysIgnore.Contains(part) {
			return false
		}
	}
	for _, part := range parts {
		if !opts.Rules.DefaultSkip.Contains(part) {
			continue
		}
		if opts.Include.Empty() || !opts.Include.MentionsName(part) {
			return false
		}
	}
	return true
}
