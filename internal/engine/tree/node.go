package tree

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gobwas/glob"
)

// DefaultSummaryFile is the per-directory summary document name.
const DefaultSummaryFile = "AGENTS.md"

// DirNode is the one-hop view of a visited directory.
type DirNode struct {
	// Rel is "." for the root, otherwise a POSIX path without trailing slash.
	Rel   string
	Abs   string
	Depth int

	// OneHopSubdirs lists every immediate subdirectory as "name/", including
	// ones that are not descended into, so ledgers stay complete.
	OneHopSubdirs []string
	// OneHopFiles lists immediate filenames without the summary file.
	OneHopFiles []string
	// Children holds the rel paths actually descended into.
	Children []string
}

// NameSet matches directory base names. Entries with glob meta characters
// are compiled with gobwas/glob; everything else is an exact name.
type NameSet struct {
	names map[string]bool
	globs []glob.Glob
	raw   []string
}

func NewNameSet(entries []string) (NameSet, error) {
	set := NameSet{names: make(map[string]bool, len(entries))}
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		set.raw = append(set.raw, entry)
		if !strings.ContainsAny(entry, "*?[{") {
			set.names[entry] = true
			continue
		}
		g, err := glob.Compile(entry)
		if err != nil {
			return NameSet{}, fmt.Errorf("invalid directory name pattern %q: %w", entry, err)
		}
		set.globs = append(set.globs, g)
	}
	sort.Strings(set.raw)
	return set, nil
}

func MustNameSet(entries ...string) NameSet {
	set, err := NewNameSet(entries)
	if err != nil {
		panic(err)
	}
	return set
}

func (s NameSet) Contains(name string) bool {
	if s.names[name] {
		return true
	}
	for _, g := range s.globs {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// Entries returns the configured entries, sorted.
func (s NameSet) Entries() []string {
	return append([]string(nil), s.raw...)
}

// PruneRules are the two fixed directory-name sets the scanner consults
// before any include/ignore pattern.
type PruneRules struct {
	// AlwaysIgnore names are never listed and never descended into.
	AlwaysIgnore NameSet
	// DefaultSkip names are listed but only descended into when an include
	// pattern targets them.
	DefaultSkip NameSet
}

func DefaultAlwaysIgnore() []string {
	return []string{".git", ".hg", ".svn", ".cursor", ".claude", ".codex", "__pycache__"}
}

func DefaultSkipDescend() []string {
	return []string{"node_modules", "bower_components", "jspm_packages", "vendor"}
}

// DefaultPruneRules returns a fresh copy of the built-in rule sets.
func DefaultPruneRules() PruneRules {
	return PruneRules{
		AlwaysIgnore: MustNameSet(DefaultAlwaysIgnore()...),
		DefaultSkip:  MustNameSet(DefaultSkipDescend()...),
	}
}

// DirMatchPath is the form directories take when matched against globs.
func DirMatchPath(rel string) string {
	if rel == "." {
		return "./"
	}
	return rel + "/"
}

// FileMatchPath is the form files take when matched against globs.
func FileMatchPath(rel, name string) string {
	if rel == "." {
		return name
	}
	return rel + "/" + name
}

// Display renders rel the way plans and reports show it.
func Display(rel string) string {
	return DirMatchPath(rel)
}

func joinRel(parent, name string) string {
	if parent == "." {
		return name
	}
	return parent + "/" + name
}

func relDepth(rel string) int {
	if rel == "." {
		return 0
	}
	return strings.Count(rel, "/") + 1
}
