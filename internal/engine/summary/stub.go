package summary

import (
	"fmt"
	"path"
	"strings"
)

// Stub is the input to RenderStub.
type Stub struct {
	Title   string
	Subdirs []string
	Files   []string
	// Generator names the tool in the stub's notes.
	Generator string
}

// TitleFor is the heading used for rel: the root's base name, else the last
// rel segment.
func TitleFor(rootName, rel string) string {
	if rel == "." {
		if rootName == "" {
			return "root"
		}
		return rootName
	}
	return path.Base(rel)
}

// RenderStub renders an obviously incomplete summary so nothing treats it
// as done. The "### Subdirectories" section is the ledger the verifier
// compares against the filesystem.
func RenderStub(s Stub) string {
	generator := s.Generator
	if generator == "" {
		generator = "layered scaffold"
	}

	lines := []string{
		"# " + s.Title,
		"",
		"## Purpose",
		"[TBD]",
		"",
		"## Contents (one hop)",
		"### Subdirectories",
	}
	if len(s.Subdirs) == 0 {
		lines = append(lines, "- (none)")
	}
	for _, d := range s.Subdirs {
		lines = append(lines, fmt.Sprintf("- [ ] `%s` - [TBD]", d))
	}

	lines = append(lines, "", "### Files")
	if len(s.Files) == 0 {
		lines = append(lines, "- (none)")
	}
	for _, f := range s.Files {
		lines = append(lines, fmt.Sprintf("- `%s` - [TBD]", f))
	}

	lines = append(lines,
		"",
		"## Key APIs (no snippets)",
		"- [TBD]",
		"",
		"## Relationships",
		"- [TBD]",
		"",
		"## Notes",
		fmt.Sprintf("- [TBD stub created by %s]", generator),
		"",
	)
	return strings.Join(lines, "\n")
}
