// # internal/engine/tree/scanner.go
package tree

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"layered/internal/core/errors"
	"layered/internal/engine/globs"
)

// Scanner walks a directory subtree into DirNode records. It holds no state
// between calls.
type Scanner struct {
	Rules       PruneRules
	SummaryFile string
}

func NewScanner(rules PruneRules, summaryFile string) *Scanner {
	if summaryFile == "" {
		summaryFile = DefaultSummaryFile
	}
	return &Scanner{Rules: rules, SummaryFile: summaryFile}
}

// Scan is Scanner.Scan with the built-in prune rules and summary filename.
func Scan(root string, include, ignore globs.List) (map[string]*DirNode, error) {
	return NewScanner(DefaultPruneRules(), DefaultSummaryFile).Scan(root, include, ignore)
}

// ResolveRoot returns the absolute, symlink-free form of root, or an
// INVALID_ROOT error when it is missing or not a directory.
func ResolveRoot(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", errors.InvalidRoot(root, err)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", errors.InvalidRoot(abs, err)
	}
	if !info.IsDir() {
		return "", errors.InvalidRoot(abs, nil)
	}
	return abs, nil
}

// Scan visits root and every directory the prune rules and ignore patterns
// allow, returning one node per visited directory keyed by rel path.
func (s *Scanner) Scan(root string, include, ignore globs.List) (map[string]*DirNode, error) {
	absRoot, err := ResolveRoot(root)
	if err != nil {
		return nil, err
	}

	nodes := make(map[string]*DirNode)
	if _, err := s.visit(nodes, absRoot, ".", include, ignore); err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeInternal, "read scan root"), errors.CtxRoot, absRoot)
	}
	return nodes, nil
}

func (s *Scanner) visit(nodes map[string]*DirNode, abs, rel string, include, ignore globs.List) (bool, error) {
	entries, err := os.ReadDir(abs)
	if err != nil {
		return false, err
	}

	var dirNames, fileNames []string
	for _, entry := range entries {
		name := entry.Name()
		if isDirEntry(abs, entry) {
			if s.Rules.AlwaysIgnore.Contains(name) {
				continue
			}
			dirNames = append(dirNames, name)
			continue
		}
		if name == s.SummaryFile {
			continue
		}
		fileNames = append(fileNames, name)
	}
	sort.Strings(dirNames)
	sort.Strings(fileNames)

	node := &DirNode{
		Rel:           rel,
		Abs:           abs,
		Depth:         relDepth(rel),
		OneHopSubdirs: make([]string, 0, len(dirNames)),
		OneHopFiles:   fileNames,
		Children:      []string{},
	}
	if node.OneHopFiles == nil {
		node.OneHopFiles = []string{}
	}
	for _, name := range dirNames {
		node.OneHopSubdirs = append(node.OneHopSubdirs, name+"/")
	}
	nodes[rel] = node

	for _, name := range dirNames {
		childRel := joinRel(rel, name)
		childAbs := filepath.Join(abs, name)
		if !s.shouldDescend(childAbs, childRel, name, include, ignore) {
			continue
		}
		// Unreadable subdirectories are skipped rather than failing the scan.
		if ok, _ := s.visit(nodes, childAbs, childRel, include, ignore); ok {
			node.Children = append(node.Children, childRel)
		}
	}
	return true, nil
}

func (s *Scanner) shouldDescend(abs, rel, name string, include, ignore globs.List) bool {
	if isSymlink(abs) {
		return false
	}
	dirPath := DirMatchPath(rel)
	if ignore.Match(dirPath) {
		return false
	}
	if s.Rules.DefaultSkip.Contains(name) {
		return !include.Empty() && (include.Match(dirPath) || include.MentionsName(name))
	}
	return true
}

func isDirEntry(parent string, entry fs.DirEntry) bool {
	if entry.IsDir() {
		return true
	}
	if entry.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(filepath.Join(parent, entry.Name()))
	return err == nil && info.IsDir()
}

func isSymlink(path string) bool {
	info, err := os.Lstat(path)
	return err == nil && info.Mode()&fs.ModeSymlink != 0
}
