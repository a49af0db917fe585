package tree

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"layered/internal/core/errors"
	"layered/internal/engine/globs"
)

func TestScan_OneHopViewAndChildren(t *testing.T) {
	root := t.TempDir()
	makeTree(t, root,
		"README.md",
		"AGENTS.md",
		"src/main.go",
		"src/AGENTS.md",
		"src/util/strings.go",
		"b.txt",
		".git/HEAD",
		"__pycache__/x.pyc",
		"node_modules/left-pad/index.js",
	)

	nodes, err := Scan(root, nil, nil)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}

	rootNode := nodes["."]
	if rootNode == nil {
		t.Fatal("expected root node keyed by \".\"")
	}
	if rootNode.Depth != 0 {
		t.Errorf("root depth = %d", rootNode.Depth)
	}
	if !equalStrings(rootNode.OneHopFiles, []string{"README.md", "b.txt"}) {
		t.Errorf("root files = %v", rootNode.OneHopFiles)
	}
	if !equalStrings(rootNode.OneHopSubdirs, []string{"node_modules/", "src/"}) {
		t.Errorf("root subdirs = %v", rootNode.OneHopSubdirs)
	}
	if !equalStrings(rootNode.Children, []string{"src"}) {
		t.Errorf("root children = %v", rootNode.Children)
	}

	src := nodes["src"]
	if src == nil || src.Depth != 1 || !equalStrings(src.OneHopFiles, []string{"main.go"}) {
		t.Fatalf("unexpected src node: %+v", src)
	}
	if util := nodes["src/util"]; util == nil || util.Depth != 2 {
		t.Fatalf("unexpected src/util node: %+v", util)
	}

	for _, rel := range []string{".git", "__pycache__", "node_modules", "node_modules/left-pad"} {
		if _, ok := nodes[rel]; ok {
			t.Errorf("%s must not be visited", rel)
		}
	}
	if len(nodes) != 3 {
		t.Errorf("expected 3 visited dirs, got %d", len(nodes))
	}
}

func TestScan_ChildrenSubsetOfVisited(t *testing.T) {
	root := t.TempDir()
	makeTree(t, root, "a/b/c/d.txt", "a/x/", "vendor/v.go", "build/out.o")

	nodes, err := Scan(root, nil, globs.ParseCSV("**/build/**"))
	if err != nil {
		t.Fatal(err)
	}
	for rel, n := range nodes {
		subdirs := map[string]bool{}
		for _, s := range n.OneHopSubdirs {
			subdirs[s] = true
		}
		for _, ch := range n.Children {
			if _, ok := nodes[ch]; !ok {
				t.Errorf("%s: child %s was not visited", rel, ch)
			}
			if !subdirs[filepath.Base(ch)+"/"] {
				t.Errorf("%s: child %s missing from one-hop subdirs", rel, ch)
			}
		}
	}
	if _, ok := nodes["build"]; ok {
		t.Error("ignored directory must not be descended into")
	}
	if !equalStrings(nodes["."].OneHopSubdirs, []string{"a/", "build/", "vendor/"}) {
		t.Errorf("ignored and skipped dirs stay in the ledger, got %v", nodes["."].OneHopSubdirs)
	}
}

func TestScan_DefaultSkipUnprunedByInclude(t *testing.T) {
	root := t.TempDir()
	makeTree(t, root, "node_modules/pkg/index.js", "src/app.js")

	tests := []struct {
		name    string
		include string
		ignore  string
		descend bool
	}{
		{name: "no include", descend: false},
		{name: "broad wildcard", include: "**/*.js", descend: false},
		{name: "direct match", include: "node_modules/", descend: true},
		{name: "mentions name", include: "node_modules/pkg/*.js", descend: true},
		{name: "ignore wins", include: "node_modules/**", ignore: "node_modules/", descend: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nodes, err := Scan(root, globs.ParseCSV(tt.include), globs.ParseCSV(tt.ignore))
			if err != nil {
				t.Fatal(err)
			}
			_, visited := nodes["node_modules"]
			if visited != tt.descend {
				t.Errorf("node_modules visited = %v, want %v", visited, tt.descend)
			}
			if !equalStrings(nodes["."].OneHopSubdirs, []string{"node_modules/", "src/"}) {
				t.Errorf("ledger changed: %v", nodes["."].OneHopSubdirs)
			}
		})
	}
}

func TestScan_CustomRulesAndSummaryFile(t *testing.T) {
	root := t.TempDir()
	makeTree(t, root, "SUMMARY.md", "AGENTS.md", "dist/x.js", "pkg.egg-info/PKG-INFO", "lib/a.py")

	rules := PruneRules{
		AlwaysIgnore: MustNameSet("*.egg-info"),
		DefaultSkip:  MustNameSet("dist"),
	}
	nodes, err := NewScanner(rules, "SUMMARY.md").Scan(root, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !equalStrings(nodes["."].OneHopFiles, []string{"AGENTS.md"}) {
		t.Errorf("files = %v", nodes["."].OneHopFiles)
	}
	if !equalStrings(nodes["."].OneHopSubdirs, []string{"dist/", "lib/"}) {
		t.Errorf("subdirs = %v", nodes["."].OneHopSubdirs)
	}
	if !equalStrings(nodes["."].Children, []string{"lib"}) {
		t.Errorf("children = %v", nodes["."].Children)
	}
}

func TestScan_InvalidRoot(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	for _, root := range []string{filepath.Join(dir, "missing"), file} {
		_, err := Scan(root, nil, nil)
		if !errors.IsCode(err, errors.CodeInvalidRoot) {
			t.Errorf("Scan(%s): expected INVALID_ROOT, got %v", root, err)
		}
	}
}

func TestScan_SymlinkedDirListedNotDescended(t *testing.T) {
	root := t.TempDir()
	makeTree(t, root, "real/a.txt")
	if err := os.Symlink(filepath.Join(root, "real"), filepath.Join(root, "link")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	nodes, err := Scan(root, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !equalStrings(nodes["."].OneHopSubdirs, []string{"link/", "real/"}) {
		t.Errorf("subdirs = %v", nodes["."].OneHopSubdirs)
	}
	if _, ok := nodes["link"]; ok {
		t.Error("symlinked directory must not be descended into")
	}
}

func TestScanClassify_Idempotent(t *testing.T) {
	root := t.TempDir()
	makeTree(t, root, "a/1.txt", "a/b/2.txt", "c/", "d/e/f/3.md", "node_modules/x.js")
	include := globs.ParseCSV("**/*.txt,d/**")
	ignore := globs.ParseCSV("a/b/")

	first, err := Scan(root, include, ignore)
	if err != nil {
		t.Fatal(err)
	}
	second, err := Scan(root, include, ignore)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("scan is not deterministic")
	}
	if !reflect.DeepEqual(Classify(first, include, ignore), Classify(second, include, ignore)) {
		t.Error("classify is not deterministic")
	}
}
