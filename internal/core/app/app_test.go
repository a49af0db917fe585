package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"layered/internal/core/config"
	"layered/internal/core/errors"
	"layered/internal/data/history"
	"layered/internal/engine/summary"
	"layered/internal/engine/tree"
)

type fakeChanges struct {
	files []string
	err   error
	ref   string
}

func (f *fakeChanges) ChangedFiles(_ context.Context, _ string, baseRef string) ([]string, error) {
	f.ref = baseRef
	return f.files, f.err
}

type fakeRevisions struct{}

func (fakeRevisions) HeadCommit(context.Context, string) (string, error) {
	return "0123456789abcdef0123456789abcdef01234567", nil
}

// writeTree creates files under root; names ending in "/" are directories.
func writeTree(t *testing.T, root string, entries ...string) {
	t.Helper()
	for _, e := range entries {
		p := filepath.Join(root, filepath.FromSlash(e))
		if strings.HasSuffix(e, "/") {
			require.NoError(t, os.MkdirAll(p, 0o755))
			continue
		}
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("content of "+e+"\n"), 0o644))
	}
}

func newFixture(t *testing.T, opts ...Option) *App {
	t.Helper()
	root := t.TempDir()
	writeTree(t, root,
		"docs/guide.md",
		"docs/sub/",
		"vendor/lib.js",
		"src/main.go",
		"src/pkg/util.go",
	)
	cfg := config.Default()
	cfg.Watch.Debounce = 50 * time.Millisecond
	cfg.Watch.MaxReplansPerSecond = 0

	opts = append([]Option{
		WithLockPath(filepath.Join(t.TempDir(), "write.lock")),
		WithRevisionSource(fakeRevisions{}),
	}, opts...)
	a, err := New(cfg, root, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func displays(entries []PlanEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Display)
	}
	return out
}

func TestNew_InvalidRoot(t *testing.T) {
	_, err := New(config.Default(), filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeInvalidRoot), "got %v", err)

	file := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	_, err = New(config.Default(), file)
	assert.True(t, errors.IsCode(err, errors.CodeInvalidRoot), "got %v", err)
}

func TestPlan_Full(t *testing.T) {
	a := newFixture(t)

	plan, err := a.Plan(context.Background(), PlanRequest{Mode: PlanFull})
	require.NoError(t, err)

	assert.Equal(t, a.Root, plan.Root)
	assert.Equal(t, 4, plan.DirsPlanned)
	assert.Equal(t, StatusCounts{Missing: 4}, plan.Counts)

	require.Len(t, plan.Waves, 3)
	assert.Equal(t, 2, plan.Waves[0].Depth)
	assert.Equal(t, []string{"src/pkg/"}, displays(plan.Waves[0].Dirs))
	assert.Equal(t, []string{"docs/", "src/"}, displays(plan.Waves[1].Dirs))
	assert.Equal(t, []string{"./"}, displays(plan.Waves[2].Dirs))

	kinds := map[string]tree.Kind{}
	for _, e := range plan.Entries() {
		kinds[e.Path] = e.Kind
		assert.Equal(t, summary.StatusMissing, e.Status)
	}
	assert.Equal(t, tree.KindAggregatorOnly, kinds["."])
	assert.Equal(t, tree.KindLeaf, kinds["docs"])
	assert.Equal(t, tree.KindNonLeaf, kinds["src"])
	assert.NotContains(t, kinds, "vendor")
	assert.NotContains(t, kinds, "docs/sub")
}

func TestPlan_IncludeIgnore(t *testing.T) {
	a := newFixture(t)
	a.Config.Filter.Ignore = "src/pkg/**"
	a.ignore = a.Config.IgnoreList()

	plan, err := a.Plan(context.Background(), PlanRequest{})
	require.NoError(t, err)
	assert.Equal(t, PlanFull, plan.Mode)
	assert.ElementsMatch(t, []string{"src/", "docs/", "./"}, displays(plan.Entries()))
}

func TestPlan_Update(t *testing.T) {
	changes := &fakeChanges{}
	a := newFixture(t, WithChangeSource(changes))
	changes.files = []string{
		filepath.Join(a.Root, "src", "pkg", "util.go"),
		filepath.Join(a.Root, "docs", "AGENTS.md"),
		filepath.Join(a.Root, "vendor", "lib.js"),
		"/elsewhere/file.go",
	}

	plan, err := a.Plan(context.Background(), PlanRequest{Mode: PlanUpdate, BaseRef: "origin/main"})
	require.NoError(t, err)
	assert.Equal(t, "origin/main", changes.ref)
	assert.Equal(t, []string{filepath.Join(a.Root, "src", "pkg", "util.go")}, plan.ChangedFiles)
	assert.Equal(t, []string{"src/pkg/", "src/", "./"}, displays(plan.Entries()))
	assert.Equal(t, 3, plan.DirsPlanned)
}

func TestPlan_UpdateExternalToolError(t *testing.T) {
	a := newFixture(t, WithChangeSource(&fakeChanges{err: fmt.Errorf("not a git repository")}))

	_, err := a.Plan(context.Background(), PlanRequest{Mode: PlanUpdate})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeExternalTool), "got %v", err)

	// Full mode never consults the change source.
	_, err = a.Plan(context.Background(), PlanRequest{Mode: PlanFull})
	assert.NoError(t, err)
}

func TestParsePlanMode(t *testing.T) {
	m, err := ParsePlanMode("UPDATE")
	require.NoError(t, err)
	assert.Equal(t, PlanUpdate, m)

	m, err = ParsePlanMode("")
	require.NoError(t, err)
	assert.Equal(t, PlanFull, m)

	_, err = ParsePlanMode("partial")
	assert.True(t, errors.IsCode(err, errors.CodeValidationError))
}

func TestScaffoldThenVerify(t *testing.T) {
	a := newFixture(t)
	ctx := context.Background()

	dry, err := a.Scaffold(ctx, ScaffoldRequest{})
	require.NoError(t, err)
	want := []string{"AGENTS.md", "docs/AGENTS.md", "src/AGENTS.md", "src/pkg/AGENTS.md"}
	assert.Equal(t, want, dry.WouldCreate)
	assert.Empty(t, dry.Created)
	assert.NoFileExists(t, filepath.Join(a.Root, "AGENTS.md"))

	report, err := a.Verify(ctx, VerifyRequest{})
	require.NoError(t, err)
	assert.False(t, report.OK())
	assert.Equal(t, want, report.MissingSummaries)

	written, err := a.Scaffold(ctx, ScaffoldRequest{Write: true})
	require.NoError(t, err)
	assert.Equal(t, want, written.Created)

	rootStub, err := os.ReadFile(filepath.Join(a.Root, "AGENTS.md"))
	require.NoError(t, err)
	assert.Contains(t, string(rootStub), "- [ ] `vendor/` - [TBD]")
	assert.Contains(t, string(rootStub), "# "+filepath.Base(a.Root))

	docsStub, err := os.ReadFile(filepath.Join(a.Root, "docs", "AGENTS.md"))
	require.NoError(t, err)
	assert.Contains(t, string(docsStub), "- [ ] `sub/` - [TBD]")
	assert.Contains(t, string(docsStub), "- `guide.md` - [TBD]")

	again, err := a.Scaffold(ctx, ScaffoldRequest{Write: true})
	require.NoError(t, err)
	assert.Empty(t, again.WouldCreate, "scaffold must be create-only")

	report, err = a.Verify(ctx, VerifyRequest{})
	require.NoError(t, err)
	assert.True(t, report.OK(), "fresh stubs pass non-strict verification: %+v", report)

	strict, err := a.Verify(ctx, VerifyRequest{Strict: true})
	require.NoError(t, err)
	assert.False(t, strict.OK())
	assert.Len(t, strict.Incomplete, 4)

	plan, err := a.Plan(ctx, PlanRequest{})
	require.NoError(t, err)
	assert.Equal(t, StatusCounts{Incomplete: 4}, plan.Counts)
}

func TestVerify_LedgerAndASCII(t *testing.T) {
	a := newFixture(t)
	ctx := context.Background()
	_, err := a.Scaffold(ctx, ScaffoldRequest{Write: true})
	require.NoError(t, err)

	docs := strings.Join([]string{
		"# docs",
		"",
		"Guides for users — start here.",
		"",
		"### Subdirectories",
		"- [x] `extra/` - gone",
		"",
		"### Files",
		"- `guide.md` - the guide",
		"",
	}, "\n")
	require.NoError(t, os.WriteFile(filepath.Join(a.Root, "docs", "AGENTS.md"), []byte(docs), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(a.Root, "src", "pkg", "AGENTS.md"), []byte("# pkg\n\nDone.\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(a.Root, "src", "AGENTS.md"), []byte("# src\n\nNo ledger.\n"), 0o644))

	report, err := a.Verify(ctx, VerifyRequest{Strict: true})
	require.NoError(t, err)

	require.Len(t, report.NonASCIIFiles, 1)
	assert.Equal(t, "docs/AGENTS.md", report.NonASCIIFiles[0].Path)
	assert.Equal(t, "U+2014x1", report.NonASCIIFiles[0].Summary)

	require.Len(t, report.LedgerMismatches, 2)
	byPath := map[string]LedgerMismatch{}
	for _, m := range report.LedgerMismatches {
		byPath[m.Path] = m
	}
	assert.Equal(t, []string{"sub/"}, byPath["docs/AGENTS.md"].Missing)
	assert.Equal(t, []string{"extra/"}, byPath["docs/AGENTS.md"].Extra)
	assert.True(t, byPath["src/AGENTS.md"].MissingSection)
	assert.Equal(t, 1, byPath["src/AGENTS.md"].Expected)
	assert.Contains(t, byPath["src/AGENTS.md"].String(), "missing '### Subdirectories' section")

	// A leaf without subdirectories needs no ledger section.
	assert.NotContains(t, byPath, "src/pkg/AGENTS.md")

	incomplete := map[string]bool{}
	for _, f := range report.Incomplete {
		incomplete[f.Path] = true
	}
	assert.True(t, incomplete["AGENTS.md"])
	assert.False(t, incomplete["src/pkg/AGENTS.md"])
}

func TestExport(t *testing.T) {
	a := newFixture(t)
	ctx := context.Background()

	_, err := a.Export(ctx, ExportRequest{Out: filepath.Join(t.TempDir(), "none")})
	assert.True(t, errors.IsCode(err, errors.CodeNotFound), "got %v", err)

	_, err = a.Scaffold(ctx, ScaffoldRequest{Write: true})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(a.Root, "src", "pkg", "AGENTS.md"), nil, 0o644))

	out := filepath.Join(t.TempDir(), "export")
	res, err := a.Export(ctx, ExportRequest{Out: out})
	require.NoError(t, err)
	assert.Equal(t, []string{"AGENTS.md", "docs/AGENTS.md", "src/AGENTS.md", "src/pkg/AGENTS.md"}, res.Files)
	assert.Equal(t, []string{"src/pkg/AGENTS.md"}, res.Empty)
	assert.Equal(t, int64(0), res.MinSize)
	assert.True(t, res.MaxSize >= res.P50Size)
	assert.FileExists(t, filepath.Join(out, "docs", "AGENTS.md"))

	_, err = a.Export(ctx, ExportRequest{Out: out})
	assert.True(t, errors.IsCode(err, errors.CodeConflict), "got %v", err)

	_, err = a.Export(ctx, ExportRequest{Out: out, Overwrite: true})
	assert.NoError(t, err)
}

func TestNormalize(t *testing.T) {
	a := newFixture(t)
	ctx := context.Background()
	path := filepath.Join(a.Root, "docs", "AGENTS.md")
	require.NoError(t, os.WriteFile(path, []byte("a — b → c café\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(a.Root, "AGENTS.md"), []byte("plain\n"), 0o644))

	dry, err := a.Normalize(ctx, NormalizeRequest{})
	require.NoError(t, err)
	assert.Equal(t, 2, dry.FilesScanned)
	assert.Equal(t, []string{"docs/AGENTS.md"}, dry.WouldChange)
	assert.Empty(t, dry.Changed)
	require.Len(t, dry.Remaining, 1)
	assert.Equal(t, "U+00E9", dry.Remaining[0].Code())
	assert.Len(t, dry.Replaced, 2)

	data, _ := os.ReadFile(path)
	assert.Contains(t, string(data), "—", "dry-run must not modify files")

	res, err := a.Normalize(ctx, NormalizeRequest{Write: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"docs/AGENTS.md"}, res.Changed)
	data, _ = os.ReadFile(path)
	assert.Equal(t, "a - b -> c café\n", string(data))
}

func TestHistory(t *testing.T) {
	store, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	a := newFixture(t, WithHistoryStore(store))
	ctx := context.Background()

	_, err = a.Plan(ctx, PlanRequest{})
	require.NoError(t, err)
	_, err = a.Verify(ctx, VerifyRequest{})
	require.NoError(t, err)

	runs, err := a.History(ctx, time.Time{}, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	ops := map[string]history.Snapshot{}
	for _, r := range runs {
		ops[r.Operation] = r
		assert.Equal(t, a.Root, r.Root)
		assert.NotEmpty(t, r.RunID)
		assert.Len(t, r.CommitHash, 40)
	}
	assert.Equal(t, 4, ops["plan"].Missing)
	assert.True(t, ops["plan"].OK)
	assert.False(t, ops["verify"].OK)
	assert.Equal(t, 4, ops["verify"].Issues)

	noHistory := newFixture(t)
	_, err = noHistory.History(ctx, time.Time{}, 0)
	assert.True(t, errors.IsCode(err, errors.CodeValidationError))
}

func TestWatch_ReplansOnChange(t *testing.T) {
	a := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())

	plans := make(chan *Plan, 16)
	done := make(chan error, 1)
	go func() {
		done <- a.Watch(ctx, PlanRequest{}, func(p *Plan, err error) {
			if err == nil {
				plans <- p
			}
		})
	}()

	select {
	case p := <-plans:
		assert.Equal(t, 4, p.DirsPlanned)
	case <-time.After(2 * time.Second):
		t.Fatal("no initial plan")
	}

	// Give the watcher time to register before changing the tree.
	time.Sleep(200 * time.Millisecond)
	writeTree(t, a.Root, "lib/x.go")

	deadline := time.After(3 * time.Second)
	for found := false; !found; {
		select {
		case p := <-plans:
			for _, e := range p.Entries() {
				if e.Path == "lib" {
					found = true
				}
			}
		case <-deadline:
			t.Fatal("no re-plan including lib/")
		}
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}
}
