package integration

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"layered/internal/core/app"
	"layered/internal/core/config"
	"layered/internal/data/history"
	"layered/internal/engine/changeset"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func git(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", append([]string{"-C", dir}, args...)...)
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=test", "GIT_AUTHOR_EMAIL=test@example.com",
		"GIT_COMMITTER_NAME=test", "GIT_COMMITTER_EMAIL=test@example.com",
	)
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %v\n%s", args, out)
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

func createTestRepo(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		root = resolved
	}
	git(t, root, "init", "-q")
	writeFile(t, root, "go.mod", "module test-project\n\ngo 1.24\n")
	writeFile(t, root, "cmd/tool/main.go", "package main\n\nfunc main() {}\n")
	writeFile(t, root, "pkg/api/api.go", "package api\n")
	writeFile(t, root, "pkg/api/v1/types.go", "package v1\n")
	writeFile(t, root, "docs/index.md", "# Docs\n")
	writeFile(t, root, "node_modules/left-pad/index.js", "module.exports = 1\n")
	return root
}

func newApp(t *testing.T, root string, opts ...app.Option) *app.App {
	t.Helper()
	opts = append([]app.Option{app.WithLockPath(filepath.Join(t.TempDir(), "write.lock"))}, opts...)
	a, err := app.New(config.Default(), root, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func displays(p *app.Plan) []string {
	var out []string
	for _, e := range p.Entries() {
		out = append(out, e.Display)
	}
	return out
}

func TestFullPipelineIntegration(t *testing.T) {
	if !changeset.IsGitAvailable() {
		t.Skip("git not available")
	}
	ctx := context.Background()
	root := createTestRepo(t)

	store, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	a := newApp(t, root, app.WithHistoryStore(store))

	// Summaries are scaffolded and committed with the code.
	scaffold, err := a.Scaffold(ctx, app.ScaffoldRequest{Write: true})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		"AGENTS.md",
		"cmd/AGENTS.md",
		"cmd/tool/AGENTS.md",
		"docs/AGENTS.md",
		"pkg/AGENTS.md",
		"pkg/api/AGENTS.md",
		"pkg/api/v1/AGENTS.md",
	}, scaffold.Created)
	assert.NoFileExists(t, filepath.Join(root, "node_modules", "AGENTS.md"))

	report, err := a.Verify(ctx, app.VerifyRequest{})
	require.NoError(t, err)
	assert.True(t, report.OK(), "fresh stubs verify: %+v", report)

	git(t, root, "add", ".")
	git(t, root, "commit", "-q", "-m", "init")

	// Nothing changed yet.
	plan, err := a.Plan(ctx, app.PlanRequest{Mode: app.PlanUpdate})
	require.NoError(t, err)
	assert.Zero(t, plan.DirsPlanned)

	// A working tree edit selects its directory and every ancestor.
	writeFile(t, root, "pkg/api/v1/types.go", "package v1\n\ntype ID string\n")
	writeFile(t, root, "docs/AGENTS.md", "# docs\n\nEdited summary only.\n")
	writeFile(t, root, "node_modules/left-pad/index.js", "module.exports = 2\n")

	plan, err = a.Plan(ctx, app.PlanRequest{Mode: app.PlanUpdate})
	require.NoError(t, err)
	assert.Equal(t, []string{"pkg/api/v1/", "pkg/api/", "pkg/", "./"}, displays(plan))
	assert.Equal(t, []string{filepath.Join(root, "pkg", "api", "v1", "types.go")}, plan.ChangedFiles)
	require.Len(t, plan.Waves, 4)
	assert.Equal(t, 3, plan.Waves[0].Depth)

	// Committed changes are found through the base ref.
	git(t, root, "add", ".")
	git(t, root, "commit", "-q", "-m", "types")
	writeFile(t, root, "cmd/tool/flags.go", "package main\n")

	plan, err = a.Plan(ctx, app.PlanRequest{Mode: app.PlanUpdate, BaseRef: "HEAD~1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"pkg/api/v1/", "pkg/api/", "pkg/", "./"}, displays(plan))

	plan, err = a.Plan(ctx, app.PlanRequest{Mode: app.PlanUpdate})
	require.NoError(t, err)
	assert.Equal(t, []string{"cmd/tool/", "cmd/", "./"}, displays(plan))

	// Runs are recorded against the current commit.
	runs, err := a.History(ctx, time.Time{}, 0)
	require.NoError(t, err)
	require.Len(t, runs, 6)
	assert.Len(t, runs[0].CommitHash, 40)
	assert.Equal(t, "plan", runs[0].Operation)
	assert.Equal(t, "update", runs[0].Mode)
}

func TestUpdateModeOutsideRepo(t *testing.T) {
	if !changeset.IsGitAvailable() {
		t.Skip("git not available")
	}
	root := t.TempDir()
	t.Setenv("GIT_CEILING_DIRECTORIES", filepath.Dir(root))
	writeFile(t, root, "main.go", "package main\n")

	a := newApp(t, root)
	_, err := a.Plan(context.Background(), app.PlanRequest{Mode: app.PlanUpdate})
	require.Error(t, err)
}
