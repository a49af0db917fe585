// # internal/engine/changeset/git.go
package changeset

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"layered/internal/core/errors"
	"layered/internal/shared/util"
)

// IsGitAvailable reports whether the `git` binary is accessible via PATH.
func IsGitAvailable() bool {
	_, err := exec.LookPath("git")
	return err == nil
}

// GitSource lists changed files by shelling out to git.
type GitSource struct {
	binary string
}

func NewGitSource() *GitSource {
	return &GitSource{binary: "git"}
}

// RepoRoot returns the top level of the worktree containing start.
func (g *GitSource) RepoRoot(ctx context.Context, start string) (string, error) {
	out, err := g.run(ctx, start, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", errors.AddContext(err, errors.CtxPath, start)
	}
	top := strings.TrimSpace(out)
	if top == "" {
		return "", errors.ExternalTool("git rev-parse", fmt.Errorf("not a git worktree: %s", start))
	}
	if resolved, err := filepath.EvalSymlinks(top); err == nil {
		top = resolved
	}
	return filepath.Clean(top), nil
}

// ChangedFiles returns absolute paths of files changed in the worktree that
// contains root. With a base ref it diffs <ref>...HEAD; otherwise it unions
// staged, unstaged and untracked (non-ignored) files. Paths are not yet
// narrowed to root; see FilterChanged.
func (g *GitSource) ChangedFiles(ctx context.Context, root, baseRef string) ([]string, error) {
	repoRoot, err := g.RepoRoot(ctx, root)
	if err != nil {
		return nil, err
	}

	var commands [][]string
	if strings.TrimSpace(baseRef) != "" {
		commands = [][]string{{"diff", "--name-only", strings.TrimSpace(baseRef) + "...HEAD"}}
	} else {
		commands = [][]string{
			{"diff", "--name-only", "--cached"},
			{"diff", "--name-only"},
			{"ls-files", "--others", "--exclude-standard"},
		}
	}

	changed := make(map[string]bool)
	for _, args := range commands {
		out, err := g.run(ctx, repoRoot, args...)
		if err != nil {
			if baseRef != "" {
				err = errors.AddContext(err, errors.CtxRef, baseRef)
			}
			return nil, err
		}
		for _, line := range strings.Split(out, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			changed[filepath.Join(repoRoot, filepath.FromSlash(line))] = true
		}
	}

	return util.SortedStringKeys(changed), nil
}

// HeadCommit returns the full hash of HEAD for the worktree containing root.
func (g *GitSource) HeadCommit(ctx context.Context, root string) (string, error) {
	out, err := g.run(ctx, root, "rev-parse", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func (g *GitSource) run(ctx context.Context, dir string, args ...string) (string, error) {
	op := "git " + args[0]
	cmd := exec.CommandContext(ctx, g.binary, append([]string{"-C", dir, "-c", "core.quotePath=false"}, args...)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", errors.ExternalTool(op, fmt.Errorf("%w: %s", err, msg))
		}
		return "", errors.ExternalTool(op, err)
	}
	return stdout.String(), nil
}
