package app

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"layered/internal/core/errors"
	"layered/internal/engine/summary"
	"layered/internal/shared/observability"
	"layered/internal/shared/util"
)

// findSummaries walks the root for summary files whose root-relative path
// passes ignore and include. Always-ignored directories are not entered.
func (a *App) findSummaries(ctx context.Context) ([]string, error) {
	var out []string
	err := filepath.WalkDir(a.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == a.Root {
				return err
			}
			slog.Debug("skipping unreadable path", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			if path != a.Root && a.rules.AlwaysIgnore.Contains(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() != a.Config.SummaryFile || !d.Type().IsRegular() {
			return nil
		}
		rel := a.relToRoot(path)
		if a.ignore.Match(rel) {
			return nil
		}
		if !a.include.Empty() && !a.include.Match(rel) {
			return nil
		}
		out = append(out, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}

type ExportRequest struct {
	Out       string
	Overwrite bool
}

type ExportResult struct {
	Src        string   `json:"src" yaml:"src"`
	Out        string   `json:"out" yaml:"out"`
	Files      []string `json:"files" yaml:"files"`
	TotalBytes int64    `json:"total_bytes" yaml:"total_bytes"`
	MinSize    int64    `json:"min_size" yaml:"min_size"`
	P50Size    int64    `json:"p50_size" yaml:"p50_size"`
	MaxSize    int64    `json:"max_size" yaml:"max_size"`
	// Empty lists zero-byte summaries in the source tree.
	Empty []string `json:"empty" yaml:"empty"`
}

// Export copies every selected summary file into Out, keeping paths
// relative to the root. The source tree is never modified.
func (a *App) Export(ctx context.Context, req ExportRequest) (*ExportResult, error) {
	start := time.Now()
	defer observeOperation("export", start)

	ctx, span := observability.Tracer.Start(ctx, "app.Export",
		trace.WithAttributes(attribute.String("out", req.Out)))
	defer span.End()

	if req.Out == "" {
		return nil, errors.New(errors.CodeValidationError, "export output directory is required")
	}
	out, err := filepath.Abs(req.Out)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeValidationError, "resolve export output directory")
	}
	if _, err := os.Stat(out); err == nil && !req.Overwrite {
		return nil, errors.AddContext(
			errors.New(errors.CodeConflict, "output already exists; choose a new path or pass --overwrite"),
			errors.CtxPath, out)
	}

	rels, err := a.findSummaries(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "find summaries")
	}
	if len(rels) == 0 {
		return nil, errors.AddContext(
			errors.New(errors.CodeNotFound, fmt.Sprintf("no %s files found", a.Config.SummaryFile)),
			errors.CtxRoot, a.Root)
	}
	if err := os.MkdirAll(out, 0o755); err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "create export directory")
	}

	res := &ExportResult{Src: a.Root, Out: out, Files: rels, Empty: []string{}}
	sizes := make([]int64, 0, len(rels))
	for _, rel := range rels {
		src := filepath.Join(a.Root, filepath.FromSlash(rel))
		dest := filepath.Join(out, filepath.FromSlash(rel))
		size, err := copySummary(src, dest)
		if err != nil {
			return nil, errors.AddContext(errors.Wrap(err, errors.CodeInternal, "copy summary"), errors.CtxPath, src)
		}
		sizes = append(sizes, size)
		res.TotalBytes += size
		if size == 0 {
			res.Empty = append(res.Empty, rel)
		}
	}
	sort.Slice(sizes, func(i, j int) bool { return sizes[i] < sizes[j] })
	res.MinSize = sizes[0]
	res.P50Size = sizes[len(sizes)/2]
	res.MaxSize = sizes[len(sizes)-1]
	for _, rel := range res.Empty {
		slog.Warn("empty summary in source", "path", rel)
	}
	return res, nil
}

func copySummary(src, dest string) (int64, error) {
	info, err := os.Stat(src)
	if err != nil {
		return 0, err
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return 0, err
	}
	if err := util.WriteFileWithDirs(dest, data, info.Mode().Perm()); err != nil {
		return 0, err
	}
	if err := os.Chtimes(dest, info.ModTime(), info.ModTime()); err != nil {
		return 0, err
	}
	return int64(len(data)), nil
}

type NormalizeRequest struct {
	Write bool
}

type NormalizeResult struct {
	Root         string              `json:"root" yaml:"root"`
	Write        bool                `json:"write" yaml:"write"`
	FilesScanned int                 `json:"files_scanned" yaml:"files_scanned"`
	WouldChange  []string            `json:"would_change" yaml:"would_change"`
	Changed      []string            `json:"changed" yaml:"changed"`
	Replaced     []summary.RuneCount `json:"replaced" yaml:"replaced"`
	Remaining    []summary.RuneCount `json:"remaining" yaml:"remaining"`
	// Unreadable files are skipped with a warning.
	Unreadable []string `json:"unreadable" yaml:"unreadable"`
}

// Normalize replaces typographic characters in every selected summary with
// ASCII stand-ins and reports what non-ASCII text would remain.
func (a *App) Normalize(ctx context.Context, req NormalizeRequest) (*NormalizeResult, error) {
	start := time.Now()
	defer observeOperation("normalize", start)

	ctx, span := observability.Tracer.Start(ctx, "app.Normalize",
		trace.WithAttributes(attribute.Bool("write", req.Write)))
	defer span.End()

	rels, err := a.findSummaries(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "find summaries")
	}
	if len(rels) == 0 {
		return nil, errors.AddContext(
			errors.New(errors.CodeNotFound, fmt.Sprintf("no %s files found", a.Config.SummaryFile)),
			errors.CtxRoot, a.Root)
	}

	res := &NormalizeResult{
		Root:        a.Root,
		Write:       req.Write,
		WouldChange: []string{},
		Changed:     []string{},
		Unreadable:  []string{},
	}
	replaced := make(map[rune]int)
	remaining := make(map[rune]int)
	for _, rel := range rels {
		path := filepath.Join(a.Root, filepath.FromSlash(rel))
		res.FilesScanned++
		data, err := os.ReadFile(path)
		if err != nil {
			slog.Warn("failed to read summary", "path", path, "error", err)
			res.Unreadable = append(res.Unreadable, rel)
			continue
		}
		text := string(data)
		normalized, counts := summary.NormalizeASCII(text)
		summary.MergeCounts(replaced, counts)
		summary.MergeCounts(remaining, summary.NonASCII(normalized))
		if normalized == text {
			continue
		}
		res.WouldChange = append(res.WouldChange, rel)
		if !req.Write {
			continue
		}
		if err := util.LockAndWrite(a.lockPath, path, []byte(normalized)); err != nil {
			return nil, errors.AddContext(errors.Wrap(err, errors.CodeInternal, "write normalized summary"), errors.CtxPath, path)
		}
		res.Changed = append(res.Changed, rel)
		observability.SummaryWritesTotal.WithLabelValues("normalize").Inc()
	}
	res.Replaced = summary.SortCounts(replaced)
	res.Remaining = summary.SortCounts(remaining)
	return res, nil
}
