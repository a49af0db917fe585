package app

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"layered/internal/core/errors"
	"layered/internal/engine/summary"
	"layered/internal/engine/tree"
	"layered/internal/shared/observability"
	"layered/internal/shared/util"
)

type ScaffoldRequest struct {
	// Write creates files; otherwise the run only reports what it would do.
	Write bool
}

type ScaffoldResult struct {
	Root           string   `json:"root" yaml:"root"`
	Write          bool     `json:"write" yaml:"write"`
	MeaningfulDirs int      `json:"meaningful_dirs" yaml:"meaningful_dirs"`
	WouldCreate    []string `json:"would_create" yaml:"would_create"`
	Created        []string `json:"created" yaml:"created"`
}

// Scaffold creates stub summaries for meaningful directories that have none.
// Existing files are never touched. Paths in the result are root-relative.
func (a *App) Scaffold(ctx context.Context, req ScaffoldRequest) (*ScaffoldResult, error) {
	start := time.Now()
	defer observeOperation("scaffold", start)

	ctx, span := observability.Tracer.Start(ctx, "app.Scaffold",
		trace.WithAttributes(attribute.Bool("write", req.Write)))
	defer span.End()

	an, err := a.Analyze(ctx)
	if err != nil {
		return nil, err
	}

	res := &ScaffoldResult{
		Root:           a.Root,
		Write:          req.Write,
		MeaningfulDirs: len(an.Meaningful),
		WouldCreate:    []string{},
		Created:        []string{},
	}
	rootName := filepath.Base(a.Root)
	for _, rel := range an.Meaningful {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		node := an.Nodes[rel]
		path := a.summaryPath(node)
		if _, err := os.Lstat(path); err == nil {
			continue
		}
		relPath := a.relToRoot(path)
		res.WouldCreate = append(res.WouldCreate, relPath)
		if !req.Write {
			continue
		}

		stub := summary.RenderStub(summary.Stub{
			Title:   summary.TitleFor(rootName, rel),
			Subdirs: tree.ExpectedSubdirs(an.Nodes, rel),
			Files:   tree.SelectedFiles(an.Nodes, rel, a.include, a.ignore),
		})
		created, err := util.CreateExclusive(a.lockPath, path, []byte(stub))
		if err != nil {
			span.RecordError(err)
			return res, errors.AddContext(
				errors.Wrap(err, errors.CodeInternal, "write summary stub"),
				errors.CtxPath, path)
		}
		if created {
			res.Created = append(res.Created, relPath)
			observability.SummaryWritesTotal.WithLabelValues("scaffold").Inc()
		}
	}

	a.recordRun(ctx, runRecord{
		operation:  "scaffold",
		mode:       scaffoldMode(req.Write),
		visited:    len(an.Nodes),
		meaningful: len(an.Meaningful),
		counts:     StatusCounts{Missing: len(res.WouldCreate)},
		ok:         true,
	})
	return res, nil
}

func scaffoldMode(write bool) string {
	if write {
		return "write"
	}
	return "dry-run"
}

func (a *App) relToRoot(path string) string {
	rel, err := filepath.Rel(a.Root, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}
