package app

import (
	"context"
	"log/slog"
	"time"

	"layered/internal/core/errors"
	"layered/internal/data/history"
)

type runRecord struct {
	operation  string
	mode       string
	visited    int
	meaningful int
	counts     StatusCounts
	issues     int
	ok         bool
}

// recordRun stores a snapshot when a history store is configured. Failures
// are logged and never fail the operation being recorded.
func (a *App) recordRun(ctx context.Context, rec runRecord) {
	if a.history == nil {
		return
	}
	snapshot := history.Snapshot{
		Timestamp:      time.Now().UTC(),
		Root:           a.Root,
		Operation:      rec.operation,
		Mode:           rec.mode,
		DirsVisited:    rec.visited,
		MeaningfulDirs: rec.meaningful,
		Missing:        rec.counts.Missing,
		Incomplete:     rec.counts.Incomplete,
		Done:           rec.counts.Done,
		Issues:         rec.issues,
		OK:             rec.ok,
	}
	if a.revisions != nil {
		commit, err := a.revisions.HeadCommit(ctx, a.Root)
		if err != nil {
			slog.Debug("no commit for snapshot", "root", a.Root, "error", err)
		} else {
			snapshot.CommitHash = commit
		}
	}
	saved, err := a.history.SaveSnapshot(snapshot)
	if err != nil {
		slog.Warn("failed to record run", "operation", rec.operation, "error", err)
		return
	}
	slog.Debug("recorded run", "run_id", saved.RunID, "operation", rec.operation)
}

// History lists recorded runs for the root, newest first.
func (a *App) History(ctx context.Context, since time.Time, limit int) ([]history.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if a.history == nil {
		return nil, errors.New(errors.CodeValidationError, "history is disabled; set [history] enabled = true")
	}
	snapshots, err := a.history.LoadSnapshots(a.Root, since, limit)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "load history")
	}
	return snapshots, nil
}
