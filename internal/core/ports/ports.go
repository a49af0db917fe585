package ports

import (
	"context"
	"time"

	"layered/internal/data/history"
)

// ChangeSource lists changed files for update-mode planning.
type ChangeSource interface {
	// ChangedFiles returns absolute paths changed in the repository that
	// contains root, relative to baseRef when set.
	ChangedFiles(ctx context.Context, root, baseRef string) ([]string, error)
}

// RevisionSource resolves the current commit for run snapshots.
type RevisionSource interface {
	HeadCommit(ctx context.Context, root string) (string, error)
}

// HistoryStore abstracts snapshot persistence for plan/verify runs.
type HistoryStore interface {
	SaveSnapshot(snapshot history.Snapshot) (history.Snapshot, error)
	LoadSnapshots(root string, since time.Time, limit int) ([]history.Snapshot, error)
	Close() error
}
