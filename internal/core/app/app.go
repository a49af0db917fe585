// Package app holds the use cases behind the CLI: planning, scaffolding,
// verification, export, ASCII normalization, watch mode and run history.
package app

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"layered/internal/core/config"
	"layered/internal/core/errors"
	"layered/internal/core/ports"
	"layered/internal/engine/changeset"
	"layered/internal/engine/globs"
	"layered/internal/engine/summary"
	"layered/internal/engine/tree"
	"layered/internal/shared/observability"
)

type App struct {
	Config *config.Config
	// Root is the absolute, symlink-resolved scan root.
	Root string

	include globs.List
	ignore  globs.List
	rules   tree.PruneRules
	scanner *tree.Scanner
	ledger  *summary.LedgerParser

	changes   ports.ChangeSource
	revisions ports.RevisionSource
	history   ports.HistoryStore

	lockPath string
}

type Option func(*App)

// WithChangeSource replaces git as the source of changed files.
func WithChangeSource(src ports.ChangeSource) Option {
	return func(a *App) { a.changes = src }
}

func WithRevisionSource(src ports.RevisionSource) Option {
	return func(a *App) { a.revisions = src }
}

// WithHistoryStore enables snapshot recording for plan, scaffold and verify.
func WithHistoryStore(store ports.HistoryStore) Option {
	return func(a *App) { a.history = store }
}

// WithLockPath overrides the lock file guarding summary writes.
func WithLockPath(path string) Option {
	return func(a *App) { a.lockPath = path }
}

func New(cfg *config.Config, root string, opts ...Option) (*App, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	resolved, err := tree.ResolveRoot(root)
	if err != nil {
		return nil, err
	}
	rules, err := cfg.PruneRules()
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeValidationError, "invalid prune rules")
	}

	git := changeset.NewGitSource()
	a := &App{
		Config:    cfg,
		Root:      resolved,
		include:   cfg.IncludeList(),
		ignore:    cfg.IgnoreList(),
		rules:     rules,
		scanner:   tree.NewScanner(rules, cfg.SummaryFile),
		ledger:    summary.NewLedgerParser(),
		changes:   git,
		revisions: git,
		lockPath:  defaultLockPath(resolved),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

func defaultLockPath(root string) string {
	sum := sha256.Sum256([]byte(root))
	return filepath.Join(config.StateDir(), "locks", hex.EncodeToString(sum[:8])+".lock")
}

// Close releases the history store, if any.
func (a *App) Close() error {
	if a.history == nil {
		return nil
	}
	return a.history.Close()
}

// Analysis is one scan plus classification of the root.
type Analysis struct {
	Nodes   map[string]*tree.DirNode
	Classes map[string]tree.DirClass
	// Meaningful is ordered by depth, then rel.
	Meaningful []string
}

func (an *Analysis) IsMeaningful(rel string) bool {
	return an.Classes[rel].Meaningful
}

// Analyze scans and classifies the root.
func (a *App) Analyze(ctx context.Context) (*Analysis, error) {
	ctx, span := observability.Tracer.Start(ctx, "app.Analyze",
		trace.WithAttributes(attribute.String("root", a.Root)))
	defer span.End()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	nodes, err := a.scanner.Scan(a.Root, a.include, a.ignore)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	observability.ScanDuration.Observe(time.Since(start).Seconds())
	observability.DirsVisited.Set(float64(len(nodes)))

	classes := tree.Classify(nodes, a.include, a.ignore)
	meaningful := tree.MeaningfulRels(nodes, classes)
	observability.MeaningfulDirs.Set(float64(len(meaningful)))

	span.SetAttributes(
		attribute.Int("dirs_visited", len(nodes)),
		attribute.Int("meaningful_dirs", len(meaningful)),
	)
	slog.Debug("analyzed tree", "root", a.Root, "dirs", len(nodes), "meaningful", len(meaningful))
	return &Analysis{Nodes: nodes, Classes: classes, Meaningful: meaningful}, nil
}

func (a *App) summaryPath(node *tree.DirNode) string {
	return filepath.Join(node.Abs, a.Config.SummaryFile)
}

func observeOperation(op string, start time.Time) {
	observability.OperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
