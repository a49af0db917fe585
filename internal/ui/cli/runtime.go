// # internal/ui/cli/runtime.go
package cli

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"layered/internal/core/app"
	"layered/internal/core/config"
	"layered/internal/core/errors"
	"layered/internal/data/history"
	"layered/internal/engine/tree"
	"layered/internal/shared/observability"
)

// runtime is one command invocation: resolved config, the app and the
// observability hooks that must be flushed on exit.
type runtime struct {
	app         *app.App
	metricsFile string
	shutdown    func(context.Context) error
}

// Swapped in tests.
var (
	openHistory = history.Open
	newApp      = app.New
)

func newRuntime(ctx context.Context, cmd *cobra.Command, opts *rootOptions) (*runtime, error) {
	root, err := tree.ResolveRoot(opts.root)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Resolve(root, opts.configPath)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("include") {
		cfg.Filter.Include = opts.include
	}
	if flags.Changed("ignore") {
		cfg.Filter.Ignore = opts.ignore
	}

	paths, err := config.ResolvePaths(cfg, root)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeValidationError, "resolve paths")
	}

	var (
		appOpts []app.Option
		store   *history.Store
	)
	if cfg.History.Enabled {
		store, err = openHistory(paths.HistoryPath)
		switch {
		case err == nil:
			slog.Debug("history store open", "path", store.Path())
			appOpts = append(appOpts, app.WithHistoryStore(store))
		case history.IsCorruptError(err):
			// A broken database must not block planning; runs go unrecorded.
			slog.Warn("history database unusable, recording disabled", "path", paths.HistoryPath, "error", err)
			store = nil
		default:
			return nil, errors.AddContext(
				errors.Wrap(err, errors.CodeInternal, "open history store"),
				errors.CtxPath, paths.HistoryPath)
		}
	}

	shutdown, err := observability.SetupTracing(ctx, observability.TracingConfig{
		Enabled:     cfg.Observability.EnableTracing,
		Endpoint:    cfg.Observability.OTLPEndpoint,
		ServiceName: cfg.Observability.ServiceName,
	})
	if err != nil {
		slog.Warn("tracing disabled", "error", err)
	}

	a, err := newApp(cfg, root, appOpts...)
	if err != nil {
		_ = shutdown(ctx)
		if store != nil {
			_ = store.Close()
		}
		return nil, err
	}
	slog.Debug("runtime ready", "root", a.Root, "summary_file", cfg.SummaryFile, "history", cfg.History.Enabled)
	return &runtime{app: a, metricsFile: paths.MetricsFile, shutdown: shutdown}, nil
}

// Close flushes metrics and spans and releases the history store.
func (r *runtime) Close(ctx context.Context) {
	if r.metricsFile != "" {
		if err := observability.WriteMetricsFile(r.metricsFile); err != nil {
			slog.Warn("failed to write metrics file", "path", r.metricsFile, "error", err)
		}
	}
	if err := r.shutdown(ctx); err != nil {
		slog.Warn("failed to flush traces", "error", err)
	}
	if err := r.app.Close(); err != nil {
		slog.Warn("failed to close history store", "error", err)
	}
}
