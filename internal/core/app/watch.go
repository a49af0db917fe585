package app

import (
	"context"
	"log/slog"
	"strings"

	"layered/internal/core/watcher"
	"layered/internal/shared/observability"
	"layered/internal/shared/util"
)

// Watch emits an initial plan, then re-plans after each debounced batch of
// file system changes under the root until ctx is cancelled. Re-plans run
// one at a time on the watcher's callback goroutine.
func (a *App) Watch(ctx context.Context, req PlanRequest, onPlan func(*Plan, error)) error {
	onPlan(a.Plan(ctx, req))

	w, err := watcher.NewWatcher(watcher.Options{
		Debounce:     a.Config.Watch.Debounce,
		ExcludeDirs:  a.watchExcludeDirs(),
		ExcludeFiles: []string{".tmp-layered-*", "*.lock"},
		Limiter:      util.NewLimiter(a.Config.Watch.MaxReplansPerSecond, 1),
	}, func(paths []string) {
		if ctx.Err() != nil {
			return
		}
		slog.Debug("re-planning after changes", "count", len(paths), "first", paths[0])
		observability.ReplansTotal.Inc()
		onPlan(a.Plan(ctx, req))
	})
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Watch([]string{a.Root}); err != nil {
		return err
	}
	<-ctx.Done()
	return nil
}

func (a *App) watchExcludeDirs() []string {
	dirs := append([]string(nil), a.rules.AlwaysIgnore.Entries()...)
	for _, name := range a.rules.DefaultSkip.Entries() {
		if !a.include.MentionsName(name) {
			dirs = append(dirs, name)
		}
	}
	for _, name := range a.Config.Watch.ExcludeNames {
		if name = strings.TrimSpace(name); name != "" {
			dirs = append(dirs, name)
		}
	}
	return dirs
}
