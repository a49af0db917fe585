package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

type ResolvedPaths struct {
	Root        string
	HistoryPath string
	MetricsFile string
}

// ResolvePaths anchors relative state paths at the scan root. Without an
// explicit history path the database lives in the user cache directory, so
// the scanned tree never gains a state directory of its own.
func ResolvePaths(cfg *Config, root string) (ResolvedPaths, error) {
	if strings.TrimSpace(root) == "" {
		return ResolvedPaths{}, fmt.Errorf("root must not be empty")
	}
	resolved := ResolvedPaths{Root: filepath.Clean(root)}
	if historyPath := strings.TrimSpace(cfg.History.Path); historyPath != "" {
		resolved.HistoryPath = ResolveRelative(root, historyPath)
	} else {
		resolved.HistoryPath = filepath.Join(StateDir(), "history.db")
	}
	if metrics := strings.TrimSpace(cfg.Observability.MetricsFile); metrics != "" {
		resolved.MetricsFile = ResolveRelative(root, metrics)
	}
	return resolved, nil
}

func ResolveRelative(base, value string) string {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return filepath.Clean(base)
	}
	if filepath.IsAbs(raw) {
		return filepath.Clean(raw)
	}
	return filepath.Clean(filepath.Join(base, raw))
}

// StateDir is where layered keeps per-user state such as the history
// database and write locks.
func StateDir() string {
	base, err := os.UserCacheDir()
	if err != nil || base == "" {
		base = os.TempDir()
	}
	return filepath.Join(base, "layered")
}
