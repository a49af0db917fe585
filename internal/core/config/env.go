package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Pattern: LAYERED_[SECTION]_[KEY] (e.g., LAYERED_FILTER_INCLUDE).
func ApplyEnvOverrides(cfg *Config) {
	setEnvString(&cfg.SummaryFile, "LAYERED_SUMMARY_FILE")

	// Filter
	setEnvString(&cfg.Filter.Include, "LAYERED_FILTER_INCLUDE")
	setEnvString(&cfg.Filter.Ignore, "LAYERED_FILTER_IGNORE")

	// Prune
	setEnvList(&cfg.Prune.AlwaysIgnore, "LAYERED_PRUNE_ALWAYS_IGNORE")
	setEnvList(&cfg.Prune.DefaultSkip, "LAYERED_PRUNE_DEFAULT_SKIP")

	// Watch
	setEnvDuration(&cfg.Watch.Debounce, "LAYERED_WATCH_DEBOUNCE")
	setEnvFloat64(&cfg.Watch.MaxReplansPerSecond, "LAYERED_WATCH_MAX_REPLANS_PER_SECOND")

	// History
	setEnvBool(&cfg.History.Enabled, "LAYERED_HISTORY_ENABLED")
	setEnvString(&cfg.History.Path, "LAYERED_HISTORY_PATH")

	// Observability
	setEnvString(&cfg.Observability.MetricsFile, "LAYERED_OBSERVABILITY_METRICS_FILE")
	setEnvString(&cfg.Observability.OTLPEndpoint, "LAYERED_OBSERVABILITY_OTLP_ENDPOINT")
	setEnvBool(&cfg.Observability.EnableTracing, "LAYERED_OBSERVABILITY_ENABLE_TRACING")
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Debug("applying env override", "key", key, "value", val)
		*target = val
	}
}

func setEnvList(target *[]string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Debug("applying env override", "key", key, "value", val)
		items := []string{}
		for _, part := range strings.Split(val, ",") {
			if part = strings.TrimSpace(part); part != "" {
				items = append(items, part)
			}
		}
		*target = items
	}
}

func setEnvBool(target *bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(strings.ToLower(val))
		if err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = b
		}
	}
}

func setEnvFloat64(target *float64, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = f
		}
	}
}

func setEnvDuration(target *time.Duration, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = d
		}
	}
}
