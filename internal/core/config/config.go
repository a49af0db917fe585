package config

import (
	"time"

	"layered/internal/engine/globs"
	"layered/internal/engine/tree"
)

// DefaultFileName is looked up in the scan root when no --config is given.
const DefaultFileName = "layered.toml"

type Config struct {
	SummaryFile   string        `toml:"summary_file"`
	Filter        Filter        `toml:"filter"`
	Prune         Prune         `toml:"prune"`
	Watch         Watch         `toml:"watch"`
	History       History       `toml:"history"`
	Observability Observability `toml:"observability"`
}

// Filter holds comma-separated include/ignore glob lists.
type Filter struct {
	Include string `toml:"include"`
	Ignore  string `toml:"ignore"`
}

type Prune struct {
	AlwaysIgnore []string `toml:"always_ignore"`
	DefaultSkip  []string `toml:"default_skip"`
}

type Watch struct {
	Debounce time.Duration `toml:"debounce"`
	// MaxReplansPerSecond caps watch-mode re-plans. An explicit 0 disables
	// throttling; leaving it unset keeps the default.
	MaxReplansPerSecond float64 `toml:"max_replans_per_second"`
	// ExcludeNames are directory base names whose events never trigger a re-plan.
	ExcludeNames []string `toml:"exclude_names"`
}

type History struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

type Observability struct {
	MetricsFile   string `toml:"metrics_file"`
	OTLPEndpoint  string `toml:"otlp_endpoint"`
	EnableTracing bool   `toml:"enable_tracing"`
	ServiceName   string `toml:"service_name"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	cfg.Watch.MaxReplansPerSecond = defaultMaxReplansPerSecond
	return cfg
}

func (c *Config) IncludeList() globs.List {
	return globs.ParseCSV(c.Filter.Include)
}

func (c *Config) IgnoreList() globs.List {
	return globs.ParseCSV(c.Filter.Ignore)
}

// PruneRules compiles the prune name lists.
func (c *Config) PruneRules() (tree.PruneRules, error) {
	always, err := tree.NewNameSet(c.Prune.AlwaysIgnore)
	if err != nil {
		return tree.PruneRules{}, err
	}
	skip, err := tree.NewNameSet(c.Prune.DefaultSkip)
	if err != nil {
		return tree.PruneRules{}, err
	}
	return tree.PruneRules{AlwaysIgnore: always, DefaultSkip: skip}, nil
}
