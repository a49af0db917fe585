package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	domainErrors "layered/internal/core/errors"
	"layered/internal/engine/tree"
)

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, domainErrors.AddContext(
			domainErrors.Wrap(err, domainErrors.CodeValidationError, "decode config"),
			domainErrors.CtxPath, path)
	}

	applyDefaults(&cfg)
	if !md.IsDefined("watch", "max_replans_per_second") {
		cfg.Watch.MaxReplansPerSecond = defaultMaxReplansPerSecond
	}

	if err := validate(&cfg); err != nil {
		return nil, domainErrors.AddContext(
			domainErrors.Wrap(err, domainErrors.CodeValidationError, "invalid config"),
			domainErrors.CtxPath, path)
	}
	return &cfg, nil
}

// Resolve loads the explicit path when given, otherwise layered.toml in
// root if it exists, otherwise the defaults. Env overrides are applied last.
func Resolve(root, explicit string) (*Config, error) {
	var (
		cfg *Config
		err error
	)
	switch {
	case strings.TrimSpace(explicit) != "":
		cfg, err = Load(explicit)
		if errors.Is(err, fs.ErrNotExist) {
			err = domainErrors.AddContext(
				domainErrors.Wrap(err, domainErrors.CodeNotFound, "config file not found"),
				domainErrors.CtxPath, explicit)
		}
	default:
		candidate := filepath.Join(root, DefaultFileName)
		cfg, err = Load(candidate)
		if errors.Is(err, fs.ErrNotExist) {
			cfg, err = Default(), nil
		}
	}
	if err != nil {
		return nil, err
	}

	ApplyEnvOverrides(cfg)
	applyDefaults(cfg)
	if err := validate(cfg); err != nil {
		return nil, domainErrors.Wrap(err, domainErrors.CodeValidationError, "invalid config after env overrides")
	}
	return cfg, nil
}

const defaultMaxReplansPerSecond = 2

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.SummaryFile) == "" {
		cfg.SummaryFile = tree.DefaultSummaryFile
	}
	if cfg.Prune.AlwaysIgnore == nil {
		cfg.Prune.AlwaysIgnore = tree.DefaultAlwaysIgnore()
	}
	if cfg.Prune.DefaultSkip == nil {
		cfg.Prune.DefaultSkip = tree.DefaultSkipDescend()
	}
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 500 * time.Millisecond
	}
	if strings.TrimSpace(cfg.Observability.ServiceName) == "" {
		cfg.Observability.ServiceName = "layered"
	}
}
