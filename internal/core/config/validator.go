package config

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

func validate(cfg *Config) error {
	if err := validateSummaryFile(cfg); err != nil {
		return err
	}
	if err := validatePrune(cfg); err != nil {
		return err
	}
	if err := validateWatch(cfg); err != nil {
		return err
	}
	return validateObservability(cfg)
}

func validateSummaryFile(cfg *Config) error {
	name := cfg.SummaryFile
	if strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("summary_file must be a bare file name, got %q", name)
	}
	if name == "." || name == ".." {
		return fmt.Errorf("summary_file %q is not a file name", name)
	}
	return nil
}

func validatePrune(cfg *Config) error {
	for field, entries := range map[string][]string{
		"prune.always_ignore": cfg.Prune.AlwaysIgnore,
		"prune.default_skip":  cfg.Prune.DefaultSkip,
	} {
		for i, entry := range entries {
			entry = strings.TrimSpace(entry)
			if entry == "" {
				return fmt.Errorf("%s[%d] must not be empty", field, i)
			}
			if strings.Contains(entry, "/") {
				return fmt.Errorf("%s[%d] must be a directory name, got %q", field, i, entry)
			}
			if _, err := glob.Compile(entry); err != nil {
				return fmt.Errorf("%s[%d] is not a valid name pattern: %w", field, i, err)
			}
		}
	}
	return nil
}

func validateWatch(cfg *Config) error {
	if cfg.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must be >= 0, got %s", cfg.Watch.Debounce)
	}
	if cfg.Watch.MaxReplansPerSecond < 0 {
		return fmt.Errorf("watch.max_replans_per_second must be >= 0, got %v", cfg.Watch.MaxReplansPerSecond)
	}
	return nil
}

func validateObservability(cfg *Config) error {
	if cfg.Observability.EnableTracing && strings.TrimSpace(cfg.Observability.OTLPEndpoint) == "" {
		return fmt.Errorf("observability.enable_tracing requires observability.otlp_endpoint")
	}
	return nil
}
