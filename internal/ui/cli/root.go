// Package cli wires the layered use cases to a cobra command tree.
package cli

import (
	"github.com/spf13/cobra"
)

// Version is overridden at build time with -ldflags.
var Version = "dev"

type rootOptions struct {
	root       string
	configPath string
	include    string
	ignore     string
	verbose    bool
}

// NewRootCommand creates the layered command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "layered",
		Short: "Plan, scaffold and verify per-directory summary files",
		Long: `layered walks a source tree bottom-up, decides which directories deserve
a summary document, and plans, scaffolds and verifies those summaries.

Directories are processed in depth waves, deepest first, so every summary
can be written from the summaries of its children.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.root, "root", ".", "Directory to scan")
	flags.StringVar(&opts.configPath, "config", "", "Path to config file (default <root>/layered.toml)")
	flags.StringVar(&opts.include, "include", "", "Comma-separated globs; only matching paths are selected")
	flags.StringVarP(&opts.ignore, "ignore", "i", "", "Comma-separated globs to exclude")
	flags.BoolVar(&opts.verbose, "verbose", false, "Enable debug logging")

	cmd.AddCommand(newPlanCommand(opts))
	cmd.AddCommand(newScaffoldCommand(opts))
	cmd.AddCommand(newVerifyCommand(opts))
	cmd.AddCommand(newExportCommand(opts))
	cmd.AddCommand(newNormalizeCommand(opts))
	cmd.AddCommand(newHistoryCommand(opts))

	return cmd
}

// Verbose reports whether --verbose appears in args. main uses it to pick
// the log level before cobra parses anything.
func Verbose(args []string) bool {
	for _, arg := range args {
		if arg == "--verbose" || arg == "--verbose=true" {
			return true
		}
	}
	return false
}
