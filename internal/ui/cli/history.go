package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"layered/internal/core/errors"
	"layered/internal/ui/report"
)

const defaultHistoryLimit = 20

func newHistoryCommand(root *rootOptions) *cobra.Command {
	var (
		since  string
		limit  int
		format string
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded plan, scaffold and verify runs",
		Long: `List the runs recorded for --root, newest first. Recording is enabled
with [history] enabled = true in layered.toml or LAYERED_HISTORY_ENABLED.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sinceTime, err := parseSince(since)
			if err != nil {
				return err
			}
			ctx := commandContext(cmd)
			rt, err := newRuntime(ctx, cmd, root)
			if err != nil {
				return err
			}
			defer rt.Close(ctx)

			runs, err := rt.app.History(ctx, sinceTime, limit)
			if err != nil {
				return err
			}
			rep := report.NewHistoryReport(rt.app.Root, sinceTime, runs)
			w := cmd.OutOrStdout()

			var body []byte
			switch strings.ToLower(strings.TrimSpace(format)) {
			case "", "tsv":
				body, err = report.RenderHistoryTSV(rep)
			case "json":
				body, err = report.RenderHistoryJSON(rep)
			case "yaml", "yml":
				return writeYAML(w, rep)
			default:
				return errors.New(errors.CodeValidationError, fmt.Sprintf("unknown format %q (want tsv, json or yaml)", format))
			}
			if err != nil {
				return err
			}
			_, err = w.Write(body)
			return err
		},
	}
	cmd.Flags().StringVar(&since, "since", "", "Only runs at or after this time (RFC3339 or YYYY-MM-DD)")
	cmd.Flags().IntVar(&limit, "limit", defaultHistoryLimit, "Maximum number of runs (0 for all)")
	cmd.Flags().StringVar(&format, "format", "tsv", "Output format: tsv, json or yaml")
	return cmd
}

func parseSince(value string) (time.Time, error) {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return time.Time{}, nil
	}

	if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
		return parsed.UTC(), nil
	}
	if parsed, err := time.Parse("2006-01-02", raw); err == nil {
		return parsed.UTC(), nil
	}

	return time.Time{}, errors.New(errors.CodeValidationError, fmt.Sprintf("since must be RFC3339 or YYYY-MM-DD, got %q", value))
}
