package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"layered/internal/core/app"
)

func newVerifyCommand(root *rootOptions) *cobra.Command {
	var strict bool
	var format string
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check summaries for presence, ASCII text and ledger agreement",
		Long: `Check every meaningful directory:
  - a summary file exists
  - the summary is ASCII only
  - its Subdirectories ledger matches the directory's one-hop subdirectories
  - with --strict, the summary is done (no [TBD] or unchecked items)

Exits with status 3 when any check fails.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := parseFormat(format)
			if err != nil {
				return err
			}
			ctx := commandContext(cmd)
			rt, err := newRuntime(ctx, cmd, root)
			if err != nil {
				return err
			}
			defer rt.Close(ctx)

			report, err := rt.app.Verify(ctx, app.VerifyRequest{Strict: strict})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if done, err := writeStructured(out, f, report); done {
				if err != nil {
					return err
				}
			} else {
				writeVerifyReport(out, report)
			}
			if !report.OK() {
				return &ExitError{Code: ExitCheck, Msg: fmt.Sprintf("verification failed with %d issue(s)", report.IssueCount())}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "Also fail summaries that are not done")
	cmd.Flags().StringVar(&format, "format", "markdown", "Output format: markdown, json or yaml")
	return cmd
}

func writeVerifyReport(w io.Writer, r *app.VerifyReport) {
	st := newStyler(w)
	fmt.Fprintf(w, "root=%s\n", r.Root)
	fmt.Fprintf(w, "meaningful_dirs=%d\n", r.MeaningfulDirs)
	fmt.Fprintf(w, "missing_summaries=%d\n", len(r.MissingSummaries))
	fmt.Fprintf(w, "ledger_mismatches=%d\n", len(r.LedgerMismatches))
	fmt.Fprintf(w, "non_ascii_files=%d\n", len(r.NonASCIIFiles))
	fmt.Fprintf(w, "unreadable_files=%d\n", len(r.Unreadable))
	fmt.Fprintf(w, "incomplete_files=%d\n", len(r.Incomplete))
	fmt.Fprintf(w, "ok=%s\n", st.ok(r.OK()))

	writeList(w, "missing_summary_paths", r.MissingSummaries)

	mismatches := make([]string, 0, len(r.LedgerMismatches))
	for _, m := range r.LedgerMismatches {
		mismatches = append(mismatches, m.String())
	}
	writeList(w, "ledger_mismatches", mismatches)

	nonASCII := make([]string, 0, len(r.NonASCIIFiles))
	for _, f := range r.NonASCIIFiles {
		nonASCII = append(nonASCII, f.Path+": "+f.Summary)
	}
	writeList(w, "non_ascii_files", nonASCII)

	unreadable := make([]string, 0, len(r.Unreadable))
	for _, f := range r.Unreadable {
		unreadable = append(unreadable, f.Path+": failed to read: "+f.Error)
	}
	writeList(w, "unreadable_files", unreadable)

	incomplete := make([]string, 0, len(r.Incomplete))
	for _, f := range r.Incomplete {
		incomplete = append(incomplete, fmt.Sprintf("%s: status=%s", f.Path, f.Status))
	}
	writeList(w, "incomplete_files", incomplete)
}
