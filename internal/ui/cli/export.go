package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"layered/internal/core/app"
)

func newExportCommand(root *rootOptions) *cobra.Command {
	var (
		out       string
		overwrite bool
		format    string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Copy every summary file into a separate directory",
		Long: `Copy every selected summary file under --root into --out, keeping the
paths relative to the root. The source tree is not modified.`,
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

			res, err := rt.app.Export(ctx, app.ExportRequest{Out: out, Overwrite: overwrite})
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if done, err := writeStructured(w, f, res); done {
				return err
			}
			fmt.Fprintf(w, "src=%s\n", res.Src)
			fmt.Fprintf(w, "out=%s\n", res.Out)
			fmt.Fprintf(w, "files=%d\n", len(res.Files))
			fmt.Fprintf(w, "total_bytes=%d\n", res.TotalBytes)
			fmt.Fprintf(w, "size_bytes: min=%d p50=%d max=%d\n", res.MinSize, res.P50Size, res.MaxSize)
			fmt.Fprintf(w, "empty_files=%d\n", len(res.Empty))
			writeList(w, "empty_paths", res.Empty)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Destination directory (required)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Allow writing into an existing destination")
	cmd.Flags().StringVar(&format, "format", "markdown", "Output format: markdown, json or yaml")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

func newNormalizeCommand(root *rootOptions) *cobra.Command {
	var (
		write           bool
		failOnRemaining bool
		format          string
	)
	cmd := &cobra.Command{
		Use:   "normalize",
		Short: "Replace typographic characters in summaries with ASCII",
		Long: `Replace em and en dashes, curly quotes, arrows and similar characters in
every selected summary with ASCII stand-ins, then report any non-ASCII
characters that remain. Without --write the files are left untouched.`,
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

			res, err := rt.app.Normalize(ctx, app.NormalizeRequest{Write: write})
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if done, err := writeStructured(w, f, res); done {
				if err != nil {
					return err
				}
			} else {
				fmt.Fprintf(w, "root=%s\n", res.Root)
				fmt.Fprintf(w, "files_scanned=%d\n", res.FilesScanned)
				fmt.Fprintf(w, "mode=%s\n", modeLabel(res.Write))
				fmt.Fprintf(w, "files_changed=%d\n", len(res.Changed))
				fmt.Fprintf(w, "files_would_change=%d\n", len(res.WouldChange))
				fmt.Fprintln(w, "replacement_counts:")
				writeRuneCounts(w, res.Replaced)
				fmt.Fprintf(w, "remaining_non_ascii_unique=%d\n", len(res.Remaining))
				writeRuneCounts(w, res.Remaining)
				writeList(w, "unreadable_paths", res.Unreadable)
			}
			if failOnRemaining && len(res.Remaining) > 0 {
				return &ExitError{Code: ExitCheck, Msg: fmt.Sprintf("%d distinct non-ASCII characters remain", len(res.Remaining))}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&write, "write", false, "Rewrite files instead of a dry run")
	cmd.Flags().BoolVar(&failOnRemaining, "fail-on-remaining", false, "Exit with status 3 if non-ASCII characters remain")
	cmd.Flags().StringVar(&format, "format", "markdown", "Output format: markdown, json or yaml")
	return cmd
}
