package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"layered/internal/core/app"
)

func newScaffoldCommand(root *rootOptions) *cobra.Command {
	var write bool
	var format string
	cmd := &cobra.Command{
		Use:   "scaffold",
		Short: "Create stub summaries for meaningful directories without one",
		Long: `Create a stub summary in every meaningful directory that has none. The
stub lists the expected subdirectory ledger and the directory's own files.

Existing summaries are never modified. Without --write the command only
reports which files it would create.`,
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

			res, err := rt.app.Scaffold(ctx, app.ScaffoldRequest{Write: write})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if done, err := writeStructured(out, f, res); done {
				return err
			}
			fmt.Fprintf(out, "root=%s\n", res.Root)
			fmt.Fprintf(out, "mode=%s\n", modeLabel(res.Write))
			fmt.Fprintf(out, "meaningful_dirs=%d\n", res.MeaningfulDirs)
			fmt.Fprintf(out, "files_created=%d\n", len(res.Created))
			fmt.Fprintf(out, "files_would_create=%d\n", len(res.WouldCreate))
			if len(res.WouldCreate) > 0 {
				fmt.Fprintln(out, "paths:")
				for _, p := range res.WouldCreate {
					fmt.Fprintf(out, " - %s\n", p)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&write, "write", false, "Create the files instead of a dry run")
	cmd.Flags().StringVar(&format, "format", "markdown", "Output format: markdown, json or yaml")
	return cmd
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
