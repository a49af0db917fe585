package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"layered/internal/core/app"
	"layered/internal/engine/summary"
)

type planOptions struct {
	mode        string
	baseRef     string
	format      string
	includeDone bool
	watch       bool
}

func newPlanCommand(root *rootOptions) *cobra.Command {
	opts := &planOptions{}
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the bottom-up summary plan in depth waves",
		Long: `Print every meaningful directory grouped into waves by depth, deepest
first, with the status of its summary file.

In update mode only directories on the path of a changed file are planned.
Changed files come from git: the diff against --base-ref when given,
otherwise staged, unstaged and untracked files.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(cmd, root, opts)
		},
	}
	cmd.Flags().StringVar(&opts.mode, "mode", "full", "Plan mode: full or update")
	cmd.Flags().StringVar(&opts.baseRef, "base-ref", "", "Git ref to diff against in update mode (<ref>...HEAD)")
	cmd.Flags().StringVar(&opts.format, "format", "markdown", "Output format: markdown, json or yaml")
	cmd.Flags().BoolVar(&opts.includeDone, "include-done", false, "List done directories in markdown output")
	cmd.Flags().BoolVar(&opts.watch, "watch", false, "Re-plan on file changes until interrupted")
	return cmd
}

func runPlan(cmd *cobra.Command, root *rootOptions, opts *planOptions) error {
	mode, err := app.ParsePlanMode(opts.mode)
	if err != nil {
		return err
	}
	format, err := parseFormat(opts.format)
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	rt, err := newRuntime(ctx, cmd, root)
	if err != nil {
		return err
	}
	defer rt.Close(ctx)

	req := app.PlanRequest{Mode: mode, BaseRef: opts.baseRef}
	out := cmd.OutOrStdout()

	if !opts.watch {
		plan, err := rt.app.Plan(ctx, req)
		if err != nil {
			return err
		}
		return writePlan(out, format, plan, opts.includeDone)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return rt.app.Watch(ctx, req, func(plan *app.Plan, err error) {
		if err != nil {
			slog.Error("plan failed", "error", err)
			return
		}
		if err := writePlan(out, format, plan, opts.includeDone); err != nil {
			slog.Error("failed to write plan", "error", err)
		}
	})
}

func writePlan(w io.Writer, format outputFormat, plan *app.Plan, includeDone bool) error {
	if done, err := writeStructured(w, format, plan); done {
		return err
	}

	st := newStyler(w)
	fmt.Fprintf(w, "root=%s\n", plan.Root)
	fmt.Fprintf(w, "mode=%s\n", plan.Mode)
	fmt.Fprintf(w, "dirs_planned=%d\n", plan.DirsPlanned)
	fmt.Fprintf(w, "status_counts: missing=%d incomplete=%d done=%d\n",
		plan.Counts.Missing, plan.Counts.Incomplete, plan.Counts.Done)
	fmt.Fprintln(w)

	for _, wave := range plan.Waves {
		listed := wave.Dirs
		if !includeDone {
			listed = make([]app.PlanEntry, 0, len(wave.Dirs))
			for _, entry := range wave.Dirs {
				if entry.Status != summary.StatusDone {
					listed = append(listed, entry)
				}
			}
		}
		fmt.Fprintln(w, st.header(fmt.Sprintf("Wave depth=%d dirs_total=%d dirs_listed=%d",
			wave.Depth, len(wave.Dirs), len(listed))))
		for _, entry := range listed {
			fmt.Fprintf(w, "- [%s] %s %s\n", st.status(entry.Status), entry.Display,
				st.muted("("+string(entry.Kind)+")"))
		}
		fmt.Fprintln(w)
	}
	return nil
}
