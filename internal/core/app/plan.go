// # internal/core/app/plan.go
package app

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"layered/internal/core/errors"
	"layered/internal/engine/changeset"
	"layered/internal/engine/summary"
	"layered/internal/engine/tree"
	"layered/internal/shared/observability"
)

type PlanMode string

const (
	PlanFull   PlanMode = "full"
	PlanUpdate PlanMode = "update"
)

func ParsePlanMode(s string) (PlanMode, error) {
	switch PlanMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", PlanFull:
		return PlanFull, nil
	case PlanUpdate:
		return PlanUpdate, nil
	}
	return "", errors.New(errors.CodeValidationError, fmt.Sprintf("unknown plan mode %q (want full or update)", s))
}

type PlanRequest struct {
	Mode PlanMode
	// BaseRef selects `git diff <ref>...HEAD` in update mode; empty means
	// working tree changes.
	BaseRef string
}

type PlanEntry struct {
	Path    string         `json:"path" yaml:"path"`
	Display string         `json:"display" yaml:"display"`
	Status  summary.Status `json:"status" yaml:"status"`
	Kind    tree.Kind      `json:"kind" yaml:"kind"`
}

type Wave struct {
	Depth int         `json:"depth" yaml:"depth"`
	Dirs  []PlanEntry `json:"dirs" yaml:"dirs"`
}

type StatusCounts struct {
	Missing    int `json:"missing" yaml:"missing"`
	Incomplete int `json:"incomplete" yaml:"incomplete"`
	Done       int `json:"done" yaml:"done"`
}

func (c *StatusCounts) add(s summary.Status) {
	switch s {
	case summary.StatusMissing:
		c.Missing++
	case summary.StatusIncomplete:
		c.Incomplete++
	case summary.StatusDone:
		c.Done++
	}
}

// Plan is the bottom-up processing order: waves deepest first.
type Plan struct {
	Root        string       `json:"root" yaml:"root"`
	Mode        PlanMode     `json:"mode" yaml:"mode"`
	DirsPlanned int          `json:"dirs_planned" yaml:"dirs_planned"`
	Counts      StatusCounts `json:"status_counts" yaml:"status_counts"`
	Waves       []Wave       `json:"waves" yaml:"waves"`
	// ChangedFiles is set in update mode after filtering.
	ChangedFiles []string `json:"changed_files,omitempty" yaml:"changed_files,omitempty"`
}

// Plan selects meaningful directories (all of them, or those on the path
// of a changed file) and groups them into depth waves.
func (a *App) Plan(ctx context.Context, req PlanRequest) (*Plan, error) {
	start := time.Now()
	defer observeOperation("plan", start)

	if req.Mode == "" {
		req.Mode = PlanFull
	}
	ctx, span := observability.Tracer.Start(ctx, "app.Plan",
		trace.WithAttributes(attribute.String("mode", string(req.Mode))))
	defer span.End()

	an, err := a.Analyze(ctx)
	if err != nil {
		return nil, err
	}

	plan := &Plan{Root: a.Root, Mode: req.Mode, Waves: []Wave{}}
	var selected []string
	switch req.Mode {
	case PlanFull:
		selected = append(selected, an.Meaningful...)
	case PlanUpdate:
		changed, err := a.changedFiles(ctx, req.BaseRef)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		plan.ChangedFiles = changed
		dirs := changeset.ResolveChangedDirs(a.Root, changed, tree.RelSet(an.Nodes))
		for rel := range dirs {
			if an.IsMeaningful(rel) {
				selected = append(selected, rel)
			}
		}
		tree.SortByDepth(an.Nodes, selected)
	default:
		return nil, errors.New(errors.CodeValidationError, fmt.Sprintf("unknown plan mode %q", req.Mode))
	}

	plan.DirsPlanned = len(selected)
	grouped := tree.GroupByDepth(an.Nodes, selected)
	depths := make([]int, 0, len(grouped))
	for d := range grouped {
		depths = append(depths, d)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(depths)))

	for _, depth := range depths {
		wave := Wave{Depth: depth}
		for _, rel := range grouped[depth] {
			node := an.Nodes[rel]
			status := summary.StatusOf(node.Abs, a.Config.SummaryFile)
			plan.Counts.add(status)
			wave.Dirs = append(wave.Dirs, PlanEntry{
				Path:    rel,
				Display: tree.Display(rel),
				Status:  status,
				Kind:    an.Classes[rel].Kind,
			})
		}
		plan.Waves = append(plan.Waves, wave)
	}

	observability.PlanEntries.WithLabelValues(string(summary.StatusMissing)).Set(float64(plan.Counts.Missing))
	observability.PlanEntries.WithLabelValues(string(summary.StatusIncomplete)).Set(float64(plan.Counts.Incomplete))
	observability.PlanEntries.WithLabelValues(string(summary.StatusDone)).Set(float64(plan.Counts.Done))

	a.recordRun(ctx, runRecord{
		operation:  "plan",
		mode:       string(req.Mode),
		visited:    len(an.Nodes),
		meaningful: len(an.Meaningful),
		counts:     plan.Counts,
		ok:         true,
	})
	return plan, nil
}

func (a *App) changedFiles(ctx context.Context, baseRef string) ([]string, error) {
	if a.changes == nil {
		return nil, errors.ExternalTool("collect changed files", fmt.Errorf("no change source configured"))
	}
	raw, err := a.changes.ChangedFiles(ctx, a.Root, baseRef)
	if err != nil {
		if errors.CodeOf(err) == "" {
			err = errors.ExternalTool("collect changed files", err)
		}
		return nil, err
	}
	return changeset.FilterChanged(a.Root, raw, changeset.FilterOptions{
		Include:     a.include,
		Ignore:      a.ignore,
		Rules:       a.rules,
		SummaryFile: a.Config.SummaryFile,
	}), nil
}

// Entries flattens the plan in wave order.
func (p *Plan) Entries() []PlanEntry {
	var out []PlanEntry
	for _, w := range p.Waves {
		out = append(out, w.Dirs...)
	}
	return out
}
