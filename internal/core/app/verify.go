package app

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"layered/internal/engine/summary"
	"layered/internal/engine/tree"
	"layered/internal/shared/observability"
)

type VerifyRequest struct {
	// Strict also fails summaries whose status is not done.
	Strict bool
}

// LedgerMismatch describes a summary whose subdirectory ledger disagrees
// with the filesystem.
type LedgerMismatch struct {
	Path string `json:"path" yaml:"path"`
	// MissingSection is set when the summary has no ledger but subdirectories exist.
	MissingSection bool     `json:"missing_section,omitempty" yaml:"missing_section,omitempty"`
	Expected       int      `json:"expected,omitempty" yaml:"expected,omitempty"`
	Missing        []string `json:"missing,omitempty" yaml:"missing,omitempty"`
	Extra          []string `json:"extra,omitempty" yaml:"extra,omitempty"`
}

func (m LedgerMismatch) String() string {
	if m.MissingSection {
		return fmt.Sprintf("%s: missing '### Subdirectories' section (expected %d entries)", m.Path, m.Expected)
	}
	var parts []string
	if len(m.Missing) > 0 {
		parts = append(parts, fmt.Sprintf("missing=%v", m.Missing))
	}
	if len(m.Extra) > 0 {
		parts = append(parts, fmt.Sprintf("extra=%v", m.Extra))
	}
	return m.Path + ": " + strings.Join(parts, " ")
}

type NonASCIIFile struct {
	Path  string              `json:"path" yaml:"path"`
	Runes []summary.RuneCount `json:"-" yaml:"-"`
	// Summary renders Runes as "U+2014x3, ...".
	Summary string `json:"summary" yaml:"summary"`
}

type IncompleteFile struct {
	Path   string         `json:"path" yaml:"path"`
	Status summary.Status `json:"status,omitempty" yaml:"status,omitempty"`
	Error  string         `json:"error,omitempty" yaml:"error,omitempty"`
}

type VerifyReport struct {
	Root             string           `json:"root" yaml:"root"`
	Strict           bool             `json:"strict" yaml:"strict"`
	MeaningfulDirs   int              `json:"meaningful_dirs" yaml:"meaningful_dirs"`
	MissingSummaries []string         `json:"missing_summaries" yaml:"missing_summaries"`
	LedgerMismatches []LedgerMismatch `json:"ledger_mismatches" yaml:"ledger_mismatches"`
	NonASCIIFiles    []NonASCIIFile   `json:"non_ascii_files" yaml:"non_ascii_files"`
	// Unreadable summaries always fail verification.
	Unreadable []IncompleteFile `json:"unreadable" yaml:"unreadable"`
	// Incomplete is only populated in strict mode.
	Incomplete []IncompleteFile `json:"incomplete" yaml:"incomplete"`
}

// OK reports whether every check passed.
func (r *VerifyReport) OK() bool {
	return r.IssueCount() == 0
}

func (r *VerifyReport) IssueCount() int {
	return len(r.MissingSummaries) + len(r.LedgerMismatches) + len(r.NonASCIIFiles) +
		len(r.Unreadable) + len(r.Incomplete)
}

// Verify checks every meaningful directory: a summary exists, it is ASCII
// only, its ledger matches the one-hop subdirectories and, when strict, it
// is done.
func (a *App) Verify(ctx context.Context, req VerifyRequest) (*VerifyReport, error) {
	start := time.Now()
	defer observeOperation("verify", start)

	ctx, span := observability.Tracer.Start(ctx, "app.Verify",
		trace.WithAttributes(attribute.Bool("strict", req.Strict)))
	defer span.End()

	an, err := a.Analyze(ctx)
	if err != nil {
		return nil, err
	}

	report := &VerifyReport{
		Root:             a.Root,
		Strict:           req.Strict,
		MeaningfulDirs:   len(an.Meaningful),
		MissingSummaries: []string{},
		LedgerMismatches: []LedgerMismatch{},
		NonASCIIFiles:    []NonASCIIFile{},
		Unreadable:       []IncompleteFile{},
		Incomplete:       []IncompleteFile{},
	}
	var counts StatusCounts
	for _, rel := range an.Meaningful {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		node := an.Nodes[rel]
		path := a.summaryPath(node)
		relPath := a.relToRoot(path)

		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			report.MissingSummaries = append(report.MissingSummaries, relPath)
			counts.add(summary.StatusMissing)
			continue
		}
		if err != nil {
			report.Unreadable = append(report.Unreadable, IncompleteFile{Path: relPath, Error: err.Error()})
			counts.add(summary.StatusIncomplete)
			continue
		}
		text := string(data)

		if runes := summary.NonASCII(text); len(runes) > 0 {
			report.NonASCIIFiles = append(report.NonASCIIFiles, NonASCIIFile{
				Path:    relPath,
				Runes:   runes,
				Summary: summary.FormatNonASCII(runes),
			})
		}

		if mismatch, ok := a.checkLedger(an, rel, relPath, data); !ok {
			report.LedgerMismatches = append(report.LedgerMismatches, mismatch)
		}

		status := summary.StatusOfText(text)
		counts.add(status)
		if req.Strict && status != summary.StatusDone {
			report.Incomplete = append(report.Incomplete, IncompleteFile{Path: relPath, Status: status})
		}
	}

	observability.VerifyIssues.WithLabelValues("missing").Set(float64(len(report.MissingSummaries)))
	observability.VerifyIssues.WithLabelValues("ledger").Set(float64(len(report.LedgerMismatches)))
	observability.VerifyIssues.WithLabelValues("non_ascii").Set(float64(len(report.NonASCIIFiles)))
	observability.VerifyIssues.WithLabelValues("incomplete").Set(float64(len(report.Incomplete) + len(report.Unreadable)))
	span.SetAttributes(attribute.Int("issues", report.IssueCount()))

	a.recordRun(ctx, runRecord{
		operation:  "verify",
		mode:       verifyMode(req.Strict),
		visited:    len(an.Nodes),
		meaningful: len(an.Meaningful),
		counts:     counts,
		issues:     report.IssueCount(),
		ok:         report.OK(),
	})
	return report, nil
}

func (a *App) checkLedger(an *Analysis, rel, relPath string, data []byte) (LedgerMismatch, bool) {
	expected := tree.ExpectedSubdirs(an.Nodes, rel)
	listed, found := a.ledger.Subdirs(data)
	if !found {
		if len(expected) > 0 {
			return LedgerMismatch{Path: relPath, MissingSection: true, Expected: len(expected)}, false
		}
		return LedgerMismatch{}, true
	}

	want := make(map[string]bool, len(expected))
	for _, d := range expected {
		want[d] = true
	}
	have := make(map[string]bool, len(listed))
	for _, d := range listed {
		have[d] = true
	}
	var missing, extra []string
	for d := range want {
		if !have[d] {
			missing = append(missing, d)
		}
	}
	for d := range have {
		if !want[d] {
			extra = append(extra, d)
		}
	}
	if len(missing) == 0 && len(extra) == 0 {
		return LedgerMismatch{}, true
	}
	sort.Strings(missing)
	sort.Strings(extra)
	return LedgerMismatch{Path: relPath, Missing: missing, Extra: extra}, false
}

func verifyMode(strict bool) string {
	if strict {
		return "strict"
	}
	return "default"
}
