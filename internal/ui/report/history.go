// Package report renders recorded run history for export.
package report

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"layered/internal/data/history"
)

// HistoryReport is the structured form of `layered history`.
type HistoryReport struct {
	SchemaVersion int                `json:"schema_version" yaml:"schema_version"`
	Root          string             `json:"root" yaml:"root"`
	Since         *time.Time         `json:"since,omitempty" yaml:"since,omitempty"`
	RunCount      int                `json:"run_count" yaml:"run_count"`
	Runs          []history.Snapshot `json:"runs" yaml:"runs"`
}

func NewHistoryReport(root string, since time.Time, runs []history.Snapshot) HistoryReport {
	r := HistoryReport{
		SchemaVersion: history.SchemaVersion,
		Root:          root,
		RunCount:      len(runs),
		Runs:          runs,
	}
	if r.Runs == nil {
		r.Runs = []history.Snapshot{}
	}
	if !since.IsZero() {
		s := since.UTC()
		r.Since = &s
	}
	return r
}

func RenderHistoryTSV(report HistoryReport) ([]byte, error) {
	var buf strings.Builder

	buf.WriteString("Timestamp\tRunID\tOperation\tMode\tCommit\tDirsVisited\tMeaningful\tMissing\tIncomplete\tDone\tIssues\tOK\n")
	for _, run := range report.Runs {
		buf.WriteString(fmt.Sprintf(
			"%s\t%s\t%s\t%s\t%s\t%d\t%d\t%d\t%d\t%d\t%d\t%t\n",
			run.Timestamp.UTC().Format(time.RFC3339),
			run.RunID,
			run.Operation,
			dash(run.Mode),
			dash(shortCommit(run.CommitHash)),
			run.DirsVisited,
			run.MeaningfulDirs,
			run.Missing,
			run.Incomplete,
			run.Done,
			run.Issues,
			run.OK,
		))
	}

	return []byte(buf.String()), nil
}

func RenderHistoryJSON(report HistoryReport) ([]byte, error) {
	return json.MarshalIndent(report, "", "  ")
}

func shortCommit(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
