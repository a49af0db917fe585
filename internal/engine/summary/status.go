// Package summary models the per-directory summary document: its completion
// status, the stub the scaffolder writes, the subdirectory ledger the
// verifier reads back, and ASCII normalization.
package summary

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

type Status string

const (
	StatusMissing    Status = "missing"
	StatusIncomplete Status = "incomplete"
	StatusDone       Status = "done"
)

var uncheckedItem = regexp.MustCompile(`(?m)^- \[ \]`)

// StatusOf derives the status of dir's summary file.
func StatusOf(dir, summaryFile string) Status {
	path := filepath.Join(dir, summaryFile)
	if _, err := os.Stat(path); err != nil {
		return StatusMissing
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return StatusIncomplete
	}
	return StatusOfText(string(data))
}

// StatusOfText classifies existing summary content: empty, "[TBD]" or an
// unchecked "- [ ]" item anywhere makes it incomplete.
func StatusOfText(text string) Status {
	if strings.TrimSpace(text) == "" {
		return StatusIncomplete
	}
	if strings.Contains(text, "[TBD]") {
		return StatusIncomplete
	}
	if uncheckedItem.MatchString(text) {
		return StatusIncomplete
	}
	return StatusDone
}
