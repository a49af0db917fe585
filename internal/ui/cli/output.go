package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"gopkg.in/yaml.v3"

	"layered/internal/core/errors"
	"layered/internal/engine/summary"
)

type outputFormat string

const (
	formatMarkdown outputFormat = "markdown"
	formatJSON     outputFormat = "json"
	formatYAML     outputFormat = "yaml"
)

func parseFormat(s string) (outputFormat, error) {
	switch outputFormat(strings.ToLower(strings.TrimSpace(s))) {
	case "", formatMarkdown, "md", "text":
		return formatMarkdown, nil
	case formatJSON:
		return formatJSON, nil
	case formatYAML, "yml":
		return formatYAML, nil
	}
	return "", errors.New(errors.CodeValidationError, fmt.Sprintf("unknown format %q (want markdown, json or yaml)", s))
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

// writeStructured handles the json and yaml formats. It returns false for
// markdown so the caller renders its own text.
func writeStructured(w io.Writer, format outputFormat, v any) (bool, error) {
	switch format {
	case formatJSON:
		return true, writeJSON(w, v)
	case formatYAML:
		return true, writeYAML(w, v)
	}
	return false, nil
}

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#3B82F6"))

	missingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F87171")).
			Bold(true)

	incompleteStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FBBF24"))

	doneStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981"))

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B"))
)

// styler colors text only when writing to a terminal, so piped output
// stays byte-for-byte plain.
type styler struct {
	enabled bool
}

func newStyler(w io.Writer) styler {
	f, ok := w.(*os.File)
	if !ok {
		return styler{}
	}
	return styler{enabled: isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())}
}

func (s styler) render(style lipgloss.Style, text string) string {
	if !s.enabled {
		return text
	}
	return style.Render(text)
}

func (s styler) header(text string) string { return s.render(headerStyle, text) }
func (s styler) muted(text string) string  { return s.render(mutedStyle, text) }

func (s styler) status(st summary.Status) string {
	switch st {
	case summary.StatusMissing:
		return s.render(missingStyle, string(st))
	case summary.StatusIncomplete:
		return s.render(incompleteStyle, string(st))
	case summary.StatusDone:
		return s.render(doneStyle, string(st))
	}
	return string(st)
}

func (s styler) ok(pass bool) string {
	if pass {
		return s.render(doneStyle, "true")
	}
	return s.render(missingStyle, "false")
}

func writeList(w io.Writer, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s:\n", title)
	for _, item := range items {
		fmt.Fprintf(w, " - %s\n", item)
	}
}

func writeRuneCounts(w io.Writer, counts []summary.RuneCount) {
	for _, rc := range counts {
		fmt.Fprintf(w, "  - %s %s: %d\n", rc.Code(), rc.Name(), rc.Count)
	}
}

func modeLabel(write bool) string {
	if write {
		return "write"
	}
	return "dry-run"
}
