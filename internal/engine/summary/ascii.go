package summary

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/unicode/runenames"
)

// Replacements maps typographic characters to ASCII stand-ins.
func Replacements() map[rune]string {
	return map[rune]string{
		'—': "-",   // em dash
		'–': "-",   // en dash
		'’': "'",   // right single quotation mark
		'“': `"`,   // left double quotation mark
		'”': `"`,   // right double quotation mark
		'→': "->",  // rightwards arrow
		'↔': "<->", // left right arrow
		'ç': "c",   // c with cedilla
	}
}

// RuneCount is one non-ASCII character and how often it occurs.
type RuneCount struct {
	Rune  rune
	Count int
}

func (rc RuneCount) Code() string {
	return fmt.Sprintf("U+%04X", rc.Rune)
}

func (rc RuneCount) Name() string {
	if name := runenames.Name(rc.Rune); name != "" {
		return name
	}
	return "UNKNOWN"
}

type runeCountView struct {
	Code  string `json:"code" yaml:"code"`
	Name  string `json:"name" yaml:"name"`
	Count int    `json:"count" yaml:"count"`
}

func (rc RuneCount) view() runeCountView {
	return runeCountView{Code: rc.Code(), Name: rc.Name(), Count: rc.Count}
}

func (rc RuneCount) MarshalJSON() ([]byte, error) {
	return json.Marshal(rc.view())
}

func (rc RuneCount) MarshalYAML() (interface{}, error) {
	return rc.view(), nil
}

// NonASCII counts characters above U+007F, ordered by code point.
func NonASCII(text string) []RuneCount {
	counts := make(map[rune]int)
	for _, r := range text {
		if r > 127 {
			counts[r]++
		}
	}
	return sortedCounts(counts)
}

// FormatNonASCII renders counts as "U+2014x3, U+2192x1".
func FormatNonASCII(counts []RuneCount) string {
	parts := make([]string, 0, len(counts))
	for _, c := range counts {
		parts = append(parts, fmt.Sprintf("%sx%d", c.Code(), c.Count))
	}
	return strings.Join(parts, ", ")
}

// NormalizeASCII applies Replacements and reports how many of each source
// character were replaced.
func NormalizeASCII(text string) (string, []RuneCount) {
	table := Replacements()
	counts := make(map[rune]int)
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if repl, ok := table[r]; ok {
			counts[r]++
			b.WriteString(repl)
			continue
		}
		b.WriteRune(r)
	}
	return b.String(), sortedCounts(counts)
}

// MergeCounts folds src into dst.
func MergeCounts(dst map[rune]int, src []RuneCount) {
	for _, c := range src {
		dst[c.Rune] += c.Count
	}
}

// SortCounts converts a count map into code-point order.
func SortCounts(counts map[rune]int) []RuneCount {
	return sortedCounts(counts)
}

func sortedCounts(counts map[rune]int) []RuneCount {
	out := make([]RuneCount, 0, len(counts))
	for r, n := range counts {
		if n > 0 {
			out = append(out, RuneCount{Rune: r, Count: n})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Rune < out[j].Rune })
	return out
}
