// Package globs compiles the include/ignore glob dialect shared by the
// planner, scaffolder and verifier.
//
// Supported syntax, matched against POSIX-style relative paths:
//
//	*      zero or more characters except '/'
//	?      exactly one character except '/'
//	**/    zero or more whole path segments
//	**     anything, including '/'
//	[...]  character class; [!...] and [^...] negate
//
// Every other character is literal. A class without a closing bracket
// degrades to a literal '['. Compilation never fails.
package globs

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Pattern is a compiled glob anchored at both ends.
type Pattern struct {
	raw string
	re  *regexp.Regexp
}

// List is an ordered set of patterns; a path matches when any member does.
type List []Pattern

// Normalize trims whitespace, one leading "./" and every leading "/".
func Normalize(p string) string {
	p = strings.TrimSpace(p)
	p = strings.TrimPrefix(p, "./")
	return strings.TrimLeft(p, "/")
}

// Compile normalizes p and compiles it. The empty pattern matches nothing.
func Compile(p string) Pattern {
	p = Normalize(p)
	if p == "" {
		return Pattern{}
	}
	re, err := regexp.Compile(Translate(p))
	if err != nil {
		// Translate only emits escaped literals and validated classes.
		re = regexp.MustCompile("^" + regexp.QuoteMeta(p) + "$")
	}
	return Pattern{raw: p, re: re}
}

// ParseCSV compiles a comma-separated pattern list, dropping empty entries.
func ParseCSV(value string) List {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	var out List
	for _, part := range strings.Split(value, ",") {
		if Normalize(part) == "" {
			continue
		}
		out = append(out, Compile(part))
	}
	return out
}

// Match reports whether path matches the whole pattern.
func (p Pattern) Match(path string) bool {
	if p.re == nil {
		return false
	}
	return p.re.MatchString(path)
}

// String returns the normalized glob text.
func (p Pattern) String() string {
	return p.raw
}

func (l List) Match(path string) bool {
	for _, p := range l {
		if p.Match(path) {
			return true
		}
	}
	return false
}

func (l List) Empty() bool {
	return len(l) == 0
}

// MentionsName reports whether any pattern's text contains name as a plain
// substring, not a glob match. It gates descent into default-skip directories.
func (l List) MentionsName(name string) bool {
	if name == "" {
		return false
	}
	for _, p := range l {
		if strings.Contains(p.raw, name) {
			return true
		}
	}
	return false
}

// Strings returns the pattern texts in order.
func (l List) Strings() []string {
	out := make([]string, 0, len(l))
	for _, p := range l {
		out = append(out, p.raw)
	}
	return out
}

// Translate converts a normalized glob into an anchored regular expression.
func Translate(pattern string) string {
	var b strings.Builder
	b.WriteString("^")
	for i := 0; i < len(pattern); {
		switch {
		case strings.HasPrefix(pattern[i:], "**/"):
			b.WriteString("(?:[^/]+/)*")
			i += 3
		case strings.HasPrefix(pattern[i:], "**"):
			b.WriteString(".*")
			i += 2
		case pattern[i] == '*':
			b.WriteString("[^/]*")
			i++
		case pattern[i] == '?':
			b.WriteString("[^/]")
			i++
		case pattern[i] == '[':
			class, n, ok := translateClass(pattern[i:])
			if !ok {
				b.WriteString(regexp.QuoteMeta("["))
				i++
				continue
			}
			b.WriteString(class)
			i += n
		default:
			r, size := utf8.DecodeRuneInString(pattern[i:])
			b.WriteString(regexp.QuoteMeta(string(r)))
			i += size
		}
	}
	b.WriteString("$")
	return b.String()
}

// translateClass parses a bracket expression at the start of s. It returns
// the regexp class, the number of bytes consumed, and false when the class
// is unterminated, empty, or holds a reversed range.
func translateClass(s string) (string, int, bool) {
	j := 1
	negate := false
	if j < len(s) && (s[j] == '!' || s[j] == '^') {
		negate = true
		j++
	}
	end := strings.IndexByte(s[j:], ']')
	if end < 0 {
		return "", 0, false
	}
	body := []rune(s[j : j+end])
	if len(body) == 0 {
		return "", 0, false
	}

	var b strings.Builder
	b.WriteByte('[')
	if negate {
		b.WriteByte('^')
	}
	for k := 0; k < len(body); k++ {
		lo := body[k]
		if k+2 < len(body) && body[k+1] == '-' {
			hi := body[k+2]
			if hi < lo {
				return "", 0, false
			}
			b.WriteString(escapeClassRune(lo))
			b.WriteByte('-')
			b.WriteString(escapeClassRune(hi))
			k += 2
			continue
		}
		b.WriteString(escapeClassRune(lo))
	}
	b.WriteByte(']')
	return b.String(), j + end + 1, true
}

func escapeClassRune(r rune) string {
	switch r {
	case '\\', '[', ']', '^', '-':
		return `\` + string(r)
	}
	return string(r)
}
