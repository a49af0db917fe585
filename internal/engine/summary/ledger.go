// # internal/engine/summary/ledger.go
package summary

import (
	"bytes"
	"regexp"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var (
	ledgerHeading = regexp.MustCompile(`^###\s+Subdirectories\s*$`)
	sectionEnd    = regexp.MustCompile(`^#{1,3}\s+`)
	ledgerEntry   = regexp.MustCompile("^- \\[[ x]\\]\\s+[`']([^`']+/)[`']\\s+-")
)

// LedgerParser extracts the subdirectory ledger from summary markdown.
type LedgerParser struct {
	markdown goldmark.Markdown
}

func NewLedgerParser() *LedgerParser {
	return &LedgerParser{markdown: goldmark.New()}
}

// Subdirs returns the "name/" entries listed under the first
// "### Subdirectories" heading, up to the next heading of level 1-3. Entries
// are "- [ ] `name/` - ..." lines at any list depth; other bullet markers do
// not count. The bool is false when the section does not exist.
func (p *LedgerParser) Subdirs(source []byte) ([]string, bool) {
	doc := p.markdown.Parser().Parse(text.NewReader(source))

	var section ast.Node
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if h, ok := n.(*ast.Heading); ok && h.Level == 3 &&
			ledgerHeading.Match(bytes.TrimSpace(headingLine(h, source))) {
			section = n
			break
		}
	}
	if section == nil {
		return nil, false
	}

	out := []string{}
	seen := map[int]bool{}
	for n := section.NextSibling(); n != nil; n = n.NextSibling() {
		if h, ok := n.(*ast.Heading); ok && h.Level <= 3 && sectionEnd.Match(headingLine(h, source)) {
			break
		}
		_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
			if !entering || node.Type() != ast.TypeBlock {
				return ast.WalkContinue, nil
			}
			lines := node.Lines()
			for i := 0; i < lines.Len(); i++ {
				start, line := rawLine(source, lines.At(i).Start)
				if seen[start] {
					continue
				}
				seen[start] = true
				if m := ledgerEntry.FindSubmatch(bytes.TrimSpace(line)); m != nil {
					out = append(out, string(m[1]))
				}
			}
			return ast.WalkContinue, nil
		})
	}
	return out, true
}

// headingLine returns the full source line of an ATX heading, closing
// hashes included. Setext headings yield their text line.
func headingLine(h *ast.Heading, source []byte) []byte {
	if h.Lines().Len() == 0 {
		return nil
	}
	_, line := rawLine(source, h.Lines().At(0).Start)
	return line
}

// rawLine returns the start offset and content of the source line holding
// offset, without its line terminator. The list marker and "[ ]" box are
// part of the line, unlike the inline text goldmark keeps.
func rawLine(source []byte, offset int) (int, []byte) {
	if offset > len(source) {
		offset = len(source)
	}
	start := bytes.LastIndexByte(source[:offset], '\n') + 1
	end := len(source)
	if i := bytes.IndexByte(source[offset:], '\n'); i >= 0 {
		end = offset + i
	}
	return start, bytes.TrimRight(source[start:end], "\r")
}
