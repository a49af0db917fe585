// # internal/engine/tree/classify.go
package tree

import (
	"sort"

	"layered/internal/engine/globs"
)

type Kind string

const (
	KindLeaf           Kind = "leaf"
	KindNonLeaf        Kind = "non-leaf"
	KindAggregatorOnly Kind = "aggregator-only"
)

// DirClass is the scope and meaningfulness of one scanned directory.
// Meaningful implies InScope; the reverse does not hold.
type DirClass struct {
	InScope    bool
	Meaningful bool
	Kind       Kind
}

// Classify computes a DirClass for every node in a single bottom-up pass.
// Ignore always wins over include, selected files and in-scope children.
func Classify(nodes map[string]*DirNode, include, ignore globs.List) map[string]DirClass {
	out := make(map[string]DirClass, len(nodes))
	for _, n := range byDepthDesc(nodes) {
		dirPath := DirMatchPath(n.Rel)
		dirIgnored := ignore.Match(dirPath)

		selected := selectFiles(n, include, ignore)
		localSignal := len(selected) > 0

		childInScope := false
		meaningfulChild := false
		for _, ch := range n.Children {
			c, ok := out[ch]
			if !ok || !c.InScope {
				continue
			}
			childInScope = true
			if c.Meaningful {
				meaningfulChild = true
			}
		}

		selfInclude := true
		if !include.Empty() {
			selfInclude = include.Match(dirPath) || localSignal || childInScope
		}
		inScope := selfInclude && !dirIgnored
		meaningful := inScope && (localSignal || meaningfulChild)

		kind := KindLeaf
		if meaningful && meaningfulChild {
			kind = KindAggregatorOnly
			if localSignal {
				kind = KindNonLeaf
			}
		}

		out[n.Rel] = DirClass{InScope: inScope, Meaningful: meaningful, Kind: kind}
	}
	return out
}

// byDepthDesc orders nodes deepest first, then by rel for stable output.
func byDepthDesc(nodes map[string]*DirNode) []*DirNode {
	ordered := make([]*DirNode, 0, len(nodes))
	for _, n := range nodes {
		ordered = append(ordered, n)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].Depth != ordered[j].Depth {
			return ordered[i].Depth > ordered[j].Depth
		}
		return ordered[i].Rel < ordered[j].Rel
	})
	return ordered
}
