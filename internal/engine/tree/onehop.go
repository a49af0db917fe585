package tree

import (
	"sort"

	"layered/internal/engine/globs"
)

// SelectedFiles returns rel's one-hop files that survive ignore and, when
// include is non-empty, match include.
func SelectedFiles(nodes map[string]*DirNode, rel string, include, ignore globs.List) []string {
	n, ok := nodes[rel]
	if !ok {
		return nil
	}
	return selectFiles(n, include, ignore)
}

func selectFiles(n *DirNode, include, ignore globs.List) []string {
	out := make([]string, 0, len(n.OneHopFiles))
	for _, f := range n.OneHopFiles {
		fp := FileMatchPath(n.Rel, f)
		if ignore.Match(fp) {
			continue
		}
		if !include.Empty() && !include.Match(fp) {
			continue
		}
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// ExpectedSubdirs is the ledger a summary for rel must list. It is the
// unfiltered one-hop view; include/ignore never narrow it.
func ExpectedSubdirs(nodes map[string]*DirNode, rel string) []string {
	n, ok := nodes[rel]
	if !ok {
		return nil
	}
	return append([]string(nil), n.OneHopSubdirs...)
}

// GroupByDepth buckets rels by node depth, each bucket sorted.
func GroupByDepth(nodes map[string]*DirNode, rels []string) map[int][]string {
	out := make(map[int][]string)
	for _, rel := range rels {
		n, ok := nodes[rel]
		if !ok {
			continue
		}
		out[n.Depth] = append(out[n.Depth], rel)
	}
	for depth := range out {
		sort.Strings(out[depth])
	}
	return out
}

// MeaningfulRels lists meaningful directories ordered by depth, then rel.
func MeaningfulRels(nodes map[string]*DirNode, classes map[string]DirClass) []string {
	var out []string
	for rel, c := range classes {
		if c.Meaningful {
			out = append(out, rel)
		}
	}
	SortByDepth(nodes, out)
	return out
}

// SortByDepth sorts rels shallowest first, ties broken by rel.
func SortByDepth(nodes map[string]*DirNode, rels []string) {
	sort.Slice(rels, func(i, j int) bool {
		di, dj := depthOf(nodes, rels[i]), depthOf(nodes, rels[j])
		if di != dj {
			return di < dj
		}
		return rels[i] < rels[j]
	})
}

// RelSet returns the set of scanned rel paths.
func RelSet(nodes map[string]*DirNode) map[string]bool {
	out := make(map[string]bool, len(nodes))
	for rel := range nodes {
		out[rel] = true
	}
	return out
}

func depthOf(nodes map[string]*DirNode, rel string) int {
	if n, ok := nodes[rel]; ok {
		return n.Depth
	}
	return relDepth(rel)
}
