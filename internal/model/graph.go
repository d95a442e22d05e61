package model

import (
	"fmt"
	"slices"
)

// PageID identifies a page of the corpus, typically its file name.
// Identifiers are ordered by plain string comparison; every listing that
// leaves this package is sorted that way so output is reproducible.
type PageID string

// Graph is an immutable directed link graph over a closed set of pages.
//
// Invariants, checked by NewGraph:
//   - the graph has at least one page;
//   - every link target is itself a page of the graph;
//   - no page links to itself;
//   - a page links to a given target at most once.
//
// Pages are stored in sorted order and addressed internally by their index
// in that order. Both the outbound and the inbound adjacency are computed
// once at construction. Nothing mutates a Graph after NewGraph returns, so
// it may be shared by any number of goroutines.
type Graph struct {
	pages []PageID
	index map[PageID]int
	out   [][]int
	in    [][]int
	links int
}

// NewGraph builds a Graph from a mapping of page to outbound link targets.
// Duplicate targets are collapsed. The input map is not retained.
func NewGraph(links map[PageID][]PageID) (*Graph, error) {
	if len(links) == 0 {
		return nil, ErrEmptyGraph
	}

	pages := make([]PageID, 0, len(links))
	for p := range links {
		pages = append(pages, p)
	}
	slices.Sort(pages)

	index := make(map[PageID]int, len(pages))
	for i, p := range pages {
		index[p] = i
	}

	g := &Graph{
		pages: pages,
		index: index,
		out:   make([][]int, len(pages)),
		in:    make([][]int, len(pages)),
	}

	for i, p := range pages {
		targets := make([]int, 0, len(links[p]))
		for _, t := range links[p] {
			if t == p {
				return nil, fmt.Errorf("%w: %q", ErrSelfLink, p)
			}
			j, ok := index[t]
			if !ok {
				return nil, fmt.Errorf("%w: %q -> %q", ErrUnknownLink, p, t)
			}
			targets = append(targets, j)
		}
		slices.Sort(targets)
		targets = slices.Compact(targets)

		g.out[i] = targets
		g.links += len(targets)
		for _, j := range targets {
			g.in[j] = append(g.in[j], i)
		}
	}

	return g, nil
}

// Len returns the number of pages.
func (g *Graph) Len() int {
	return len(g.pages)
}

// LinkCount returns the total number of links.
func (g *Graph) LinkCount() int {
	return g.links
}

// Pages returns all pages sorted by identifier.
func (g *Graph) Pages() []PageID {
	return slices.Clone(g.pages)
}

// Has reports whether p is a page of the graph.
func (g *Graph) Has(p PageID) bool {
	_, ok := g.index[p]
	return ok
}

// Index returns the position of p in Pages.
func (g *Graph) Index(p PageID) (int, bool) {
	i, ok := g.index[p]
	return i, ok
}

// Page returns the page at position i of Pages.
// It panics if i is out of range.
func (g *Graph) Page(i int) PageID {
	return g.pages[i]
}

// Links returns the outbound link targets of p, sorted by identifier.
// It returns nil if p has no links or is not in the graph.
func (g *Graph) Links(p PageID) []PageID {
	i, ok := g.index[p]
	if !ok {
		return nil
	}
	return g.idsOf(g.out[i])
}

// Backlinks returns the pages linking to p, sorted by identifier.
func (g *Graph) Backlinks(p PageID) []PageID {
	i, ok := g.index[p]
	if !ok {
		return nil
	}
	return g.idsOf(g.in[i])
}

// OutDegree returns the number of outbound links of p.
func (g *Graph) OutDegree(p PageID) int {
	i, ok := g.index[p]
	if !ok {
		return 0
	}
	return len(g.out[i])
}

// InDegree returns the number of pages linking to p.
func (g *Graph) InDegree(p PageID) int {
	i, ok := g.index[p]
	if !ok {
		return 0
	}
	return len(g.in[i])
}

// IsDangling reports whether p is a page without outbound links.
func (g *Graph) IsDangling(p PageID) bool {
	i, ok := g.index[p]
	return ok && len(g.out[i]) == 0
}

// Dangling returns every page without outbound links, sorted by identifier.
func (g *Graph) Dangling() []PageID {
	var dangling []PageID
	for i, p := range g.pages {
		if len(g.out[i]) == 0 {
			dangling = append(dangling, p)
		}
	}
	return dangling
}

// OutIndexes returns the indexes of the outbound targets of page i.
// The returned slice is shared with the graph and must not be modified.
func (g *Graph) OutIndexes(i int) []int {
	return g.out[i]
}

// InIndexes returns the indexes of the pages linking to page i.
// The returned slice is shared with the graph and must not be modified.
func (g *Graph) InIndexes(i int) []int {
	return g.in[i]
}

func (g *Graph) idsOf(idx []int) []PageID {
	if len(idx) == 0 {
		return nil
	}
	ids := make([]PageID, len(idx))
	for k, i := range idx {
		ids[k] = g.pages[i]
	}
	return ids
}
