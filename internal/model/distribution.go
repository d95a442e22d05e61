package model

import (
	"cmp"
	"maps"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
)

// Distribution maps every page of a graph to its estimated rank.
// Values are non-negative and sum to approximately 1.
//
// Estimators always return a fresh Distribution; callers own it.
type Distribution map[PageID]float64

// Rank is a single page score, used for ordered listings.
type Rank struct {
	Page  PageID  `json:"page"`
	Score float64 `json:"score"`
}

// NewDistribution pairs the pages of g with values indexed like g.Pages().
func NewDistribution(g *Graph, values []float64) Distribution {
	d := make(Distribution, len(values))
	for i, v := range values {
		d[g.Page(i)] = v
	}
	return d
}

// Sum returns the total mass. Values are added in page order so the
// result does not depend on map iteration order.
func (d Distribution) Sum() float64 {
	sorted := d.Sorted()
	values := make([]float64, len(sorted))
	for i, r := range sorted {
		values[i] = r.Score
	}
	return floats.Sum(values)
}

// Sorted returns the ranks ordered by page identifier.
func (d Distribution) Sorted() []Rank {
	ranks := make([]Rank, 0, len(d))
	for _, p := range slices.Sorted(maps.Keys(d)) {
		ranks = append(ranks, Rank{Page: p, Score: d[p]})
	}
	return ranks
}

// ByScore returns the ranks ordered by descending score.
// Equal scores are ordered by page identifier.
func (d Distribution) ByScore() []Rank {
	ranks := d.Sorted()
	slices.SortStableFunc(ranks, func(a, b Rank) int {
		return cmp.Compare(b.Score, a.Score)
	})
	return ranks
}

// MaxDiff returns the largest absolute per-page difference between d and o.
// A page present on only one side is compared against zero.
func (d Distribution) MaxDiff(o Distribution) float64 {
	var diff float64
	for p, v := range d {
		diff = math.Max(diff, math.Abs(v-o[p]))
	}
	for p, v := range o {
		if _, ok := d[p]; !ok {
			diff = math.Max(diff, math.Abs(v))
		}
	}
	return diff
}

// Clone returns a copy of d.
func (d Distribution) Clone() Distribution {
	return maps.Clone(d)
}
