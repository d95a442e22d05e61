package model

import (
	"time"
)

// RankReport is the result of ranking one corpus.
// It carries the parameters used, the estimates produced by each estimator
// and enough state to reproduce or compare the run later.
//
// Design decision: a single flat struct keeps JSON output and database
// storage trivial. The graph itself is excluded from serialization; the
// per-page link counts needed for display are captured in Summary.
type RankReport struct {
	// === Run Parameters ===

	// Corpus is the directory the graph was extracted from.
	Corpus string `json:"corpus"`

	// DateRanked is when the run started.
	DateRanked time.Time `json:"date_ranked"`

	// Damping is the damping factor used by every estimator.
	Damping float64 `json:"damping"`

	// Samples is the number of random-walk steps used for sampling.
	Samples int `json:"samples"`

	// Threshold is the convergence threshold used for iteration.
	Threshold float64 `json:"threshold"`

	// Seed is the random seed used for sampling.
	// Ranking again with the same seed reproduces Sampled.
	Seed uint64 `json:"seed,omitempty"`

	// === Graph Data ===

	// Graph is the link graph that was ranked.
	Graph *Graph `json:"-"`

	// Titles maps pages to their HTML titles, when present.
	Titles map[PageID]string `json:"titles,omitempty"`

	// PageCount is the number of pages in the graph.
	PageCount int `json:"page_count"`

	// LinkCount is the number of links in the graph.
	LinkCount int `json:"link_count"`

	// DanglingPages lists the pages without outbound links.
	DanglingPages []PageID `json:"dangling_pages,omitempty"`

	// === Estimates ===

	// Sampled is the random-surfer estimate. Nil if sampling was not run.
	Sampled Distribution `json:"sampled,omitempty"`

	// Iterated is the power-method estimate. Nil if iteration was not run.
	Iterated Distribution `json:"iterated,omitempty"`

	// Reference is the gonum estimate, only present when requested.
	Reference Distribution `json:"reference,omitempty"`

	// Rounds is the number of iteration rounds until convergence.
	Rounds int `json:"rounds,omitempty"`

	// Summary holds the merged per-page view used by report writers.
	Summary *Summary `json:"summary,omitempty"`

	// === Run State ===

	// TimedOut is true if the run was cancelled before all steps finished.
	TimedOut bool `json:"timed_out"`

	// PerformedSteps lists the pipeline steps that ran.
	PerformedSteps []string `json:"performed_steps,omitempty"`

	// Elapsed records how long each step took.
	Elapsed map[string]time.Duration `json:"elapsed,omitempty"`

	// Error contains the error of the last failed step.
	Error error `json:"-"`

	// ErrorMessage is the string form of Error for serialization.
	ErrorMessage string `json:"error,omitempty"` //nolint:tagliatelle // error is conventional
}

// NewRankReport creates an empty report for the given corpus.
func NewRankReport(corpus string) *RankReport {
	return &RankReport{
		Corpus:     corpus,
		DateRanked: time.Now(),
		Elapsed:    make(map[string]time.Duration),
	}
}

// SetCorpus attaches an extracted corpus to the report.
func (r *RankReport) SetCorpus(c *Corpus) {
	r.Graph = c.Graph
	r.Titles = c.Titles
	r.PageCount = c.Graph.Len()
	r.LinkCount = c.Graph.LinkCount()
	r.DanglingPages = c.Graph.Dangling()
}

// Deviation returns the largest per-page difference between the sampled
// and iterated estimates, or zero if either is missing.
func (r *RankReport) Deviation() float64 {
	if r.Sampled == nil || r.Iterated == nil {
		return 0
	}
	return r.Sampled.MaxDiff(r.Iterated)
}
