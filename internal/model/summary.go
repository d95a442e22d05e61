package model

import (
	"time"
)

// Agreement classifies how closely the sampled estimate tracks the
// iterated one. The iterated estimate is treated as ground truth.
type Agreement int

const (
	// AgreementUnknown means one of the two estimates is missing.
	AgreementUnknown Agreement = iota

	// AgreementPoor means some page deviates by more than AgreementFairLimit.
	AgreementPoor

	// AgreementFair means every page is within AgreementFairLimit.
	AgreementFair

	// AgreementGood means every page is within AgreementGoodLimit.
	AgreementGood
)

// Deviation limits used to classify agreement.
const (
	AgreementGoodLimit = 0.01
	AgreementFairLimit = 0.02
)

// String returns a human-readable representation of the agreement level.
func (a Agreement) String() string {
	switch a {
	case AgreementGood:
		return "GOOD"
	case AgreementFair:
		return "FAIR"
	case AgreementPoor:
		return "POOR"
	default:
		return "UNKNOWN"
	}
}

// ClassifyDeviation maps a maximum per-page deviation to an Agreement.
func ClassifyDeviation(deviation float64) Agreement {
	switch {
	case deviation <= AgreementGoodLimit:
		return AgreementGood
	case deviation <= AgreementFairLimit:
		return AgreementFair
	default:
		return AgreementPoor
	}
}

// Summary is the per-page view of a RankReport used for display.
//
// Design decision: writers never walk the graph or the raw distributions
// themselves. Building the rows once here keeps every output format
// consistent and makes the JSON output self-describing.
type Summary struct {
	// Corpus is the ranked directory.
	Corpus string `json:"corpus"`

	// DateRanked is when the run started.
	DateRanked time.Time `json:"date_ranked"`

	// Damping and Samples are the parameters the estimates were made with.
	Damping float64 `json:"damping"`
	Samples int     `json:"samples"`

	// Rows holds one entry per page, sorted by page identifier.
	Rows []SummaryRow `json:"rows"`

	// Deviation is the largest |sampled - iterated| over all pages.
	Deviation float64 `json:"deviation"`

	// Agreement classifies Deviation.
	Agreement Agreement `json:"agreement"`

	// AgreementText is the human-readable Agreement.
	AgreementText string `json:"agreement_text"`

	// SampledSum and IteratedSum are the total masses of each estimate.
	SampledSum  float64 `json:"sampled_sum"`
	IteratedSum float64 `json:"iterated_sum"`
}

// SummaryRow holds everything known about one page.
type SummaryRow struct {
	Page       PageID   `json:"page"`
	Title      string   `json:"title,omitempty"`
	OutLinks   int      `json:"out_links"`
	InLinks    int      `json:"in_links"`
	LinkedFrom []PageID `json:"linked_from,omitempty"`
	Dangling   bool     `json:"dangling,omitempty"`
	Sampled    *float64 `json:"sampled,omitempty"`
	Iterated   *float64 `json:"iterated,omitempty"`
	Reference  *float64 `json:"reference,omitempty"`
}

// NewSummary builds the summary of a report. Without a graph only the run
// parameters are filled in.
func NewSummary(report *RankReport) *Summary {
	s := &Summary{
		Corpus:     report.Corpus,
		DateRanked: report.DateRanked,
		Damping:    report.Damping,
		Samples:    report.Samples,
	}

	g := report.Graph
	if g == nil {
		return s
	}

	s.Rows = make([]SummaryRow, 0, g.Len())
	for _, p := range g.Pages() {
		backlinks := g.Backlinks(p)
		row := SummaryRow{
			Page:       p,
			Title:      report.Titles[p],
			OutLinks:   g.OutDegree(p),
			InLinks:    len(backlinks),
			LinkedFrom: backlinks,
			Dangling:   g.IsDangling(p),
		}
		row.Sampled = lookup(report.Sampled, p)
		row.Iterated = lookup(report.Iterated, p)
		row.Reference = lookup(report.Reference, p)
		s.Rows = append(s.Rows, row)
	}

	if report.Sampled != nil {
		s.SampledSum = report.Sampled.Sum()
	}
	if report.Iterated != nil {
		s.IteratedSum = report.Iterated.Sum()
	}
	if report.Sampled != nil && report.Iterated != nil {
		s.Deviation = report.Deviation()
		s.Agreement = ClassifyDeviation(s.Deviation)
	}
	s.AgreementText = s.Agreement.String()

	return s
}

// lookup returns a pointer to d[p], or nil when d is nil.
func lookup(d Distribution, p PageID) *float64 {
	if d == nil {
		return nil
	}
	v, ok := d[p]
	if !ok {
		return nil
	}
	return &v
}
