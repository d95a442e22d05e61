package model

import (
	"errors"
	"fmt"
)

// Error categories. Every error produced by graph construction or by the
// estimators wraps exactly one of these, so callers can branch with
// errors.Is without caring about the specific cause.
var (
	// ErrInvalidGraph is returned when a graph violates its invariants.
	ErrInvalidGraph = errors.New("invalid graph")

	// ErrInvalidParameter is returned when an estimator argument is out of range.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrNotConverged is returned when an iteration cap is reached before
	// every page settled within the threshold.
	ErrNotConverged = errors.New("rank iteration did not converge")
)

// Specific graph errors.
var (
	// ErrEmptyGraph is returned when a graph has no pages.
	ErrEmptyGraph = fmt.Errorf("%w: graph has no pages", ErrInvalidGraph)

	// ErrUnknownLink is returned when a link targets a page that is not in the graph.
	ErrUnknownLink = fmt.Errorf("%w: link target is not a page of the graph", ErrInvalidGraph)

	// ErrSelfLink is returned when a page lists itself as a link target.
	ErrSelfLink = fmt.Errorf("%w: page links to itself", ErrInvalidGraph)

	// ErrNilGraph is returned when an estimator receives a nil graph.
	ErrNilGraph = fmt.Errorf("%w: graph is nil", ErrInvalidGraph)
)

// Specific parameter errors.
var (
	// ErrInvalidDamping is returned when the damping factor is not in (0, 1).
	ErrInvalidDamping = fmt.Errorf("%w: damping factor must be in (0, 1)", ErrInvalidParameter)

	// ErrInvalidSamples is returned when the sample count is not positive.
	ErrInvalidSamples = fmt.Errorf("%w: sample count must be positive", ErrInvalidParameter)

	// ErrInvalidThreshold is returned when the convergence threshold is not positive.
	ErrInvalidThreshold = fmt.Errorf("%w: convergence threshold must be positive", ErrInvalidParameter)

	// ErrUnknownPage is returned when a page is not part of the graph.
	ErrUnknownPage = fmt.Errorf("%w: page is not in the graph", ErrInvalidParameter)
)
