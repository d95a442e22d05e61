package rank

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/linkrank/internal/model"
)

// Iterator computes PageRank with the power method.
//
// Each round reads only the previous round's vector and writes a new one:
//
//	new(p) = (1-d)/N + d * ( Σ_{q→p} r(q)/out(q) + Σ_{q dangling} r(q)/N )
//
// Dangling pages spread their rank uniformly over every page, so no mass
// is lost. Iteration stops in the first round where no page moved by more
// than the threshold.
type Iterator struct {
	// graph is the graph being ranked. It is never modified.
	graph *model.Graph

	// damping is the probability of following a link.
	damping float64

	// threshold is the largest per-page change that still counts as converged.
	threshold float64

	// workers is the number of goroutines a round is split across.
	workers int

	// maxRounds caps the number of rounds. Zero means no cap.
	maxRounds int

	// logger for structured logging.
	logger *slog.Logger
}

// IterateOption configures an Iterator.
type IterateOption func(*Iterator)

// WithThreshold sets the convergence threshold (default DefaultThreshold).
func WithThreshold(t float64) IterateOption {
	return func(it *Iterator) {
		it.threshold = t
	}
}

// WithWorkers splits every round across n goroutines.
// Each page's new rank depends only on the frozen previous vector, so the
// pages of a round can be computed in any order without locking.
func WithWorkers(n int) IterateOption {
	return func(it *Iterator) {
		if n > 0 {
			it.workers = n
		}
	}
}

// WithMaxRounds stops the iteration with model.ErrNotConverged after n
// rounds. Zero (the default) runs until convergence, which is guaranteed
// for a damping factor in (0, 1).
func WithMaxRounds(n int) IterateOption {
	return func(it *Iterator) {
		if n >= 0 {
			it.maxRounds = n
		}
	}
}

// WithIterateLogger sets a custom logger for iteration.
func WithIterateLogger(logger *slog.Logger) IterateOption {
	return func(it *Iterator) {
		it.logger = logger
	}
}

// NewIterator validates its inputs and returns an Iterator over g.
func NewIterator(g *model.Graph, d float64, opts ...IterateOption) (*Iterator, error) {
	if err := validateGraph(g); err != nil {
		return nil, err
	}
	if err := ValidateDamping(d); err != nil {
		return nil, err
	}

	it := &Iterator{
		graph:     g,
		damping:   d,
		threshold: DefaultThreshold,
		workers:   1,
	}
	for _, opt := range opts {
		opt(it)
	}
	if err := ValidateThreshold(it.threshold); err != nil {
		return nil, err
	}
	if it.logger == nil {
		it.logger = slog.Default()
	}

	return it, nil
}

// Result is the outcome of a converged iteration.
type Result struct {
	// Ranks is the converged distribution.
	Ranks model.Distribution

	// Rounds is the number of rounds performed.
	Rounds int

	// Delta is the largest per-page change in the final round.
	Delta float64
}

// Run iterates from the uniform distribution until convergence.
// It returns ctx.Err() if ctx is cancelled between rounds.
func (it *Iterator) Run(ctx context.Context) (*Result, error) {
	size := it.graph.Len()
	ranks := make([]float64, size)
	for i := range ranks {
		ranks[i] = 1 / float64(size)
	}

	for round := 1; ; round++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		next, err := it.round(ctx, ranks)
		if err != nil {
			return nil, err
		}
		delta := maxDelta(ranks, next)
		ranks = next

		it.logger.Debug("iteration round",
			"round", round,
			"delta", delta,
		)

		if delta <= it.threshold {
			it.logger.Debug("iteration converged", "rounds", round)
			return &Result{
				Ranks:  model.NewDistribution(it.graph, ranks),
				Rounds: round,
				Delta:  delta,
			}, nil
		}
		if it.maxRounds > 0 && round >= it.maxRounds {
			return nil, fmt.Errorf("%w: delta %v after %d rounds (threshold %v)",
				model.ErrNotConverged, delta, round, it.threshold)
		}
	}
}

// Update applies exactly one round to r and returns the new distribution.
// Pages of the graph missing from r are treated as having rank zero;
// pages of r that are not in the graph are rejected with ErrUnknownPage.
func (it *Iterator) Update(r model.Distribution) (model.Distribution, error) {
	for p := range r {
		if !it.graph.Has(p) {
			return nil, fmt.Errorf("%w: %q", model.ErrUnknownPage, p)
		}
	}

	ranks := make([]float64, it.graph.Len())
	for i := range ranks {
		ranks[i] = r[it.graph.Page(i)]
	}
	next, err := it.round(context.Background(), ranks)
	if err != nil {
		return nil, err
	}
	return model.NewDistribution(it.graph, next), nil
}

// round computes the next rank vector from prev without modifying it.
func (it *Iterator) round(ctx context.Context, prev []float64) ([]float64, error) {
	g := it.graph
	size := len(prev)
	n := float64(size)

	var dangling float64
	for i, r := range prev {
		if len(g.OutIndexes(i)) == 0 {
			dangling += r
		}
	}
	base := (1-it.damping)/n + it.damping*dangling/n

	next := make([]float64, size)
	update := func(lo, hi int) {
		for p := lo; p < hi; p++ {
			var inbound float64
			for _, q := range g.InIndexes(p) {
				inbound += prev[q] / float64(len(g.OutIndexes(q)))
			}
			next[p] = base + it.damping*inbound
		}
	}

	if it.workers <= 1 || size < 2*it.workers {
		update(0, size)
		return next, nil
	}

	eg, ctx := errgroup.WithContext(ctx)
	chunk := (size + it.workers - 1) / it.workers
	for lo := 0; lo < size; lo += chunk {
		hi := min(lo+chunk, size)
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			update(lo, hi)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return next, nil
}

// Iterate returns the converged PageRank of g.
// It is a shorthand for NewIterator followed by Run.
func Iterate(g *model.Graph, d float64, opts ...IterateOption) (model.Distribution, error) {
	it, err := NewIterator(g, d, opts...)
	if err != nil {
		return nil, err
	}
	res, err := it.Run(context.Background())
	if err != nil {
		return nil, err
	}
	return res.Ranks, nil
}

func maxDelta(a, b []float64) float64 {
	var delta float64
	for i := range a {
		delta = math.Max(delta, math.Abs(b[i]-a[i]))
	}
	return delta
}
