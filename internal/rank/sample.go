package rank

import (
	"log/slog"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/nao1215/linkrank/internal/model"
)

// sampler holds the configuration of one Sample call.
type sampler struct {
	// src drives both the choice of the starting page and every step.
	src rand.Source

	// logger for structured logging.
	logger *slog.Logger
}

// SampleOption configures Sample.
type SampleOption func(*sampler)

// WithSource sets the random source used by the walk.
// Two walks over the same graph with sources in the same state produce
// identical results.
func WithSource(src rand.Source) SampleOption {
	return func(s *sampler) {
		s.src = src
	}
}

// WithSeed seeds the walk with a PCG source built from seed.
func WithSeed(seed uint64) SampleOption {
	return func(s *sampler) {
		s.src = rand.NewPCG(seed, seed)
	}
}

// WithSampleLogger sets a custom logger for sampling.
func WithSampleLogger(logger *slog.Logger) SampleOption {
	return func(s *sampler) {
		s.logger = logger
	}
}

// Sample estimates PageRank by simulating a random surfer for n steps and
// returning the fraction of steps spent on each page.
//
// The walk starts on a page chosen uniformly at random. At every step the
// current page is counted, then the next page is drawn from
// Transition(g, current, d) by weight. The estimate converges to the
// stationary distribution, and so to Iterate's result, as n grows.
//
// Without WithSeed or WithSource the walk is seeded at random and two calls
// may return different estimates. This is intended.
//
// The walk is inherently sequential: each step depends on the previous one.
func Sample(g *model.Graph, d float64, n int, opts ...SampleOption) (model.Distribution, error) {
	if err := validateGraph(g); err != nil {
		return nil, err
	}
	if err := ValidateDamping(d); err != nil {
		return nil, err
	}
	if err := ValidateSamples(n); err != nil {
		return nil, err
	}

	s := &sampler{}
	for _, opt := range opts {
		opt(s)
	}
	if s.src == nil {
		s.src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	size := g.Len()
	counts := make([]int, size)
	weights := make([]float64, size)

	current := rand.New(s.src).IntN(size)
	transitionWeights(g, current, d, weights)
	next := distuv.NewCategorical(weights, s.src)

	s.logger.Debug("sampling started",
		"pages", size,
		"samples", n,
		"damping", d,
		"start", g.Page(current),
	)

	for range n {
		counts[current]++
		transitionWeights(g, current, d, weights)
		next.ReweightAll(weights)
		current = int(next.Rand())
	}

	ranks := make([]float64, size)
	for i, c := range counts {
		ranks[i] = float64(c) / float64(n)
	}

	s.logger.Debug("sampling finished", "samples", n)

	return model.NewDistribution(g, ranks), nil
}
