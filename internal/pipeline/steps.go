package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/nao1215/linkrank/internal/crawler"
	"github.com/nao1215/linkrank/internal/model"
	"github.com/nao1215/linkrank/internal/rank"
)

// LoadStep extracts the link graph from the corpus directory.
//
// Design decision: loading is a step rather than a precondition so that
// its duration shows up in report.Elapsed and a failed load is recorded
// in the report like any other failure.
type LoadStep struct {
	extensions     []string
	ignorePatterns []string
	concurrency    int
	maxFileSize    int64
	logger         *slog.Logger
}

// LoadStepOption configures a LoadStep.
type LoadStepOption func(*LoadStep)

// WithLoadExtensions sets the file extensions treated as pages.
func WithLoadExtensions(exts []string) LoadStepOption {
	return func(s *LoadStep) {
		s.extensions = exts
	}
}

// WithLoadIgnorePatterns sets file name patterns excluded from the corpus.
func WithLoadIgnorePatterns(patterns []string) LoadStepOption {
	return func(s *LoadStep) {
		s.ignorePatterns = patterns
	}
}

// WithLoadConcurrency sets the number of files parsed in parallel.
func WithLoadConcurrency(n int) LoadStepOption {
	return func(s *LoadStep) {
		s.concurrency = n
	}
}

// WithLoadMaxFileSize limits how many bytes of each page are parsed.
func WithLoadMaxFileSize(size int64) LoadStepOption {
	return func(s *LoadStep) {
		s.maxFileSize = size
	}
}

// WithLoadLogger sets a custom logger for the load step.
func WithLoadLogger(logger *slog.Logger) LoadStepOption {
	return func(s *LoadStep) {
		s.logger = logger
	}
}

// NewLoadStep creates a new corpus loading step.
func NewLoadStep(opts ...LoadStepOption) *LoadStep {
	s := &LoadStep{
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *LoadStep) Name() string {
	return "load"
}

// Do executes the load step.
func (s *LoadStep) Do(ctx context.Context, report *model.RankReport) error {
	opts := []crawler.CorpusOption{
		crawler.WithLogger(s.logger),
	}
	if len(s.extensions) > 0 {
		opts = append(opts, crawler.WithExtensions(s.extensions))
	}
	if len(s.ignorePatterns) > 0 {
		opts = append(opts, crawler.WithIgnorePatterns(s.ignorePatterns))
	}
	if s.concurrency > 0 {
		opts = append(opts, crawler.WithConcurrency(s.concurrency))
	}
	if s.maxFileSize > 0 {
		opts = append(opts, crawler.WithMaxFileSize(s.maxFileSize))
	}

	corpus, err := crawler.BuildGraph(ctx, report.Corpus, opts...)
	if err != nil {
		return fmt.Errorf("failed to load corpus %s: %w", report.Corpus, err)
	}
	report.SetCorpus(corpus)

	s.logger.Info("corpus loaded",
		"corpus", report.Corpus,
		"pages", report.PageCount,
		"links", report.LinkCount,
		"dangling", len(report.DanglingPages),
		"skipped", len(corpus.Skipped),
		"dropped_links", corpus.DroppedLinks,
	)

	return nil
}

// SampleStep estimates PageRank with the random-surfer model.
type SampleStep struct {
	damping float64
	samples int
	seed    uint64
	hasSeed bool
	logger  *slog.Logger
}

// SampleStepOption configures a SampleStep.
type SampleStepOption func(*SampleStep)

// WithSampleSeed fixes the seed so runs are reproducible.
func WithSampleSeed(seed uint64) SampleStepOption {
	return func(s *SampleStep) {
		s.seed = seed
		s.hasSeed = true
	}
}

// WithSampleStepLogger sets a custom logger for the sampling step.
func WithSampleStepLogger(logger *slog.Logger) SampleStepOption {
	return func(s *SampleStep) {
		s.logger = logger
	}
}

// NewSampleStep creates a sampling step.
func NewSampleStep(damping float64, samples int, opts ...SampleStepOption) *SampleStep {
	s := &SampleStep{
		damping: damping,
		samples: samples,
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *SampleStep) Name() string {
	return "sample"
}

// Do executes the sampling step.
// Without a fixed seed a fresh one is drawn and recorded in the report,
// so every run can be replayed with --seed.
func (s *SampleStep) Do(_ context.Context, report *model.RankReport) error {
	if report.Graph == nil {
		return ErrNoGraph
	}

	seed := s.seed
	if !s.hasSeed {
		seed = rand.Uint64()
	}

	ranks, err := rank.Sample(report.Graph, s.damping, s.samples,
		rank.WithSeed(seed),
		rank.WithSampleLogger(s.logger),
	)
	if err != nil {
		return err
	}

	report.Damping = s.damping
	report.Samples = s.samples
	report.Seed = seed
	report.Sampled = ranks

	return nil
}

// IterateStep estimates PageRank with the power method.
type IterateStep struct {
	damping   float64
	threshold float64
	workers   int
	maxRounds int
	logger    *slog.Logger
}

// IterateStepOption configures an IterateStep.
type IterateStepOption func(*IterateStep)

// WithIterateThreshold sets the convergence threshold.
func WithIterateThreshold(t float64) IterateStepOption {
	return func(s *IterateStep) {
		s.threshold = t
	}
}

// WithIterateWorkers splits each round across n goroutines.
func WithIterateWorkers(n int) IterateStepOption {
	return func(s *IterateStep) {
		s.workers = n
	}
}

// WithIterateMaxRounds caps the number of rounds. Zero means no cap.
func WithIterateMaxRounds(n int) IterateStepOption {
	return func(s *IterateStep) {
		s.maxRounds = n
	}
}

// WithIterateStepLogger sets a custom logger for the iteration step.
func WithIterateStepLogger(logger *slog.Logger) IterateStepOption {
	return func(s *IterateStep) {
		s.logger = logger
	}
}

// NewIterateStep creates an iteration step.
func NewIterateStep(damping float64, opts ...IterateStepOption) *IterateStep {
	s := &IterateStep{
		damping:   damping,
		threshold: rank.DefaultThreshold,
		workers:   1,
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *IterateStep) Name() string {
	return "iterate"
}

// Do executes the iteration step.
func (s *IterateStep) Do(ctx context.Context, report *model.RankReport) error {
	if report.Graph == nil {
		return ErrNoGraph
	}

	it, err := rank.NewIterator(report.Graph, s.damping,
		rank.WithThreshold(s.threshold),
		rank.WithWorkers(s.workers),
		rank.WithMaxRounds(s.maxRounds),
		rank.WithIterateLogger(s.logger),
	)
	if err != nil {
		return err
	}

	report.Damping = s.damping
	report.Threshold = s.threshold

	result, err := it.Run(ctx)
	if err != nil {
		return err
	}

	report.Iterated = result.Ranks
	report.Rounds = result.Rounds

	s.logger.Info("iteration converged",
		"corpus", report.Corpus,
		"rounds", result.Rounds,
		"delta", result.Delta,
	)

	return nil
}

// ReferenceStep computes PageRank with gonum for comparison.
type ReferenceStep struct {
	damping float64
	logger  *slog.Logger
}

// NewReferenceStep creates a reference step.
func NewReferenceStep(damping float64, logger *slog.Logger) *ReferenceStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReferenceStep{
		damping: damping,
		logger:  logger,
	}
}

// Name returns the step name.
func (s *ReferenceStep) Name() string {
	return "reference"
}

// Do executes the reference step.
func (s *ReferenceStep) Do(_ context.Context, report *model.RankReport) error {
	if report.Graph == nil {
		return ErrNoGraph
	}

	ranks, err := rank.Reference(report.Graph, s.damping)
	if err != nil {
		return err
	}
	report.Reference = ranks

	if report.Iterated != nil {
		s.logger.Debug("reference computed",
			"corpus", report.Corpus,
			"max_diff_iterated", ranks.MaxDiff(report.Iterated),
		)
	}

	return nil
}

// SummaryStep builds the per-page summary used by report writers.
type SummaryStep struct{}

// NewSummaryStep creates a summary step.
func NewSummaryStep() *SummaryStep {
	return &SummaryStep{}
}

// Name returns the step name.
func (s *SummaryStep) Name() string {
	return "summarize"
}

// Do executes the summary step.
func (s *SummaryStep) Do(_ context.Context, report *model.RankReport) error {
	if report.Graph == nil {
		return ErrNoGraph
	}
	report.Summary = model.NewSummary(report)
	return nil
}

// DefaultPipelineConfig holds configuration for the default pipeline.
type DefaultPipelineConfig struct {
	// Damping is shared by every estimator.
	Damping float64

	// Samples is the number of random-walk steps.
	Samples int

	// Threshold is the convergence threshold of the iteration.
	Threshold float64

	// MaxRounds caps the iteration. Zero means no cap.
	MaxRounds int

	// Seed fixes the sampler when HasSeed is true.
	Seed    uint64
	HasSeed bool

	// Workers splits each iteration round across goroutines.
	Workers int

	// Reference adds the gonum reference step.
	Reference bool

	// Extensions and IgnorePatterns select the pages of the corpus.
	Extensions     []string
	IgnorePatterns []string

	// ParseConcurrency is the number of files parsed in parallel.
	ParseConcurrency int

	// MaxFileSize limits how many bytes of each page are parsed.
	MaxFileSize int64
}

// DefaultPipelineOption configures a DefaultPipelineConfig.
type DefaultPipelineOption func(*DefaultPipelineConfig)

// WithPipelineDamping sets the damping factor.
func WithPipelineDamping(d float64) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Damping = d
	}
}

// WithPipelineSamples sets the number of samples.
func WithPipelineSamples(n int) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Samples = n
	}
}

// WithPipelineThreshold sets the convergence threshold.
func WithPipelineThreshold(t float64) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Threshold = t
	}
}

// WithPipelineMaxRounds caps the iteration.
func WithPipelineMaxRounds(n int) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.MaxRounds = n
	}
}

// WithPipelineSeed fixes the sampler's seed.
func WithPipelineSeed(seed uint64) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Seed = seed
		c.HasSeed = true
	}
}

// WithPipelineWorkers sets the number of iteration workers.
func WithPipelineWorkers(n int) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Workers = n
	}
}

// WithPipelineReference enables the gonum reference step.
func WithPipelineReference(enabled bool) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Reference = enabled
	}
}

// WithPipelineExtensions sets the page file extensions.
func WithPipelineExtensions(exts []string) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Extensions = exts
	}
}

// WithPipelineIgnorePatterns sets file name patterns to skip.
func WithPipelineIgnorePatterns(patterns []string) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.IgnorePatterns = patterns
	}
}

// WithPipelineParseConcurrency sets the number of files parsed in parallel.
func WithPipelineParseConcurrency(n int) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.ParseConcurrency = n
	}
}

// WithPipelineMaxFileSize limits how many bytes of each page are parsed.
func WithPipelineMaxFileSize(size int64) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.MaxFileSize = size
	}
}

// DefaultPipeline creates a pipeline with all default steps configured:
// load, sample, iterate, optionally reference, and summarize.
//
// The first parameter accepts pipeline options (WithLogger, etc).
// The variadic parameter accepts pipeline config options
// (WithPipelineDamping, etc). Steps log through the pipeline's logger.
func DefaultPipeline(pipelineOpts []Option, configOpts ...DefaultPipelineOption) *Pipeline {
	p := New(pipelineOpts...)

	cfg := &DefaultPipelineConfig{
		Damping:   rank.DefaultDamping,
		Samples:   rank.DefaultSamples,
		Threshold: rank.DefaultThreshold,
		Workers:   1,
	}
	for _, opt := range configOpts {
		opt(cfg)
	}

	sampleOpts := []SampleStepOption{
		WithSampleStepLogger(p.logger),
	}
	if cfg.HasSeed {
		sampleOpts = append(sampleOpts, WithSampleSeed(cfg.Seed))
	}

	p.AddSteps(
		NewLoadStep(
			WithLoadExtensions(cfg.Extensions),
			WithLoadIgnorePatterns(cfg.IgnorePatterns),
			WithLoadConcurrency(cfg.ParseConcurrency),
			WithLoadMaxFileSize(cfg.MaxFileSize),
			WithLoadLogger(p.logger),
		),
		NewSampleStep(cfg.Damping, cfg.Samples, sampleOpts...),
		NewIterateStep(cfg.Damping,
			WithIterateThreshold(cfg.Threshold),
			WithIterateWorkers(cfg.Workers),
			WithIterateMaxRounds(cfg.MaxRounds),
			WithIterateStepLogger(p.logger),
		),
	)
	if cfg.Reference {
		p.AddStep(NewReferenceStep(cfg.Damping, p.logger))
	}
	p.AddStep(NewSummaryStep())

	return p
}
