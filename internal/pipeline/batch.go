package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/linkrank/internal/model"
)

// DefaultConcurrency is the number of corpora ranked at once when
// WithConcurrency is not given.
const DefaultConcurrency = 4

// BatchProcessor handles concurrent ranking of multiple corpora.
// It uses errgroup to manage goroutines and respect concurrency limits.
//
// Design decision: We use a separate BatchProcessor rather than adding batch
// functionality to Pipeline because:
// 1. It keeps the Pipeline focused on a single corpus
// 2. Each corpus gets its own pipeline, so per-corpus settings apply
// 3. It provides cleaner separation of concerns
type BatchProcessor struct {
	// pipelineFactory creates a new pipeline for each corpus.
	pipelineFactory func(corpus string) *Pipeline

	// concurrency is the maximum number of corpora ranked at once.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of corpora ranked at once.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
//
// The pipelineFactory function is called once per corpus, so settings
// read from the configuration file for that corpus take effect.
func NewBatchProcessor(pipelineFactory func(corpus string) *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		concurrency:     DefaultConcurrency,
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch ranks multiple corpora concurrently and returns their
// reports in input order. A failed corpus still yields a report carrying
// its error. Corpora never started because of cancellation have a nil
// report, and the error return is then the cancellation cause.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, corpora []string) ([]*model.RankReport, error) {
	results := make([]*model.RankReport, len(corpora))

	err := bp.ProcessBatchWithCallback(ctx, corpora, func(report *model.RankReport, index int) {
		// Each index is written by exactly one goroutine.
		results[index] = report
	})

	return results, err
}

// ProcessBatchWithCallback ranks multiple corpora and calls callback for
// each finished one. This is useful for streaming results.
//
// The callback is called from the goroutine that ranked the corpus, so it
// must be safe for concurrent use if it touches shared state.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	corpora []string,
	callback func(report *model.RankReport, index int),
) error {
	bp.logger.Info("starting batch processing",
		"total_corpora", len(corpora),
		"concurrency", bp.concurrency,
	)

	startTime := time.Now()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, corpus := range corpora {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			bp.logger.Info("ranking corpus",
				"corpus", corpus,
				"index", i+1,
				"total", len(corpora),
			)

			report := model.NewRankReport(corpus)
			if err := bp.pipelineFactory(corpus).Execute(ctx, report); err != nil {
				// The error is recorded in the report; other corpora continue.
				bp.logger.Warn("ranking failed",
					"corpus", corpus,
					"error", err,
				)
			}

			callback(report, i)
			return nil
		})
	}

	err := g.Wait()

	bp.logger.Info("batch processing complete",
		"total_corpora", len(corpora),
		"elapsed", time.Since(startTime),
	)

	return err
}
