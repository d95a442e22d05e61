package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/linkrank/internal/config"
	"github.com/nao1215/linkrank/internal/database"
	"github.com/nao1215/linkrank/internal/log"
	"github.com/nao1215/linkrank/internal/model"
	"github.com/nao1215/linkrank/internal/pipeline"
	"github.com/nao1215/linkrank/internal/report"
)

// overridableFlags are the flags a configuration file may override when
// they were not given on the command line.
var overridableFlags = []string{"damping", "samples", "threshold"}

// NewRankCmd creates the rank command.
func NewRankCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rank [corpus...]",
		Short: "Rank the pages of one or more HTML corpora",
		Long: `Rank builds the link graph of each corpus directory and estimates the
PageRank of every page in it.

Two estimates are printed: one from a random surfer that follows a link with
probability --damping and otherwise jumps to a random page, and one from
iterating the PageRank equation until no page changes by more than
--threshold. A page without links is treated as linking to every page.

Examples:
  # Rank a corpus with the default parameters
  linkrank rank corpus0

  # Reproducible sampling with more samples
  linkrank rank -n 100000 -s 42 corpus0

  # Rank several corpora, two at a time, and cross-check with gonum
  linkrank rank -b 2 -r corpus0 corpus1 corpus2

  # Write a Markdown report to a file
  linkrank rank -m -o reports/corpus0.md corpus0

Configuration file (.linkrank) example:
  defaults:
    samples: 20000
  corpora:
    corpus0:
      damping: 0.9
      ignorePatterns:
        - "draft-*"`,
		Args: cobra.ArbitraryArgs,
		RunE: runRankCmd,
	}

	// Estimator flags
	cmd.Flags().Float64P("damping", "d", config.DefaultDamping,
		"Probability of following a link instead of jumping to a random page")
	cmd.Flags().IntP("samples", "n", config.DefaultSamples,
		"Number of random-surfer steps used for sampling")
	cmd.Flags().Float64P("threshold", "t", config.DefaultThreshold,
		"Stop iterating once no rank changes by more than this")
	cmd.Flags().Int("max-rounds", 0,
		"Give up iterating after this many rounds (0 means no limit)")
	cmd.Flags().Uint64P("seed", "s", 0,
		"Seed for the random surfer (default: random, recorded in the report)")
	cmd.Flags().IntP("workers", "w", config.DefaultWorkers,
		"Number of goroutines each iteration round is split across")
	cmd.Flags().BoolP("reference", "r", false,
		"Also compute PageRank with gonum for comparison")

	// Batch flags
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of corpora ranked concurrently")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: ./.linkrank, then the XDG config dir, then ~/.linkrank)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
	cmd.Flags().Bool("no-save", false,
		"Do not save the results to the history database")

	return cmd
}

// runRankCmd executes the rank command.
func runRankCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := newLogger(cmd.ErrOrStderr(), cfg.Verbose, getBoolFlag(cmd, "log-json"))
	slog.SetDefault(logger)

	// Set up context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Warn("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return runRank(ctx, cfg, explicitFlags(cmd), cmd.OutOrStdout(), cmd.ErrOrStderr(), logger)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	return getBoolFlag(cmd, "verbose")
}

// getBoolFlag retrieves a global boolean flag from the command or its parent.
func getBoolFlag(cmd *cobra.Command, name string) bool {
	value, err := cmd.Flags().GetBool(name)
	if err != nil {
		value, err = cmd.Root().PersistentFlags().GetBool(name)
		if err != nil {
			return false
		}
	}
	return value
}

// newLogger creates the command logger, as JSON lines when asJSON is set.
func newLogger(w io.Writer, verbose, asJSON bool) *slog.Logger {
	if asJSON {
		return log.NewJSONLogger(w, verbose)
	}
	return log.NewLogger(w, verbose)
}

// explicitFlags reports which overridable flags were set on the command line.
func explicitFlags(cmd *cobra.Command) map[string]bool {
	explicit := make(map[string]bool, len(overridableFlags))
	for _, name := range overridableFlags {
		explicit[name] = cmd.Flags().Changed(name)
	}
	return explicit
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()

	var err error

	cfg.Damping, err = cmd.Flags().GetFloat64("damping")
	if err != nil {
		return nil, err
	}

	cfg.Samples, err = cmd.Flags().GetInt("samples")
	if err != nil {
		return nil, err
	}

	cfg.Threshold, err = cmd.Flags().GetFloat64("threshold")
	if err != nil {
		return nil, err
	}

	cfg.MaxRounds, err = cmd.Flags().GetInt("max-rounds")
	if err != nil {
		return nil, err
	}

	cfg.Seed, err = cmd.Flags().GetUint64("seed")
	if err != nil {
		return nil, err
	}
	cfg.HasSeed = cmd.Flags().Changed("seed")

	cfg.Workers, err = cmd.Flags().GetInt("workers")
	if err != nil {
		return nil, err
	}

	cfg.Reference, err = cmd.Flags().GetBool("reference")
	if err != nil {
		return nil, err
	}

	cfg.BatchSize, err = cmd.Flags().GetInt("batch")
	if err != nil {
		return nil, err
	}

	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// If user explicitly specified a config file path, error if not found.
	// If no path specified, silently use empty config if no file found.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	switch {
	case configPath != "":
		cfg.CorpusConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	case explicitConfigPath:
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	default:
		cfg.CorpusConfigs = &config.File{
			Corpora: make(map[string]config.CorpusConfig),
		}
	}

	cfg.JSONReport, err = cmd.Flags().GetBool("json")
	if err != nil {
		return nil, err
	}

	cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown")
	if err != nil {
		return nil, err
	}

	cfg.ReportFile, err = cmd.Flags().GetString("output")
	if err != nil {
		return nil, err
	}

	noSave, err := cmd.Flags().GetBool("no-save")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noSave
	cfg.DBDir = config.XDGDataDir()

	cfg.Verbose = getVerboseFlag(cmd)

	// Corpus keys are compared cleaned, so "corpus0/" and "corpus0" share history.
	cfg.Corpora = make([]string, len(args))
	for i, arg := range args {
		cfg.Corpora[i] = filepath.Clean(arg)
	}

	return cfg, nil
}

// runRank ranks every corpus in cfg and writes the reports to out.
// Progress and per-corpus errors go to errOut.
func runRank(ctx context.Context, cfg *config.Config, explicit map[string]bool, out, errOut io.Writer, logger *slog.Logger) error {
	logger.Info("starting rank",
		"corpora", cfg.Corpora,
		"damping", cfg.Damping,
		"samples", cfg.Samples,
		"threshold", cfg.Threshold,
		"batchSize", cfg.BatchSize,
		"saveToDB", cfg.SaveToDB,
	)

	var db *database.RankDB
	if cfg.SaveToDB {
		var err error
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Info("database opened", "path", db.Path())
	}

	output, closeOutput, err := openOutput(cfg.ReportFile, out)
	if err != nil {
		return err
	}
	defer closeOutput()

	writer := newReportWriter(cfg, output)
	factory := func(corpus string) *pipeline.Pipeline {
		return createPipelineForCorpus(cfg, explicit, corpus, logger)
	}

	startTime := time.Now()

	var reports []*model.RankReport
	if len(cfg.Corpora) > 1 && cfg.BatchSize > 1 {
		reports, err = runBatch(ctx, cfg, factory, logger)
	} else {
		reports, err = runSequential(ctx, cfg, factory)
	}

	failed := 0
	for _, r := range reports {
		if r == nil {
			continue
		}
		if !handleReport(ctx, writer, db, r, errOut, logger) {
			failed++
		}
	}

	logger.Info("rank complete",
		"corpora", len(cfg.Corpora),
		"failed", failed,
		"elapsed", time.Since(startTime),
	)

	if err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d corpora failed", failed, len(cfg.Corpora))
	}
	return nil
}

// runSequential ranks the corpora one at a time.
func runSequential(ctx context.Context, cfg *config.Config, factory func(string) *pipeline.Pipeline) ([]*model.RankReport, error) {
	reports := make([]*model.RankReport, 0, len(cfg.Corpora))
	for _, corpus := range cfg.Corpora {
		r := model.NewRankReport(corpus)
		// Failures other than cancellation are recorded in the report.
		if err := factory(corpus).Execute(ctx, r); err != nil && ctx.Err() != nil {
			return append(reports, r), ctx.Err()
		}
		reports = append(reports, r)
	}
	return reports, nil
}

// runBatch ranks the corpora concurrently. Reports come back in input order.
func runBatch(ctx context.Context, cfg *config.Config, factory func(string) *pipeline.Pipeline, logger *slog.Logger) ([]*model.RankReport, error) {
	bp := pipeline.NewBatchProcessor(factory,
		pipeline.WithConcurrency(cfg.BatchSize),
		pipeline.WithBatchLogger(logger),
	)
	return bp.ProcessBatch(ctx, cfg.Corpora)
}

// createPipelineForCorpus builds the pipeline for one corpus, applying the
// configuration file's settings for it. A failed estimator does not stop
// the others; the failure is reported after the results.
func createPipelineForCorpus(cfg *config.Config, explicit map[string]bool, corpus string, logger *slog.Logger) *pipeline.Pipeline {
	cc := cfg.ForCorpus(corpus, explicit)

	configOpts := []pipeline.DefaultPipelineOption{
		pipeline.WithPipelineDamping(cc.Damping),
		pipeline.WithPipelineSamples(cc.Samples),
		pipeline.WithPipelineThreshold(cc.Threshold),
		pipeline.WithPipelineMaxRounds(cfg.MaxRounds),
		pipeline.WithPipelineWorkers(cfg.Workers),
		pipeline.WithPipelineReference(cfg.Reference),
		pipeline.WithPipelineExtensions(cc.Extensions),
		pipeline.WithPipelineIgnorePatterns(cc.IgnorePatterns),
		pipeline.WithPipelineParseConcurrency(cfg.ParseConcurrency),
		pipeline.WithPipelineMaxFileSize(cfg.MaxFileSize),
	}
	if cfg.HasSeed {
		configOpts = append(configOpts, pipeline.WithPipelineSeed(cfg.Seed))
	}

	return pipeline.DefaultPipeline(
		[]pipeline.Option{
			pipeline.WithLogger(logger.With("corpus", corpus)),
			pipeline.WithContinueOnError(true),
		},
		configOpts...,
	)
}

// handleReport writes a finished report and saves it.
// It returns false if the corpus failed.
func handleReport(ctx context.Context, w report.Writer, db *database.RankDB, r *model.RankReport, errOut io.Writer, logger *slog.Logger) bool {
	if r.Graph == nil {
		fmt.Fprintf(errOut, "Rank error for %s: %v\n", r.Corpus, r.Error)
		return false
	}

	if _, err := w.Write(r); err != nil {
		logger.Error("report failed", "corpus", r.Corpus, "error", err)
		return false
	}

	if r.Error != nil {
		fmt.Fprintf(errOut, "Rank error for %s: %v\n", r.Corpus, r.Error)
		return false
	}

	if err := saveRankReport(ctx, db, r, logger); err != nil {
		logger.Error("failed to save rank report", "corpus", r.Corpus, "error", err)
	}
	return true
}

// openOutput returns the report destination: the named file, or out when
// path is empty. The returned function closes the file.
func openOutput(path string, out io.Writer) (io.Writer, func(), error) {
	if path == "" {
		return out, func() {}, nil
	}

	// Create directories if they don't exist
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // User-provided output path is intentional
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil //nolint:errcheck // Best effort close
}

// newReportWriter selects the report format.
// The plain-text format adds a corpus header when it would otherwise be
// ambiguous which corpus a listing belongs to.
func newReportWriter(cfg *config.Config, output io.Writer) report.Writer {
	switch {
	case cfg.JSONReport:
		return report.NewJSONWriter(output,
			report.WithPrettyPrint(),
			report.WithVersion(getVersion()),
		)
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(output)
	default:
		return report.NewSimpleWriter(output,
			report.WithDetails(len(cfg.Corpora) > 1 || cfg.Reference),
		)
	}
}

// saveRankReport saves the rank report to the database if enabled.
// If db is nil, this function is a no-op.
func saveRankReport(ctx context.Context, db *database.RankDB, r *model.RankReport, logger *slog.Logger) error {
	if db == nil {
		return nil
	}

	runID, err := db.SaveRankReport(ctx, r)
	if err != nil {
		return fmt.Errorf("failed to save rank report: %w", err)
	}

	logger.Info("rank report saved to database", "corpus", r.Corpus, "run_id", runID)
	return nil
}
