package config

import (
	"math"
	"path/filepath"

	"github.com/adrg/xdg"
)

// Default configuration values.
// The estimator defaults match the conventional PageRank settings.
const (
	// DefaultDamping is the probability that the random surfer follows a link
	// rather than teleporting. 0.85 is the value from the original PageRank paper.
	DefaultDamping = 0.85

	// DefaultSamples is the length of the random walk used by the sampling
	// estimator. 10000 steps gives estimates within about 0.01 of the exact
	// ranks on small corpora while finishing instantly.
	DefaultSamples = 10000

	// DefaultThreshold is the convergence threshold of the iterative estimator.
	// Iteration stops in the first round where no page moves by more than this.
	DefaultThreshold = 0.001

	// DefaultBatchSize is the number of corpora ranked concurrently.
	DefaultBatchSize = 4

	// DefaultWorkers is the number of goroutines each iteration round is split
	// across. Corpora are usually small enough that one is fastest.
	DefaultWorkers = 1

	// DefaultExtension is the file extension of pages in a corpus.
	DefaultExtension = ".html"

	// DefaultParseConcurrency is the number of files parsed in parallel per corpus.
	DefaultParseConcurrency = 4

	// DefaultMaxFileSize limits how much of each page is parsed.
	// 10MB is far beyond any hand-written page and stops runaway inputs.
	DefaultMaxFileSize = 10 * 1024 * 1024 // 10MB

	// AppName is the application name used for XDG directory paths.
	AppName = "linkrank"
)

// Config holds all configuration options for linkrank.
// This struct is designed to be populated from CLI flags and passed through
// the application via dependency injection rather than global state.
//
// Design decision: We use a single flat struct instead of nested structs
// (e.g., RankConfig, ReportConfig) for simplicity. The number of options
// is manageable, and nesting would add complexity without significant benefit.
type Config struct {
	// Damping is the damping factor shared by every estimator.
	// Must lie in the open interval (0, 1).
	Damping float64

	// Samples is the number of random-walk steps of the sampling estimator.
	Samples int

	// Threshold is the convergence threshold of the iterative estimator.
	Threshold float64

	// MaxRounds caps the number of iteration rounds. Zero means no cap.
	// Iteration always converges for a valid damping factor, so the cap only
	// matters for very small thresholds.
	MaxRounds int

	// Seed seeds the random walk when HasSeed is true.
	// Without a seed every run samples differently.
	Seed uint64

	// HasSeed reports whether Seed was set explicitly.
	HasSeed bool

	// Workers is the number of goroutines each iteration round is split across.
	Workers int

	// Reference enables the gonum cross-check estimator.
	Reference bool

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// BatchSize is the number of corpora ranked concurrently.
	BatchSize int

	// ParseConcurrency is the number of files parsed in parallel per corpus.
	ParseConcurrency int

	// MaxFileSize limits how many bytes of each page are parsed.
	MaxFileSize int64

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches for .linkrank in the current directory
	// and then in the user's home directory.
	ConfigFilePath string

	// CorpusConfigs holds corpus-specific configurations loaded from the config file.
	// This is populated by LoadConfigFile and used when building pipelines.
	CorpusConfigs *File

	// JSONReport enables JSON report output instead of human-readable format.
	// Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport enables Markdown report output instead of human-readable format.
	// When true, outputs GitHub Flavored Markdown with tables, alerts, and pie charts.
	// Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the report.
	// When set, the report is written to this file instead of stdout.
	// Directories are created automatically if they don't exist.
	ReportFile string

	// Corpora is the list of corpus directories to rank.
	Corpora []string

	// DBDir is the directory path for storing the SQLite database.
	// Defaults to XDG data directory (~/.local/share/linkrank on Linux).
	DBDir string

	// SaveToDB indicates whether to save rank results to the database.
	SaveToDB bool
}

// NewConfig creates a new Config with default values.
//
// Design decision: We use a constructor function instead of relying on
// zero values because most defaults are non-zero (damping, samples, threshold).
// This also serves as documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		Damping:          DefaultDamping,
		Samples:          DefaultSamples,
		Threshold:        DefaultThreshold,
		Workers:          DefaultWorkers,
		BatchSize:        DefaultBatchSize,
		ParseConcurrency: DefaultParseConcurrency,
		MaxFileSize:      DefaultMaxFileSize,
	}
}

// XDGDataDir returns the XDG data directory for linkrank.
// On Linux: ~/.local/share/linkrank
// On macOS: ~/Library/Application Support/linkrank
// On Windows: %LOCALAPPDATA%\linkrank
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for linkrank.
// On Linux: ~/.config/linkrank
// On macOS: ~/Library/Application Support/linkrank
// On Windows: %APPDATA%\linkrank
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns a specific error describing what is invalid.
//
// Design decision: We validate at the config level rather than at each
// point of use to fail fast and provide clear error messages upfront.
// The estimators validate their own arguments again, so library callers
// that bypass Config are still protected.
func (c *Config) Validate() error {
	if len(c.Corpora) == 0 {
		return ErrNoCorpus
	}

	// Damping outside (0, 1) either never mixes or never converges
	if math.IsNaN(c.Damping) || c.Damping <= 0 || c.Damping >= 1 {
		return ErrInvalidDamping
	}

	if c.Samples <= 0 {
		return ErrInvalidSamples
	}

	if math.IsNaN(c.Threshold) || c.Threshold <= 0 {
		return ErrInvalidThreshold
	}

	if c.MaxRounds < 0 {
		return ErrInvalidMaxRounds
	}

	if c.Workers <= 0 {
		return ErrInvalidWorkers
	}

	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}

	// JSONReport and MarkdownReport are mutually exclusive
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	return nil
}

// ForCorpus returns the rank parameters for one corpus directory:
// the flag values, overridden by the config file's defaults and then by
// the corpus-specific entry. Only parameters that were not set on the
// command line can be overridden; explicit is passed by the caller.
func (c *Config) ForCorpus(dir string, explicit map[string]bool) CorpusConfig {
	result := CorpusConfig{
		Damping:   c.Damping,
		Samples:   c.Samples,
		Threshold: c.Threshold,
	}
	if c.CorpusConfigs == nil {
		return result
	}

	file := c.CorpusConfigs.GetCorpusConfig(dir)
	if file.Damping != 0 && !explicit["damping"] {
		result.Damping = file.Damping
	}
	if file.Samples != 0 && !explicit["samples"] {
		result.Samples = file.Samples
	}
	if file.Threshold != 0 && !explicit["threshold"] {
		result.Threshold = file.Threshold
	}
	result.Extensions = file.Extensions
	result.IgnorePatterns = file.IgnorePatterns

	return result
}
