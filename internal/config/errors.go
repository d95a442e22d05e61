package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages.
var (
	// ErrNoCorpus is returned when no corpus directory is specified.
	ErrNoCorpus = errors.New("no corpus specified: provide one or more directories of HTML pages")

	// ErrInvalidDamping is returned when the damping factor is not in (0, 1).
	// At 0 every link is ignored; at 1 or above the iteration may never converge.
	ErrInvalidDamping = errors.New("invalid damping factor: must be greater than 0 and less than 1")

	// ErrInvalidSamples is returned when the sample count is not positive.
	ErrInvalidSamples = errors.New("invalid sample count: must be positive")

	// ErrInvalidThreshold is returned when the convergence threshold is not positive.
	// A zero threshold could only be met by exact floating-point equality.
	ErrInvalidThreshold = errors.New("invalid threshold: must be positive")

	// ErrInvalidMaxRounds is returned when the iteration cap is negative.
	// Use 0 for no cap.
	ErrInvalidMaxRounds = errors.New("invalid max rounds: must be non-negative")

	// ErrInvalidWorkers is returned when the worker count is not positive.
	ErrInvalidWorkers = errors.New("invalid worker count: must be positive")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	// A batch size of zero would mean no corpus is ever ranked.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified. Only one output format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")
)
