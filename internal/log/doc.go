// Package log provides the application's slog setup.
//
// This package extends slog to provide:
//   - Rounding of float attributes (ranks, deltas) to a fixed precision
//   - Configurable log levels with verbose mode support
//   - Consistent log formatting across the application
//
// # Usage
//
//	logger := log.NewLogger(os.Stderr, true) // verbose=true
//
//	logger.Debug("iteration round",
//	    "round", 3,
//	    "delta", 0.000123456789, // Logged as 0.000123
//	)
//
//	slog.SetDefault(logger)
//
// Components never create loggers themselves; they accept a *slog.Logger
// through a With...Logger option and fall back to slog.Default().
package log
