package log

import (
	"context"
	"io"
	"log/slog"
	"math"
)

// DefaultPrecision is the number of decimal places float attributes are
// rounded to by NewLogger.
const DefaultPrecision = 6

// PrecisionHandler wraps an slog.Handler to round float attributes.
// Rank vectors and convergence deltas are full-precision float64 values;
// printed as-is, successive rounds of an iteration differ in digits that
// carry no information and make logs hard to compare.
//
// Design decision: We use a handler wrapper rather than rounding at each
// call site because:
//  1. Estimators log raw values and stay free of presentation concerns
//  2. It works with any underlying handler (text, JSON, etc.)
//  3. The rounding is applied consistently, including inside groups
type PrecisionHandler struct {
	// handler is the underlying slog handler that receives rounded records.
	handler slog.Handler

	// scale is 10^precision.
	scale float64
}

// NewPrecisionHandler creates a new PrecisionHandler wrapping the given
// handler and rounding floats to precision decimal places.
// If handler is nil, the returned PrecisionHandler will use slog.Default().Handler().
// A negative precision is treated as zero.
func NewPrecisionHandler(handler slog.Handler, precision int) *PrecisionHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	return &PrecisionHandler{
		handler: handler,
		scale:   math.Pow10(max(precision, 0)),
	}
}

// Enabled reports whether the handler handles records at the given level.
// It delegates to the underlying handler.
func (h *PrecisionHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle rounds the record's attributes and passes it to the underlying handler.
func (h *PrecisionHandler) Handle(ctx context.Context, r slog.Record) error {
	rounded := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)

	r.Attrs(func(a slog.Attr) bool {
		rounded.AddAttrs(h.roundAttr(a))
		return true
	})

	return h.handler.Handle(ctx, rounded)
}

// WithAttrs returns a new handler with the given attributes added.
// Attributes are rounded before being added.
func (h *PrecisionHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	roundedAttrs := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		roundedAttrs[i] = h.roundAttr(a)
	}
	return &PrecisionHandler{handler: h.handler.WithAttrs(roundedAttrs), scale: h.scale}
}

// WithGroup returns a new handler with the given group name.
func (h *PrecisionHandler) WithGroup(name string) slog.Handler {
	return &PrecisionHandler{handler: h.handler.WithGroup(name), scale: h.scale}
}

// roundAttr rounds a single attribute, recursively handling groups.
func (h *PrecisionHandler) roundAttr(a slog.Attr) slog.Attr {
	v := a.Value.Resolve()

	switch v.Kind() {
	case slog.KindGroup:
		attrs := v.Group()
		roundedAttrs := make([]slog.Attr, len(attrs))
		for i, groupAttr := range attrs {
			roundedAttrs[i] = h.roundAttr(groupAttr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(roundedAttrs...)}

	case slog.KindFloat64:
		return slog.Float64(a.Key, h.round(v.Float64()))
	}

	return a
}

func (h *PrecisionHandler) round(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return f
	}
	return math.Round(f*h.scale) / h.scale
}

// NewLogger creates a new slog.Logger writing text to w with float
// attributes rounded to DefaultPrecision decimals.
//
// Parameters:
//   - w: The io.Writer to write log output to (typically os.Stderr)
//   - verbose: If true, sets log level to Debug; otherwise Warn
func NewLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	return slog.New(NewPrecisionHandler(slog.NewTextHandler(w, opts), DefaultPrecision))
}

// NewJSONLogger is like NewLogger but writes JSON records.
// Useful for structured log aggregation.
func NewJSONLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	return slog.New(NewPrecisionHandler(slog.NewJSONHandler(w, opts), DefaultPrecision))
}
