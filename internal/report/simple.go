package report

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/nao1215/linkrank/internal/model"
)

// SimpleWriter outputs the plain-text rank listing.
// By default it prints exactly two blocks, one per estimator:
//
//	PageRank Results from Sampling (n = 10000)
//	  1.html: 0.2223
//	PageRank Results from Iteration
//	  1.html: 0.2202
//
// Design decision: the default layout is kept byte-for-byte stable so that
// existing scripts that scrape it keep working. Everything else (corpus
// statistics, the reference estimate, agreement) is opt-in via WithDetails.
type SimpleWriter struct {
	baseWriter

	// details enables the corpus header and agreement footer.
	details bool

	// printer formats counts with thousands separators.
	printer *message.Printer
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithDetails enables the corpus header, reference block and agreement footer.
func WithDetails(details bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.details = details
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		printer:    message.NewPrinter(language.English),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the report in plain text.
func (w *SimpleWriter) Write(report *model.RankReport) (int, error) {
	var sb strings.Builder

	summary := summaryOf(report)
	if w.details {
		w.writeHeader(&sb, report)
	}
	w.writeRanks(&sb, summary)
	if w.details {
		w.writeFooter(&sb, summary)
	}

	return w.output.Write([]byte(sb.String()))
}

// WriteSummary outputs the summary in plain text.
func (w *SimpleWriter) WriteSummary(summary *model.Summary) (int, error) {
	var sb strings.Builder

	if w.details {
		w.writeSummaryHeader(&sb, summary)
	}
	w.writeRanks(&sb, summary)
	if w.details {
		w.writeFooter(&sb, summary)
	}

	return w.output.Write([]byte(sb.String()))
}

// writeRanks writes one block per estimator present in the summary.
func (w *SimpleWriter) writeRanks(sb *strings.Builder, summary *model.Summary) {
	if hasColumn(summary, sampledOf) {
		sb.WriteString(fmt.Sprintf("PageRank Results from Sampling (n = %d)\n", summary.Samples))
		writeColumn(sb, summary, sampledOf)
	}
	if hasColumn(summary, iteratedOf) {
		sb.WriteString("PageRank Results from Iteration\n")
		writeColumn(sb, summary, iteratedOf)
	}
	if w.details && hasColumn(summary, referenceOf) {
		sb.WriteString("PageRank Results from Reference\n")
		writeColumn(sb, summary, referenceOf)
	}
}

// writeHeader writes corpus statistics for a full report.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *model.RankReport) {
	w.writeSummaryHeader(sb, report.Summary)

	sb.WriteString(w.printer.Sprintf("Links:          %d\n", report.LinkCount))
	sb.WriteString(w.printer.Sprintf("Dangling Pages: %d\n", len(report.DanglingPages)))
	if report.Rounds > 0 {
		sb.WriteString(w.printer.Sprintf("Rounds:         %d\n", report.Rounds))
	}

	switch {
	case report.TimedOut:
		sb.WriteString("Status:         CANCELLED (partial results)\n")
	case report.ErrorMessage != "":
		sb.WriteString("Status:         ERROR - " + report.ErrorMessage + "\n")
	default:
		sb.WriteString("Status:         Complete\n")
	}
	sb.WriteString("\n")
}

// writeSummaryHeader writes the fields every summary carries.
func (w *SimpleWriter) writeSummaryHeader(sb *strings.Builder, summary *model.Summary) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString(w.printer.Sprintf("Corpus:         %s\n", summary.Corpus))
	sb.WriteString(w.printer.Sprintf("Ranked:         %s\n", summary.DateRanked.Format("2006-01-02 15:04:05 MST")))
	sb.WriteString(w.printer.Sprintf("Damping:        %.2f\n", summary.Damping))
	sb.WriteString(w.printer.Sprintf("Pages:          %d\n", len(summary.Rows)))
}

// writeFooter writes the agreement between the two estimators.
func (w *SimpleWriter) writeFooter(sb *strings.Builder, summary *model.Summary) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	if summary.Agreement == model.AgreementUnknown {
		sb.WriteString("Agreement:      UNKNOWN\n")
	} else {
		sb.WriteString(w.printer.Sprintf("Agreement:      %s (max deviation %.4f)\n", summary.AgreementText, summary.Deviation))
	}
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}

// column selects one estimate from a row.
type column func(model.SummaryRow) *float64

func sampledOf(r model.SummaryRow) *float64   { return r.Sampled }
func iteratedOf(r model.SummaryRow) *float64  { return r.Iterated }
func referenceOf(r model.SummaryRow) *float64 { return r.Reference }

// hasColumn reports whether any row carries the selected estimate.
func hasColumn(summary *model.Summary, col column) bool {
	for _, row := range summary.Rows {
		if col(row) != nil {
			return true
		}
	}
	return false
}

// writeColumn writes "  page: 0.0000" for every row carrying the estimate.
// Rows are already sorted by page.
func writeColumn(sb *strings.Builder, summary *model.Summary, col column) {
	for _, row := range summary.Rows {
		v := col(row)
		if v == nil {
			continue
		}
		sb.WriteString("  ")
		sb.WriteString(string(row.Page))
		sb.WriteString(": ")
		sb.WriteString(formatScore(*v))
		sb.WriteString("\n")
	}
}
