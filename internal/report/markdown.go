package report

import (
	"cmp"
	"io"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/nao1215/linkrank/internal/model"
)

// maxPieSlices caps the pie chart; smaller pages are folded into one slice.
const maxPieSlices = 12

// pieScale converts a rank into basis points for the integer-valued chart.
const pieScale = 10000

// maxTopPages is the length of the top pages list.
const maxTopPages = 5

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter

	// printer formats counts with thousands separators.
	printer *message.Printer
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
		printer:    message.NewPrinter(language.English),
	}
}

// Write outputs the full report in Markdown format.
func (w *MarkdownWriter) Write(report *model.RankReport) (int, error) {
	summary := summaryOf(report)

	md := markdown.NewMarkdown(w.output)
	md.H1("linkrank Report")
	md.PlainText("")

	rows := w.propertyRows(summary)
	rows = append(rows,
		[]string{"Links", w.printer.Sprintf("%d", report.LinkCount)},
		[]string{"Dangling Pages", w.printer.Sprintf("%d", len(report.DanglingPages))},
		[]string{"Threshold", strconv.FormatFloat(report.Threshold, 'g', -1, 64)},
	)
	if report.Rounds > 0 {
		rows = append(rows, []string{"Rounds", w.printer.Sprintf("%d", report.Rounds)})
	}
	if report.Seed != 0 {
		rows = append(rows, []string{"Seed", strconv.FormatUint(report.Seed, 10)})
	}
	rows = append(rows, []string{"Status", statusText(report)})

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")

	w.writeBody(md, summary)

	return len(md.String()), md.Build()
}

// WriteSummary outputs the summary in Markdown format.
func (w *MarkdownWriter) WriteSummary(summary *model.Summary) (int, error) {
	md := markdown.NewMarkdown(w.output)
	md.H1("linkrank Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   w.propertyRows(summary),
	})
	md.PlainText("")

	w.writeBody(md, summary)

	return len(md.String()), md.Build()
}

// propertyRows returns the property rows every summary can fill.
func (w *MarkdownWriter) propertyRows(summary *model.Summary) [][]string {
	return [][]string{
		{"Corpus", "`" + summary.Corpus + "`"},
		{"Ranked", summary.DateRanked.Format("2006-01-02 15:04:05 MST")},
		{"Damping", strconv.FormatFloat(summary.Damping, 'f', 2, 64)},
		{"Samples", w.printer.Sprintf("%d", summary.Samples)},
		{"Pages", w.printer.Sprintf("%d", len(summary.Rows))},
		{"Agreement", summary.AgreementText},
	}
}

// writeBody writes the sections shared by Write and WriteSummary.
func (w *MarkdownWriter) writeBody(md *markdown.Markdown, summary *model.Summary) {
	w.writeAlert(md, summary)
	w.writeRanks(md, summary)
	w.writeTopPages(md, summary)
	w.writePieChart(md, summary)
	w.writeDangling(md, summary)
	w.writeFooter(md)
}

// statusText returns the status text based on report state.
func statusText(report *model.RankReport) string {
	if report.TimedOut {
		return "⚠️ Cancelled (partial results)"
	}
	if report.ErrorMessage != "" {
		return "❌ Error - " + report.ErrorMessage
	}
	return "✅ Complete"
}

// writeAlert writes an alert describing how well the estimators agree.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, summary *model.Summary) {
	switch summary.Agreement {
	case model.AgreementPoor:
		md.Cautionf(
			"Sampling deviates from iteration by %.4f (limit %.2f). Increase the sample count.",
			summary.Deviation, model.AgreementFairLimit,
		)
	case model.AgreementFair:
		md.Importantf(
			"Sampling agrees with iteration within %.4f.",
			summary.Deviation,
		)
	case model.AgreementGood:
		md.Tip("Sampling and iteration agree.")
	default:
		md.Note("Only one estimator ran; agreement was not measured.")
	}
	md.PlainText("")
}

// writeRanks writes the per-page table, sorted by page.
func (w *MarkdownWriter) writeRanks(md *markdown.Markdown, summary *model.Summary) {
	md.H2("Ranks")
	md.PlainText("")

	if len(summary.Rows) == 0 {
		md.PlainText("No pages ranked.")
		md.PlainText("")
		return
	}

	withReference := hasColumn(summary, referenceOf)
	header := []string{"Page", "Title", "Out", "In", "Sampled", "Iterated"}
	if withReference {
		header = append(header, "Reference")
	}
	header = append(header, "Deviation")

	rows := make([][]string, 0, len(summary.Rows))
	for _, r := range summary.Rows {
		title := r.Title
		if title == "" {
			title = "-"
		}
		row := []string{
			"`" + string(r.Page) + "`",
			truncateString(title, 40),
			strconv.Itoa(r.OutLinks),
			strconv.Itoa(r.InLinks),
			scoreCell(r.Sampled),
			scoreCell(r.Iterated),
		}
		if withReference {
			row = append(row, scoreCell(r.Reference))
		}
		row = append(row, deviationCell(r))
		rows = append(rows, row)
	}

	md.Table(markdown.TableSet{
		Header: header,
		Rows:   rows,
	})
	md.PlainText("")
}

// writeTopPages lists the highest ranked pages and the pages linking to them.
func (w *MarkdownWriter) writeTopPages(md *markdown.Markdown, summary *model.Summary) {
	top := topPages(summary, maxTopPages)
	if len(top) == 0 {
		return
	}

	rows := make(map[model.PageID]model.SummaryRow, len(summary.Rows))
	for _, r := range summary.Rows {
		rows[r.Page] = r
	}

	items := make([]string, 0, len(top))
	for _, rank := range top {
		item := "`" + string(rank.Page) + "` " + formatScore(rank.Score)
		if from := rows[rank.Page].LinkedFrom; len(from) > 0 {
			names := make([]string, len(from))
			for i, p := range from {
				names[i] = "`" + string(p) + "`"
			}
			item += ", linked from " + strings.Join(names, ", ")
		} else {
			item += ", no inbound links"
		}
		items = append(items, item)
	}

	md.H2("Top Pages")
	md.PlainText("")
	md.BulletList(items...)
	md.PlainText("")
}

// topPages returns up to n pages by descending iterated rank, or by
// sampled rank when iteration did not run.
func topPages(summary *model.Summary, n int) []model.Rank {
	d := rowScores(summary, iteratedOf)
	if len(d) == 0 {
		d = rowScores(summary, sampledOf)
	}
	ranks := d.ByScore()
	return ranks[:min(n, len(ranks))]
}

// rowScores collects one estimate of every row into a distribution.
func rowScores(summary *model.Summary, col column) model.Distribution {
	d := make(model.Distribution, len(summary.Rows))
	for _, r := range summary.Rows {
		if v := col(r); v != nil {
			d[r.Page] = *v
		}
	}
	return d
}

// writePieChart writes a mermaid pie chart of the iterated ranks.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, summary *model.Summary) {
	parts := pieSlices(summary)
	if len(parts) == 0 {
		return
	}

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Iterated PageRank (basis points)"),
		piechart.WithShowData(true),
	)
	for _, p := range parts {
		chart.LabelAndIntValue(string(p.Page), uint64(math.Round(p.Score*pieScale)))
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeDangling lists pages without outbound links.
func (w *MarkdownWriter) writeDangling(md *markdown.Markdown, summary *model.Summary) {
	var dangling []string
	for _, r := range summary.Rows {
		if r.Dangling {
			dangling = append(dangling, string(r.Page))
		}
	}
	if len(dangling) == 0 {
		return
	}

	md.H2("Dangling Pages")
	md.PlainText("")
	md.PlainText("These pages have no links; the surfer jumps to a random page from them.")
	md.PlainText("")
	md.BulletList(dangling...)
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [linkrank](https://github.com/nao1215/linkrank)*")
}

// pieSlices returns the iterated ranks to chart, sorted by page.
// When there are too many pages, the smallest are folded into "other".
func pieSlices(summary *model.Summary) []model.Rank {
	iterated := rowScores(summary, iteratedOf)
	for p, v := range iterated {
		if v <= 0 {
			delete(iterated, p)
		}
	}
	if len(iterated) <= maxPieSlices {
		return iterated.Sorted()
	}

	ranks := iterated.ByScore()
	var rest float64
	for _, r := range ranks[maxPieSlices-1:] {
		rest += r.Score
	}
	ranks = ranks[:maxPieSlices-1]
	slices.SortFunc(ranks, func(a, b model.Rank) int {
		return cmp.Compare(a.Page, b.Page)
	})
	return append(ranks, model.Rank{Page: "other", Score: rest})
}

// scoreCell formats an optional score for a table cell.
func scoreCell(v *float64) string {
	if v == nil {
		return "-"
	}
	return formatScore(*v)
}

// deviationCell formats |sampled - iterated| for a row.
func deviationCell(r model.SummaryRow) string {
	if r.Sampled == nil || r.Iterated == nil {
		return "-"
	}
	return formatScore(math.Abs(*r.Sampled - *r.Iterated))
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
