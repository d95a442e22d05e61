package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/linkrank/internal/config"
	"github.com/nao1215/linkrank/internal/database"
	"github.com/nao1215/linkrank/internal/model"
	"github.com/nao1215/linkrank/internal/report"
)

// errNoHistory is returned when a corpus has no stored runs.
var errNoHistory = errors.New("no rank history")

// NewHistoryCmd creates the history command.
// This command shows and compares runs stored in the database.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [corpus]",
		Short: "Show and compare stored rank results",
		Long: `History displays the runs of 'linkrank rank' saved in the database.

Without flags it lists the runs of a corpus. It can also follow one page
across runs, print the latest stored report, or compare the latest run with
an earlier one page by page.

Examples:
  # List all runs of a corpus
  linkrank history corpus0

  # Follow one page across runs
  linkrank history -p 1.html corpus0

  # Compare the latest run with run 3
  linkrank history -i 3 corpus0

  # Print the latest stored report as Markdown
  linkrank history -l -m corpus0

  # List all ranked corpora in the database
  linkrank history --list-corpora`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	// Listing flags
	cmd.Flags().BoolP("list-corpora", "L", false,
		"List all corpora in the database")
	cmd.Flags().StringP("page", "p", "",
		"Show the scores of one page across runs")
	cmd.Flags().BoolP("latest", "l", false,
		"Print the latest stored report")

	// Comparison flags
	cmd.Flags().Int64P("with-run-id", "i", 0,
		"Compare the latest run with a specific run by ID")

	// Output format flags
	cmd.Flags().BoolP("json", "j", false,
		"Output in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output the latest report in Markdown format (with --latest)")

	return cmd
}

// historyOptions are the parsed flags of the history command.
type historyOptions struct {
	listCorpora bool
	page        string
	latest      bool
	withRunID   int64
	json        bool
	markdown    bool
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	opts, err := parseHistoryFlags(cmd)
	if err != nil {
		return err
	}

	// Validate arguments before opening the database
	var corpus string
	if !opts.listCorpora {
		if len(args) == 0 {
			return errors.New("corpus directory is required (use --list-corpora to see ranked corpora)")
		}
		corpus = filepath.Clean(args[0])
	}
	if opts.json && opts.markdown {
		return config.ErrConflictingReportFormats
	}

	db, err := database.Open(config.XDGDataDir(), database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	return runHistory(cmd.Context(), db, cmd.OutOrStdout(), corpus, opts)
}

// parseHistoryFlags reads the history command's flags.
func parseHistoryFlags(cmd *cobra.Command) (historyOptions, error) {
	var opts historyOptions
	var err error

	if opts.listCorpora, err = cmd.Flags().GetBool("list-corpora"); err != nil {
		return opts, err
	}
	if opts.page, err = cmd.Flags().GetString("page"); err != nil {
		return opts, err
	}
	if opts.latest, err = cmd.Flags().GetBool("latest"); err != nil {
		return opts, err
	}
	if opts.withRunID, err = cmd.Flags().GetInt64("with-run-id"); err != nil {
		return opts, err
	}
	if opts.json, err = cmd.Flags().GetBool("json"); err != nil {
		return opts, err
	}
	if opts.markdown, err = cmd.Flags().GetBool("markdown"); err != nil {
		return opts, err
	}
	return opts, nil
}

// runHistory dispatches to the requested view.
func runHistory(ctx context.Context, db *database.RankDB, out io.Writer, corpus string, opts historyOptions) error {
	switch {
	case opts.listCorpora:
		return listRankedCorpora(ctx, db, out)
	case opts.page != "":
		return showPageHistory(ctx, db, out, corpus, model.PageID(opts.page), opts.json)
	case opts.withRunID > 0:
		return runComparison(ctx, db, out, corpus, opts.withRunID, opts.json)
	case opts.latest:
		return showLatest(ctx, db, out, corpus, opts)
	default:
		return listRunHistory(ctx, db, out, corpus, opts.json)
	}
}

// listRankedCorpora lists all corpora that have runs in the database.
func listRankedCorpora(ctx context.Context, db *database.RankDB, out io.Writer) error {
	corpora, err := db.ListCorpora(ctx)
	if err != nil {
		return fmt.Errorf("failed to list corpora: %w", err)
	}

	if len(corpora) == 0 {
		fmt.Fprintln(out, "No ranked corpora found in the database.")
		fmt.Fprintln(out, "\nUse 'linkrank rank <corpus>' to rank a corpus.")
		return nil
	}

	fmt.Fprintf(out, "Ranked corpora (%d):\n\n", len(corpora))
	for _, corpus := range corpora {
		fmt.Fprintf(out, "  • %s\n", corpus)
	}
	fmt.Fprintln(out, "\nUse 'linkrank history <corpus>' to see the runs of a corpus.")

	return nil
}

// listRunHistory lists all runs of a corpus, newest first.
func listRunHistory(ctx context.Context, db *database.RankDB, out io.Writer, corpus string, asJSON bool) error {
	runs, err := db.GetRunHistory(ctx, corpus)
	if err != nil {
		return fmt.Errorf("failed to get run history: %w", err)
	}

	if asJSON {
		if runs == nil {
			runs = []database.RunMetadata{}
		}
		return encodeJSON(out, runs)
	}

	if len(runs) == 0 {
		fmt.Fprintf(out, "No rank history found for %s\n", corpus)
		fmt.Fprintln(out, "\nUse 'linkrank rank' to rank this corpus.")
		return nil
	}

	fmt.Fprintf(out, "Rank history for %s (%d runs):\n\n", corpus, len(runs))
	fmt.Fprintf(out, "  %-6s  %-19s  %6s  %6s  %7s  %8s  %6s  %9s\n",
		"ID", "Date", "Pages", "Links", "Damping", "Samples", "Rounds", "Deviation")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 84))

	for _, run := range runs {
		fmt.Fprintf(out, "  %-6d  %-19s  %6d  %6d  %7.2f  %8d  %6d  %9.4f\n",
			run.ID,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Pages,
			run.Links,
			run.Damping,
			run.Samples,
			run.Rounds,
			run.Deviation,
		)
	}

	fmt.Fprintln(out, "\nUse 'linkrank history -i <id> <corpus>' to compare the latest run with an earlier one.")

	return nil
}

// showPageHistory prints one page's estimates across runs.
func showPageHistory(ctx context.Context, db *database.RankDB, out io.Writer, corpus string, page model.PageID, asJSON bool) error {
	records, err := db.GetPageHistory(ctx, corpus, page)
	if err != nil {
		return fmt.Errorf("failed to get page history: %w", err)
	}

	if asJSON {
		if records == nil {
			records = []database.PageRecord{}
		}
		return encodeJSON(out, records)
	}

	if len(records) == 0 {
		return fmt.Errorf("%w for page %s in %s", errNoHistory, page, corpus)
	}

	fmt.Fprintf(out, "History of %s in %s (%d runs):\n\n", page, corpus, len(records))
	fmt.Fprintf(out, "  %-6s  %-19s  %7s  %8s  %8s\n", "ID", "Date", "Damping", "Sampled", "Iterated")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 56))

	for _, rec := range records {
		fmt.Fprintf(out, "  %-6d  %-19s  %7.2f  %8s  %8s\n",
			rec.RunID,
			rec.Timestamp.Format("2006-01-02 15:04:05"),
			rec.Damping,
			formatOptionalScore(rec.Sampled),
			formatOptionalScore(rec.Iterated),
		)
	}

	return nil
}

// showLatest prints the latest stored report with the report writers.
func showLatest(ctx context.Context, db *database.RankDB, out io.Writer, corpus string, opts historyOptions) error {
	r, err := db.GetLatestRankReport(ctx, corpus)
	if err != nil {
		return err
	}
	if r == nil {
		return fmt.Errorf("%w for %s", errNoHistory, corpus)
	}

	switch {
	case opts.json:
		_, err = report.NewJSONWriter(out, report.WithPrettyPrint()).Write(r)
	case opts.markdown:
		_, err = report.NewMarkdownWriter(out).WriteSummary(storedSummary(r))
	default:
		_, err = report.NewSimpleWriter(out, report.WithDetails(true)).WriteSummary(storedSummary(r))
	}
	return err
}

// storedSummary returns the summary saved with a report.
// Reports loaded from the database have no graph, so the summary cannot be
// rebuilt; an empty one carrying the run parameters is returned instead.
func storedSummary(r *model.RankReport) *model.Summary {
	if r.Summary != nil {
		return r.Summary
	}
	return model.NewSummary(r)
}

// RunComparison holds the result of comparing two runs of a corpus.
type RunComparison struct {
	// Corpus is the ranked directory.
	Corpus string `json:"corpus"`

	// Estimator names the estimate compared ("iterated" or "sampled").
	Estimator string `json:"estimator"`

	// PreviousRun and CurrentRun describe the compared runs.
	PreviousRun RunInfo `json:"previous_run"`
	CurrentRun  RunInfo `json:"current_run"`

	// Changes lists pages present in both runs, sorted by page.
	Changes []RankChange `json:"changes"`

	// Added and Removed list pages present in only one run.
	Added   []model.PageID `json:"added,omitempty"`
	Removed []model.PageID `json:"removed,omitempty"`

	// MaxChange is the largest absolute change over Changes.
	MaxChange float64 `json:"max_change"`
}

// RunInfo contains metadata about a run for comparison display.
type RunInfo struct {
	ID         int64     `json:"id"`
	DateRanked time.Time `json:"date_ranked"`
	Damping    float64   `json:"damping"`
	Samples    int       `json:"samples"`
	Pages      int       `json:"pages"`
}

// RankChange is the change of one page's rank between two runs.
type RankChange struct {
	Page     model.PageID `json:"page"`
	Previous float64      `json:"previous"`
	Current  float64      `json:"current"`
	Delta    float64      `json:"delta"`
}

// runComparison compares the latest run of a corpus with the run withRunID.
func runComparison(ctx context.Context, db *database.RankDB, out io.Writer, corpus string, withRunID int64, asJSON bool) error {
	runs, err := db.GetRunHistory(ctx, corpus)
	if err != nil {
		return fmt.Errorf("failed to get run history: %w", err)
	}
	if len(runs) == 0 {
		return fmt.Errorf("%w for %s", errNoHistory, corpus)
	}

	latest := runs[0]
	if latest.ID == withRunID {
		return fmt.Errorf("run %d is the latest run of %s; pick an earlier run", withRunID, corpus)
	}

	current, err := db.GetRankReportByID(ctx, latest.ID)
	if err != nil {
		return fmt.Errorf("failed to get run %d: %w", latest.ID, err)
	}
	previous, err := db.GetRankReportByID(ctx, withRunID)
	if err != nil {
		return fmt.Errorf("failed to get run %d: %w", withRunID, err)
	}
	if previous == nil {
		return fmt.Errorf("run %d not found", withRunID)
	}
	if previous.Corpus != corpus {
		return fmt.Errorf("run %d belongs to %s, not %s", withRunID, previous.Corpus, corpus)
	}

	comparison := compareRuns(withRunID, previous, latest.ID, current)

	if asJSON {
		return encodeJSON(out, comparison)
	}
	return outputComparisonText(out, comparison)
}

// compareRuns compares two reports page by page. The iterated estimate is
// compared when both runs have it, otherwise the sampled one.
func compareRuns(previousID int64, previous *model.RankReport, currentID int64, current *model.RankReport) *RunComparison {
	result := &RunComparison{
		Corpus:      current.Corpus,
		PreviousRun: runInfo(previousID, previous),
		CurrentRun:  runInfo(currentID, current),
		Changes:     []RankChange{},
	}

	prev, cur := previous.Iterated, current.Iterated
	result.Estimator = "iterated"
	if prev == nil || cur == nil {
		prev, cur = previous.Sampled, current.Sampled
		result.Estimator = "sampled"
	}

	for _, r := range cur.Sorted() {
		old, ok := prev[r.Page]
		if !ok {
			result.Added = append(result.Added, r.Page)
			continue
		}
		change := RankChange{
			Page:     r.Page,
			Previous: old,
			Current:  r.Score,
			Delta:    r.Score - old,
		}
		result.Changes = append(result.Changes, change)
		result.MaxChange = math.Max(result.MaxChange, math.Abs(change.Delta))
	}
	for _, r := range prev.Sorted() {
		if _, ok := cur[r.Page]; !ok {
			result.Removed = append(result.Removed, r.Page)
		}
	}

	return result
}

// runInfo extracts comparison metadata from a report.
func runInfo(id int64, r *model.RankReport) RunInfo {
	return RunInfo{
		ID:         id,
		DateRanked: r.DateRanked,
		Damping:    r.Damping,
		Samples:    r.Samples,
		Pages:      r.PageCount,
	}
}

// outputComparisonText outputs the comparison in human-readable text format.
func outputComparisonText(out io.Writer, result *RunComparison) error {
	fmt.Fprintf(out, "Rank Comparison: %s (%s)\n", result.Corpus, result.Estimator)
	fmt.Fprintln(out, strings.Repeat("=", 60))

	fmt.Fprintf(out, "\nPrevious run: #%-5d %s  (damping %.2f, %d samples)\n",
		result.PreviousRun.ID,
		result.PreviousRun.DateRanked.Format("2006-01-02 15:04:05"),
		result.PreviousRun.Damping,
		result.PreviousRun.Samples)
	fmt.Fprintf(out, "Current run:  #%-5d %s  (damping %.2f, %d samples)\n",
		result.CurrentRun.ID,
		result.CurrentRun.DateRanked.Format("2006-01-02 15:04:05"),
		result.CurrentRun.Damping,
		result.CurrentRun.Samples)
	fmt.Fprintf(out, "Largest change: %.4f\n", result.MaxChange)

	if len(result.Changes) > 0 {
		width := 4
		for _, c := range result.Changes {
			width = max(width, len(c.Page))
		}

		fmt.Fprintf(out, "\n  %-*s  %8s  %8s  %8s\n", width, "Page", "Previous", "Current", "Change")
		fmt.Fprintln(out, "  "+strings.Repeat("-", width+30))
		for _, c := range result.Changes {
			fmt.Fprintf(out, "  %-*s  %8.4f  %8.4f  %8s\n", width, c.Page, c.Previous, c.Current, formatDelta(c.Delta))
		}
	}

	if len(result.Added) > 0 {
		fmt.Fprintf(out, "\nAdded Pages (%d):\n", len(result.Added))
		for _, p := range result.Added {
			fmt.Fprintf(out, "  [+] %s\n", p)
		}
	}

	if len(result.Removed) > 0 {
		fmt.Fprintf(out, "\nRemoved Pages (%d):\n", len(result.Removed))
		for _, p := range slices.Sorted(slices.Values(result.Removed)) {
			fmt.Fprintf(out, "  [-] %s\n", p)
		}
	}

	return nil
}

// formatDelta formats a rank change with sign for display.
func formatDelta(delta float64) string {
	s := fmt.Sprintf("%.4f", math.Abs(delta))
	switch {
	case s == "0.0000":
		return s
	case delta > 0:
		return "+" + s
	default:
		return "-" + s
	}
}

// formatOptionalScore formats a possibly missing score.
func formatOptionalScore(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.4f", *v)
}

// encodeJSON writes v as indented JSON.
func encodeJSON(out io.Writer, v any) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
