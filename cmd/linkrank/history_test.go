package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/linkrank/internal/database"
	"github.com/nao1215/linkrank/internal/model"
)

// setupHistoryDB creates a database holding two runs of corpus0 and one of
// corpus1. It returns the database and the run IDs of corpus0, oldest first.
func setupHistoryDB(t *testing.T) (*database.RankDB, []int64) {
	t.Helper()

	db, err := database.Open(t.TempDir(), database.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	runs := []*model.RankReport{
		historyReport(t, "corpus0", base, model.Distribution{"1.html": 0.40, "2.html": 0.35, "3.html": 0.25}),
		historyReport(t, "corpus1", base.Add(time.Minute), model.Distribution{"a.html": 1}),
		historyReport(t, "corpus0", base.Add(time.Hour), model.Distribution{"1.html": 0.38, "2.html": 0.42, "4.html": 0.20}),
	}

	var ids []int64
	for _, r := range runs {
		id, err := db.SaveRankReport(context.Background(), r)
		if err != nil {
			t.Fatalf("failed to save report: %v", err)
		}
		if r.Corpus == "corpus0" {
			ids = append(ids, id)
		}
	}
	return db, ids
}

// historyReport builds a stored report with the given iterated estimate.
func historyReport(t *testing.T, corpus string, at time.Time, iterated model.Distribution) *model.RankReport {
	t.Helper()

	r := model.NewRankReport(corpus)
	r.DateRanked = at
	r.Damping = 0.85
	r.Samples = 1000
	r.Threshold = 0.001
	r.PageCount = len(iterated)
	r.Iterated = iterated
	r.Sampled = iterated.Clone()
	r.Rounds = 5
	r.Summary = &model.Summary{Corpus: corpus, DateRanked: at, Damping: 0.85, Samples: 1000}
	return r
}

// TestListRankedCorpora tests listing corpora in the database.
func TestListRankedCorpora(t *testing.T) {
	t.Parallel()

	t.Run("lists corpora", func(t *testing.T) {
		t.Parallel()

		db, _ := setupHistoryDB(t)
		var buf bytes.Buffer
		if err := listRankedCorpora(context.Background(), db, &buf); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "Ranked corpora (2)") {
			t.Errorf("expected 2 corpora, got:\n%s", output)
		}
		if !strings.Contains(output, "• corpus0") || !strings.Contains(output, "• corpus1") {
			t.Errorf("expected both corpora, got:\n%s", output)
		}
	})

	t.Run("empty database", func(t *testing.T) {
		t.Parallel()

		db, err := database.Open(t.TempDir(), database.DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		var buf bytes.Buffer
		if err := listRankedCorpora(context.Background(), db, &buf); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "No ranked corpora found") {
			t.Errorf("expected empty message, got %q", buf.String())
		}
	})
}

// TestListRunHistory tests listing the runs of a corpus.
func TestListRunHistory(t *testing.T) {
	t.Parallel()

	t.Run("text output", func(t *testing.T) {
		t.Parallel()

		db, ids := setupHistoryDB(t)
		var buf bytes.Buffer
		if err := listRunHistory(context.Background(), db, &buf, "corpus0", false); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "Rank history for corpus0 (2 runs)") {
			t.Errorf("expected run count, got:\n%s", output)
		}
		newest := strings.Index(output, "2025-03-01 13:00:00")
		oldest := strings.Index(output, "2025-03-01 12:00:00")
		if newest < 0 || oldest < 0 || newest > oldest {
			t.Errorf("expected newest run first, got:\n%s", output)
		}
		if len(ids) != 2 {
			t.Fatalf("expected 2 runs of corpus0, got %d", len(ids))
		}
	})

	t.Run("JSON output", func(t *testing.T) {
		t.Parallel()

		db, ids := setupHistoryDB(t)
		var buf bytes.Buffer
		if err := listRunHistory(context.Background(), db, &buf, "corpus0", true); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var runs []database.RunMetadata
		if err := json.Unmarshal(buf.Bytes(), &runs); err != nil {
			t.Fatalf("failed to decode JSON: %v", err)
		}
		if len(runs) != 2 || runs[0].ID != ids[1] {
			t.Errorf("expected newest run %d first, got %+v", ids[1], runs)
		}
	})

	t.Run("unknown corpus", func(t *testing.T) {
		t.Parallel()

		db, _ := setupHistoryDB(t)
		var buf bytes.Buffer
		if err := listRunHistory(context.Background(), db, &buf, "nope", true); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.TrimSpace(buf.String()) != "[]" {
			t.Errorf("expected empty JSON array, got %q", buf.String())
		}
	})
}

// TestShowPageHistory tests following a page across runs.
func TestShowPageHistory(t *testing.T) {
	t.Parallel()

	t.Run("text output", func(t *testing.T) {
		t.Parallel()

		db, _ := setupHistoryDB(t)
		var buf bytes.Buffer
		if err := showPageHistory(context.Background(), db, &buf, "corpus0", "1.html", false); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "History of 1.html in corpus0 (2 runs)") {
			t.Errorf("expected header, got:\n%s", output)
		}
		if !strings.Contains(output, "0.4000") || !strings.Contains(output, "0.3800") {
			t.Errorf("expected both scores, got:\n%s", output)
		}
	})

	t.Run("unknown page", func(t *testing.T) {
		t.Parallel()

		db, _ := setupHistoryDB(t)
		err := showPageHistory(context.Background(), db, &bytes.Buffer{}, "corpus0", "zzz.html", false)
		if !errors.Is(err, errNoHistory) {
			t.Errorf("expected errNoHistory, got %v", err)
		}
	})
}

// TestRunComparison tests comparing the latest run with an earlier one.
func TestRunComparison(t *testing.T) {
	t.Parallel()

	t.Run("text output", func(t *testing.T) {
		t.Parallel()

		db, ids := setupHistoryDB(t)
		var buf bytes.Buffer
		if err := runComparison(context.Background(), db, &buf, "corpus0", ids[0], false); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{
			"Rank Comparison: corpus0 (iterated)",
			"Largest change: 0.0700",
			"+0.0700",
			"-0.0200",
			"[+] 4.html",
			"[-] 3.html",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q, got:\n%s", want, output)
			}
		}
	})

	t.Run("JSON output", func(t *testing.T) {
		t.Parallel()

		db, ids := setupHistoryDB(t)
		var buf bytes.Buffer
		if err := runComparison(context.Background(), db, &buf, "corpus0", ids[0], true); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var result RunComparison
		if err := json.Unmarshal(buf.Bytes(), &result); err != nil {
			t.Fatalf("failed to decode JSON: %v", err)
		}
		if result.PreviousRun.ID != ids[0] || result.CurrentRun.ID != ids[1] {
			t.Errorf("unexpected runs: %+v %+v", result.PreviousRun, result.CurrentRun)
		}
		if len(result.Changes) != 2 {
			t.Errorf("expected 2 changes, got %d", len(result.Changes))
		}
	})

	t.Run("rejects latest run", func(t *testing.T) {
		t.Parallel()

		db, ids := setupHistoryDB(t)
		if err := runComparison(context.Background(), db, &bytes.Buffer{}, "corpus0", ids[1], false); err == nil {
			t.Error("expected error when comparing the latest run with itself")
		}
	})

	t.Run("rejects run of another corpus", func(t *testing.T) {
		t.Parallel()

		db, ids := setupHistoryDB(t)
		// corpus1's run was saved between the two corpus0 runs.
		if err := runComparison(context.Background(), db, &bytes.Buffer{}, "corpus0", ids[0]+1, false); err == nil {
			t.Error("expected error for a run of another corpus")
		}
	})

	t.Run("rejects unknown run", func(t *testing.T) {
		t.Parallel()

		db, _ := setupHistoryDB(t)
		if err := runComparison(context.Background(), db, &bytes.Buffer{}, "corpus0", 999, false); err == nil {
			t.Error("expected error for unknown run")
		}
	})
}

// TestCompareRuns tests the page-by-page comparison.
func TestCompareRuns(t *testing.T) {
	t.Parallel()

	t.Run("falls back to sampled estimates", func(t *testing.T) {
		t.Parallel()

		previous := &model.RankReport{Sampled: model.Distribution{"a": 0.5, "b": 0.5}}
		current := &model.RankReport{
			Corpus:   "c",
			Sampled:  model.Distribution{"a": 0.6, "b": 0.4},
			Iterated: model.Distribution{"a": 0.7, "b": 0.3},
		}

		result := compareRuns(1, previous, 2, current)
		if result.Estimator != "sampled" {
			t.Errorf("expected sampled estimator, got %q", result.Estimator)
		}
		if len(result.Changes) != 2 || result.Changes[0].Page != "a" {
			t.Fatalf("unexpected changes: %+v", result.Changes)
		}
		if d := result.Changes[0].Delta; d < 0.0999 || d > 0.1001 {
			t.Errorf("expected delta 0.1, got %v", d)
		}
	})

	t.Run("lists added and removed pages", func(t *testing.T) {
		t.Parallel()

		previous := &model.RankReport{Iterated: model.Distribution{"a": 0.5, "old": 0.5}}
		current := &model.RankReport{Iterated: model.Distribution{"a": 0.5, "new": 0.5}}

		result := compareRuns(1, previous, 2, current)
		if !slices.Equal(result.Added, []model.PageID{"new"}) {
			t.Errorf("expected new to be added, got %v", result.Added)
		}
		if !slices.Equal(result.Removed, []model.PageID{"old"}) {
			t.Errorf("expected old to be removed, got %v", result.Removed)
		}
		if result.MaxChange != 0 {
			t.Errorf("expected no change, got %v", result.MaxChange)
		}
	})
}

// TestShowLatest tests printing the latest stored report.
func TestShowLatest(t *testing.T) {
	t.Parallel()

	t.Run("plain text", func(t *testing.T) {
		t.Parallel()

		db, _ := setupHistoryDB(t)
		var buf bytes.Buffer
		if err := showLatest(context.Background(), db, &buf, "corpus0", historyOptions{latest: true}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "Corpus:         corpus0") {
			t.Errorf("expected corpus header, got:\n%s", buf.String())
		}
	})

	t.Run("JSON", func(t *testing.T) {
		t.Parallel()

		db, _ := setupHistoryDB(t)
		var buf bytes.Buffer
		if err := showLatest(context.Background(), db, &buf, "corpus0", historyOptions{latest: true, json: true}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var r model.RankReport
		if err := json.Unmarshal(buf.Bytes(), &r); err != nil {
			t.Fatalf("failed to decode JSON: %v", err)
		}
		if _, ok := r.Iterated["4.html"]; !ok {
			t.Errorf("expected the latest run, got %+v", r.Iterated)
		}
	})

	t.Run("unknown corpus", func(t *testing.T) {
		t.Parallel()

		db, _ := setupHistoryDB(t)
		err := showLatest(context.Background(), db, &bytes.Buffer{}, "nope", historyOptions{latest: true})
		if !errors.Is(err, errNoHistory) {
			t.Errorf("expected errNoHistory, got %v", err)
		}
	})
}

// TestFormatDelta tests signed change formatting.
func TestFormatDelta(t *testing.T) {
	t.Parallel()

	tests := []struct {
		delta float64
		want  string
	}{
		{0.0123, "+0.0123"},
		{-0.0123, "-0.0123"},
		{0, "0.0000"},
		{-0.00001, "0.0000"},
	}

	for _, tt := range tests {
		if got := formatDelta(tt.delta); got != tt.want {
			t.Errorf("formatDelta(%v) = %q, want %q", tt.delta, got, tt.want)
		}
	}
}

// TestRunHistoryCmdArgs tests argument validation before the database is opened.
func TestRunHistoryCmdArgs(t *testing.T) {
	t.Parallel()

	t.Run("requires corpus", func(t *testing.T) {
		t.Parallel()

		cmd := NewHistoryCmd()
		cmd.SetArgs([]string{})
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		if err := cmd.Execute(); err == nil {
			t.Error("expected error without corpus")
		}
	})

	t.Run("rejects two formats", func(t *testing.T) {
		t.Parallel()

		cmd := NewHistoryCmd()
		cmd.SetArgs([]string{"-j", "-m", "corpus0"})
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		if err := cmd.Execute(); err == nil {
			t.Error("expected error for conflicting formats")
		}
	})
}
