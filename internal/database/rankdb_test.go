package database

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/nao1215/linkrank/internal/model"
)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) *RankDB {
	t.Helper()

	db, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})

	return db
}

// newTestReport builds a ranked report over a two-page graph.
func newTestReport(t *testing.T, corpus string, at time.Time, iteratedA float64) *model.RankReport {
	t.Helper()

	g, err := model.NewGraph(map[model.PageID][]model.PageID{
		"a.html": {},
		"b.html": {"a.html"},
	})
	if err != nil {
		t.Fatalf("failed to build graph: %v", err)
	}

	report := model.NewRankReport(corpus)
	report.DateRanked = at
	report.Damping = 0.85
	report.Samples = 1000
	report.Threshold = 0.001
	report.Seed = 1<<63 + 5
	report.SetCorpus(&model.Corpus{Source: corpus, Graph: g})
	report.Sampled = model.Distribution{"a.html": 0.6, "b.html": 0.4}
	report.Iterated = model.Distribution{"a.html": iteratedA, "b.html": 1 - iteratedA}
	report.Rounds = 7
	return report
}

// TestOpen tests database opening and creation.
func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "newdir", "subdir")
		db, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		if _, err := os.Stat(filepath.Join(dbDir, FileName)); os.IsNotExist(err) {
			t.Error("database file was not created")
		}
		if db.Path() != filepath.Join(dbDir, FileName) {
			t.Errorf("unexpected path %q", db.Path())
		}
	})

	t.Run("CreateIfNotExists=false returns error when database does not exist", func(t *testing.T) {
		t.Parallel()

		_, err := Open(t.TempDir(), Options{CreateIfNotExists: false})
		if err == nil {
			t.Fatal("expected error when database does not exist")
		}
	})

	t.Run("CreateIfNotExists=false opens existing database", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		db, err := Open(dir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		_ = db.Close()

		db, err = Open(dir, Options{CreateIfNotExists: false, EnableWAL: true})
		if err != nil {
			t.Fatalf("failed to reopen database: %v", err)
		}
		_ = db.Close()
	})
}

// TestDefaultOptions tests the default database options.
func TestDefaultOptions(t *testing.T) {
	t.Parallel()

	opts := DefaultOptions()
	if !opts.CreateIfNotExists {
		t.Error("expected CreateIfNotExists to be true")
	}
	if !opts.EnableWAL {
		t.Error("expected EnableWAL to be true")
	}
}

// TestRankReports tests saving and loading reports.
func TestRankReports(t *testing.T) {
	t.Parallel()

	t.Run("save and retrieve report", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		ctx := context.Background()

		report := newTestReport(t, "corpus0", time.Now(), 0.65)
		id, err := db.SaveRankReport(ctx, report)
		if err != nil {
			t.Fatalf("failed to save report: %v", err)
		}
		if id <= 0 {
			t.Errorf("expected positive run ID, got %d", id)
		}

		got, err := db.GetLatestRankReport(ctx, "corpus0")
		if err != nil {
			t.Fatalf("failed to get report: %v", err)
		}
		if got == nil {
			t.Fatal("expected report, got nil")
		}
		if got.Corpus != "corpus0" {
			t.Errorf("expected corpus0, got %q", got.Corpus)
		}
		if got.Iterated["a.html"] != 0.65 {
			t.Errorf("expected iterated a.html 0.65, got %v", got.Iterated["a.html"])
		}
		if got.Summary == nil || len(got.Summary.Rows) != 2 {
			t.Errorf("expected summary with 2 rows, got %+v", got.Summary)
		}
		if got.Seed != report.Seed {
			t.Errorf("expected seed %d, got %d", report.Seed, got.Seed)
		}
	})

	t.Run("returns nil for unknown corpus", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		got, err := db.GetLatestRankReport(context.Background(), "missing")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != nil {
			t.Error("expected nil report")
		}
	})

	t.Run("latest report wins", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		ctx := context.Background()
		now := time.Now()

		if _, err := db.SaveRankReport(ctx, newTestReport(t, "corpus0", now.Add(-time.Hour), 0.6)); err != nil {
			t.Fatalf("failed to save report: %v", err)
		}
		if _, err := db.SaveRankReport(ctx, newTestReport(t, "corpus0", now, 0.7)); err != nil {
			t.Fatalf("failed to save report: %v", err)
		}

		got, err := db.GetLatestRankReport(ctx, "corpus0")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Iterated["a.html"] != 0.7 {
			t.Errorf("expected latest report, got iterated a.html %v", got.Iterated["a.html"])
		}
	})

	t.Run("retrieves report by ID", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		ctx := context.Background()

		id, err := db.SaveRankReport(ctx, newTestReport(t, "corpus1", time.Now(), 0.6))
		if err != nil {
			t.Fatalf("failed to save report: %v", err)
		}

		got, err := db.GetRankReportByID(ctx, id)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got == nil || got.Corpus != "corpus1" {
			t.Errorf("expected corpus1 report, got %+v", got)
		}

		missing, err := db.GetRankReportByID(ctx, id+100)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if missing != nil {
			t.Error("expected nil for unknown ID")
		}
	})

	t.Run("lists corpora", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		ctx := context.Background()

		for _, corpus := range []string{"corpus2", "corpus0", "corpus2"} {
			if _, err := db.SaveRankReport(ctx, newTestReport(t, corpus, time.Now(), 0.6)); err != nil {
				t.Fatalf("failed to save report: %v", err)
			}
		}

		corpora, err := db.ListCorpora(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !slices.Equal(corpora, []string{"corpus0", "corpus2"}) {
			t.Errorf("unexpected corpora: %v", corpora)
		}
	})
}

// TestRunHistory tests run metadata queries.
func TestRunHistory(t *testing.T) {
	t.Parallel()

	t.Run("returns empty list for unknown corpus", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		history, err := db.GetRunHistory(context.Background(), "missing")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(history) != 0 {
			t.Errorf("expected empty history, got %d entries", len(history))
		}
	})

	t.Run("returns metadata newest first", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		ctx := context.Background()
		now := time.Now().UTC().Truncate(time.Millisecond)

		first, err := db.SaveRankReport(ctx, newTestReport(t, "corpus0", now.Add(-time.Minute), 0.6))
		if err != nil {
			t.Fatalf("failed to save report: %v", err)
		}
		second, err := db.SaveRankReport(ctx, newTestReport(t, "corpus0", now, 0.65))
		if err != nil {
			t.Fatalf("failed to save report: %v", err)
		}

		history, err := db.GetRunHistory(ctx, "corpus0")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(history) != 2 {
			t.Fatalf("expected 2 runs, got %d", len(history))
		}
		if history[0].ID != second || history[1].ID != first {
			t.Errorf("expected newest first, got IDs %d, %d", history[0].ID, history[1].ID)
		}

		meta := history[0]
		if !meta.Timestamp.Equal(now) {
			t.Errorf("expected timestamp %v, got %v", now, meta.Timestamp)
		}
		if meta.Pages != 2 || meta.Links != 1 || meta.Rounds != 7 {
			t.Errorf("unexpected graph metadata: %+v", meta)
		}
		if meta.Seed != 1<<63+5 {
			t.Errorf("expected seed to round-trip, got %d", meta.Seed)
		}
		if diff := meta.Deviation - 0.05; diff > 1e-12 || diff < -1e-12 {
			t.Errorf("expected deviation 0.05, got %v", meta.Deviation)
		}
	})
}

// TestPageHistory tests per-page history queries.
func TestPageHistory(t *testing.T) {
	t.Parallel()

	t.Run("tracks one page across runs", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		ctx := context.Background()
		now := time.Now()

		if _, err := db.SaveRankReport(ctx, newTestReport(t, "corpus0", now.Add(-time.Hour), 0.6)); err != nil {
			t.Fatalf("failed to save report: %v", err)
		}
		if _, err := db.SaveRankReport(ctx, newTestReport(t, "corpus0", now, 0.7)); err != nil {
			t.Fatalf("failed to save report: %v", err)
		}
		if _, err := db.SaveRankReport(ctx, newTestReport(t, "other", now, 0.9)); err != nil {
			t.Fatalf("failed to save report: %v", err)
		}

		records, err := db.GetPageHistory(ctx, "corpus0", "a.html")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(records) != 2 {
			t.Fatalf("expected 2 records, got %d", len(records))
		}
		if records[0].Iterated == nil || *records[0].Iterated != 0.7 {
			t.Errorf("expected newest iterated 0.7, got %v", records[0].Iterated)
		}
		if records[1].Sampled == nil || *records[1].Sampled != 0.6 {
			t.Errorf("expected sampled 0.6, got %v", records[1].Sampled)
		}
	})

	t.Run("missing estimate is stored as NULL", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		ctx := context.Background()

		report := newTestReport(t, "corpus0", time.Now(), 0.6)
		report.Sampled = nil
		if _, err := db.SaveRankReport(ctx, report); err != nil {
			t.Fatalf("failed to save report: %v", err)
		}

		records, err := db.GetPageHistory(ctx, "corpus0", "b.html")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(records) != 1 {
			t.Fatalf("expected 1 record, got %d", len(records))
		}
		if records[0].Sampled != nil {
			t.Errorf("expected nil sampled, got %v", *records[0].Sampled)
		}
		if records[0].Iterated == nil {
			t.Error("expected iterated estimate")
		}
	})
}

// TestParseTimestamp tests timestamp parsing fallbacks.
func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  time.Time
	}{
		{"2025-01-02 03:04:05.678", time.Date(2025, 1, 2, 3, 4, 5, 678000000, time.UTC)},
		{"2025-01-02 03:04:05", time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)},
		{"2025-01-02T03:04:05Z", time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)},
		{"garbage", time.Time{}},
	}

	for _, tt := range tests {
		if got := parseTimestamp(tt.input); !got.Equal(tt.want) {
			t.Errorf("parseTimestamp(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
