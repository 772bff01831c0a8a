package main

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/webdig/internal/database"
	"github.com/nao1215/webdig/internal/model"
)

// seedHistory records two runs of one seed and one of another.
func seedHistory(t *testing.T) string {
	t.Helper()

	dbDir := t.TempDir()
	db, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	results := []*model.CrawlResult{
		{
			Seed:         "https://example.com/",
			MaxDepth:     3,
			DepthReached: 2,
			StartedAt:    time.Now().Add(-time.Hour),
			Duration:     1500 * time.Millisecond,
			TotalPages:   4,
			Layers: []model.LayerStats{
				{Depth: 0, Frontier: 1, Pages: 2, Resources: 1},
				{Depth: 1, Frontier: 3, Pages: 1},
			},
		},
		{
			Seed:         "https://example.com/",
			MaxDepth:     3,
			DepthReached: 1,
			StartedAt:    time.Now(),
			TotalPages:   2,
			Cancelled:    true,
		},
		{
			Seed:       "https://example.org/",
			MaxDepth:   0,
			StartedAt:  time.Now(),
			TotalPages: 1,
		},
	}
	for _, r := range results {
		if _, err := db.SaveRun(t.Context(), r); err != nil {
			t.Fatalf("failed to save run: %v", err)
		}
	}
	return dbDir
}

func TestNewHistoryCmd(t *testing.T) {
	t.Parallel()

	cmd := NewHistoryCmd()
	if cmd.Use != "history [seed]" {
		t.Errorf("expected use 'history [seed]', got %q", cmd.Use)
	}
	for _, name := range []string{"list-seeds", "id", "json", "db-dir"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("expected %s flag", name)
		}
	}
}

func TestRunHistoryCmd(t *testing.T) {
	t.Parallel()

	t.Run("lists runs of every seed", func(t *testing.T) {
		t.Parallel()

		out, err := executeRoot(t, "history", "--db-dir", seedHistory(t))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, "Run history (3 runs)") {
			t.Errorf("expected 3 runs, got:\n%s", out)
		}
		if !strings.Contains(out, "1/3*") {
			t.Errorf("expected cancelled marker, got:\n%s", out)
		}
	})

	t.Run("lists runs of one seed as JSON", func(t *testing.T) {
		t.Parallel()

		out, err := executeRoot(t, "history", "--db-dir", seedHistory(t), "--json", "https://example.com/")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var runs []database.Run
		if err := json.Unmarshal([]byte(out), &runs); err != nil {
			t.Fatalf("invalid JSON: %v\n%s", err, out)
		}
		if len(runs) != 2 {
			t.Fatalf("expected 2 runs, got %d", len(runs))
		}
		// Newest first.
		if !runs[0].Cancelled {
			t.Error("expected the cancelled run first")
		}
	})

	t.Run("shows a run with its layers", func(t *testing.T) {
		t.Parallel()

		out, err := executeRoot(t, "history", "--db-dir", seedHistory(t), "--id", "1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, want := range []string{"Run 1", "https://example.com/", "Depth:      2 of 3", "Frontier", "Complete"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected output to contain %q, got:\n%s", want, out)
			}
		}
	})

	t.Run("unknown run id", func(t *testing.T) {
		t.Parallel()

		_, err := executeRoot(t, "history", "--db-dir", seedHistory(t), "--id", "99")
		if err == nil {
			t.Fatal("expected error for unknown run")
		}
		if !strings.Contains(err.Error(), "run not found") {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("lists seeds", func(t *testing.T) {
		t.Parallel()

		out, err := executeRoot(t, "history", "--db-dir", seedHistory(t), "-L")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, "Crawled seeds (2)") {
			t.Errorf("expected 2 seeds, got:\n%s", out)
		}
	})

	t.Run("empty database", func(t *testing.T) {
		t.Parallel()

		out, err := executeRoot(t, "history", "--db-dir", t.TempDir())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, "No run history found.") {
			t.Errorf("expected empty history message, got:\n%s", out)
		}
	})
}
