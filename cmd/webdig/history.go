package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/webdig/internal/config"
	"github.com/nao1215/webdig/internal/database"
	"github.com/spf13/cobra"
)

// NewHistoryCmd creates the history command.
// This command lists crawl runs recorded in the database.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [seed]",
		Short: "Show recorded crawl runs",
		Long: `History lists the crawl runs recorded by 'webdig crawl'.

Each run keeps its seed, bounds, totals and per-layer statistics.
The crawled pages themselves are not stored; use a report for those.

Examples:
  # List the most recent runs of every seed
  webdig history

  # List the runs of one seed
  webdig history https://example.com/

  # Show the layer statistics of a single run
  webdig history --id 3

  # List every seed in the database
  webdig history --list-seeds

  # Output runs in JSON format
  webdig history --json https://example.com/`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().BoolP("list-seeds", "L", false,
		"List all seeds recorded in the database")
	cmd.Flags().Int64P("id", "i", 0,
		"Show a single run with its layer statistics")
	cmd.Flags().BoolP("json", "j", false,
		"Output in JSON format")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the history database")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	listSeeds, err := cmd.Flags().GetBool("list-seeds")
	if err != nil {
		return err
	}
	runID, err := cmd.Flags().GetInt64("id")
	if err != nil {
		return err
	}
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}

	db, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	switch {
	case listSeeds:
		return listRecordedSeeds(ctx, db, out, jsonOutput)
	case runID != 0:
		return showRun(ctx, db, out, runID, jsonOutput)
	default:
		var seed string
		if len(args) > 0 {
			seed = args[0]
		}
		return listRunHistory(ctx, db, out, seed, jsonOutput)
	}
}

// listRecordedSeeds lists every seed with at least one recorded run.
func listRecordedSeeds(ctx context.Context, db *database.HistoryDB, out io.Writer, jsonOutput bool) error {
	seeds, err := db.ListSeeds(ctx)
	if err != nil {
		return fmt.Errorf("failed to list seeds: %w", err)
	}

	if jsonOutput {
		return writeJSON(out, seeds)
	}

	if len(seeds) == 0 {
		fmt.Fprintln(out, "No crawled seeds found in the database.")
		fmt.Fprintln(out, "\nUse 'webdig crawl <url>' to crawl a site.")
		return nil
	}

	fmt.Fprintf(out, "Crawled seeds (%d):\n\n", len(seeds))
	for _, seed := range seeds {
		fmt.Fprintf(out, "  • %s\n", seed)
	}
	fmt.Fprintln(out, "\nUse 'webdig history <seed>' to see the runs of a seed.")
	return nil
}

// listRunHistory lists the runs of seed, or of every seed when it is empty.
func listRunHistory(ctx context.Context, db *database.HistoryDB, out io.Writer, seed string, jsonOutput bool) error {
	runs, err := db.ListRuns(ctx, seed)
	if err != nil {
		return fmt.Errorf("failed to get run history: %w", err)
	}

	if jsonOutput {
		return writeJSON(out, runs)
	}

	if len(runs) == 0 {
		if seed != "" {
			fmt.Fprintf(out, "No run history found for %s\n", seed)
		} else {
			fmt.Fprintln(out, "No run history found.")
		}
		fmt.Fprintln(out, "\nUse 'webdig crawl <url>' to crawl a site.")
		return nil
	}

	if seed != "" {
		fmt.Fprintf(out, "Run history for %s (%d runs):\n\n", seed, len(runs))
	} else {
		fmt.Fprintf(out, "Run history (%d runs):\n\n", len(runs))
	}
	fmt.Fprintf(out, "  %-6s  %-20s  %-7s  %-6s  %-9s  %-6s  %s\n",
		"ID", "Date", "Depth", "Pages", "Resources", "Failed", "Seed")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 78))

	for _, run := range runs {
		depth := fmt.Sprintf("%d/%d", run.DepthReached, run.MaxDepth)
		if run.Cancelled {
			depth += "*"
		}
		fmt.Fprintf(out, "  %-6d  %-20s  %-7s  %-6d  %-9d  %-6d  %s\n",
			run.ID,
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			depth,
			run.TotalPages,
			run.TotalResources,
			run.FailedPages,
			run.Seed,
		)
	}
	fmt.Fprintln(out, "\n  * cancelled before completion")
	fmt.Fprintln(out, "\nUse 'webdig history --id <id>' to see the layers of a run.")
	return nil
}

// showRun prints one run with its per-layer statistics.
func showRun(ctx context.Context, db *database.HistoryDB, out io.Writer, id int64, jsonOutput bool) error {
	run, err := db.GetRun(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get run %d: %w", id, err)
	}

	if jsonOutput {
		return writeJSON(out, run)
	}

	fmt.Fprintf(out, "Run %d\n", run.ID)
	fmt.Fprintf(out, "  Seed:       %s\n", run.Seed)
	fmt.Fprintf(out, "  Started:    %s\n", run.StartedAt.Local().Format(time.RFC3339))
	fmt.Fprintf(out, "  Duration:   %s\n", run.Duration.Round(time.Millisecond))
	fmt.Fprintf(out, "  Depth:      %d of %d\n", run.DepthReached, run.MaxDepth)
	fmt.Fprintf(out, "  Pages:      %d (%d failed)\n", run.TotalPages, run.FailedPages)
	fmt.Fprintf(out, "  Resources:  %d\n", run.TotalResources)
	if run.Cancelled {
		fmt.Fprintln(out, "  Status:     Cancelled (partial results)")
	} else {
		fmt.Fprintln(out, "  Status:     Complete")
	}

	if len(run.Layers) == 0 {
		fmt.Fprintln(out, "\nNo layer was expanded.")
		return nil
	}

	fmt.Fprintf(out, "\n  %-5s  %-8s  %-6s  %-9s  %-6s  %s\n",
		"Layer", "Frontier", "Pages", "Resources", "Failed", "Duration")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 56))
	for _, layer := range run.Layers {
		fmt.Fprintf(out, "  %-5d  %-8d  %-6d  %-9d  %-6d  %s\n",
			layer.Depth,
			layer.Frontier,
			layer.Pages,
			layer.Resources,
			layer.Failed,
			layer.Duration.Round(time.Millisecond),
		)
	}
	return nil
}

// writeJSON writes v as indented JSON.
func writeJSON(out io.Writer, v any) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
