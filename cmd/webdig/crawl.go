package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/nao1215/webdig/internal/batch"
	"github.com/nao1215/webdig/internal/config"
	"github.com/nao1215/webdig/internal/crawler"
	"github.com/nao1215/webdig/internal/database"
	"github.com/nao1215/webdig/internal/httpclient"
	"github.com/nao1215/webdig/internal/log"
	"github.com/nao1215/webdig/internal/model"
	"github.com/nao1215/webdig/internal/report"
	"github.com/spf13/cobra"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl <url>...",
		Short: "Crawl one or more sites from their seed URLs",
		Long: `Crawl expands each seed URL layer by layer.

Every page of a layer is fetched concurrently. Links (<a href>) are followed
only when they stay on the seed's host; src attributes are recorded as
resources and never fetched. The crawl stops after --depth layers or when
a layer finds nothing new.

Examples:
  # Crawl three layers deep (default)
  webdig crawl https://example.com/

  # Crawl two sites, one layer, at most 20 links per page
  webdig crawl -d 1 -l 20 https://example.com/ https://example.org/

  # Use the tokenizer based extractor and write a Markdown report
  webdig crawl -x html -m -o report.md https://example.com/

  # Go through a SOCKS5 proxy
  webdig crawl --proxy 127.0.0.1:9050 https://example.com/

Configuration file (.webdig) example:
  defaults:
    limit: 50
  sites:
    example.com:
      depth: 5
      cookie: "session=abc123"`,
		Args: cobra.ArbitraryArgs,
		RunE: runCrawlCmd,
	}

	// Crawl behavior flags
	cmd.Flags().IntP("depth", "d", config.DefaultMaxDepth,
		"Number of link layers to expand from the seed")
	cmd.Flags().IntP("limit", "l", config.DefaultChildLimit,
		"Link matches consumed per page (0 or less: unlimited)")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each request, body included")
	cmd.Flags().StringP("user-agent", "a", config.DefaultUserAgent,
		"User-Agent header sent with every request")
	cmd.Flags().StringP("extractor", "x", config.DefaultExtractor,
		"Link extractor: regex or html")
	cmd.Flags().Bool("dedup-frontier", false,
		"Drop duplicate addresses found by sibling pages of the same layer")
	cmd.Flags().Int("concurrency", config.DefaultConcurrency,
		"Maximum simultaneous fetches per layer (0: whole layer at once)")
	cmd.Flags().Int64("max-body-size", config.DefaultMaxBodySize,
		"Maximum number of body bytes read per page (must be positive)")
	cmd.Flags().Int("max-redirects", config.DefaultMaxRedirects,
		"Maximum redirects followed per request (0: none)")
	cmd.Flags().String("proxy", "",
		"SOCKS5 proxy address (e.g., 127.0.0.1:9050)")

	// Batch crawling flags
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of seeds crawled concurrently")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .webdig in current or home directory)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
	cmd.Flags().Bool("no-resources", false,
		"Leave resources out of the text report tree")

	// Logging flags
	cmd.Flags().Bool("log-json", false,
		"Write logs to stderr as JSON lines")

	// History flags
	cmd.Flags().Bool("no-history", false,
		"Do not record the run in the history database")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the history database")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd.ErrOrStderr(), cfg.Verbose, cfg.LogJSON)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Warn("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	r := &crawlRunner{
		cfg:      cfg,
		explicit: changedFlags(cmd),
		logger:   logger,
		stdout:   cmd.OutOrStdout(),
		stderr:   cmd.ErrOrStderr(),
	}
	return r.run(ctx)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()

	var err error

	cfg.MaxDepth, err = cmd.Flags().GetInt("depth")
	if err != nil {
		return nil, err
	}

	cfg.ChildLimit, err = cmd.Flags().GetInt("limit")
	if err != nil {
		return nil, err
	}

	cfg.Timeout, err = cmd.Flags().GetDuration("timeout")
	if err != nil {
		return nil, err
	}

	cfg.UserAgent, err = cmd.Flags().GetString("user-agent")
	if err != nil {
		return nil, err
	}

	cfg.Extractor, err = cmd.Flags().GetString("extractor")
	if err != nil {
		return nil, err
	}

	cfg.DedupFrontier, err = cmd.Flags().GetBool("dedup-frontier")
	if err != nil {
		return nil, err
	}

	cfg.Concurrency, err = cmd.Flags().GetInt("concurrency")
	if err != nil {
		return nil, err
	}

	cfg.MaxBodySize, err = cmd.Flags().GetInt64("max-body-size")
	if err != nil {
		return nil, err
	}

	cfg.MaxRedirects, err = cmd.Flags().GetInt("max-redirects")
	if err != nil {
		return nil, err
	}

	cfg.ProxyAddress, err = cmd.Flags().GetString("proxy")
	if err != nil {
		return nil, err
	}

	cfg.BatchSize, err = cmd.Flags().GetInt("batch")
	if err != nil {
		return nil, err
	}

	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// An explicit config path must exist; a searched one may not.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		cfg.SiteConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	default:
		cfg.SiteConfigs = &config.File{
			Sites: make(map[string]config.SiteConfig),
		}
	}

	cfg.JSONReport, err = cmd.Flags().GetBool("json")
	if err != nil {
		return nil, err
	}

	cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown")
	if err != nil {
		return nil, err
	}

	cfg.ReportFile, err = cmd.Flags().GetString("output")
	if err != nil {
		return nil, err
	}

	cfg.HideResources, err = cmd.Flags().GetBool("no-resources")
	if err != nil {
		return nil, err
	}

	cfg.LogJSON, err = cmd.Flags().GetBool("log-json")
	if err != nil {
		return nil, err
	}

	noHistory, err := cmd.Flags().GetBool("no-history")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noHistory

	cfg.DBDir, err = cmd.Flags().GetString("db-dir")
	if err != nil {
		return nil, err
	}

	cfg.Verbose = getVerboseFlag(cmd)
	cfg.Targets = args

	return cfg, nil
}

// changedFlags returns the names of the flags set on the command line.
func changedFlags(cmd *cobra.Command) map[string]bool {
	changed := make(map[string]bool)
	for _, name := range []string{"depth", "limit", "user-agent", "extractor"} {
		if cmd.Flags().Changed(name) {
			changed[name] = true
		}
	}
	return changed
}

// setupLogger creates a redacting structured logger based on verbosity.
func setupLogger(w io.Writer, verbose, jsonFormat bool) *slog.Logger {
	if jsonFormat {
		return log.NewSecureJSONLogger(w, verbose)
	}
	return log.NewSecureLogger(w, verbose)
}

// crawlRunner holds everything a crawl run shares between seeds.
type crawlRunner struct {
	cfg *config.Config

	// explicit lists flags given on the command line. They win over the
	// config file.
	explicit map[string]bool

	logger *slog.Logger
	stdout io.Writer
	stderr io.Writer
}

// run crawls every target, writing each report as soon as its crawl ends.
func (r *crawlRunner) run(ctx context.Context) error {
	cfg := r.cfg

	r.logger.Info("starting crawl",
		"targets", len(cfg.Targets),
		"batchSize", cfg.BatchSize,
		"saveToDB", cfg.SaveToDB,
	)

	var db *database.HistoryDB
	if cfg.SaveToDB {
		var err error
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		r.logger.Debug("database opened", "path", db.Path())
	}

	output, closeOutput, err := openOutput(cfg.ReportFile, r.stdout)
	if err != nil {
		return err
	}
	defer closeOutput()
	writer := newReportWriter(cfg, output, r.stdout)

	if len(cfg.Targets) > 1 {
		fmt.Fprintf(r.stderr, "Crawling %d seeds (concurrency: %d)...\n\n",
			len(cfg.Targets), min(cfg.BatchSize, len(cfg.Targets)))
	}
	startTime := time.Now()

	var (
		mu     sync.Mutex
		failed int
	)
	bp := batch.NewProcessor(r.crawl,
		batch.WithConcurrency(cfg.BatchSize),
		batch.WithLogger(r.logger),
	)
	err = bp.ProcessWithCallback(ctx, cfg.Targets, func(res batch.Result, index int) {
		mu.Lock()
		defer mu.Unlock()

		if res.Crawl == nil {
			failed++
			fmt.Fprintf(r.stderr, "[%d/%d] Crawl error for %s: %v\n",
				index+1, len(cfg.Targets), res.Seed, res.Err)
			return
		}

		fmt.Fprintf(r.stderr, "[%d/%d] Crawl %s: %s (%s)\n",
			index+1, len(cfg.Targets), crawlState(res), res.Seed,
			res.Crawl.Duration.Round(time.Millisecond))

		if _, err := writer.Write(res.Crawl); err != nil {
			r.logger.Error("report failed", "seed", res.Seed, "error", err)
		}
		if err := saveRun(context.WithoutCancel(ctx), db, res.Crawl, r.logger); err != nil {
			r.logger.Error("failed to save run", "seed", res.Seed, "error", err)
		}
	})

	if len(cfg.Targets) > 1 {
		fmt.Fprintf(r.stderr, "\nCrawled %d seeds in %s\n",
			len(cfg.Targets), time.Since(startTime).Round(time.Millisecond))
	}

	if err != nil {
		return fmt.Errorf("crawl interrupted: %w", err)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d seed(s) could not be crawled", failed, len(cfg.Targets))
	}
	return nil
}

// crawl runs a full layered crawl of seed with the settings of its host.
func (r *crawlRunner) crawl(ctx context.Context, seed string) (*model.CrawlResult, error) {
	settings := r.settings(seed)

	client, err := httpclient.New(
		httpclient.WithTimeout(r.cfg.Timeout),
		httpclient.WithUserAgent(settings.UserAgent),
		httpclient.WithHeaders(settings.Headers),
		httpclient.WithCookie(settings.Cookie),
		httpclient.WithProxy(r.cfg.ProxyAddress),
		httpclient.WithMaxRedirects(r.cfg.MaxRedirects),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	extractor, ok := crawler.NewExtractor(settings.Extractor)
	if !ok {
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownExtractor, settings.Extractor)
	}

	fetcher := crawler.NewFetcher(client,
		crawler.WithExtractor(extractor),
		crawler.WithMaxBodySize(r.cfg.MaxBodySize),
		crawler.WithFetcherLogger(r.logger),
	)

	tree, err := crawler.NewTree(seed, fetcher,
		crawler.WithMaxDepth(settings.MaxDepth),
		crawler.WithChildLimit(settings.ChildLimit),
		crawler.WithConcurrency(r.cfg.Concurrency),
		crawler.WithDedupFrontier(r.cfg.DedupFrontier),
		crawler.WithLogger(r.logger),
	)
	if err != nil {
		return nil, err
	}

	err = tree.Crawl(ctx)
	return tree.Result(), err
}

// settings resolves the per-host settings for seed. Flags given on the
// command line override the config file.
func (r *crawlRunner) settings(seed string) config.CrawlSettings {
	var host string
	if u, err := url.Parse(seed); err == nil {
		host = u.Hostname()
	}

	s := r.cfg.Resolve(host)
	if r.explicit["depth"] {
		s.MaxDepth = r.cfg.MaxDepth
	}
	if r.explicit["limit"] {
		s.ChildLimit = r.cfg.ChildLimit
	}
	if r.explicit["user-agent"] {
		s.UserAgent = r.cfg.UserAgent
	}
	if r.explicit["extractor"] {
		s.Extractor = r.cfg.Extractor
	}
	return s
}

// crawlState describes how a seed's crawl ended.
func crawlState(res batch.Result) string {
	switch {
	case res.Crawl.Cancelled || errors.Is(res.Err, context.Canceled):
		return "cancelled"
	case res.Err != nil:
		return "failed"
	default:
		return "completed"
	}
}

// newReportWriter returns the report writer for the requested format.
// When the report goes to a file, stdout still gets a text summary.
func newReportWriter(cfg *config.Config, output, stdout io.Writer) report.Writer {
	var w report.Writer
	switch {
	case cfg.JSONReport:
		w = report.NewFullJSONWriter(output, getVersion(), report.WithPrettyPrint())
	case cfg.MarkdownReport:
		w = report.NewMarkdownWriter(output)
	default:
		w = report.NewTextWriter(output, report.WithShowResources(!cfg.HideResources))
	}

	if cfg.ReportFile == "" {
		return w
	}
	return report.NewMultiWriter(w, report.NewTextWriter(stdout, report.WithShowTree(false)))
}

// openOutput opens the report destination: path when set, stdout otherwise.
// The file is opened once, so every seed's report ends up in it.
func openOutput(path string, stdout io.Writer) (io.Writer, func(), error) {
	if path == "" {
		return stdout, func() {}, nil
	}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	// Reports may contain session-bearing URLs, so the file is owner-only.
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // User-provided output path is intentional
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil //nolint:errcheck // Best effort close
}

// saveRun records result in the history database.
// If db is nil, this function is a no-op.
func saveRun(ctx context.Context, db *database.HistoryDB, result *model.CrawlResult, logger *slog.Logger) error {
	if db == nil {
		return nil
	}

	id, err := db.SaveRun(ctx, result)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	logger.Debug("run saved to history", "seed", result.Seed, "id", id)
	return nil
}
