package batch

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/webdig/internal/model"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is the number of seeds crawled at once when not configured.
const DefaultConcurrency = 4

// CrawlFunc crawls one seed. A cancelled crawl returns its partial result
// together with the context error.
type CrawlFunc func(ctx context.Context, seed string) (*model.CrawlResult, error)

// Result is the outcome of one seed.
type Result struct {
	// Seed is the seed as it was given.
	Seed string

	// Crawl is the crawl result. It is nil when the crawl could not start
	// (for example an invalid seed, or cancellation before the seed's turn).
	Crawl *model.CrawlResult

	// Err is the error returned by the crawl, if any.
	Err error
}

// Processor runs a CrawlFunc over many seeds.
//
// Design decision: A failing seed never cancels the others. The errgroup
// is used for its concurrency limit, not for error propagation; every
// goroutine returns nil and the error is kept in the seed's Result.
type Processor struct {
	crawl       CrawlFunc
	concurrency int
	logger      *slog.Logger
}

// Option configures a Processor.
type Option func(*Processor)

// WithConcurrency sets how many seeds are crawled at once.
// Non-positive values keep the default.
func WithConcurrency(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// WithLogger sets the logger for batch progress.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) {
		p.logger = logger
	}
}

// NewProcessor creates a Processor calling crawl once per seed.
func NewProcessor(crawl CrawlFunc, opts ...Option) *Processor {
	p := &Processor{
		crawl:       crawl,
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// Process crawls every seed and returns the results in input order.
// The error is the context's when the batch was cancelled; results for
// the seeds that finished, or were interrupted, are still returned.
func (p *Processor) Process(ctx context.Context, seeds []string) ([]Result, error) {
	results := make([]Result, len(seeds))
	err := p.ProcessWithCallback(ctx, seeds, func(r Result, index int) {
		results[index] = r
	})
	return results, err
}

// ProcessWithCallback crawls every seed and calls callback as each one
// completes. callback runs on the crawling goroutine, so it must be safe
// for concurrent use; index is the seed's position in seeds.
func (p *Processor) ProcessWithCallback(ctx context.Context, seeds []string, callback func(r Result, index int)) error {
	p.logger.Info("starting batch crawl",
		"seeds", len(seeds),
		"concurrency", p.concurrency,
	)
	start := time.Now()

	var g errgroup.Group
	g.SetLimit(p.concurrency)

	for i, seed := range seeds {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				callback(Result{Seed: seed, Err: err}, i)
				return nil
			}

			p.logger.Info("crawling seed", "seed", seed, "index", i+1, "total", len(seeds))
			crawl, err := p.crawl(ctx, seed)
			if err != nil {
				p.logger.Warn("crawl failed", "seed", seed, "error", err)
			} else {
				p.logger.Info("crawl completed", "seed", seed)
			}

			callback(Result{Seed: seed, Crawl: crawl, Err: err}, i)
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // goroutines never return errors

	p.logger.Info("batch crawl complete",
		"seeds", len(seeds),
		"elapsed", time.Since(start),
	)
	return ctx.Err()
}
