package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/nao1215/webdig/internal/model"
	"golang.org/x/sync/errgroup"
)

// Default crawl bounds.
const (
	// DefaultMaxDepth is the number of layers expanded when not configured.
	DefaultMaxDepth = 3

	// DefaultChildLimit caps link matches consumed per page.
	DefaultChildLimit = 100
)

// Tree is the layered crawl driver. It owns the root page, the set of
// every node discovered so far, and the per-layer statistics.
//
// A crawl proceeds one breadth-first layer at a time. Every node in the
// frontier is expanded concurrently, the driver waits for all of them,
// then flattens their children in frontier order into the next frontier.
//
// Design decision: Expansions deduplicate only against nodes known before
// their layer started. Two sibling pages in the same layer can therefore
// both register the same address. WithDedupFrontier removes those
// duplicates at the barrier for callers that want a tighter graph.
type Tree struct {
	root    *PageNode
	fetcher *Fetcher

	maxDepth      int
	childLimit    int
	concurrency   int
	dedupFrontier bool
	logger        *slog.Logger

	// contained holds every node in discovery order; index mirrors it by address.
	contained []Node
	index     Index

	depth     int
	layers    []model.LayerStats
	startedAt time.Time
	duration  time.Duration
	cancelled bool
}

// TreeOption configures a Tree.
type TreeOption func(*Tree)

// WithMaxDepth sets how many layers may be expanded.
func WithMaxDepth(depth int) TreeOption {
	return func(t *Tree) {
		t.maxDepth = depth
	}
}

// WithChildLimit sets the per-page cap on consumed link matches.
// Zero or negative means unlimited.
func WithChildLimit(limit int) TreeOption {
	return func(t *Tree) {
		t.childLimit = limit
	}
}

// WithConcurrency caps the number of simultaneous expansions in a layer.
// Zero or negative (the default) dispatches the whole layer at once.
func WithConcurrency(n int) TreeOption {
	return func(t *Tree) {
		t.concurrency = n
	}
}

// WithDedupFrontier drops repeated addresses from each merged frontier
// before it is added to the contained set. The first occurrence wins.
func WithDedupFrontier(enabled bool) TreeOption {
	return func(t *Tree) {
		t.dedupFrontier = enabled
	}
}

// WithLogger sets the logger for layer progress.
func WithLogger(logger *slog.Logger) TreeOption {
	return func(t *Tree) {
		t.logger = logger
	}
}

// NewTree creates a crawl rooted at seed.
// The seed must be an absolute http or https URL.
func NewTree(seed string, fetcher *Fetcher, opts ...TreeOption) (*Tree, error) {
	u, err := url.Parse(seed)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSeed, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSeed, seed)
	}
	if fetcher == nil {
		fetcher = NewFetcher(nil)
	}

	root := NewPageNode(u)
	t := &Tree{
		root:       root,
		fetcher:    fetcher,
		maxDepth:   DefaultMaxDepth,
		childLimit: DefaultChildLimit,
		contained:  []Node{root},
		index:      Index{root.Address(): {}},
		layers:     make([]model.LayerStats, 0),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.logger == nil {
		t.logger = slog.Default()
	}
	return t, nil
}

// Crawl expands layers until the depth budget is spent or a layer
// discovers nothing new. Fetch failures never stop the crawl; the only
// error returned is the context's, when it ends the crawl early. The graph
// discovered up to that point is kept.
//
// Crawl is meant to be called once per Tree.
func (t *Tree) Crawl(ctx context.Context) error {
	t.startedAt = time.Now()
	defer func() {
		t.duration = time.Since(t.startedAt)
	}()

	frontier := []Node{t.root}
	for t.depth < t.maxDepth && len(frontier) > 0 {
		if err := ctx.Err(); err != nil {
			t.cancelled = true
			return err
		}

		start := time.Now()
		results := t.expandLayer(ctx, frontier)
		if t.dedupFrontier {
			dedupResults(frontier, results)
		}

		next := make([]Node, 0)
		for _, children := range results {
			next = append(next, children...)
		}

		stats := layerStats(t.depth, frontier, next, time.Since(start))
		t.layers = append(t.layers, stats)
		t.logger.Info("layer expanded",
			"depth", stats.Depth,
			"frontier", stats.Frontier,
			"pages", stats.Pages,
			"resources", stats.Resources,
			"failed", stats.Failed,
			"elapsed", stats.Duration,
		)

		for _, n := range next {
			t.contained = append(t.contained, n)
			t.index.add(n.Address())
		}

		frontier = next
		if len(next) == 0 {
			break
		}
		t.depth++
	}

	if err := ctx.Err(); err != nil {
		t.cancelled = true
		return err
	}
	return nil
}

// expandLayer runs every frontier expansion concurrently. Result slot i
// belongs to frontier[i], so the join order never depends on which
// expansion finishes first.
func (t *Tree) expandLayer(ctx context.Context, frontier []Node) [][]Node {
	results := make([][]Node, len(frontier))

	var g errgroup.Group
	if t.concurrency > 0 {
		g.SetLimit(t.concurrency)
	}
	for i, n := range frontier {
		g.Go(func() error {
			results[i] = n.Expand(ctx, t.fetcher, t.index, t.childLimit)
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // expansions never return errors

	return results
}

// dedupResults keeps only the first node for each address across the
// whole layer, in frontier order. The parent pages' child lists are
// trimmed too so the graph and the contained set agree.
// It runs after the barrier, when no expansion touches the pages anymore.
func dedupResults(frontier []Node, results [][]Node) {
	seen := make(Index)
	for i, children := range results {
		kept := make([]Node, 0, len(children))
		for _, n := range children {
			if seen.Contains(n.Address()) {
				continue
			}
			seen.add(n.Address())
			kept = append(kept, n)
		}
		results[i] = kept
		if p, ok := frontier[i].(*PageNode); ok {
			p.children = kept
		}
	}
}

// layerStats summarizes one expanded layer.
func layerStats(depth int, frontier, next []Node, elapsed time.Duration) model.LayerStats {
	stats := model.LayerStats{
		Depth:    depth,
		Frontier: len(frontier),
		Duration: elapsed,
	}
	for _, n := range frontier {
		if p, ok := n.(*PageNode); ok && p.Outcome() != OutcomeExpanded {
			stats.Failed++
		}
	}
	for _, n := range next {
		if n.Kind() == KindPage {
			stats.Pages++
		} else {
			stats.Resources++
		}
	}
	return stats
}

// Root returns the seed page.
func (t *Tree) Root() *PageNode {
	return t.root
}

// Depth returns the number of layers that produced new nodes.
func (t *Tree) Depth() int {
	return t.depth
}

// Contained returns every discovered node in discovery order.
func (t *Tree) Contained() []Node {
	out := make([]Node, len(t.contained))
	copy(out, t.contained)
	return out
}

// Layers returns the statistics of each expanded layer.
func (t *Tree) Layers() []model.LayerStats {
	out := make([]model.LayerStats, len(t.layers))
	copy(out, t.layers)
	return out
}

// Result snapshots the crawl graph into a report model.
// Call it after Crawl returns.
func (t *Tree) Result() *model.CrawlResult {
	result := &model.CrawlResult{
		Seed:         t.root.Address(),
		MaxDepth:     t.maxDepth,
		DepthReached: t.depth,
		ChildLimit:   t.childLimit,
		StartedAt:    t.startedAt,
		Duration:     t.duration,
		Cancelled:    t.cancelled,
		Layers:       t.Layers(),
		Root:         record(t.root),
	}
	for _, n := range t.contained {
		if p, ok := n.(*PageNode); ok {
			result.TotalPages++
			if p.expanded && p.Outcome() != OutcomeExpanded {
				result.FailedPages++
			}
		} else {
			result.TotalResources++
		}
	}
	return result
}

// record converts n and its descendants into report records.
func record(n Node) *model.NodeRecord {
	rec := &model.NodeRecord{
		Address: n.Address(),
		Kind:    n.Kind().String(),
	}
	if p, ok := n.(*PageNode); ok && p.expanded {
		rec.Outcome = p.Outcome().String()
	}
	for _, child := range n.Children() {
		rec.Children = append(rec.Children, record(child))
	}
	return rec
}
