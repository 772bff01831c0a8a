package model

import "time"

// Node kinds as they appear in reports.
const (
	// KindPage is a fetchable HTML/text page that may have children.
	KindPage = "page"

	// KindResource is a terminal asset referenced by a src attribute.
	KindResource = "resource"
)

// CrawlResult is the report-ready view of a finished (or cancelled) crawl.
// It is a snapshot: it holds no references to the live crawl graph.
//
// Design decision: We copy the graph into plain records rather than
// exposing crawler nodes because:
//  1. Writers and the history database must not depend on the crawler
//  2. Records marshal to JSON without custom code
//  3. The crawler keeps its nodes unexported-mutable
type CrawlResult struct {
	// Seed is the address the crawl started from.
	Seed string `json:"seed"`

	// MaxDepth is the configured layer budget.
	MaxDepth int `json:"max_depth"`

	// DepthReached is the number of layers that produced new nodes.
	DepthReached int `json:"depth_reached"`

	// ChildLimit is the per-page cap on consumed link matches.
	// Zero or negative means unlimited.
	ChildLimit int `json:"child_limit"`

	// StartedAt is when the first layer was dispatched.
	StartedAt time.Time `json:"started_at"`

	// Duration is the wall time of the whole crawl.
	Duration time.Duration `json:"duration"`

	// Cancelled is true when the context ended the crawl early.
	// The graph then holds whatever was discovered before cancellation.
	Cancelled bool `json:"cancelled,omitempty"`

	// TotalPages counts page nodes in the graph, including the root.
	TotalPages int `json:"total_pages"`

	// TotalResources counts resource nodes in the graph.
	TotalResources int `json:"total_resources"`

	// FailedPages counts pages whose expansion produced nothing because
	// of a fetch, content type, status or decode problem.
	FailedPages int `json:"failed_pages"`

	// Layers holds one entry per expanded layer, in crawl order.
	Layers []LayerStats `json:"layers"`

	// Root is the seed page and, transitively, everything discovered.
	Root *NodeRecord `json:"root"`
}

// LayerStats describes one breadth-first layer.
type LayerStats struct {
	// Depth is the zero-based index of the expanded layer.
	Depth int `json:"depth"`

	// Frontier is the number of nodes expanded in this layer.
	Frontier int `json:"frontier"`

	// Pages is the number of page nodes discovered by this layer.
	Pages int `json:"pages"`

	// Resources is the number of resource nodes discovered by this layer.
	Resources int `json:"resources"`

	// Failed is the number of frontier pages whose expansion failed.
	Failed int `json:"failed"`

	// Duration is the time between dispatch and the layer barrier.
	Duration time.Duration `json:"duration"`
}

// Discovered returns the total number of nodes the layer produced.
func (l LayerStats) Discovered() int {
	return l.Pages + l.Resources
}

// NodeRecord is a single node of the crawl graph.
type NodeRecord struct {
	// Address is the absolute URL exactly as it was discovered.
	Address string `json:"address"`

	// Kind is KindPage or KindResource.
	Kind string `json:"kind"`

	// Outcome is the expansion result for pages ("expanded", "failed", ...).
	// Empty for resources and for pages never expanded.
	Outcome string `json:"outcome,omitempty"`

	// Children are the nodes registered during this node's expansion,
	// in document order.
	Children []*NodeRecord `json:"children,omitempty"`
}

// IsPage reports whether the record is a page.
func (n *NodeRecord) IsPage() bool {
	return n.Kind == KindPage
}

// Walk visits n and all its descendants depth-first, in child order.
// depth is 0 for n. Returning false from fn skips the node's children.
func (n *NodeRecord) Walk(fn func(rec *NodeRecord, depth int) bool) {
	n.walk(fn, 0)
}

func (n *NodeRecord) walk(fn func(rec *NodeRecord, depth int) bool, depth int) {
	if n == nil {
		return
	}
	if !fn(n, depth) {
		return
	}
	for _, child := range n.Children {
		child.walk(fn, depth+1)
	}
}

// Count returns the number of pages and resources in the subtree rooted at n.
func (n *NodeRecord) Count() (pages, resources int) {
	n.Walk(func(rec *NodeRecord, _ int) bool {
		if rec.IsPage() {
			pages++
		} else {
			resources++
		}
		return true
	})
	return pages, resources
}

// Addresses returns every address in the subtree in walk order.
// Duplicates are kept; the same address may be discovered more than once.
func (n *NodeRecord) Addresses() []string {
	addrs := make([]string, 0)
	n.Walk(func(rec *NodeRecord, _ int) bool {
		addrs = append(addrs, rec.Address)
		return true
	})
	return addrs
}
