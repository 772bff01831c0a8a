package crawler

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"unicode"

	"github.com/nao1215/webdig/internal/model"
)

// Kind distinguishes pages from resources.
type Kind int

const (
	// KindPage is a fetchable node that may produce children.
	KindPage Kind = iota
	// KindResource is a terminal node for a src-referenced asset.
	KindResource
)

// String returns the report name of the kind.
func (k Kind) String() string {
	if k == KindResource {
		return model.KindResource
	}
	return model.KindPage
}

// Outcome records how a page expansion ended.
type Outcome int

const (
	// OutcomePending means the page has not been expanded.
	OutcomePending Outcome = iota
	// OutcomeExpanded means the page was fetched and scanned for links.
	OutcomeExpanded
	// OutcomeNonText means the response was not text.
	OutcomeNonText
	// OutcomeNotFound means the server answered 404.
	OutcomeNotFound
	// OutcomeFailed covers transport and decode failures.
	OutcomeFailed
)

// String returns the report name of the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeExpanded:
		return "expanded"
	case OutcomeNonText:
		return "non-text"
	case OutcomeNotFound:
		return "not-found"
	case OutcomeFailed:
		return "failed"
	default:
		return "pending"
	}
}

// outcomeOf maps an expansion error to an Outcome.
func outcomeOf(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeExpanded
	case errors.Is(err, ErrNonTextContent):
		return OutcomeNonText
	case errors.Is(err, ErrNotFound):
		return OutcomeNotFound
	default:
		return OutcomeFailed
	}
}

// Index is the set of addresses already in the crawl, keyed by the exact
// address string. The driver only writes it between layers; expansions
// running inside a layer only read it.
type Index map[string]struct{}

// Contains reports whether address has been seen.
func (ix Index) Contains(address string) bool {
	_, ok := ix[address]
	return ok
}

func (ix Index) add(address string) {
	ix[address] = struct{}{}
}

// Node is a unit of the crawl graph.
type Node interface {
	// Address returns the absolute URL as discovered, in the normalized
	// form of url.URL.String: characters such as '|' or non-ASCII bytes
	// are percent-encoded. The same form is the key of the contained Index.
	Address() string

	// Host returns the host of the address without port. It is empty for
	// host-less resources such as data: URIs.
	Host() string

	// Kind reports whether this is a page or a resource.
	Kind() Kind

	// Children returns the nodes registered by this node's expansion.
	Children() []Node

	// Expand discovers the node's children. It never returns an error:
	// a node that cannot be expanded has no children.
	Expand(ctx context.Context, f *Fetcher, contained Index, limit int) []Node
}

// ResourceNode is a terminal node (image, script, stylesheet, ...).
// Resources are never fetched.
type ResourceNode struct {
	address string
	host    string
}

// NewResourceNode creates a resource node for u.
func NewResourceNode(u *url.URL) *ResourceNode {
	return &ResourceNode{address: u.String(), host: u.Hostname()}
}

// Address implements Node.
func (r *ResourceNode) Address() string { return r.address }

// Host implements Node.
func (r *ResourceNode) Host() string { return r.host }

// Kind implements Node.
func (r *ResourceNode) Kind() Kind { return KindResource }

// Children implements Node. Resources have none.
func (r *ResourceNode) Children() []Node { return nil }

// Expand implements Node. It performs no I/O and returns nothing.
func (r *ResourceNode) Expand(context.Context, *Fetcher, Index, int) []Node {
	return nil
}

// PageNode is a fetchable node. Its children are populated by the first
// call to Expand; later calls return the same list without fetching.
type PageNode struct {
	address string
	host    string

	children []Node
	expanded bool
	outcome  Outcome
	err      error
}

// NewPageNode creates an unexpanded page node for u.
func NewPageNode(u *url.URL) *PageNode {
	return &PageNode{
		address:  u.String(),
		host:     u.Hostname(),
		children: make([]Node, 0),
	}
}

// Address implements Node.
func (p *PageNode) Address() string { return p.address }

// Host implements Node.
func (p *PageNode) Host() string { return p.host }

// Kind implements Node.
func (p *PageNode) Kind() Kind { return KindPage }

// Children implements Node.
func (p *PageNode) Children() []Node { return p.children }

// Outcome reports how the expansion ended.
func (p *PageNode) Outcome() Outcome { return p.outcome }

// Err returns the swallowed expansion error, if any.
func (p *PageNode) Err() error { return p.err }

// Expand fetches the page and registers its children.
//
// Same-host scoping is applied to every discovered href against this page's
// own host, so it holds at every depth rather than only at the root.
// Resources are neither host-filtered nor deduplicated.
func (p *PageNode) Expand(ctx context.Context, f *Fetcher, contained Index, limit int) []Node {
	if p.expanded {
		return p.children
	}
	p.expanded = true

	p.err = p.expand(ctx, f, contained, limit)
	p.outcome = outcomeOf(p.err)
	if p.err != nil {
		f.logger.Debug("page expansion yielded no links",
			"url", p.address,
			"outcome", p.outcome.String(),
			"error", p.err,
		)
	}
	return p.children
}

func (p *PageNode) expand(ctx context.Context, f *Fetcher, contained Index, limit int) error {
	text, err := f.Fetch(ctx, p.address)
	if err != nil {
		return err
	}

	consumed := 0
	for m := range f.extractor.Extract(text) {
		if limit > 0 && consumed >= limit {
			break
		}
		consumed++

		if m.HasHref {
			if u, ok := parseAbsolute(m.Href); ok && u.Host != "" &&
				!contained.Contains(u.String()) &&
				strings.EqualFold(u.Hostname(), p.host) {
				p.children = append(p.children, NewPageNode(u))
			}
		}
		if m.HasSrc {
			if u, ok := parseAbsolute(m.Src); ok {
				p.children = append(p.children, NewResourceNode(u))
			}
		}
	}
	return nil
}

// parseAbsolute parses ref and accepts it only if it is a well-formed
// absolute URI: it has a scheme and contains no whitespace. Host-less
// URIs such as data:, urn: and file:/// pass; hrefs need a host on top.
func parseAbsolute(ref string) (*url.URL, bool) {
	if ref == "" || strings.IndexFunc(ref, unicode.IsSpace) >= 0 {
		return nil, false
	}
	u, err := url.Parse(ref)
	if err != nil || u.Scheme == "" {
		return nil, false
	}
	return u, true
}
