// Package crawler implements a bounded-depth, same-host layered crawl.
//
// # Architecture
//
// A crawl is a Tree of Nodes. The Tree expands one breadth-first layer at
// a time: every node of the current frontier is expanded concurrently,
// the driver waits at a barrier, and the children are flattened in
// frontier order into the next frontier.
//
// Two kinds of node exist:
//
//   - PageNode: fetched over HTTP and scanned for links
//   - ResourceNode: a terminal asset referenced by a src attribute
//
// Pages only follow hrefs whose host matches their own host, compared
// case-insensitively. Resources are kept whatever their host, and are
// never fetched.
//
// Design decision: Expansion errors never leave a node. A page that cannot
// be fetched, is not text, answers 404 or cannot be decoded simply has no
// children. The reason is recorded as the page Outcome and logged at debug
// level so that reports can still show it.
//
// # Components
//
//   - Extractor: yields raw href/src matches from page text (regex or tokenizer)
//   - Fetcher: performs GET requests, filters content types and decodes charsets
//   - Tree: drives the layers and keeps per-layer statistics
//
// # Usage
//
//	fetcher := crawler.NewFetcher(client)
//	tree, err := crawler.NewTree("https://example.com/", fetcher, crawler.WithMaxDepth(3))
//	if err != nil {
//		return err
//	}
//	if err := tree.Crawl(ctx); err != nil {
//		// context ended early; the partial graph is still available
//	}
//	result := tree.Result()
package crawler
