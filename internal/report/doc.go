// Package report renders crawl results.
//
// Three formats are available:
//   - TextWriter: a summary, the per-layer table and the indented crawl tree
//   - JSONWriter: the whole result as JSON, optionally wrapped with the tool version
//   - MarkdownWriter: GitHub-flavored Markdown with tables and a mermaid chart
//
// Design decision: Writers consume model.CrawlResult snapshots, never live
// crawler nodes, so a report can be written from any goroutine once the
// crawl has returned.
package report
