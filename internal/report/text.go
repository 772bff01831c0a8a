package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/webdig/internal/model"
)

// TextWriter writes a human-readable report for the terminal.
type TextWriter struct {
	baseWriter

	// showTree prints the crawl tree after the summary.
	showTree bool

	// showResources includes resource nodes in the tree.
	showResources bool
}

// TextWriterOption configures a TextWriter.
type TextWriterOption func(*TextWriter)

// WithShowTree toggles the crawl tree section. It is on by default.
func WithShowTree(show bool) TextWriterOption {
	return func(w *TextWriter) {
		w.showTree = show
	}
}

// WithShowResources toggles resource nodes in the tree. They are shown by default.
func WithShowResources(show bool) TextWriterOption {
	return func(w *TextWriter) {
		w.showResources = show
	}
}

// NewTextWriter creates a TextWriter that outputs to the given writer.
func NewTextWriter(output io.Writer, opts ...TextWriterOption) *TextWriter {
	w := &TextWriter{
		baseWriter:    newBaseWriter(output),
		showTree:      true,
		showResources: true,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write renders result.
func (w *TextWriter) Write(result *model.CrawlResult) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, result)
	w.writeLayers(&sb, result)
	if w.showTree {
		w.writeTree(&sb, result)
	}
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")

	return io.WriteString(w.output, sb.String())
}

func (w *TextWriter) writeHeader(sb *strings.Builder, result *model.CrawlResult) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                          WEBDIG CRAWL REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Seed:           %s\n", result.Seed)
	fmt.Fprintf(sb, "Started:        %s\n", result.StartedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(sb, "Duration:       %s\n", formatDuration(result.Duration))
	fmt.Fprintf(sb, "Depth:          %d of %d\n", result.DepthReached, result.MaxDepth)
	fmt.Fprintf(sb, "Child limit:    %s\n", limitText(result.ChildLimit))
	fmt.Fprintf(sb, "Pages:          %d (%d failed)\n", result.TotalPages, result.FailedPages)
	fmt.Fprintf(sb, "Resources:      %d\n", result.TotalResources)
	fmt.Fprintf(sb, "Status:         %s\n", status(result))
	sb.WriteString("\n")
}

func (w *TextWriter) writeLayers(sb *strings.Builder, result *model.CrawlResult) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\nLAYERS\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	if len(result.Layers) == 0 {
		sb.WriteString("  No layer was expanded.\n\n")
		return
	}

	fmt.Fprintf(sb, "  %-6s %9s %7s %10s %7s %10s\n", "DEPTH", "FRONTIER", "PAGES", "RESOURCES", "FAILED", "ELAPSED")
	for _, l := range result.Layers {
		fmt.Fprintf(sb, "  %-6d %9d %7d %10d %7d %10s\n",
			l.Depth, l.Frontier, l.Pages, l.Resources, l.Failed, formatDuration(l.Duration))
	}
	sb.WriteString("\n")
}

func (w *TextWriter) writeTree(sb *strings.Builder, result *model.CrawlResult) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\nTREE\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	result.Root.Walk(func(rec *model.NodeRecord, depth int) bool {
		if !rec.IsPage() && !w.showResources {
			return false
		}
		sb.WriteString(strings.Repeat("  ", depth))
		sb.WriteString(nodeLine(rec))
		sb.WriteString("\n")
		return true
	})
	sb.WriteString("\n")
}

// nodeLine formats a record as "[kind] address (outcome)".
// The outcome is only shown for pages that were expanded without success.
func nodeLine(rec *model.NodeRecord) string {
	line := "[" + rec.Kind + "] " + rec.Address
	if rec.IsPage() && rec.Outcome != "" && rec.Outcome != "expanded" {
		line += " (" + rec.Outcome + ")"
	}
	return line
}

func limitText(limit int) string {
	if limit <= 0 {
		return "unlimited"
	}
	return fmt.Sprintf("%d", limit)
}
