package report

import (
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"github.com/nao1215/webdig/internal/model"
)

// MarkdownWriter outputs results as GitHub-flavored Markdown.
//
// Design decision: We use nao1215/markdown for tables, alerts and the
// mermaid chart instead of formatting Markdown by hand.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

// Write renders result.
func (w *MarkdownWriter) Write(result *model.CrawlResult) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, result)
	w.writeLayers(md, result)
	w.writeTree(md, result)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, result *model.CrawlResult) {
	md.H1("webdig Crawl Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Seed", "`" + result.Seed + "`"},
			{"Started", result.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", formatDuration(result.Duration)},
			{"Depth", strconv.Itoa(result.DepthReached) + " of " + strconv.Itoa(result.MaxDepth)},
			{"Child Limit", limitText(result.ChildLimit)},
			{"Pages", strconv.Itoa(result.TotalPages)},
			{"Failed Pages", strconv.Itoa(result.FailedPages)},
			{"Resources", strconv.Itoa(result.TotalResources)},
			{"Status", status(result)},
		},
	})
	md.PlainText("")

	switch {
	case result.Cancelled:
		md.Warningf("The crawl was cancelled after %d layer(s); the graph is partial.", len(result.Layers))
	case result.FailedPages > 0:
		md.Note(strconv.Itoa(result.FailedPages) + " page(s) could not be expanded.")
	default:
		md.Tip("Every discovered page was expanded.")
	}
	md.PlainText("")

	if result.TotalPages+result.TotalResources > 1 {
		w.writePieChart(md, result)
	}
}

func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, result *model.CrawlResult) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Discovered Nodes"),
		piechart.WithShowData(true),
	)
	ok := result.TotalPages - result.FailedPages
	if ok > 0 {
		chart.LabelAndIntValue("Pages", uint64(ok))
	}
	if result.FailedPages > 0 {
		chart.LabelAndIntValue("Failed Pages", uint64(result.FailedPages))
	}
	if result.TotalResources > 0 {
		chart.LabelAndIntValue("Resources", uint64(result.TotalResources))
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeLayers(md *markdown.Markdown, result *model.CrawlResult) {
	md.H2("Layers")
	md.PlainText("")

	if len(result.Layers) == 0 {
		md.PlainText("No layer was expanded.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(result.Layers))
	for i, l := range result.Layers {
		rows[i] = []string{
			strconv.Itoa(l.Depth),
			strconv.Itoa(l.Frontier),
			strconv.Itoa(l.Pages),
			strconv.Itoa(l.Resources),
			strconv.Itoa(l.Failed),
			formatDuration(l.Duration),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Depth", "Frontier", "Pages", "Resources", "Failed", "Elapsed"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeTree renders the graph as a nested list, two spaces per level.
func (w *MarkdownWriter) writeTree(md *markdown.Markdown, result *model.CrawlResult) {
	md.H2("Tree")
	md.PlainText("")

	result.Root.Walk(func(rec *model.NodeRecord, depth int) bool {
		line := "- " + rec.Kind + " `" + rec.Address + "`"
		if rec.IsPage() && rec.Outcome != "" && rec.Outcome != "expanded" {
			line += " *(" + rec.Outcome + ")*"
		}
		md.PlainText(strings.Repeat("  ", depth) + line)
		return true
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainText("*Report generated by webdig*")
}
