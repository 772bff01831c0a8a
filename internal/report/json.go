package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/webdig/internal/model"
)

// JSONWriter outputs results as JSON for tools and scripts.
type JSONWriter struct {
	baseWriter

	indent       bool
	indentPrefix string
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables indented output with the given prefix and indent.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint is WithIndent("", "  ").
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs result as a single JSON document followed by a newline.
func (w *JSONWriter) Write(result *model.CrawlResult) (int, error) {
	return w.writeJSON(result)
}

func (w *JSONWriter) writeJSON(v any) (int, error) {
	var (
		data []byte
		err  error
	)
	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return 0, err
	}
	data = append(data, '\n')
	return w.output.Write(data)
}

// JSONReport wraps a result with the version of the tool that produced it.
type JSONReport struct {
	// Version is the webdig version.
	Version string `json:"version"`

	// Result is the crawl result.
	Result *model.CrawlResult `json:"result"`
}

// FullJSONWriter writes results wrapped in a JSONReport.
type FullJSONWriter struct {
	*JSONWriter

	version string
}

// NewFullJSONWriter creates a writer stamping every result with version.
func NewFullJSONWriter(output io.Writer, version string, opts ...JSONWriterOption) *FullJSONWriter {
	return &FullJSONWriter{
		JSONWriter: NewJSONWriter(output, opts...),
		version:    version,
	}
}

// Write outputs the wrapped result.
func (w *FullJSONWriter) Write(result *model.CrawlResult) (int, error) {
	return w.writeJSON(&JSONReport{Version: w.version, Result: result})
}
