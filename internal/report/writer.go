package report

import (
	"io"
	"time"

	"github.com/nao1215/webdig/internal/model"
)

// Writer renders a crawl result to its destination.
type Writer interface {
	// Write renders result and returns the number of bytes written.
	Write(result *model.CrawlResult) (int, error)
}

// MultiWriter writes the same result with several Writers, in order.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write stops at the first error and returns the bytes written so far.
func (m *MultiWriter) Write(result *model.CrawlResult) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(result)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// status is the one-word state of a crawl used by the text formats.
func status(result *model.CrawlResult) string {
	if result.Cancelled {
		return "Cancelled (partial results)"
	}
	return "Complete"
}

// formatDuration rounds d for display.
func formatDuration(d time.Duration) string {
	return d.Round(time.Millisecond).String()
}
