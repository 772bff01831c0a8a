package crawler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

// DefaultMaxBodySize caps how much of a response body is read.
const DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

// Fetcher performs the HTTP side of a page expansion: GET, content type
// filter, charset decoding, status check. It is shared by every expansion
// of a crawl and is safe for concurrent use.
//
// Design decision: The User-Agent and any other request headers belong to
// the *http.Client given to NewFetcher (see internal/httpclient), not to
// the Fetcher. Nothing here mutates shared client state, so concurrent
// expansions cannot race on header configuration.
type Fetcher struct {
	// client is shared by the whole crawl for connection reuse.
	client *http.Client

	// extractor finds link references in decoded text.
	extractor Extractor

	// maxBodySize limits bytes read per response.
	maxBodySize int64

	// logger receives debug output about swallowed failures.
	logger *slog.Logger
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithExtractor replaces the default regex extractor.
func WithExtractor(e Extractor) FetcherOption {
	return func(f *Fetcher) {
		if e != nil {
			f.extractor = e
		}
	}
}

// WithMaxBodySize sets the maximum number of body bytes read per response.
// Non-positive sizes keep DefaultMaxBodySize.
func WithMaxBodySize(size int64) FetcherOption {
	return func(f *Fetcher) {
		if size > 0 {
			f.maxBodySize = size
		}
	}
}

// WithFetcherLogger sets the logger used for expansion diagnostics.
func WithFetcherLogger(logger *slog.Logger) FetcherOption {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

// NewFetcher creates a Fetcher around client.
// If client is nil, http.DefaultClient is used.
func NewFetcher(client *http.Client, opts ...FetcherOption) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}

	f := &Fetcher{
		client:      client,
		extractor:   NewRegexExtractor(),
		maxBodySize: DefaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.logger == nil {
		f.logger = slog.Default()
	}
	return f
}

// Fetch GETs address and returns the decoded body text.
//
// The checks run in a fixed order: content type, then decoding, then the
// 404 status. A 404 with a text body therefore still yields ErrNotFound,
// and a 404 with a bad charset yields ErrUnsupportedCharset.
func (f *Fetcher) Fetch(ctx context.Context, address string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, address, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrTransport, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" || !strings.Contains(contentType, "text") {
		return "", fmt.Errorf("%w: %q", ErrNonTextContent, contentType)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize))
	if err != nil {
		return "", fmt.Errorf("%w: reading body: %w", ErrTransport, err)
	}

	text := string(raw)
	if name := charsetParam(contentType); name != "" {
		text, err = Decode(raw, name)
		if err != nil {
			return "", err
		}
	}

	if resp.StatusCode == http.StatusNotFound {
		return "", ErrNotFound
	}
	return text, nil
}
