package crawler

import "errors"

// Expansion failures.
// These never reach the caller of Tree.Crawl; a page that fails simply
// contributes no children. They are recorded on the page (PageNode.Err)
// and logged at debug level so operators can see why a branch is empty.
var (
	// ErrTransport wraps any error returned by the HTTP client
	// (DNS, connection refused, TLS, timeout, body read).
	ErrTransport = errors.New("transport failure")

	// ErrNonTextContent is returned when the response has no Content-Type
	// or one that does not mention "text".
	ErrNonTextContent = errors.New("non-text content")

	// ErrNotFound is returned for 404 responses, even when they carry
	// a text body with links.
	ErrNotFound = errors.New("page not found")

	// ErrUnsupportedCharset is returned when the Content-Type names a
	// charset that the decoder does not know.
	ErrUnsupportedCharset = errors.New("unsupported charset")

	// ErrInvalidSeed is returned by NewTree when the seed is not an
	// absolute http or https URL.
	ErrInvalidSeed = errors.New("invalid seed URL: must be an absolute http(s) URL")
)
