// Package httpclient builds the shared HTTP client used by the crawler.
//
// The client is built once per run and shared read-only by every
// expansion. Identity headers (User-Agent, Cookie, custom headers) are
// stamped by a transport wrapper, so callers never set them per request.
//
// Design decision: Headers are injected by a RoundTripper rather than by
// the fetcher because:
//  1. Redirect follow-ups carry the same identity
//  2. The crawler stays unaware of site-specific credentials
//
// An optional SOCKS5 proxy (for example a local Tor daemon) can be
// configured with WithProxy.
package httpclient
