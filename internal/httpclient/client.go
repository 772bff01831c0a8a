package httpclient

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/cookiejar"
	"strconv"
	"time"

	"golang.org/x/net/proxy"
)

// Defaults for New.
const (
	// DefaultTimeout bounds a whole request, body included.
	DefaultTimeout = 30 * time.Second

	// DefaultUserAgent is sent when no user agent is configured.
	DefaultUserAgent = "Chrome/79"

	// DefaultMaxRedirects is how many redirects a request may follow.
	DefaultMaxRedirects = 10
)

// options collects the settings applied by New.
type options struct {
	timeout      time.Duration
	userAgent    string
	headers      map[string]string
	cookie       string
	proxyAddress string
	maxRedirects int
}

// Option configures the client built by New.
type Option func(*options)

// WithTimeout sets the per-request timeout. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithUserAgent sets the User-Agent sent with every request.
func WithUserAgent(ua string) Option {
	return func(o *options) {
		if ua != "" {
			o.userAgent = ua
		}
	}
}

// WithHeaders adds static headers sent with every request.
// Later calls merge into earlier ones.
func WithHeaders(headers map[string]string) Option {
	return func(o *options) {
		for k, v := range headers {
			o.headers[k] = v
		}
	}
}

// WithCookie sets a raw Cookie header value (e.g. "session=abc").
func WithCookie(cookie string) Option {
	return func(o *options) {
		o.cookie = cookie
	}
}

// WithProxy routes every connection through a SOCKS5 proxy at host:port.
// An empty address means direct connections.
func WithProxy(address string) Option {
	return func(o *options) {
		o.proxyAddress = address
	}
}

// WithMaxRedirects caps how many redirects a request follows.
// Past the cap the last redirect response is returned as is.
func WithMaxRedirects(n int) Option {
	return func(o *options) {
		o.maxRedirects = n
	}
}

// New builds an HTTP client from the given options.
func New(opts ...Option) (*http.Client, error) {
	o := &options{
		timeout:      DefaultTimeout,
		userAgent:    DefaultUserAgent,
		headers:      make(map[string]string),
		maxRedirects: DefaultMaxRedirects,
	}
	for _, opt := range opts {
		opt(o)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone() //nolint:forcetypeassert // DefaultTransport is always *http.Transport
	if o.proxyAddress != "" {
		if err := ValidateProxyAddress(o.proxyAddress); err != nil {
			return nil, err
		}
		dialer, err := proxy.SOCKS5("tcp", o.proxyAddress, nil, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
		}
		transport.Proxy = nil
		transport.DialContext = dialContext(dialer)
	}

	jar, _ := cookiejar.New(nil) //nolint:errcheck // cookiejar.New only fails with invalid options

	maxRedirects := o.maxRedirects
	return &http.Client{
		Transport: &headerTransport{
			base:      transport,
			userAgent: o.userAgent,
			cookie:    o.cookie,
			headers:   o.headers,
		},
		Timeout: o.timeout,
		Jar:     jar,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}, nil
}

// dialContext adapts a proxy.Dialer to http.Transport.DialContext,
// using the context-aware path when the dialer has one.
func dialContext(d proxy.Dialer) func(ctx context.Context, network, addr string) (net.Conn, error) {
	if cd, ok := d.(proxy.ContextDialer); ok {
		return cd.DialContext
	}
	return func(_ context.Context, network, addr string) (net.Conn, error) {
		return d.Dial(network, addr)
	}
}

// ValidateProxyAddress reports whether address is a usable "host:port".
func ValidateProxyAddress(address string) error {
	host, port, err := net.SplitHostPort(address)
	if err != nil || host == "" {
		return ErrInvalidProxyAddress
	}
	n, err := strconv.Atoi(port)
	if err != nil || n < 1 || n > 65535 {
		return ErrInvalidProxyAddress
	}
	return nil
}

// headerTransport stamps identity headers onto every outgoing request.
// Headers the request already carries are left alone.
type headerTransport struct {
	base      http.RoundTripper
	userAgent string
	cookie    string
	headers   map[string]string
}

// RoundTrip implements http.RoundTripper.
func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// RoundTrippers must not modify the caller's request.
	clone := req.Clone(req.Context())

	if clone.Header.Get("User-Agent") == "" && t.userAgent != "" {
		clone.Header.Set("User-Agent", t.userAgent)
	}
	if t.cookie != "" && clone.Header.Get("Cookie") == "" {
		clone.Header.Set("Cookie", t.cookie)
	}
	for k, v := range t.headers {
		if clone.Header.Get(k) == "" {
			clone.Header.Set(k, v)
		}
	}
	return t.base.RoundTrip(clone)
}
