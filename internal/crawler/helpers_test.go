package crawler

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// fakePage is a canned response served by fakeSite.
type fakePage struct {
	status      int
	contentType string
	body        string
	raw         []byte
	delay       time.Duration
}

// fakeSite is an http.RoundTripper serving canned pages keyed by URL.
// Unknown URLs fail like an unreachable host.
type fakeSite struct {
	pages map[string]fakePage

	mu       sync.Mutex
	requests map[string]int
	agents   []string

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func newFakeSite(pages map[string]fakePage) *fakeSite {
	return &fakeSite{
		pages:    pages,
		requests: make(map[string]int),
	}
}

func (s *fakeSite) RoundTrip(req *http.Request) (*http.Response, error) {
	cur := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		prev := s.maxInFlight.Load()
		if cur <= prev || s.maxInFlight.CompareAndSwap(prev, cur) {
			break
		}
	}

	s.mu.Lock()
	s.requests[req.URL.String()]++
	s.agents = append(s.agents, req.Header.Get("User-Agent"))
	s.mu.Unlock()

	page, ok := s.pages[req.URL.String()]
	if !ok {
		return nil, errors.New("dial tcp: no such host")
	}
	if page.delay > 0 {
		time.Sleep(page.delay)
	}

	header := make(http.Header)
	if page.contentType != "" {
		header.Set("Content-Type", page.contentType)
	}
	status := page.status
	if status == 0 {
		status = http.StatusOK
	}
	body := page.raw
	if body == nil {
		body = []byte(page.body)
	}

	return &http.Response{
		StatusCode: status,
		Header:     header,
		Body:       io.NopCloser(bytes.NewReader(body)),
		Request:    req,
	}, nil
}

func (s *fakeSite) client() *http.Client {
	return &http.Client{Transport: s}
}

func (s *fakeSite) fetcher(opts ...FetcherOption) *Fetcher {
	opts = append([]FetcherOption{WithFetcherLogger(discardLogger())}, opts...)
	return NewFetcher(s.client(), opts...)
}

func (s *fakeSite) requestCount(u string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[u]
}

func (s *fakeSite) totalRequests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.requests {
		total += n
	}
	return total
}

func htmlPage(body string) fakePage {
	return fakePage{contentType: "text/html; charset=utf-8", body: body}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func addresses(nodes []Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Address()
	}
	return out
}

func kinds(nodes []Node) []Kind {
	out := make([]Kind, len(nodes))
	for i, n := range nodes {
		out[i] = n.Kind()
	}
	return out
}
