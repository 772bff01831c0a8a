package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/nao1215/webdig/internal/crawler"
	"github.com/nao1215/webdig/internal/httpclient"
)

// Default configuration values.
const (
	// DefaultMaxDepth is the number of link layers expanded from the seed.
	DefaultMaxDepth = crawler.DefaultMaxDepth

	// DefaultChildLimit caps the link matches consumed per page.
	// Pages with long navigation menus otherwise dominate a layer.
	DefaultChildLimit = crawler.DefaultChildLimit

	// DefaultTimeout bounds each HTTP request, body included.
	DefaultTimeout = httpclient.DefaultTimeout

	// DefaultUserAgent is a short browser token. Some servers refuse
	// requests without a browser-looking User-Agent.
	DefaultUserAgent = httpclient.DefaultUserAgent

	// DefaultMaxBodySize limits how much of a response body is read.
	DefaultMaxBodySize = crawler.DefaultMaxBodySize

	// DefaultMaxRedirects is how many redirects a request follows.
	DefaultMaxRedirects = httpclient.DefaultMaxRedirects

	// DefaultBatchSize is how many seeds are crawled at the same time.
	DefaultBatchSize = 4

	// DefaultConcurrency of zero dispatches a whole layer at once.
	DefaultConcurrency = 0

	// DefaultExtractor is the link extractor used when none is configured.
	DefaultExtractor = crawler.ExtractorRegex

	// AppName is the application name used for XDG directory paths.
	AppName = "webdig"
)

// Config holds every option of a crawl run.
// It is populated from CLI flags and the config file and then passed
// down explicitly; nothing reads it from global state.
//
// Design decision: A single flat struct. Per-host overrides live in
// SiteConfigs and are resolved per seed with Resolve.
type Config struct {
	// Targets are the seed URLs to crawl.
	Targets []string

	// MaxDepth is the number of layers to expand. Zero only registers the seed.
	MaxDepth int

	// ChildLimit caps consumed link matches per page. Zero or negative
	// means unlimited.
	ChildLimit int

	// Timeout bounds each HTTP request.
	Timeout time.Duration

	// UserAgent is sent with every request.
	UserAgent string

	// MaxBodySize is the maximum number of body bytes read per page.
	MaxBodySize int64

	// MaxRedirects caps the redirects followed per request. Zero disables
	// redirects.
	MaxRedirects int

	// BatchSize is the number of seeds crawled concurrently.
	BatchSize int

	// Concurrency caps simultaneous expansions inside one layer.
	// Zero means the whole layer is dispatched at once.
	Concurrency int

	// Extractor selects the link extractor ("regex" or "html").
	Extractor string

	// DedupFrontier drops duplicate addresses discovered by sibling pages
	// of the same layer.
	DedupFrontier bool

	// ProxyAddress is an optional SOCKS5 proxy in "host:port" form.
	ProxyAddress string

	// Verbose enables debug logging.
	Verbose bool

	// LogJSON switches log output from text to JSON lines.
	LogJSON bool

	// ConfigFilePath is an explicit config file path. Empty means search.
	ConfigFilePath string

	// SiteConfigs holds defaults and per-host overrides from the config file.
	SiteConfigs *File

	// JSONReport selects JSON output. Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport selects Markdown output. Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile writes the report to a file instead of stdout.
	ReportFile string

	// HideResources leaves resource nodes out of the text report tree.
	HideResources bool

	// DBDir is the directory holding the run history database.
	DBDir string

	// SaveToDB records each finished run in the history database.
	SaveToDB bool
}

// NewConfig returns a Config holding the default values.
func NewConfig() *Config {
	return &Config{
		MaxDepth:     DefaultMaxDepth,
		ChildLimit:   DefaultChildLimit,
		Timeout:      DefaultTimeout,
		UserAgent:    DefaultUserAgent,
		MaxBodySize:  DefaultMaxBodySize,
		MaxRedirects: DefaultMaxRedirects,
		BatchSize:    DefaultBatchSize,
		Concurrency:  DefaultConcurrency,
		Extractor:    DefaultExtractor,
	}
}

// XDGDataDir returns the data directory, e.g. ~/.local/share/webdig on Linux.
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the config directory, e.g. ~/.config/webdig on Linux.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate returns the first problem found in the configuration.
func (c *Config) Validate() error {
	if len(c.Targets) == 0 {
		return ErrNoTarget
	}
	if c.MaxDepth < 0 {
		return ErrInvalidDepth
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	if c.Concurrency < 0 {
		return ErrInvalidConcurrency
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	if c.MaxBodySize <= 0 {
		return ErrInvalidMaxBodySize
	}
	if c.MaxRedirects < 0 {
		return ErrInvalidMaxRedirects
	}
	if _, ok := crawler.NewExtractor(c.Extractor); !ok {
		return ErrUnknownExtractor
	}
	if c.ProxyAddress != "" {
		if err := httpclient.ValidateProxyAddress(c.ProxyAddress); err != nil {
			return ErrInvalidProxyAddress
		}
	}
	return nil
}

// CrawlSettings are the options that may differ per seed host.
type CrawlSettings struct {
	MaxDepth   int
	ChildLimit int
	UserAgent  string
	Extractor  string
	Cookie     string
	Headers    map[string]string
}

// Resolve returns the crawl settings for a seed host: the global values,
// overridden by the config file defaults and then by the host's entry.
func (c *Config) Resolve(host string) CrawlSettings {
	s := CrawlSettings{
		MaxDepth:   c.MaxDepth,
		ChildLimit: c.ChildLimit,
		UserAgent:  c.UserAgent,
		Extractor:  c.Extractor,
		Headers:    make(map[string]string),
	}
	if c.SiteConfigs == nil {
		return s
	}

	site := c.SiteConfigs.GetSiteConfig(host)
	if site.Depth > 0 {
		s.MaxDepth = site.Depth
	}
	if site.Limit != 0 {
		s.ChildLimit = site.Limit
	}
	if site.UserAgent != "" {
		s.UserAgent = site.UserAgent
	}
	if site.Extractor != "" {
		s.Extractor = site.Extractor
	}
	s.Cookie = site.Cookie
	for k, v := range site.Headers {
		s.Headers[k] = v
	}
	return s
}
