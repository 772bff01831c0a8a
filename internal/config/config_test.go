package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	t.Run("default MaxDepth is 3", func(t *testing.T) {
		t.Parallel()
		if cfg.MaxDepth != 3 {
			t.Errorf("expected MaxDepth 3, got %d", cfg.MaxDepth)
		}
	})

	t.Run("default ChildLimit is 100", func(t *testing.T) {
		t.Parallel()
		if cfg.ChildLimit != 100 {
			t.Errorf("expected ChildLimit 100, got %d", cfg.ChildLimit)
		}
	})

	t.Run("default Timeout is 30 seconds", func(t *testing.T) {
		t.Parallel()
		if cfg.Timeout != 30*time.Second {
			t.Errorf("expected Timeout 30s, got %v", cfg.Timeout)
		}
	})

	t.Run("default UserAgent is Chrome/79", func(t *testing.T) {
		t.Parallel()
		if cfg.UserAgent != "Chrome/79" {
			t.Errorf("expected UserAgent Chrome/79, got %q", cfg.UserAgent)
		}
	})

	t.Run("default MaxBodySize is 5MB", func(t *testing.T) {
		t.Parallel()
		if cfg.MaxBodySize != 5*1024*1024 {
			t.Errorf("expected MaxBodySize 5MB, got %d", cfg.MaxBodySize)
		}
	})

	t.Run("default BatchSize is 4", func(t *testing.T) {
		t.Parallel()
		if cfg.BatchSize != 4 {
			t.Errorf("expected BatchSize 4, got %d", cfg.BatchSize)
		}
	})

	t.Run("layer concurrency is unbounded", func(t *testing.T) {
		t.Parallel()
		if cfg.Concurrency != 0 {
			t.Errorf("expected Concurrency 0, got %d", cfg.Concurrency)
		}
	})

	t.Run("default extractor is regex", func(t *testing.T) {
		t.Parallel()
		if cfg.Extractor != "regex" {
			t.Errorf("expected regex extractor, got %q", cfg.Extractor)
		}
	})

	t.Run("frontier dedup is off", func(t *testing.T) {
		t.Parallel()
		if cfg.DedupFrontier {
			t.Error("expected DedupFrontier to be false")
		}
	})
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	validConfig := func() *Config {
		cfg := NewConfig()
		cfg.Targets = []string{"https://example.com/"}
		return cfg
	}

	t.Run("valid config returns nil", func(t *testing.T) {
		t.Parallel()
		if err := validConfig().Validate(); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})

	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"no targets", func(c *Config) { c.Targets = nil }, ErrNoTarget},
		{"negative depth", func(c *Config) { c.MaxDepth = -1 }, ErrInvalidDepth},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }, ErrInvalidTimeout},
		{"negative timeout", func(c *Config) { c.Timeout = -time.Second }, ErrInvalidTimeout},
		{"zero batch size", func(c *Config) { c.BatchSize = 0 }, ErrInvalidBatchSize},
		{"negative concurrency", func(c *Config) { c.Concurrency = -2 }, ErrInvalidConcurrency},
		{"json and markdown", func(c *Config) { c.JSONReport, c.MarkdownReport = true, true }, ErrConflictingReportFormats},
		{"negative body size", func(c *Config) { c.MaxBodySize = -1 }, ErrInvalidMaxBodySize},
		{"zero body size", func(c *Config) { c.MaxBodySize = 0 }, ErrInvalidMaxBodySize},
		{"negative redirects", func(c *Config) { c.MaxRedirects = -1 }, ErrInvalidMaxRedirects},
		{"unknown extractor", func(c *Config) { c.Extractor = "xpath" }, ErrUnknownExtractor},
		{"proxy without port", func(c *Config) { c.ProxyAddress = "127.0.0.1" }, ErrInvalidProxyAddress},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}

	t.Run("zero depth is allowed", func(t *testing.T) {
		t.Parallel()
		cfg := validConfig()
		cfg.MaxDepth = 0
		if err := cfg.Validate(); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})

	t.Run("html extractor and proxy are allowed", func(t *testing.T) {
		t.Parallel()
		cfg := validConfig()
		cfg.Extractor = "HTML"
		cfg.ProxyAddress = "127.0.0.1:9050"
		if err := cfg.Validate(); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})
}

func TestConfigResolve(t *testing.T) {
	t.Parallel()

	t.Run("without a config file the globals apply", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig()
		s := cfg.Resolve("example.com")
		if s.MaxDepth != cfg.MaxDepth || s.ChildLimit != cfg.ChildLimit || s.UserAgent != cfg.UserAgent {
			t.Errorf("unexpected settings %+v", s)
		}
		if s.Headers == nil {
			t.Error("expected a non-nil header map")
		}
	})

	t.Run("defaults then site override the globals", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig()
		cfg.SiteConfigs = &File{
			Defaults: SiteConfig{Depth: 5, Headers: map[string]string{"Accept-Language": "en"}},
			Sites: map[string]SiteConfig{
				"example.com": {Limit: -1, UserAgent: "custom", Extractor: "html", Cookie: "a=1"},
			},
		}

		s := cfg.Resolve("EXAMPLE.com")
		if s.MaxDepth != 5 {
			t.Errorf("expected depth 5, got %d", s.MaxDepth)
		}
		if s.ChildLimit != -1 {
			t.Errorf("expected unlimited children, got %d", s.ChildLimit)
		}
		if s.UserAgent != "custom" || s.Extractor != "html" || s.Cookie != "a=1" {
			t.Errorf("unexpected settings %+v", s)
		}
		if s.Headers["Accept-Language"] != "en" {
			t.Errorf("expected default header, got %v", s.Headers)
		}

		other := cfg.Resolve("other.org")
		if other.UserAgent != cfg.UserAgent || other.MaxDepth != 5 {
			t.Errorf("unexpected settings for other host %+v", other)
		}
	})
}

func TestFileGetSiteConfig(t *testing.T) {
	t.Parallel()

	t.Run("site headers do not leak into defaults", func(t *testing.T) {
		t.Parallel()

		cf := &File{
			Defaults: SiteConfig{Headers: map[string]string{"X-A": "1"}},
			Sites: map[string]SiteConfig{
				"a.test": {Headers: map[string]string{"X-B": "2"}},
			},
		}

		got := cf.GetSiteConfig("a.test")
		if got.Headers["X-A"] != "1" || got.Headers["X-B"] != "2" {
			t.Errorf("expected merged headers, got %v", got.Headers)
		}
		if _, ok := cf.Defaults.Headers["X-B"]; ok {
			t.Error("defaults must not be modified")
		}
	})

	t.Run("unknown host gets the defaults", func(t *testing.T) {
		t.Parallel()

		cf := &File{Defaults: SiteConfig{Depth: 2, Cookie: "d=1"}}
		got := cf.GetSiteConfig("nowhere.test")
		if got.Depth != 2 || got.Cookie != "d=1" {
			t.Errorf("expected defaults, got %+v", got)
		}
	})

	t.Run("site values win", func(t *testing.T) {
		t.Parallel()

		cf := &File{
			Defaults: SiteConfig{Depth: 2, Cookie: "d=1"},
			Sites:    map[string]SiteConfig{"a.test": {Depth: 7, Cookie: "s=1"}},
		}
		got := cf.GetSiteConfig("a.test")
		if got.Depth != 7 || got.Cookie != "s=1" {
			t.Errorf("expected site values, got %+v", got)
		}
	})
}

func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("returns ErrConfigNotFound for a missing file", func(t *testing.T) {
		t.Parallel()

		cf, err := LoadConfigFile("/nonexistent/path/.webdig")
		if !errors.Is(err, ErrConfigNotFound) {
			t.Fatalf("expected ErrConfigNotFound, got %v", err)
		}
		if cf != nil {
			t.Error("expected nil file")
		}
	})

	t.Run("loads a valid file", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), ".webdig")
		content := `defaults:
  depth: 4
  userAgent: "Mozilla/5.0"
sites:
  example.com:
    limit: 20
    extractor: html
    cookie: "session=xyz"
    headers:
      Authorization: "Bearer token"
`
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		cf, err := LoadConfigFile(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cf.Defaults.Depth != 4 || cf.Defaults.UserAgent != "Mozilla/5.0" {
			t.Errorf("unexpected defaults %+v", cf.Defaults)
		}
		site, ok := cf.Sites["example.com"]
		if !ok {
			t.Fatal("expected example.com in sites")
		}
		if site.Limit != 20 || site.Extractor != "html" || site.Cookie != "session=xyz" {
			t.Errorf("unexpected site %+v", site)
		}
		if site.Headers["Authorization"] != "Bearer token" {
			t.Error("expected Authorization header")
		}
	})

	t.Run("rejects invalid YAML", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), ".webdig")
		if err := os.WriteFile(path, []byte(`invalid: yaml: content: [}`), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}
		if _, err := LoadConfigFile(path); err == nil {
			t.Error("expected error for invalid YAML")
		}
	})

	t.Run("initializes a nil Sites map", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), ".webdig")
		if err := os.WriteFile(path, []byte("defaults:\n  depth: 2\n"), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}
		cf, err := LoadConfigFile(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cf.Sites == nil {
			t.Error("expected Sites map to be initialized")
		}
	})
}

func TestFindConfigFile(t *testing.T) {
	t.Run("returns explicit path if it exists", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "custom.yaml")
		if err := os.WriteFile(path, []byte("defaults: {}"), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}
		if got := FindConfigFile(path); got != path {
			t.Errorf("expected %q, got %q", path, got)
		}
	})

	t.Run("explicit missing path is not searched further", func(t *testing.T) {
		if got := FindConfigFile("/nonexistent/path/config.yaml"); got != "" {
			t.Errorf("expected empty string, got %q", got)
		}
	})

	t.Run("finds the file in the current directory", func(t *testing.T) {
		dir := t.TempDir()
		t.Chdir(dir)

		path := filepath.Join(dir, DefaultConfigFile)
		if err := os.WriteFile(path, []byte("defaults: {}"), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}
		if got := FindConfigFile(""); got != path {
			t.Errorf("expected %q, got %q", path, got)
		}
	})
}

func TestXDGDirs(t *testing.T) {
	t.Parallel()

	if filepath.Base(XDGDataDir()) != AppName {
		t.Errorf("expected data dir to end in %s, got %s", AppName, XDGDataDir())
	}
	if filepath.Base(XDGConfigDir()) != AppName {
		t.Errorf("expected config dir to end in %s, got %s", AppName, XDGConfigDir())
	}
}
