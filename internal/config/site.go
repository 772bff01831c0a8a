package config

import "strings"

// SiteConfig holds crawl settings for one host.
// Zero values mean "not set" and fall back to the next level.
type SiteConfig struct {
	// UserAgent overrides the User-Agent header.
	UserAgent string `yaml:"userAgent,omitempty"`

	// Depth overrides the max depth. Zero keeps the global value.
	Depth int `yaml:"depth,omitempty"`

	// Limit overrides the per-page child limit. Zero keeps the global
	// value; a negative value means unlimited.
	Limit int `yaml:"limit,omitempty"`

	// Extractor overrides the link extractor ("regex" or "html").
	Extractor string `yaml:"extractor,omitempty"`

	// Cookie is a raw Cookie header value, e.g. "a=1; b=2".
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are extra request headers.
	Headers map[string]string `yaml:"headers,omitempty"`
}

// File is the structure of the .webdig configuration file.
type File struct {
	// Defaults apply to every seed.
	Defaults SiteConfig `yaml:"defaults,omitempty"`

	// Sites maps a host name (e.g. "example.com") to its overrides.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`
}

// GetSiteConfig returns the defaults merged with the entry for host.
// Host names are matched case-insensitively.
func (cf *File) GetSiteConfig(host string) SiteConfig {
	result := cf.Defaults
	result.Headers = make(map[string]string, len(cf.Defaults.Headers))
	for k, v := range cf.Defaults.Headers {
		result.Headers[k] = v
	}

	site, ok := cf.Sites[host]
	if !ok {
		for name, sc := range cf.Sites {
			if strings.EqualFold(name, host) {
				site, ok = sc, true
				break
			}
		}
	}
	if !ok {
		return result
	}

	if site.UserAgent != "" {
		result.UserAgent = site.UserAgent
	}
	if site.Depth != 0 {
		result.Depth = site.Depth
	}
	if site.Limit != 0 {
		result.Limit = site.Limit
	}
	if site.Extractor != "" {
		result.Extractor = site.Extractor
	}
	if site.Cookie != "" {
		result.Cookie = site.Cookie
	}
	for k, v := range site.Headers {
		result.Headers[k] = v
	}
	return result
}
