package config

import "errors"

// Configuration validation errors returned by Config.Validate.
var (
	// ErrNoTarget is returned when no seed URL is given.
	ErrNoTarget = errors.New("no target specified: provide at least one seed URL")

	// ErrInvalidDepth is returned for a negative max depth.
	ErrInvalidDepth = errors.New("invalid depth: must be non-negative")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrInvalidConcurrency is returned for a negative layer concurrency.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be non-negative")

	// ErrConflictingReportFormats is returned when both --json and --markdown are set.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidMaxBodySize is returned when the max body size is not positive.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be positive")

	// ErrInvalidMaxRedirects is returned for a negative redirect cap.
	ErrInvalidMaxRedirects = errors.New("invalid max redirects: must be non-negative")

	// ErrUnknownExtractor is returned for an extractor name other than regex or html.
	ErrUnknownExtractor = errors.New("unknown extractor: must be regex or html")

	// ErrInvalidProxyAddress is returned when the proxy is not host:port.
	ErrInvalidProxyAddress = errors.New("invalid proxy address: must be host:port")
)
