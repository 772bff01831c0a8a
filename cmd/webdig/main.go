// Package main provides the webdig command line tool.
//
// webdig crawls a web site layer by layer from one or more seed URLs,
// following links that stay on the seed's host and recording the
// resources pages embed.
//
// Usage:
//
//	webdig crawl https://example.com/
//	webdig crawl -d 2 -l 50 --json https://example.com/ https://example.org/
//	webdig history https://example.com/
//
// See --help for all available options.
package main

func main() {
	Execute()
}
