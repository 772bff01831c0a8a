// Package model defines the crawl result types shared by webdig's packages.
//
// This package contains the following main types:
//   - CrawlResult: A snapshot of a finished or cancelled crawl
//   - LayerStats: Statistics of one breadth-first layer
//   - NodeRecord: One page or resource of the crawl graph
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. The crawler produces these types while report, database and
// batch consume them; none of the consumers imports the crawler.
//
// The models are designed to be serializable to JSON for report output and
// database storage.
package model
