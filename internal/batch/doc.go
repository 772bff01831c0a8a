// Package batch crawls several seeds concurrently.
//
// Each seed gets its own crawl tree; the processor only bounds how many
// trees run at the same time and keeps the results in input order.
package batch
