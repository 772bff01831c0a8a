// Package database provides the SQLite run history of webdig.
//
// Every finished crawl can be recorded as one row: the seed, the bounds it
// ran with, the totals and the per-layer statistics. The crawl graph itself
// is never stored; reports are the place for it.
//
// Design decision: We use SQLite (via modernc.org/sqlite) because:
//  1. The history is a single file under the XDG data directory
//  2. The CGO-free driver keeps cross-compilation trivial
//  3. WAL mode lets `webdig history` read while a crawl writes
package database
