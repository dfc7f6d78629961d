// Package database provides SQLite-based storage for review history.
//
// Every completed review is stored with its document name, digest, verdict
// summary and the full report as JSON. The history of a document shows how
// its issue count changed across revisions.
//
// SQLite is used through modernc.org/sqlite, a CGO-free driver, so the
// history is a single file in the XDG data directory.
package database
