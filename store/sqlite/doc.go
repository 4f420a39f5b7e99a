// Package sqlite keeps chat thread checkpoints in a local SQLite file
// (github.com/mattn/go-sqlite3, requires cgo). It backs the "sqlite://" DSN
// of store/backend.
package sqlite
