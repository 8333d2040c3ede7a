// Package queue persists the screens waiting for or undergoing processing.
// The store is backed by SQLite; a file lock guards it against concurrent
// screenreview processes sharing the same data directory.
package queue
