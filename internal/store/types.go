package store

import (
	"errors"
	"time"
)

// Entry is one feed item. Identity is ID; it is stable across polls.
type Entry struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// ErrHeadMismatch is returned by CompleteHead when the queue head is not
// the entry the caller thinks it is. Under the single-writer discipline
// this indicates a logic bug, not a race.
var ErrHeadMismatch = errors.New("store: head entry mismatch")

// Config configures the store.
//
// Driver values:
//   - "file": dependency-free snapshot file backend
//   - "sqlite": SQLite database file (build with -tags sqlite)
//   - "memory": volatile, for dry runs
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}
