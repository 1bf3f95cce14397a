package store

import (
	"context"
	"errors"
	"strings"

	logx "babbler/pkg/logx"
)

// Store is the persistence API used by the publish pipeline.
//
// Invariant: an id is never simultaneously queued and done, and an id
// in done is never re-enqueued. Enqueue and MarkDone enforce this.
type Store interface {
	Options(ctx context.Context) (map[string]string, error)
	SaveOptions(ctx context.Context, opts map[string]string) error

	Todo(ctx context.Context) ([]Entry, error)
	TodoCount(ctx context.Context) (int, error)
	Head(ctx context.Context) (Entry, bool, error)

	// Enqueue appends entries in the given order, skipping any id that
	// is already queued or done.
	Enqueue(ctx context.Context, entries []Entry) error

	// MarkDone records ids as terminally processed without queueing them
	// (filtered entries, duplicate reconciliation).
	MarkDone(ctx context.Context, ids ...string) error

	// CompleteHead pops the queue head and marks it done in a single
	// committed step. id must match the current head.
	CompleteHead(ctx context.Context, id string) error

	// SeenIDs returns the union of queued and done ids.
	SeenIDs(ctx context.Context) (map[string]struct{}, error)

	// Reset wipes all persisted state (the destroy operation).
	Reset(ctx context.Context) error

	Close() error
}

// Open initializes the configured store.
func Open(cfg Config, log logx.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if log.IsZero() {
		log = logx.Nop()
	}

	switch driver {
	case "", "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	case "memory":
		return newMemory(), nil
	default:
		return nil, errors.New("unknown store driver: " + driver)
	}
}
