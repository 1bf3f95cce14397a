package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	logx "babbler/pkg/logx"
)

// fileStore is a dependency-free persistence backend: the whole
// aggregate is rewritten as one JSON snapshot (temp file + rename)
// after every mutation.
type fileStore struct {
	log logx.Logger

	mu   sync.Mutex
	path string
	st   state
}

// snapshot is the on-disk shape of the aggregate.
type snapshot struct {
	Options map[string]string `json:"options"`
	Todo    []Entry           `json:"todo"`
	Done    []string          `json:"done"`
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("store: path is required for file driver")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	s := &fileStore{log: log, path: path, st: newState()}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *fileStore) load() error {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		// First run.
		s.log.Debug("store file not found; starting empty", logx.String("path", s.path))
		return nil
	}
	if err != nil {
		return err
	}
	var snap snapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return fmt.Errorf("store: corrupt snapshot %s: %w", s.path, err)
	}
	st := newState()
	for k, v := range snap.Options {
		st.opts[k] = v
	}
	st.todo = snap.Todo
	for _, id := range snap.Done {
		st.done[id] = struct{}{}
	}
	s.st = st
	return nil
}

// persistLocked writes the full aggregate atomically. Callers hold s.mu.
func (s *fileStore) persistLocked() error {
	done := make([]string, 0, len(s.st.done))
	for id := range s.st.done {
		done = append(done, id)
	}
	sort.Strings(done)
	snap := snapshot{Options: s.st.opts, Todo: s.st.todo, Done: done}
	if snap.Todo == nil {
		snap.Todo = []Entry{}
	}

	b, err := json.Marshal(snap)
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *fileStore) Options(ctx context.Context) (map[string]string, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.st.opts))
	for k, v := range s.st.opts {
		out[k] = v
	}
	return out, nil
}

func (s *fileStore) SaveOptions(ctx context.Context, opts map[string]string) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.opts = make(map[string]string, len(opts))
	for k, v := range opts {
		s.st.opts[k] = v
	}
	return s.persistLocked()
}

func (s *fileStore) Todo(ctx context.Context) ([]Entry, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Entry(nil), s.st.todo...), nil
}

func (s *fileStore) TodoCount(ctx context.Context) (int, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.st.todo), nil
}

func (s *fileStore) Head(ctx context.Context) (Entry, bool, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.st.todo) == 0 {
		return Entry{}, false, nil
	}
	return s.st.todo[0], true, nil
}

func (s *fileStore) Enqueue(ctx context.Context, entries []Entry) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.enqueue(entries)
	return s.persistLocked()
}

func (s *fileStore) MarkDone(ctx context.Context, ids ...string) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.markDone(ids)
	return s.persistLocked()
}

func (s *fileStore) CompleteHead(ctx context.Context, id string) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.st.completeHead(id); err != nil {
		return err
	}
	return s.persistLocked()
}

func (s *fileStore) SeenIDs(ctx context.Context) (map[string]struct{}, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.seen(), nil
}

func (s *fileStore) Reset(ctx context.Context) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st = newState()
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *fileStore) Close() error { return nil }
