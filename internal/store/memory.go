package store

import (
	"context"
	"sync"
)

// state is the in-memory aggregate shared by the memory and file drivers.
// Callers hold the driver mutex.
type state struct {
	opts map[string]string
	todo []Entry
	done map[string]struct{}
}

func newState() state {
	return state{
		opts: map[string]string{},
		done: map[string]struct{}{},
	}
}

func (st *state) enqueue(entries []Entry) {
	for _, e := range entries {
		if e.ID == "" {
			continue
		}
		if _, ok := st.done[e.ID]; ok {
			continue
		}
		if st.queued(e.ID) {
			continue
		}
		st.todo = append(st.todo, e)
	}
}

func (st *state) queued(id string) bool {
	for _, e := range st.todo {
		if e.ID == id {
			return true
		}
	}
	return false
}

func (st *state) markDone(ids []string) {
	for _, id := range ids {
		if id == "" {
			continue
		}
		for i, e := range st.todo {
			if e.ID == id {
				st.todo = append(st.todo[:i], st.todo[i+1:]...)
				break
			}
		}
		st.done[id] = struct{}{}
	}
}

func (st *state) completeHead(id string) error {
	if len(st.todo) == 0 || st.todo[0].ID != id {
		return ErrHeadMismatch
	}
	st.todo = st.todo[1:]
	st.done[id] = struct{}{}
	return nil
}

func (st *state) seen() map[string]struct{} {
	out := make(map[string]struct{}, len(st.todo)+len(st.done))
	for _, e := range st.todo {
		out[e.ID] = struct{}{}
	}
	for id := range st.done {
		out[id] = struct{}{}
	}
	return out
}

// memStore keeps the aggregate in memory only. Used for dry runs so a
// rehearsal never touches real state.
type memStore struct {
	mu sync.Mutex
	st state
}

func newMemory() *memStore {
	return &memStore{st: newState()}
}

func (s *memStore) Options(ctx context.Context) (map[string]string, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.st.opts))
	for k, v := range s.st.opts {
		out[k] = v
	}
	return out, nil
}

func (s *memStore) SaveOptions(ctx context.Context, opts map[string]string) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.opts = make(map[string]string, len(opts))
	for k, v := range opts {
		s.st.opts[k] = v
	}
	return nil
}

func (s *memStore) Todo(ctx context.Context) ([]Entry, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Entry(nil), s.st.todo...), nil
}

func (s *memStore) TodoCount(ctx context.Context) (int, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.st.todo), nil
}

func (s *memStore) Head(ctx context.Context) (Entry, bool, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.st.todo) == 0 {
		return Entry{}, false, nil
	}
	return s.st.todo[0], true, nil
}

func (s *memStore) Enqueue(ctx context.Context, entries []Entry) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.enqueue(entries)
	return nil
}

func (s *memStore) MarkDone(ctx context.Context, ids ...string) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.markDone(ids)
	return nil
}

func (s *memStore) CompleteHead(ctx context.Context, id string) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.completeHead(id)
}

func (s *memStore) SeenIDs(ctx context.Context) (map[string]struct{}, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.seen(), nil
}

func (s *memStore) Reset(ctx context.Context) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st = newState()
	return nil
}

func (s *memStore) Close() error { return nil }
