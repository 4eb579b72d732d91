package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultIdleTTL is how long an untouched session survives before the
// sweeper destroys it. It matches the session cookie lifetime.
const DefaultIdleTTL = time.Hour

type entry struct {
	session  *Session
	lastSeen time.Time
}

// Store is an in-memory session store keyed by session id. Access to the map
// is serialized; concurrent mutation of one session by racing requests is
// last-write-wins, matching the deployment's one-request-per-session model.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry
	nowFunc func() time.Time
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{
		entries: make(map[string]*entry),
		nowFunc: time.Now,
	}
}

// Create allocates a new session with a fresh id.
func (st *Store) Create() *Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.create()
}

func (st *Store) create() *Session {
	s := New(uuid.NewString())
	st.entries[s.ID] = &entry{session: s, lastSeen: st.nowFunc()}
	return s
}

// Get returns the session for id, or nil if none exists.
func (st *Store) Get(id string) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	if e, ok := st.entries[id]; ok {
		e.lastSeen = st.nowFunc()
		return e.session
	}
	return nil
}

// GetOrCreate returns the session for id, creating one when id is unknown.
func (st *Store) GetOrCreate(id string) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	if e, ok := st.entries[id]; ok {
		e.lastSeen = st.nowFunc()
		return e.session
	}
	return st.create()
}

// Delete ends and destroys the session for id.
func (st *Store) Delete(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if e, ok := st.entries[id]; ok {
		e.session.End()
		delete(st.entries, id)
	}
}

// Sweep ends and destroys every session idle for longer than maxIdle,
// returning how many were removed.
func (st *Store) Sweep(maxIdle time.Duration) int {
	st.mu.Lock()
	defer st.mu.Unlock()
	cutoff := st.nowFunc().Add(-maxIdle)
	removed := 0
	for id, e := range st.entries {
		if e.lastSeen.Before(cutoff) {
			e.session.End()
			delete(st.entries, id)
			removed++
		}
	}
	return removed
}

// Len reports how many sessions are held.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.entries)
}
