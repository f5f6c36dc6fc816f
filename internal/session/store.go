package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store is the process-wide session table. Sessions are created implicitly
// on first use, reset on demand, and expired after an idle TTL. Nothing is
// persisted across restarts.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
}

func NewStore(ttl time.Duration) *Store {
	return &Store{sessions: make(map[string]*Session), ttl: ttl}
}

// Acquire returns the session for id, creating it if unknown. An empty id
// allocates a fresh session with a generated ID.
func (st *Store) Acquire(id string) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()

	if id == "" {
		id = uuid.New().String()
	}
	s, ok := st.sessions[id]
	if !ok {
		s = newSession(id)
		st.sessions[id] = s
	} else {
		// Acquisition counts as use, so a session is never swept while a
		// turn on it is starting.
		s.touch()
	}
	return s
}

// Reset clears the session's history. Idempotent: resetting an unknown or
// already-empty session is a no-op.
func (st *Store) Reset(id string) {
	st.mu.Lock()
	s, ok := st.sessions[id]
	st.mu.Unlock()
	if !ok {
		return
	}

	s.Lock()
	defer s.Unlock()
	s.Clear()
}

// Count reports the number of live sessions.
func (st *Store) Count() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// Sweep drops sessions idle longer than the TTL and reports how many were
// removed. Intended to run periodically from the app loop. Idleness is read
// without taking the turn lock, so a sweep never waits behind an in-flight
// turn and Acquire stays responsive for every other session.
func (st *Store) Sweep() int {
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.ttl <= 0 {
		return 0
	}
	cutoff := time.Now().Add(-st.ttl)
	removed := 0
	for id, s := range st.sessions {
		if s.idleSince(cutoff) {
			delete(st.sessions, id)
			removed++
		}
	}
	return removed
}
