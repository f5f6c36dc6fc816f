package session

import (
	"sync"
	"time"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is a single utterance within a session.
type Turn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// Session is one conversation's ordered, append-only turn history. Turns on
// the same session must not interleave: callers hold Lock for the duration
// of a full conversational turn (append user turn, retrieve, summarize,
// generate, append assistant turn), which both protects the turn list and
// preserves sequential conversational causality.
type Session struct {
	ID string

	mu    sync.Mutex
	turns []Turn

	// lastUsed has its own lock so idleness checks never wait on an
	// in-flight turn holding mu.
	usedMu   sync.Mutex
	lastUsed time.Time
}

func newSession(id string) *Session {
	return &Session{ID: id, lastUsed: time.Now()}
}

func (s *Session) touch() {
	s.usedMu.Lock()
	s.lastUsed = time.Now()
	s.usedMu.Unlock()
}

// idleSince reports whether the session has gone untouched since cutoff.
func (s *Session) idleSince(cutoff time.Time) bool {
	s.usedMu.Lock()
	defer s.usedMu.Unlock()
	return s.lastUsed.Before(cutoff)
}

// Lock takes ownership of the session for one full turn.
func (s *Session) Lock() { s.mu.Lock() }

func (s *Session) Unlock() { s.mu.Unlock() }

// Append records a turn. Caller must hold the session lock.
func (s *Session) Append(role, text string) {
	s.turns = append(s.turns, Turn{Role: role, Text: text})
	s.touch()
}

// RemoveLast rolls back the most recent turn. Used when generation fails
// after the user turn was recorded, so no orphaned user turn survives.
// Caller must hold the session lock.
func (s *Session) RemoveLast() {
	if n := len(s.turns); n > 0 {
		s.turns = s.turns[:n-1]
	}
}

// Recent returns the last n turns, oldest first. Caller must hold the
// session lock.
func (s *Session) Recent(n int) []Turn {
	if n <= 0 || len(s.turns) == 0 {
		return nil
	}
	if n > len(s.turns) {
		n = len(s.turns)
	}
	out := make([]Turn, n)
	copy(out, s.turns[len(s.turns)-n:])
	return out
}

// Len reports how many turns have been recorded. Caller must hold the
// session lock.
func (s *Session) Len() int { return len(s.turns) }

// Clear discards all turns. Caller must hold the session lock.
func (s *Session) Clear() {
	s.turns = nil
	s.touch()
}
