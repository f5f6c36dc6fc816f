package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_AppendRecent(t *testing.T) {
	s := newSession("s1")
	s.Lock()
	defer s.Unlock()

	assert.Nil(t, s.Recent(5))

	s.Append(RoleUser, "hello")
	s.Append(RoleAssistant, "hi there")
	s.Append(RoleUser, "what is consideration?")

	t.Run("Oldest First", func(t *testing.T) {
		got := s.Recent(2)
		require.Len(t, got, 2)
		assert.Equal(t, "hi there", got[0].Text)
		assert.Equal(t, "what is consideration?", got[1].Text)
	})

	t.Run("N Larger Than History", func(t *testing.T) {
		assert.Len(t, s.Recent(10), 3)
	})

	t.Run("Non Positive N", func(t *testing.T) {
		assert.Nil(t, s.Recent(0))
		assert.Nil(t, s.Recent(-1))
	})

	t.Run("Returned Slice Is A Copy", func(t *testing.T) {
		got := s.Recent(1)
		got[0].Text = "mutated"
		assert.Equal(t, "what is consideration?", s.Recent(1)[0].Text)
	})
}

func TestSession_RemoveLast(t *testing.T) {
	s := newSession("s1")
	s.Lock()
	defer s.Unlock()

	s.RemoveLast() // empty session: no-op

	s.Append(RoleUser, "q1")
	s.Append(RoleAssistant, "a1")
	s.Append(RoleUser, "orphan")
	s.RemoveLast()

	require.Equal(t, 2, s.Len())
	assert.Equal(t, RoleAssistant, s.Recent(1)[0].Role)
}

func TestSession_Clear(t *testing.T) {
	s := newSession("s1")
	s.Lock()
	s.Append(RoleUser, "hello")
	s.Clear()
	assert.Equal(t, 0, s.Len())
	assert.Nil(t, s.Recent(5))
	s.Unlock()
}

func TestStore(t *testing.T) {
	t.Run("Acquire Creates On Miss", func(t *testing.T) {
		st := NewStore(time.Hour)
		s := st.Acquire("abc")
		assert.Equal(t, "abc", s.ID)
		assert.Same(t, s, st.Acquire("abc"))
		assert.Equal(t, 1, st.Count())
	})

	t.Run("Empty ID Allocates Fresh Session", func(t *testing.T) {
		st := NewStore(time.Hour)
		a := st.Acquire("")
		b := st.Acquire("")
		assert.NotEmpty(t, a.ID)
		assert.NotEqual(t, a.ID, b.ID)
		assert.Equal(t, 2, st.Count())
	})

	t.Run("Reset Is Idempotent", func(t *testing.T) {
		st := NewStore(time.Hour)
		s := st.Acquire("abc")
		s.Lock()
		s.Append(RoleUser, "hello")
		s.Unlock()

		st.Reset("abc")
		st.Reset("abc")
		st.Reset("never-seen")

		s.Lock()
		assert.Equal(t, 0, s.Len())
		s.Unlock()
	})

	t.Run("Sweep Expires Idle Sessions", func(t *testing.T) {
		st := NewStore(10 * time.Millisecond)
		st.Acquire("old")
		time.Sleep(20 * time.Millisecond)
		st.Acquire("fresh")

		removed := st.Sweep()
		assert.Equal(t, 1, removed)
		assert.Equal(t, 1, st.Count())
	})

	t.Run("Sweep Does Not Wait On A Held Session", func(t *testing.T) {
		st := NewStore(time.Hour)
		busy := st.Acquire("busy")
		st.Acquire("idle")

		// A turn in flight holds the session lock for its full duration.
		busy.Lock()
		defer busy.Unlock()

		done := make(chan struct{})
		go func() {
			st.Sweep()
			st.Acquire("unrelated")
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(500 * time.Millisecond):
			t.Fatal("sweep or a later acquire blocked behind a session held by an in-flight turn")
		}
	})
}
