package chat

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"lexibot/internal/chatlog"
	"lexibot/internal/markup"
	"lexibot/internal/retrieval"
	"lexibot/internal/session"
)

// --- Mocks ---

type MockRetriever struct {
	mock.Mock
}

func (m *MockRetriever) Search(ctx context.Context, query string, k int) ([]string, error) {
	args := m.Called(ctx, query, k)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

type MockCompleter struct {
	mock.Mock
}

func (m *MockCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

type MockSummarizer struct {
	mock.Mock
}

func (m *MockSummarizer) Summarize(ctx context.Context, s *session.Session) (string, error) {
	args := m.Called(ctx, s)
	return args.String(0), args.Error(1)
}

type MockAudit struct {
	mock.Mock
}

func (m *MockAudit) Write(ctx context.Context, rec *chatlog.Record) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

type fixture struct {
	sessions   *session.Store
	retriever  *MockRetriever
	summarizer *MockSummarizer
	llm        *MockCompleter
	audit      *MockAudit
	svc        *Service
}

func newFixture() *fixture {
	f := &fixture{
		sessions:   session.NewStore(time.Hour),
		retriever:  new(MockRetriever),
		summarizer: new(MockSummarizer),
		llm:        new(MockCompleter),
		audit:      new(MockAudit),
	}
	f.svc = NewService(f.sessions, f.retriever, f.summarizer, f.llm, markup.NewSanitizer(), f.audit, 5, time.Minute)
	return f
}

func TestService_Respond(t *testing.T) {
	ctx := context.Background()

	t.Run("Full Turn", func(t *testing.T) {
		f := newFixture()
		f.retriever.On("Search", mock.Anything, "What makes a contract valid?", 5).
			Return([]string{"offer and acceptance", "consideration"}, nil)
		f.summarizer.On("Summarize", mock.Anything, mock.Anything).Return("user asked about contracts", nil)

		var prompt string
		f.llm.On("Complete", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
			prompt = args.String(1)
		}).Return("- Offer and acceptance\n- Consideration", nil)

		var rec *chatlog.Record
		f.audit.On("Write", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
			rec = args.Get(1).(*chatlog.Record)
		}).Return(nil)

		answer, err := f.svc.Respond(ctx, "", "What makes a contract valid?")
		require.NoError(t, err)
		require.NotNil(t, answer)
		assert.NotEmpty(t, answer.SessionID)
		assert.Contains(t, answer.Response, "<li>Offer and acceptance</li>")

		// Prompt carries the literal sections with summary, joined context,
		// and the message.
		assert.Contains(t, prompt, "**Session Summary:**\nuser asked about contracts")
		assert.Contains(t, prompt, "**Context (if any):**\noffer and acceptance\n\nconsideration")
		assert.Contains(t, prompt, "**User's Message:**\nWhat makes a contract valid?")

		// Both turns recorded, audit snapshot matches.
		sess := f.sessions.Acquire(answer.SessionID)
		sess.Lock()
		turns := sess.Recent(10)
		sess.Unlock()
		require.Len(t, turns, 2)
		assert.Equal(t, session.RoleUser, turns[0].Role)
		assert.Equal(t, session.RoleAssistant, turns[1].Role)
		assert.Equal(t, answer.Response, turns[1].Text)

		require.NotNil(t, rec)
		assert.Equal(t, answer.SessionID, rec.SessionID)
		assert.Equal(t, []string{"offer and acceptance", "consideration"}, rec.Chunks)
		assert.Equal(t, "user asked about contracts", rec.Summary)
	})

	t.Run("Empty Retrieval Still Answers", func(t *testing.T) {
		f := newFixture()
		f.retriever.On("Search", mock.Anything, "Hello", 5).Return([]string{}, nil)
		f.summarizer.On("Summarize", mock.Anything, mock.Anything).Return("", nil)
		f.llm.On("Complete", mock.Anything, mock.Anything).Return("Hello! How can I help you today?", nil)
		f.audit.On("Write", mock.Anything, mock.Anything).Return(nil)

		answer, err := f.svc.Respond(ctx, "", "Hello")
		require.NoError(t, err)
		assert.NotEmpty(t, answer.Response)
	})

	t.Run("Embedding Failure Degrades To Empty Context", func(t *testing.T) {
		f := newFixture()
		f.retriever.On("Search", mock.Anything, "Hello", 5).
			Return(nil, fmt.Errorf("%w: down", retrieval.ErrEmbedding))
		f.summarizer.On("Summarize", mock.Anything, mock.Anything).Return("", nil)

		var prompt string
		f.llm.On("Complete", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
			prompt = args.String(1)
		}).Return("Hi there!", nil)
		f.audit.On("Write", mock.Anything, mock.Anything).Return(nil)

		answer, err := f.svc.Respond(ctx, "", "Hello")
		require.NoError(t, err)
		assert.NotEmpty(t, answer.Response)
		assert.Contains(t, prompt, "**Context (if any):**\n\n")
	})

	t.Run("Generation Failure Rolls Back User Turn", func(t *testing.T) {
		f := newFixture()
		f.retriever.On("Search", mock.Anything, mock.Anything, 5).Return([]string{}, nil)
		f.summarizer.On("Summarize", mock.Anything, mock.Anything).Return("", nil)
		f.llm.On("Complete", mock.Anything, mock.Anything).Return("", assert.AnError)

		_, err := f.svc.Respond(ctx, "sess-1", "doomed question")
		assert.ErrorIs(t, err, ErrGeneration)

		sess := f.sessions.Acquire("sess-1")
		sess.Lock()
		assert.Equal(t, 0, sess.Len())
		sess.Unlock()
		f.audit.AssertNotCalled(t, "Write", mock.Anything, mock.Anything)
	})

	t.Run("Summarization Failure Degrades To Empty Summary", func(t *testing.T) {
		f := newFixture()
		f.retriever.On("Search", mock.Anything, mock.Anything, 5).Return([]string{}, nil)
		f.summarizer.On("Summarize", mock.Anything, mock.Anything).Return("", assert.AnError)
		f.llm.On("Complete", mock.Anything, mock.Anything).Return("Answer.", nil)
		f.audit.On("Write", mock.Anything, mock.Anything).Return(nil)

		answer, err := f.svc.Respond(ctx, "", "Hello")
		require.NoError(t, err)
		assert.NotEmpty(t, answer.Response)
	})

	t.Run("Unsafe Model Output Falls Back", func(t *testing.T) {
		f := newFixture()
		f.retriever.On("Search", mock.Anything, mock.Anything, 5).Return([]string{}, nil)
		f.summarizer.On("Summarize", mock.Anything, mock.Anything).Return("", nil)
		f.llm.On("Complete", mock.Anything, mock.Anything).Return("<script>alert('x')</script>", nil)
		f.audit.On("Write", mock.Anything, mock.Anything).Return(nil)

		answer, err := f.svc.Respond(ctx, "", "tell me something")
		require.NoError(t, err)
		assert.Equal(t, markup.FallbackMessage, answer.Response)
		assert.NotContains(t, answer.Response, "script")
	})

	t.Run("Audit Failure Does Not Fail The Turn", func(t *testing.T) {
		f := newFixture()
		f.retriever.On("Search", mock.Anything, mock.Anything, 5).Return([]string{}, nil)
		f.summarizer.On("Summarize", mock.Anything, mock.Anything).Return("", nil)
		f.llm.On("Complete", mock.Anything, mock.Anything).Return("Fine answer.", nil)
		f.audit.On("Write", mock.Anything, mock.Anything).Return(assert.AnError)

		answer, err := f.svc.Respond(ctx, "", "Hello")
		require.NoError(t, err)
		assert.NotEmpty(t, answer.Response)
	})

	t.Run("Session Continuity Across Turns", func(t *testing.T) {
		f := newFixture()
		f.retriever.On("Search", mock.Anything, mock.Anything, 5).Return([]string{}, nil)
		f.summarizer.On("Summarize", mock.Anything, mock.Anything).Return("", nil)
		f.llm.On("Complete", mock.Anything, mock.Anything).Return("ok", nil)
		f.audit.On("Write", mock.Anything, mock.Anything).Return(nil)

		first, err := f.svc.Respond(ctx, "", "first")
		require.NoError(t, err)
		second, err := f.svc.Respond(ctx, first.SessionID, "second")
		require.NoError(t, err)
		assert.Equal(t, first.SessionID, second.SessionID)

		sess := f.sessions.Acquire(first.SessionID)
		sess.Lock()
		assert.Equal(t, 4, sess.Len())
		sess.Unlock()
	})
}

func TestService_Reset(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.retriever.On("Search", mock.Anything, mock.Anything, 5).Return([]string{}, nil)
	f.summarizer.On("Summarize", mock.Anything, mock.Anything).Return("", nil)
	f.llm.On("Complete", mock.Anything, mock.Anything).Return("ok", nil)
	f.audit.On("Write", mock.Anything, mock.Anything).Return(nil)

	answer, err := f.svc.Respond(ctx, "", "hello")
	require.NoError(t, err)

	f.svc.Reset(answer.SessionID)
	f.svc.Reset(answer.SessionID) // idempotent
	f.svc.Reset("never-seen")

	sess := f.sessions.Acquire(answer.SessionID)
	sess.Lock()
	assert.Equal(t, 0, sess.Len())
	sess.Unlock()
}

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt("q", []string{"a", "b"}, "s")

	assert.True(t, strings.Contains(prompt, "specializing in Indian laws"))
	assert.Contains(t, prompt, "**Session Summary:**\ns")
	assert.Contains(t, prompt, "**Context (if any):**\na\n\nb")
	assert.Contains(t, prompt, "**User's Message:**\nq")
	assert.True(t, strings.HasSuffix(prompt, "**Your Response:**\n"))
}
