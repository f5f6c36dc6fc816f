package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"lexibot/internal/chatlog"
	"lexibot/internal/markup"
	"lexibot/internal/retrieval"
	"lexibot/internal/session"
)

// ErrGeneration marks a failed language-model call for a turn, including
// timeouts. The turn is not recorded: the user turn is rolled back and no
// audit record is written.
var ErrGeneration = errors.New("response generation failed")

type Retriever interface {
	Search(ctx context.Context, query string, k int) ([]string, error)
}

type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type Summarizer interface {
	Summarize(ctx context.Context, s *session.Session) (string, error)
}

type Sanitizer interface {
	Render(raw string) (string, error)
}

type AuditLog interface {
	Write(ctx context.Context, rec *chatlog.Record) error
}

// Answer is what one conversational turn produces.
type Answer struct {
	SessionID string `json:"session_id"`
	Response  string `json:"response"`
}

// Service is the per-turn orchestrator and the one stateful control point:
// it owns the order retrieve -> summarize -> generate -> sanitize -> record,
// holding the session lock for the whole turn so concurrent requests on one
// session cannot interleave.
type Service struct {
	sessions   *session.Store
	retriever  Retriever
	summarizer Summarizer
	llm        Completer
	sanitizer  Sanitizer
	audit      AuditLog

	topK       int
	genTimeout time.Duration
}

func NewService(
	sessions *session.Store,
	retriever Retriever,
	summarizer Summarizer,
	llm Completer,
	sanitizer Sanitizer,
	audit AuditLog,
	topK int,
	genTimeout time.Duration,
) *Service {
	return &Service{
		sessions:   sessions,
		retriever:  retriever,
		summarizer: summarizer,
		llm:        llm,
		sanitizer:  sanitizer,
		audit:      audit,
		topK:       topK,
		genTimeout: genTimeout,
	}
}

// Respond runs one full turn for the given session. Retrieval and
// summarization failures degrade (empty context, empty summary); a
// generation failure aborts the turn with the user turn rolled back, so the
// session never holds a question without its answer.
func (s *Service) Respond(ctx context.Context, sessionID, message string) (*Answer, error) {
	sess := s.sessions.Acquire(sessionID)
	sess.Lock()
	defer sess.Unlock()

	sess.Append(session.RoleUser, message)

	chunks, err := s.retriever.Search(ctx, message, s.topK)
	if err != nil {
		if !errors.Is(err, retrieval.ErrEmbedding) {
			sess.RemoveLast()
			return nil, err
		}
		// Embedding service down: answer from session context alone.
		slog.WarnContext(ctx, "retrieval degraded to empty context", "error", err, "session_id", sess.ID)
		chunks = nil
	}

	// Summary covers the just-asked question too, since the user turn is
	// already appended.
	summary, err := s.summarizer.Summarize(ctx, sess)
	if err != nil {
		slog.WarnContext(ctx, "session summarization failed, continuing without", "error", err, "session_id", sess.ID)
		summary = ""
	}

	prompt := BuildPrompt(message, chunks, summary)

	genCtx := ctx
	if s.genTimeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, s.genTimeout)
		defer cancel()
	}

	raw, err := s.llm.Complete(genCtx, prompt)
	if err != nil {
		sess.RemoveLast()
		return nil, fmt.Errorf("%w: %v", ErrGeneration, err)
	}

	response, err := s.sanitizer.Render(raw)
	if err != nil {
		// Fail closed: never return content that could not be sanitized.
		slog.ErrorContext(ctx, "model output failed sanitization", "error", err, "session_id", sess.ID)
		response = markup.FallbackMessage
	}

	sess.Append(session.RoleAssistant, response)

	if s.audit != nil {
		rec := &chatlog.Record{
			SessionID: sess.ID,
			Message:   message,
			Chunks:    chunks,
			Summary:   summary,
			Response:  response,
		}
		if err := s.audit.Write(ctx, rec); err != nil {
			// Audit is write-only bookkeeping; a failed write never fails
			// an answered turn.
			slog.ErrorContext(ctx, "failed to write chat log record", "error", err, "session_id", sess.ID)
		}
	}

	return &Answer{SessionID: sess.ID, Response: response}, nil
}

// Reset clears the session's history. Unknown session IDs are a no-op.
func (s *Service) Reset(sessionID string) {
	s.sessions.Reset(sessionID)
}
