package session

import (
	"context"
	"strings"
)

// summaryWindow is how many trailing turns feed the summary. Older turns age
// out of the summary input; the summary itself carries their gist forward.
const summaryWindow = 6

const summaryInstruction = "Summarize the following conversation concisely:\n"

// Completer is the language-model boundary the summarizer needs: a
// single-shot, stateless prompt completion.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Summarizer condenses recent session history into a short natural-language
// summary via the language model. The summary is recomputed on every turn
// rather than cached: conversations are short-lived, and exactness on
// clear/new-turn beats saving a model call.
type Summarizer struct {
	llm Completer
}

func NewSummarizer(llm Completer) *Summarizer {
	return &Summarizer{llm: llm}
}

// Summarize returns a concise summary of the session's last turns, or ""
// without invoking the model when the session is empty. Caller must hold the
// session lock.
func (sm *Summarizer) Summarize(ctx context.Context, s *Session) (string, error) {
	turns := s.Recent(summaryWindow)
	if len(turns) == 0 {
		return "", nil
	}

	var b strings.Builder
	b.WriteString(summaryInstruction)
	for i, t := range turns {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(formatTurn(t))
	}

	return sm.llm.Complete(ctx, b.String())
}

func formatTurn(t Turn) string {
	label := "User"
	if t.Role == RoleAssistant {
		label = "Bot"
	}
	return label + ": " + t.Text
}
