package markup

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// ErrUnsafeOutput means the model output could not be turned into markup that
// is safe to render. Callers must fail closed and use FallbackMessage instead
// of the original content.
var ErrUnsafeOutput = errors.New("model output cannot be safely rendered")

// FallbackMessage is returned to the user when sanitization fails.
const FallbackMessage = "<p>Sorry, I could not produce a displayable answer for that. Please try rephrasing your question.</p>"

// Sanitizer converts model output (lightweight markdown) into render-ready
// HTML. Model output echoes retrieved document content and is never trusted:
// raw HTML is not passed through by the renderer, and the rendered result is
// filtered again through an allow-list policy.
type Sanitizer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

func NewSanitizer() *Sanitizer {
	return &Sanitizer{
		// Default goldmark renders without WithUnsafe, so raw HTML in the
		// source is dropped rather than emitted.
		md:     goldmark.New(goldmark.WithExtensions(extension.GFM)),
		policy: bluemonday.UGCPolicy(),
	}
}

// Render produces sanitized HTML from model output. On any failure the error
// is ErrUnsafeOutput; the caller must not render the input.
func (s *Sanitizer) Render(raw string) (string, error) {
	var buf bytes.Buffer
	if err := s.md.Convert([]byte(raw), &buf); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnsafeOutput, err)
	}

	clean := s.policy.Sanitize(buf.String())

	// Non-empty input collapsing to nothing means the output consisted
	// entirely of disallowed constructs.
	if strings.TrimSpace(clean) == "" && strings.TrimSpace(raw) != "" {
		return "", ErrUnsafeOutput
	}

	return clean, nil
}
