package text

import (
	"regexp"
	"strings"
)

// Paragraph boundary: a newline, optional horizontal whitespace, then at
// least one more newline. Runs of blank lines collapse into one boundary.
var paragraphBoundaryRe = regexp.MustCompile(`\n[ \t\r]*\n\s*`)

// SplitParagraphs splits extracted document text into retrievable units.
// A paragraph is the atomic unit: segments are delimited by blank lines,
// trimmed, and whitespace-only segments are dropped. Order follows the
// document, since chunk identifiers are derived from position. Text with no
// blank line yields exactly one chunk; empty or whitespace-only text yields
// none.
func SplitParagraphs(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	segments := paragraphBoundaryRe.Split(text, -1)
	chunks := make([]string, 0, len(segments))
	for _, seg := range segments {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		chunks = append(chunks, seg)
	}
	return chunks
}

// JoinParagraphs rejoins chunks with blank-line separators, the inverse of
// SplitParagraphs on clean input. Retrieved context is rebuilt this way
// before prompt assembly.
func JoinParagraphs(chunks []string) string {
	return strings.Join(chunks, "\n\n")
}
