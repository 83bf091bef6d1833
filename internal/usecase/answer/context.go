package answer

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kailas-cloud/topicrag/internal/domain/search/result"
)

// Markers appended when content is cut to fit the prompt.
const (
	ItemTruncatedMarker    = "... [truncated]"
	ContextTruncatedMarker = "\n... [CONTEXT TRUNCATED] ..."
	NoContextText          = "No relevant content was found in the documents to use as context.\n"
)

const contextHeader = "Below is some content found that may be relevant:\n"

// Limits bounds the size of the assembled context, in runes.
// Zero disables the corresponding bound.
type Limits struct {
	MaxItemChars    int
	MaxContextChars int
}

// BuildContext renders retrieved passages into the prompt context block.
func BuildContext(results []result.Result, limits Limits) string {
	if len(results) == 0 {
		return NoContextText
	}

	var b strings.Builder
	b.WriteString(contextHeader)
	for i, r := range results {
		content, cut := truncateRunes(r.Content(), limits.MaxItemChars)
		if cut {
			content += ItemTruncatedMarker
		}
		fmt.Fprintf(&b, "\n--- Context %d (ID: %s, Topic: %s, Similarity: %.4f) ---\n%s\n",
			i+1, r.ID(), r.Topic(), r.Score(), content)
	}
	b.WriteString("\n---\n")

	out, cut := truncateRunes(b.String(), limits.MaxContextChars)
	if cut {
		out += ContextTruncatedMarker
	}
	return out
}

// truncateRunes cuts s to at most n runes. n <= 0 means no limit.
func truncateRunes(s string, n int) (string, bool) {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s, false
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos], true
		}
		i++
	}
	return s, false
}
