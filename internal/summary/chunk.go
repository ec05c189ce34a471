package summary

import (
	"fmt"
	"unicode/utf8"
)

// DefaultMessageLimit is the Discord message ceiling, in characters.
const DefaultMessageLimit = 2000

// ContinuationMarker prefixes every chunk after the first.
const ContinuationMarker = "*(continued)*\n"

// Chunk is one delivered message: a header or continuation marker followed by
// a slice of the summary.
type Chunk struct {
	Prefix string
	Body   string
}

func (c Chunk) String() string { return c.Prefix + c.Body }

// Header is the first chunk's prefix for a summary of window.
func Header(window string) string {
	return fmt.Sprintf("📋 **Summary (%s):**\n", window)
}

// Split cuts text into chunks of at most limit characters. The first chunk
// carries header and as much text as fits beside it; the rest carry
// ContinuationMarker. Joining every Body gives back text unchanged.
func Split(header, text string, limit int) ([]Chunk, error) {
	headerLen := utf8.RuneCountInString(header)
	markerLen := utf8.RuneCountInString(ContinuationMarker)
	if limit <= headerLen || limit <= markerLen {
		return nil, fmt.Errorf("message limit %d leaves no room for text", limit)
	}

	runes := []rune(text)
	first := min(limit-headerLen, len(runes))
	chunks := []Chunk{{Prefix: header, Body: string(runes[:first])}}

	step := limit - markerLen
	for rest := runes[first:]; len(rest) > 0; {
		n := min(step, len(rest))
		chunks = append(chunks, Chunk{Prefix: ContinuationMarker, Body: string(rest[:n])})
		rest = rest[n:]
	}
	return chunks, nil
}
