// Package chunker splits document text into overlapping chunks for
// embedding. Splitting is rune-based so multi-byte text (French
// accents included) never gets cut mid-character.
package chunker

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidBounds indicates the requested size/overlap combination
// cannot make forward progress.
var ErrInvalidBounds = errors.New("chunker: invalid size/overlap bounds")

// separators are tried in order when looking for a natural cut point
// inside a window: paragraph break, line break, sentence end, word gap.
var separators = []string{"\n\n", "\n", ". ", " "}

// Chunk is one contiguous span of the source text.
type Chunk struct {
	// Content is the chunk text, including any trailing separator.
	Content string

	// Index is the zero-based position of the chunk in the document.
	Index int

	// Start and End are rune offsets into the source text. Adjacent
	// chunks satisfy next.Start == prev.End - overlap.
	Start int
	End   int
}

// Splitter cuts text into chunks of at most Size runes with Overlap
// runes shared between consecutive chunks. A Splitter is immutable and
// safe for concurrent use; build a new one when parameters change.
type Splitter struct {
	size    int
	overlap int
}

// New validates the bounds and returns a Splitter. Overlap must be
// strictly smaller than size, otherwise the window could never advance.
func New(size, overlap int) (*Splitter, error) {
	if size < 1 {
		return nil, fmt.Errorf("%w: size %d must be >= 1", ErrInvalidBounds, size)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("%w: overlap %d must be >= 0", ErrInvalidBounds, overlap)
	}
	if overlap >= size {
		return nil, fmt.Errorf("%w: overlap %d must be < size %d", ErrInvalidBounds, overlap, size)
	}
	return &Splitter{size: size, overlap: overlap}, nil
}

// Size returns the configured chunk size in runes.
func (s *Splitter) Size() int { return s.size }

// Overlap returns the configured overlap in runes.
func (s *Splitter) Overlap() int { return s.overlap }

// Split cuts text into chunks. Every rune of the input appears in at
// least one chunk, and consecutive chunks share exactly the configured
// overlap. Whitespace-only input yields no chunks.
func (s *Splitter) Split(text string) []Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	runes := []rune(text)
	var chunks []Chunk

	start := 0
	for start < len(runes) {
		end := start + s.size
		if end >= len(runes) {
			chunks = append(chunks, Chunk{
				Content: string(runes[start:]),
				Index:   len(chunks),
				Start:   start,
				End:     len(runes),
			})
			break
		}

		// Prefer a natural boundary inside the window, as long as the
		// cut lands past the overlap so the next window advances.
		if cut := s.findCut(runes[start:end]); cut > 0 {
			end = start + cut
		}

		chunks = append(chunks, Chunk{
			Content: string(runes[start:end]),
			Index:   len(chunks),
			Start:   start,
			End:     end,
		})
		start = end - s.overlap
	}

	return chunks
}

// findCut returns the rune offset just after the best separator in the
// window, or 0 if no separator beyond the overlap exists. Separators
// are tried by priority; the last occurrence of the first matching
// separator wins, keeping chunks as full as possible.
func (s *Splitter) findCut(window []rune) int {
	text := string(window)
	for _, sep := range separators {
		idx := strings.LastIndex(text, sep)
		if idx < 0 {
			continue
		}
		cut := len([]rune(text[:idx])) + len([]rune(sep))
		if cut > s.overlap {
			return cut
		}
	}
	return 0
}
