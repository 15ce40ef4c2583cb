package splitters

import (
	"fmt"
	"strings"
	"unicode"

	"ragchatbot/internal/rag/interfaces"
	"ragchatbot/internal/rag/schema"
)

// wordBoundaryLookback is how far back from a cut point the splitter searches
// for whitespace before accepting a mid-word split.
const wordBoundaryLookback = 50

// CharSplitter implements the Splitter interface with a greedy rune window.
// Consecutive chunks from the same page overlap by ChunkOverlap runes so a
// relevant span is never lost across a chunk boundary.
type CharSplitter struct {
	ChunkSize    int
	ChunkOverlap int
}

// NewCharSplitter creates a CharSplitter. The overlap must be smaller than
// the chunk size or the window could never advance.
func NewCharSplitter(chunkSize, chunkOverlap int) (*CharSplitter, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		return nil, fmt.Errorf("chunk overlap must be in [0, %d), got %d", chunkSize, chunkOverlap)
	}
	return &CharSplitter{
		ChunkSize:    chunkSize,
		ChunkOverlap: chunkOverlap,
	}, nil
}

// Split cuts one page of text into chunks of at most ChunkSize runes.
// Chunk IDs are deterministic ("<docID>:p<page>:c<seq>") so re-splitting the
// same page always produces the same IDs. Empty page text yields no chunks.
func (s *CharSplitter) Split(documentID string, page int, text string) []*schema.Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	runes := []rune(text)
	var chunks []*schema.Chunk
	seq := 0

	for start := 0; start < len(runes); {
		end := start + s.ChunkSize
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = s.adjustToWordBoundary(runes, start, end)
		}

		chunkText := string(runes[start:end])
		if strings.TrimSpace(chunkText) != "" {
			chunks = append(chunks, &schema.Chunk{
				ID:         fmt.Sprintf("%s:p%d:c%d", documentID, page, seq),
				DocumentID: documentID,
				Page:       page,
				Seq:        seq,
				Text:       chunkText,
			})
			seq++
		}

		if end == len(runes) {
			break
		}
		next := end - s.ChunkOverlap
		if next <= start {
			// Guarantee progress even for degenerate size/overlap pairs.
			next = start + 1
		}
		start = next
	}

	return chunks
}

// adjustToWordBoundary moves the cut point back to the nearest whitespace
// within the lookback window, so a word is only split when no boundary is
// close enough.
func (s *CharSplitter) adjustToWordBoundary(runes []rune, start, end int) int {
	if unicode.IsSpace(runes[end]) || unicode.IsSpace(runes[end-1]) {
		return end
	}
	limit := end - wordBoundaryLookback
	if limit <= start {
		limit = start + 1
	}
	for i := end - 1; i >= limit; i-- {
		if unicode.IsSpace(runes[i]) {
			return i + 1
		}
	}
	return end
}

// compile-time check to ensure CharSplitter implements the Splitter interface
var _ interfaces.Splitter = (*CharSplitter)(nil)
