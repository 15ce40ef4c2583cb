package interfaces

import (
	"context"

	"ragchatbot/internal/rag/schema"
)

// Extractor reads a PDF file and yields its text page by page. A failure on
// a single page is reported in Page.Err and does not abort the document.
type Extractor interface {
	Extract(ctx context.Context, path string) ([]Page, error)
}

// Page is the per-page extraction result.
type Page struct {
	Number int
	Text   string
	Err    error
}

// Splitter cuts one page of text into bounded, overlapping chunks with the
// embedding left empty.
type Splitter interface {
	Split(documentID string, page int, text string) []*schema.Chunk
}

// EmbeddingModel turns text into fixed-dimension vectors. EmbedBatch
// preserves input order and fails as a whole; it never drops items silently.
type EmbeddingModel interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// LLM generates an answer from a prepared prompt.
type LLM interface {
	Generate(ctx context.Context, system string, history []schema.Turn, user string) (string, error)
}

// VectorIndex stores chunk vectors and serves nearest-neighbor queries.
//
// Upsert replaces the full chunk set of a document atomically: a concurrent
// Search observes either the old set or the new set, never a mix. Search
// returns results in descending cosine similarity, ties broken by ascending
// chunk ID, at most k entries; an empty index yields an empty slice.
type VectorIndex interface {
	Upsert(ctx context.Context, docID, fingerprint string, chunks []*schema.Chunk) error
	DeleteDocument(ctx context.Context, docID string) error
	Fingerprint(ctx context.Context, docID string) (string, bool, error)
	Search(ctx context.Context, vector []float32, k int, minScore float64) ([]*schema.RetrievalResult, error)
}
