package schema

import "time"

// Document describes one ingested source PDF. Chunks reference it by ID;
// re-ingestion replaces the full chunk set for a document atomically.
type Document struct {
	// ID is the stable identifier of the source file, its base name.
	ID string

	// Fingerprint is the SHA-256 of the file content, used to detect
	// unchanged documents on re-ingestion.
	Fingerprint string

	// IngestedAt records when the document entered the index.
	IngestedAt time.Time
}

// Chunk is a bounded span of text extracted from one page of one document.
// It is the unit of retrieval; the embedding is computed once at ingestion.
type Chunk struct {
	// ID is deterministic: "<docID>:p<page>:c<seq>". Deterministic IDs keep
	// replacement stable and make search tie-breaking reproducible.
	ID string

	// DocumentID is the ID of the owning document.
	DocumentID string

	// Page is the 1-based page number the text was extracted from.
	Page int

	// Seq is the 0-based position of the chunk within its page.
	Seq int

	// Text is the raw chunk text.
	Text string

	// Embedding is the vector representation of Text. All vectors in an
	// index share one dimension.
	Embedding []float32
}

// RetrievalResult pairs a chunk with its similarity score for one query.
// It is request-scoped and never persisted.
type RetrievalResult struct {
	Chunk *Chunk

	// Score is the cosine similarity between the query vector and the
	// chunk's embedding, in [-1, 1].
	Score float64

	// Rank is the 1-based position in the result list.
	Rank int
}

// SourceRef identifies the origin of a retrieved passage.
type SourceRef struct {
	Document string `json:"document"`
	Page     int    `json:"page"`
}

// Turn is one prior exchange passed to the language model as history.
type Turn struct {
	Role    string // "user" or "assistant"
	Content string
}

// AssistantMessage is the synthesized answer returned to the caller.
type AssistantMessage struct {
	Content string
	Sources []SourceRef
}

// IngestionReport summarizes one ingestion run.
type IngestionReport struct {
	DocumentsProcessed int      // Documents chunked, embedded and indexed
	DocumentsUnchanged int      // Documents skipped because their content fingerprint matched
	DocumentsSkipped   int      // Directory entries skipped because they are not PDFs
	ChunksCreated      int      // Total chunks written to the index
	Errors             []string // Per-page and per-document failures, non-fatal to the run
}

// Failed reports whether any document or page failed during the run.
func (r *IngestionReport) Failed() bool {
	return len(r.Errors) > 0
}
