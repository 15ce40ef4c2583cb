package pipeline

import (
	"context"
	"fmt"

	"ragchatbot/internal/rag/interfaces"
	"ragchatbot/internal/rag/schema"
	"ragchatbot/pkg/logger"
)

// Retriever embeds a query and finds the passages most similar to it.
// An empty result set means "no grounded context available" and is a normal
// outcome, distinct from an embedding or index failure.
type Retriever struct {
	embedder interfaces.EmbeddingModel
	index    interfaces.VectorIndex
	topK     int
	minScore float64
	log      *logger.Logger
}

// NewRetriever creates a Retriever with fixed top-K and relevance floor.
func NewRetriever(embedder interfaces.EmbeddingModel, index interfaces.VectorIndex, topK int, minScore float64, log *logger.Logger) *Retriever {
	return &Retriever{
		embedder: embedder,
		index:    index,
		topK:     topK,
		minScore: minScore,
		log:      log,
	}
}

// Retrieve returns the top passages for the query, scored at least minScore.
// Embedding failures propagate to the caller; they are never flattened into
// an empty result.
func (r *Retriever) Retrieve(ctx context.Context, query string) ([]*schema.RetrievalResult, error) {
	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		r.log.Error(fmt.Sprintf("Failed to embed query: %v", err))
		return nil, err
	}

	results, err := r.index.Search(ctx, vector, r.topK, r.minScore)
	if err != nil {
		r.log.Error(fmt.Sprintf("Vector search failed: %v", err))
		return nil, err
	}

	r.log.Debug(fmt.Sprintf("Retrieved %d passages for query", len(results)))
	return results, nil
}
