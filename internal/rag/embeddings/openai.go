package embeddings

import (
	"context"
	"strings"
	"time"

	openai "github.com/meguminnnnnnnnn/go-openai"

	"ragchatbot/internal/rag/interfaces"
	"ragchatbot/internal/rag/schema"
)

// OpenAIModel is an EmbeddingModel backed by the OpenAI embeddings API.
type OpenAIModel struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// NewOpenAIModel creates an OpenAI embedding client. The timeout bounds each
// API call so a request never hangs indefinitely.
func NewOpenAIModel(apiKey, model string, timeout time.Duration) *OpenAIModel {
	config := openai.DefaultConfig(apiKey)
	return &OpenAIModel{
		client:  openai.NewClientWithConfig(config),
		model:   model,
		timeout: timeout,
	}
}

// Embed generates an embedding vector for a single text.
func (m *OpenAIModel) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := m.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch generates embedding vectors for a batch of texts, preserving
// input order. Empty or whitespace-only input is rejected before any network
// call; provider failures come back as *schema.EmbeddingServiceError. The
// batch fails as a whole, an item is never dropped silently.
func (m *OpenAIModel) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, schema.ErrEmptyInput
	}
	for _, text := range texts {
		if strings.TrimSpace(text) == "" {
			return nil, schema.ErrEmptyInput
		}
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	req := openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(m.model),
	}
	resp, err := m.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, &schema.EmbeddingServiceError{Err: err}
	}
	if len(resp.Data) != len(texts) {
		return nil, &schema.EmbeddingServiceError{
			Err: errShortResponse(len(texts), len(resp.Data)),
		}
	}

	// The API may return items out of order; Index restores input order.
	vectors := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(vectors) {
			return nil, &schema.EmbeddingServiceError{
				Err: errShortResponse(len(texts), len(resp.Data)),
			}
		}
		vectors[d.Index] = d.Embedding
	}
	return vectors, nil
}

// compile-time check to ensure OpenAIModel implements the EmbeddingModel interface
var _ interfaces.EmbeddingModel = (*OpenAIModel)(nil)
