package pipeline

import (
	"context"
	"errors"
	"hash/fnv"
	"math"
	"path/filepath"
	"strings"
	"sync"

	"ragchatbot/internal/rag/interfaces"
	"ragchatbot/internal/rag/schema"
	"ragchatbot/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New("test", "", "")
}

// fakeExtractor serves canned pages keyed by file base name.
type fakeExtractor struct {
	pages map[string][]interfaces.Page
	fail  map[string]error
}

func (f *fakeExtractor) Extract(ctx context.Context, path string) ([]interfaces.Page, error) {
	name := filepath.Base(path)
	if err, ok := f.fail[name]; ok {
		return nil, err
	}
	pages, ok := f.pages[name]
	if !ok {
		return nil, errors.New("no such document")
	}
	return pages, nil
}

// fakeEmbedder produces deterministic bag-of-words vectors so texts sharing
// words score a positive cosine similarity. Thread-safe call counting lets
// tests assert how often the "service" was hit.
type fakeEmbedder struct {
	mu    sync.Mutex
	calls int
	err   error
}

const fakeDim = 16

func (f *fakeEmbedder) embedOne(text string) []float32 {
	vec := make([]float32, fakeDim)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,:;?!")
		h := fnv.New32a()
		h.Write([]byte(word))
		vec[h.Sum32()%fakeDim]++
	}
	var n float64
	for _, v := range vec {
		n += float64(v) * float64(v)
	}
	if n > 0 {
		scale := float32(1 / math.Sqrt(n))
		for i := range vec {
			vec[i] *= scale
		}
	}
	return vec
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := f.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	f.calls++
	err := f.err
	f.mu.Unlock()
	if err != nil {
		return nil, &schema.EmbeddingServiceError{Err: err}
	}
	if len(texts) == 0 {
		return nil, schema.ErrEmptyInput
	}
	for _, text := range texts {
		if strings.TrimSpace(text) == "" {
			return nil, schema.ErrEmptyInput
		}
	}
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = f.embedOne(text)
	}
	return vectors, nil
}

func (f *fakeEmbedder) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeLLM returns a canned answer and records every prompt it sees.
type fakeLLM struct {
	answer  string
	err     error
	calls   int
	system  string
	user    string
	history []schema.Turn
}

func (f *fakeLLM) Generate(ctx context.Context, system string, history []schema.Turn, user string) (string, error) {
	f.calls++
	f.system = system
	f.history = history
	f.user = user
	if f.err != nil {
		return "", &schema.GenerationError{Err: f.err}
	}
	return f.answer, nil
}
