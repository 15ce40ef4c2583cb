package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"ragchatbot/internal/rag/interfaces"
	"ragchatbot/internal/rag/schema"
	"ragchatbot/pkg/logger"
)

// documentShard holds the complete, immutable chunk set of one document.
// Upsert publishes a fully built shard by swapping the map entry, so a
// concurrent Search sees either the old shard or the new one, never a mix.
type documentShard struct {
	Fingerprint string          `json:"fingerprint"`
	IngestedAt  time.Time       `json:"ingested_at"`
	Chunks      []*schema.Chunk `json:"chunks"`

	// norms caches the L2 norm of each chunk embedding, parallel to Chunks.
	norms []float64
}

// MemoryIndex is an in-process VectorIndex with optional snapshot
// persistence. Similarity is cosine; the same metric applies to ingestion
// and query vectors since both go through the one configured embedder.
//
// The mutex only guards the shard map itself. Shard construction happens
// outside the lock and shards are never mutated after publication, so an
// upsert of one document does not block searches beyond the pointer swap.
type MemoryIndex struct {
	mu           sync.RWMutex
	docs         map[string]*documentShard
	dim          int // fixed by the first upsert; 0 until then
	snapshotPath string
	log          *logger.Logger
}

// NewMemoryIndex creates a MemoryIndex. When snapshotPath is non-empty, an
// existing snapshot is loaded and every mutation rewrites it atomically
// (temp file + rename).
func NewMemoryIndex(snapshotPath string, log *logger.Logger) (*MemoryIndex, error) {
	idx := &MemoryIndex{
		docs:         make(map[string]*documentShard),
		snapshotPath: snapshotPath,
		log:          log,
	}
	if snapshotPath != "" {
		if err := idx.loadSnapshot(); err != nil {
			return nil, err
		}
	}
	return idx, nil
}

// Upsert atomically replaces all chunks of a document. Every chunk vector
// must match the index dimension, fixed by the first document ever inserted.
func (m *MemoryIndex) Upsert(ctx context.Context, docID, fingerprint string, chunks []*schema.Chunk) error {
	shard := &documentShard{
		Fingerprint: fingerprint,
		IngestedAt:  time.Now().UTC(),
		Chunks:      chunks,
		norms:       make([]float64, len(chunks)),
	}

	dim := 0
	for i, chunk := range chunks {
		if dim == 0 {
			dim = len(chunk.Embedding)
		}
		if len(chunk.Embedding) != dim {
			return &schema.DimensionMismatchError{Want: dim, Got: len(chunk.Embedding)}
		}
		shard.norms[i] = norm(chunk.Embedding)
	}

	m.mu.Lock()
	if m.dim != 0 && dim != 0 && dim != m.dim {
		m.mu.Unlock()
		return &schema.DimensionMismatchError{Want: m.dim, Got: dim}
	}
	if m.dim == 0 {
		m.dim = dim
	}
	m.docs[docID] = shard
	m.mu.Unlock()

	return m.saveSnapshot()
}

// DeleteDocument removes all chunks belonging to a document. Deleting an
// unknown document is a no-op.
func (m *MemoryIndex) DeleteDocument(ctx context.Context, docID string) error {
	m.mu.Lock()
	delete(m.docs, docID)
	m.mu.Unlock()
	return m.saveSnapshot()
}

// Fingerprint returns the content fingerprint of the indexed version of a
// document, and whether the document is present at all.
func (m *MemoryIndex) Fingerprint(ctx context.Context, docID string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	shard, ok := m.docs[docID]
	if !ok {
		return "", false, nil
	}
	return shard.Fingerprint, true, nil
}

// Search returns up to k chunks scoring at least minScore against the query
// vector, in descending cosine similarity with ties broken by ascending
// chunk ID. An empty index yields an empty result, not an error.
func (m *MemoryIndex) Search(ctx context.Context, vector []float32, k int, minScore float64) ([]*schema.RetrievalResult, error) {
	m.mu.RLock()
	shards := make([]*documentShard, 0, len(m.docs))
	for _, shard := range m.docs {
		shards = append(shards, shard)
	}
	dim := m.dim
	m.mu.RUnlock()

	if len(shards) == 0 || k <= 0 {
		return []*schema.RetrievalResult{}, nil
	}
	if dim != 0 && len(vector) != dim {
		return nil, &schema.DimensionMismatchError{Want: dim, Got: len(vector)}
	}

	queryNorm := norm(vector)
	if queryNorm == 0 {
		return []*schema.RetrievalResult{}, nil
	}

	var results []*schema.RetrievalResult
	for _, shard := range shards {
		for i, chunk := range shard.Chunks {
			if shard.norms[i] == 0 {
				continue
			}
			score := dot(vector, chunk.Embedding) / (queryNorm * shard.norms[i])
			if score < minScore {
				continue
			}
			results = append(results, &schema.RetrievalResult{Chunk: chunk, Score: score})
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Chunk.ID < results[j].Chunk.ID
	})
	if len(results) > k {
		results = results[:k]
	}
	for i, r := range results {
		r.Rank = i + 1
	}
	if results == nil {
		results = []*schema.RetrievalResult{}
	}
	return results, nil
}

// snapshot is the on-disk representation of the index.
type snapshot struct {
	Dim       int                       `json:"dim"`
	Documents map[string]*documentShard `json:"documents"`
}

func (m *MemoryIndex) loadSnapshot() error {
	raw, err := os.ReadFile(m.snapshotPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read index snapshot: %w", err)
	}

	var snap snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return fmt.Errorf("failed to parse index snapshot: %w", err)
	}

	for _, shard := range snap.Documents {
		shard.norms = make([]float64, len(shard.Chunks))
		for i, chunk := range shard.Chunks {
			shard.norms[i] = norm(chunk.Embedding)
		}
	}

	m.dim = snap.Dim
	if snap.Documents != nil {
		m.docs = snap.Documents
	}
	m.log.Info(fmt.Sprintf("Loaded index snapshot with %d documents from %s", len(m.docs), m.snapshotPath))
	return nil
}

func (m *MemoryIndex) saveSnapshot() error {
	if m.snapshotPath == "" {
		return nil
	}

	m.mu.RLock()
	snap := snapshot{Dim: m.dim, Documents: m.docs}
	raw, err := json.Marshal(&snap)
	m.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to encode index snapshot: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(m.snapshotPath), 0o755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	tmp := m.snapshotPath + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write index snapshot: %w", err)
	}
	if err := os.Rename(tmp, m.snapshotPath); err != nil {
		return fmt.Errorf("failed to replace index snapshot: %w", err)
	}
	return nil
}

func dot(a []float32, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func norm(v []float32) float64 {
	return math.Sqrt(dot(v, v))
}

// compile-time check to ensure MemoryIndex implements the VectorIndex interface
var _ interfaces.VectorIndex = (*MemoryIndex)(nil)
