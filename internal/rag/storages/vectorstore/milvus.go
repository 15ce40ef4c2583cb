package vectorstore

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"ragchatbot/internal/rag/interfaces"
	"ragchatbot/internal/rag/schema"
	"ragchatbot/pkg/logger"
)

const (
	// Schema fields of the Milvus collection.
	FieldID          = "id"
	FieldDocID       = "doc_id"
	FieldPage        = "page"
	FieldSeq         = "seq"
	FieldText        = "text"
	FieldFingerprint = "fingerprint"
	FieldGeneration  = "generation"
	FieldEmbedding   = "embedding"
)

// MilvusIndex is a VectorIndex backed by a Milvus collection with the COSINE
// metric, so scores agree with the local index.
//
// Document replacement inserts the new chunk set under a fresh generation
// number and only then deletes the older generations. Search keeps, per
// document, only the newest generation present in the hit set, so a search
// racing a replace never returns a mix of old and new chunks.
type MilvusIndex struct {
	client     client.Client
	collection string
	dim        int
	log        *logger.Logger
}

// NewMilvusIndex connects the index to a Milvus collection, creating the
// collection and its HNSW index on first use.
func NewMilvusIndex(ctx context.Context, c client.Client, collection string, dim int, log *logger.Logger) (*MilvusIndex, error) {
	if c == nil {
		return nil, fmt.Errorf("milvus client is not initialized")
	}
	m := &MilvusIndex{
		client:     c,
		collection: collection,
		dim:        dim,
		log:        log,
	}
	if err := m.ensureCollection(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *MilvusIndex) ensureCollection(ctx context.Context) error {
	exists, err := m.client.HasCollection(ctx, m.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if !exists {
		collSchema := entity.NewSchema().
			WithName(m.collection).
			WithDescription("PDF chunk embeddings for the support chatbot").
			WithField(entity.NewField().WithName(FieldID).WithDataType(entity.FieldTypeVarChar).WithMaxLength(256).WithIsPrimaryKey(true)).
			WithField(entity.NewField().WithName(FieldDocID).WithDataType(entity.FieldTypeVarChar).WithMaxLength(256)).
			WithField(entity.NewField().WithName(FieldPage).WithDataType(entity.FieldTypeInt64)).
			WithField(entity.NewField().WithName(FieldSeq).WithDataType(entity.FieldTypeInt64)).
			WithField(entity.NewField().WithName(FieldText).WithDataType(entity.FieldTypeVarChar).WithMaxLength(65535)).
			WithField(entity.NewField().WithName(FieldFingerprint).WithDataType(entity.FieldTypeVarChar).WithMaxLength(128)).
			WithField(entity.NewField().WithName(FieldGeneration).WithDataType(entity.FieldTypeInt64)).
			WithField(entity.NewField().WithName(FieldEmbedding).WithDataType(entity.FieldTypeFloatVector).WithDim(int64(m.dim)))

		if err := m.client.CreateCollection(ctx, collSchema, entity.DefaultShardNumber); err != nil {
			return fmt.Errorf("failed to create collection: %w", err)
		}

		idx, err := entity.NewIndexHNSW(entity.COSINE, 8, 96)
		if err != nil {
			return fmt.Errorf("failed to build index definition: %w", err)
		}
		if err := m.client.CreateIndex(ctx, m.collection, FieldEmbedding, idx, false); err != nil {
			return fmt.Errorf("failed to create vector index: %w", err)
		}
	}

	if err := m.client.LoadCollection(ctx, m.collection, false); err != nil {
		return fmt.Errorf("failed to load collection '%s': %w", m.collection, err)
	}
	return nil
}

// Upsert replaces all chunks of a document: insert under a new generation,
// flush, then delete everything older.
func (m *MilvusIndex) Upsert(ctx context.Context, docID, fingerprint string, chunks []*schema.Chunk) error {
	for _, chunk := range chunks {
		if len(chunk.Embedding) != m.dim {
			return &schema.DimensionMismatchError{Want: m.dim, Got: len(chunk.Embedding)}
		}
	}
	if len(chunks) == 0 {
		return m.DeleteDocument(ctx, docID)
	}

	generation := time.Now().UnixNano()

	ids := make([]string, len(chunks))
	docIDs := make([]string, len(chunks))
	pages := make([]int64, len(chunks))
	seqs := make([]int64, len(chunks))
	texts := make([]string, len(chunks))
	fingerprints := make([]string, len(chunks))
	generations := make([]int64, len(chunks))
	embeddings := make([][]float32, len(chunks))
	for i, chunk := range chunks {
		// Generation-suffixed primary keys keep the new rows from colliding
		// with the old generation before it is deleted.
		ids[i] = fmt.Sprintf("%s@%d", chunk.ID, generation)
		docIDs[i] = docID
		pages[i] = int64(chunk.Page)
		seqs[i] = int64(chunk.Seq)
		texts[i] = chunk.Text
		fingerprints[i] = fingerprint
		generations[i] = generation
		embeddings[i] = chunk.Embedding
	}

	_, err := m.client.Insert(ctx, m.collection, "",
		entity.NewColumnVarChar(FieldID, ids),
		entity.NewColumnVarChar(FieldDocID, docIDs),
		entity.NewColumnInt64(FieldPage, pages),
		entity.NewColumnInt64(FieldSeq, seqs),
		entity.NewColumnVarChar(FieldText, texts),
		entity.NewColumnVarChar(FieldFingerprint, fingerprints),
		entity.NewColumnInt64(FieldGeneration, generations),
		entity.NewColumnFloatVector(FieldEmbedding, m.dim, embeddings),
	)
	if err != nil {
		return fmt.Errorf("failed to insert chunks into Milvus: %w", err)
	}
	if err := m.client.Flush(ctx, m.collection, false); err != nil {
		return fmt.Errorf("failed to flush collection: %w", err)
	}

	expr := fmt.Sprintf(`%s == "%s" and %s < %d`, FieldDocID, docID, FieldGeneration, generation)
	if err := m.client.Delete(ctx, m.collection, "", expr); err != nil {
		return fmt.Errorf("failed to delete previous generation: %w", err)
	}

	m.log.Info(fmt.Sprintf("Replaced %d chunks for document %s in Milvus collection %s", len(chunks), docID, m.collection))
	return nil
}

// DeleteDocument removes every chunk of a document, all generations.
func (m *MilvusIndex) DeleteDocument(ctx context.Context, docID string) error {
	expr := fmt.Sprintf(`%s == "%s"`, FieldDocID, docID)
	if err := m.client.Delete(ctx, m.collection, "", expr); err != nil {
		return fmt.Errorf("failed to delete document %s: %w", docID, err)
	}
	return nil
}

// Fingerprint returns the content fingerprint of the newest indexed
// generation of a document.
func (m *MilvusIndex) Fingerprint(ctx context.Context, docID string) (string, bool, error) {
	expr := fmt.Sprintf(`%s == "%s"`, FieldDocID, docID)
	rs, err := m.client.Query(ctx, m.collection, nil, expr, []string{FieldFingerprint, FieldGeneration})
	if err != nil {
		return "", false, fmt.Errorf("failed to query fingerprint for %s: %w", docID, err)
	}

	var fps []string
	var gens []int64
	for _, col := range rs {
		switch col.Name() {
		case FieldFingerprint:
			if c, ok := col.(*entity.ColumnVarChar); ok {
				fps = c.Data()
			}
		case FieldGeneration:
			if c, ok := col.(*entity.ColumnInt64); ok {
				gens = c.Data()
			}
		}
	}
	if len(fps) == 0 || len(fps) != len(gens) {
		return "", false, nil
	}

	best := 0
	for i := range gens {
		if gens[i] > gens[best] {
			best = i
		}
	}
	return fps[best], true, nil
}

// Search runs a COSINE similarity search and rebuilds chunks from the stored
// payload columns. Per document, only the newest generation present in the
// hit set survives, so a replace in flight can not leak a mixed result.
func (m *MilvusIndex) Search(ctx context.Context, vector []float32, k int, minScore float64) ([]*schema.RetrievalResult, error) {
	if k <= 0 {
		return []*schema.RetrievalResult{}, nil
	}
	if len(vector) != m.dim {
		return nil, &schema.DimensionMismatchError{Want: m.dim, Got: len(vector)}
	}

	sp, err := entity.NewIndexHNSWSearchParam(64)
	if err != nil {
		return nil, fmt.Errorf("failed to build search params: %w", err)
	}

	// Over-fetch to keep k results after the generation filter.
	limit := k * 2
	outputFields := []string{FieldID, FieldDocID, FieldPage, FieldSeq, FieldText, FieldGeneration}
	searchResults, err := m.client.Search(
		ctx, m.collection, []string{}, "", outputFields,
		[]entity.Vector{entity.FloatVector(vector)},
		FieldEmbedding, entity.COSINE, limit, sp,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search in Milvus: %w", err)
	}

	type hit struct {
		result     *schema.RetrievalResult
		generation int64
	}
	var hits []hit
	maxGen := map[string]int64{}

	for _, res := range searchResults {
		cols := map[string]entity.Column{}
		for _, field := range res.Fields {
			cols[field.Name()] = field
		}
		idCol, _ := cols[FieldID].(*entity.ColumnVarChar)
		docCol, _ := cols[FieldDocID].(*entity.ColumnVarChar)
		pageCol, _ := cols[FieldPage].(*entity.ColumnInt64)
		seqCol, _ := cols[FieldSeq].(*entity.ColumnInt64)
		textCol, _ := cols[FieldText].(*entity.ColumnVarChar)
		genCol, _ := cols[FieldGeneration].(*entity.ColumnInt64)
		if idCol == nil || docCol == nil || pageCol == nil || seqCol == nil || textCol == nil || genCol == nil {
			m.log.Warn("Search result is missing payload fields, skipping result batch.")
			continue
		}

		for i := 0; i < res.ResultCount; i++ {
			score := float64(res.Scores[i])
			if score < minScore {
				continue
			}
			docID := docCol.Data()[i]
			gen := genCol.Data()[i]
			if gen > maxGen[docID] {
				maxGen[docID] = gen
			}
			chunkID := idCol.Data()[i]
			if at := len(chunkID) - len(fmt.Sprintf("@%d", gen)); at > 0 {
				chunkID = chunkID[:at]
			}
			hits = append(hits, hit{
				generation: gen,
				result: &schema.RetrievalResult{
					Score: score,
					Chunk: &schema.Chunk{
						ID:         chunkID,
						DocumentID: docID,
						Page:       int(pageCol.Data()[i]),
						Seq:        int(seqCol.Data()[i]),
						Text:       textCol.Data()[i],
					},
				},
			})
		}
	}

	results := make([]*schema.RetrievalResult, 0, len(hits))
	for _, h := range hits {
		if h.generation == maxGen[h.result.Chunk.DocumentID] {
			results = append(results, h.result)
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
	return results, nil
}

// compile-time check to ensure MilvusIndex implements the VectorIndex interface
var _ interfaces.VectorIndex = (*MilvusIndex)(nil)
