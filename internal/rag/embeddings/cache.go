package embeddings

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"ragchatbot/internal/rag/interfaces"
	"ragchatbot/pkg/logger"
)

// cacheTTL bounds how long a cached vector lives. Embeddings for a fixed
// model are stable, the TTL only caps memory in Redis.
const cacheTTL = 24 * time.Hour

// CachedModel decorates an EmbeddingModel with a Redis cache keyed by the
// model name and the SHA-256 of the text. Query embedding sits on the request
// hot path, so repeated questions skip the provider round trip.
//
// Cache failures degrade to a direct provider call and are only logged;
// the cache must never turn a working embedder into a failing one.
type CachedModel struct {
	inner interfaces.EmbeddingModel
	rdb   *redis.Client
	model string
	log   *logger.Logger
}

// NewCachedModel wraps inner with a Redis-backed cache.
func NewCachedModel(inner interfaces.EmbeddingModel, rdb *redis.Client, model string, log *logger.Logger) *CachedModel {
	return &CachedModel{
		inner: inner,
		rdb:   rdb,
		model: model,
		log:   log,
	}
}

// Embed returns the cached vector for text when present, otherwise embeds
// through the wrapped model and stores the result.
func (c *CachedModel) Embed(ctx context.Context, text string) ([]float32, error) {
	key := c.cacheKey(text)

	if raw, err := c.rdb.Get(ctx, key).Bytes(); err == nil {
		var vector []float32
		if err := json.Unmarshal(raw, &vector); err == nil {
			return vector, nil
		}
		// Corrupt entry: fall through and overwrite it.
	} else if err != redis.Nil {
		c.log.Warn(fmt.Sprintf("embedding cache read failed: %v", err))
	}

	vector, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(vector); err == nil {
		if err := c.rdb.Set(ctx, key, raw, cacheTTL).Err(); err != nil {
			c.log.Warn(fmt.Sprintf("embedding cache write failed: %v", err))
		}
	}
	return vector, nil
}

// EmbedBatch passes straight through to the wrapped model. Ingestion batches
// are one-shot per corpus update and not worth caching.
func (c *CachedModel) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return c.inner.EmbedBatch(ctx, texts)
}

func (c *CachedModel) cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("emb:%s:%x", c.model, sum)
}

// compile-time check to ensure CachedModel implements the EmbeddingModel interface
var _ interfaces.EmbeddingModel = (*CachedModel)(nil)
