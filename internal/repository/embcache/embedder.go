// Package embcache caches query embeddings in the key-value backend.
package embcache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kailas-cloud/topicrag/internal/db"
	"github.com/kailas-cloud/topicrag/internal/domain"
)

var cacheKeyPrefix = domain.KeyPrefix + "emb_cache:"

// flightTimeout bounds a shared provider call once it no longer follows
// the cancellation of the request that started it.
const flightTimeout = 30 * time.Second

type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CachedEmbedder serves repeated queries from the cache and collapses
// identical in-flight queries into one provider call.
type CachedEmbedder struct {
	inner      domain.Embedder
	store      store
	namespace  string
	ttl        time.Duration
	group      singleflight.Group
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates the caching decorator. namespace scopes keys, usually to the
// model name, so a model switch never serves stale vectors. ttl <= 0 keeps
// entries until evicted. cacheTotal has a single "result" label and may be nil.
func New(
	inner domain.Embedder, s store, namespace string, ttl time.Duration,
	cacheTotal *prometheus.CounterVec, logger *zap.Logger,
) *CachedEmbedder {
	return &CachedEmbedder{
		inner:      inner,
		store:      s,
		namespace:  namespace,
		ttl:        ttl,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// Embed returns a cached vector with zero tokens, or embeds and caches.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	key := c.cacheKey(text)

	if vec, ok := c.lookup(ctx, key); ok {
		c.inc("hit")
		return domain.EmbeddingResult{Embedding: vec}, nil
	}

	// The flight outlives any single caller: it runs detached from the
	// caller's cancellation so a disconnecting leader cannot fail followers.
	var leader bool
	ch := c.group.DoChan(key, func() (any, error) {
		leader = true
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), flightTimeout)
		defer cancel()

		res, err := c.inner.Embed(flightCtx, text)
		if err != nil {
			return nil, err //nolint:wrapcheck // wrapped below for every waiter
		}
		if err := c.store.SetWithTTL(flightCtx, key, encode(res.Embedding), c.ttl); err != nil {
			c.logger.Warn("Embedding cache write failed", zap.String("key", key), zap.Error(err))
		}
		return res, nil
	})

	var flight singleflight.Result
	select {
	case <-ctx.Done():
		return domain.EmbeddingResult{}, fmt.Errorf("embed text: %w", ctx.Err())
	case flight = <-ch:
	}
	if flight.Err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed text: %w", flight.Err)
	}

	res := flight.Val.(domain.EmbeddingResult) //nolint:forcetypeassert // only EmbeddingResult is returned above
	if !leader {
		c.inc("shared")
		// tokens were spent once; only the leader reports them
		res.PromptTokens, res.TotalTokens = 0, 0
		res.Embedding = append([]float32(nil), res.Embedding...)
	} else {
		c.inc("miss")
	}
	return res, nil
}

// HealthCheck forwards to the inner embedder when it supports health checks.
func (c *CachedEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := c.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx) //nolint:wrapcheck // pass-through decorator
	}
	return nil
}

func (c *CachedEmbedder) inc(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

func (c *CachedEmbedder) cacheKey(text string) string {
	h := sha256.New()
	h.Write([]byte(c.namespace))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return cacheKeyPrefix + hex.EncodeToString(h.Sum(nil))
}

func (c *CachedEmbedder) lookup(ctx context.Context, key string) ([]float32, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Embedding cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	vec, err := decode(data)
	if err != nil {
		c.logger.Warn("Discarding corrupt cached embedding", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return vec, true
}

func encode(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decode(data []byte) ([]float32, error) {
	if len(data) == 0 || len(data)%4 != 0 {
		return nil, fmt.Errorf("invalid cached embedding length %d", len(data))
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec, nil
}
