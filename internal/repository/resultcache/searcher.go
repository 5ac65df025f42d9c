package resultcache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/shopsearch/internal/db"
	"github.com/kailas-cloud/shopsearch/internal/domain/product"
	"github.com/kailas-cloud/shopsearch/internal/domain/upload"
	logpkg "github.com/kailas-cloud/shopsearch/internal/logger"
)

const (
	kindText  = "text"
	kindImage = "image"
)

// searcher is the wrapped backend client.
type searcher interface {
	SearchProducts(ctx context.Context, query string, topN int) ([]product.Product, error)
	SearchProductsByImage(ctx context.Context, file upload.File, topN int) ([]product.Product, error)
}

// store is the consumer interface for the result cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CachedSearcher serves repeated searches from a key-value store.
// Only successful results are cached.
type CachedSearcher struct {
	inner      searcher
	store      store
	ttl        time.Duration
	prefix     string
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a caching decorator.
// cacheTotal is a counter vec with labels "kind" and "result" ("hit"/"miss"); may be nil.
func New(
	inner searcher,
	s store,
	prefix string,
	ttl time.Duration,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *CachedSearcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedSearcher{
		inner:      inner,
		store:      s,
		ttl:        ttl,
		prefix:     prefix + "results:",
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// SearchProducts returns cached text results or calls the inner client.
func (c *CachedSearcher) SearchProducts(ctx context.Context, query string, topN int) ([]product.Product, error) {
	key := c.key(kindText, []byte(query), topN)

	if products, ok := c.get(ctx, kindText, key); ok {
		return products, nil
	}

	products, err := c.inner.SearchProducts(ctx, query, topN)
	if err != nil {
		return nil, fmt.Errorf("search products: %w", err)
	}

	c.put(ctx, key, products)
	return products, nil
}

// SearchProductsByImage returns cached image results or calls the inner client.
// The key covers the image bytes, not the file name.
func (c *CachedSearcher) SearchProductsByImage(
	ctx context.Context, file upload.File, topN int,
) ([]product.Product, error) {
	key := c.key(kindImage, file.Data, topN)

	if products, ok := c.get(ctx, kindImage, key); ok {
		return products, nil
	}

	products, err := c.inner.SearchProductsByImage(ctx, file, topN)
	if err != nil {
		return nil, fmt.Errorf("search products by image: %w", err)
	}

	c.put(ctx, key, products)
	return products, nil
}

func (c *CachedSearcher) key(kind string, payload []byte, topN int) string {
	h := sha256.New()
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(topN)) //nolint:gosec // topN is validated positive upstream
	h.Write(n[:])
	h.Write(payload)
	return c.prefix + kind + ":" + hex.EncodeToString(h.Sum(nil))
}

func (c *CachedSearcher) inc(kind, result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(kind, result).Inc()
	}
}

func (c *CachedSearcher) get(ctx context.Context, kind, key string) ([]product.Product, bool) {
	log := logpkg.FromContext(ctx, c.logger)

	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			log.Warn("Failed to get cached results", zap.String("key", key), zap.Error(err))
		}
		c.inc(kind, "miss")
		return nil, false
	}

	var products []product.Product
	if err := json.Unmarshal(data, &products); err != nil {
		log.Warn("Failed to parse cached results", zap.String("key", key), zap.Error(err))
		c.inc(kind, "miss")
		return nil, false
	}
	if products == nil {
		products = []product.Product{}
	}

	c.inc(kind, "hit")
	return products, true
}

func (c *CachedSearcher) put(ctx context.Context, key string, products []product.Product) {
	data, err := json.Marshal(products)
	if err != nil {
		return
	}
	if err := c.store.SetWithTTL(ctx, key, data, c.ttl); err != nil {
		logpkg.FromContext(ctx, c.logger).Warn("Failed to cache results", zap.String("key", key), zap.Error(err))
	}
}
