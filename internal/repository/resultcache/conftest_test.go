package resultcache

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/shopsearch/internal/db"
	"github.com/kailas-cloud/shopsearch/internal/domain/product"
	"github.com/kailas-cloud/shopsearch/internal/domain/upload"
)

type mockSearcher struct {
	products   []product.Product
	err        error
	textCalls  int
	imageCalls int
}

func (m *mockSearcher) SearchProducts(_ context.Context, _ string, _ int) ([]product.Product, error) {
	m.textCalls++
	return m.products, m.err
}

func (m *mockSearcher) SearchProductsByImage(_ context.Context, _ upload.File, _ int) ([]product.Product, error) {
	m.imageCalls++
	return m.products, m.err
}

// mockKVStore is an in-memory store with optional failure injection.
type mockKVStore struct {
	data   map[string][]byte
	ttls   map[string]time.Duration
	getErr error
	setErr error
}

func newMockKVStore() *mockKVStore {
	return &mockKVStore{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *mockKVStore) Get(_ context.Context, key string) ([]byte, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *mockKVStore) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

func newTestCachedSearcher(t *testing.T, inner *mockSearcher) (*CachedSearcher, *mockKVStore) {
	t.Helper()
	ms := newMockKVStore()
	return New(inner, ms, "test:", time.Minute, nil, zap.NewNop()), ms
}
