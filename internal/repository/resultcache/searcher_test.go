package resultcache

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/kailas-cloud/shopsearch/internal/domain/product"
	"github.com/kailas-cloud/shopsearch/internal/domain/upload"
)

var sample = []product.Product{
	{ID: "1163", ProductDisplayName: "sample", Similarity: 0.82, ImageURL: "/image/1163"},
	{ID: "52488", ProductDisplayName: "red rose red camisole", Similarity: 0.118, ImageURL: "/image/52488"},
}

func TestSearchProducts_MissThenHit(t *testing.T) {
	inner := &mockSearcher{products: sample}
	cs, ms := newTestCachedSearcher(t, inner)
	ctx := context.Background()

	first, err := cs.SearchProducts(ctx, "red rose", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := cs.SearchProducts(ctx, "red rose", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if inner.textCalls != 1 {
		t.Fatalf("expected 1 inner call, got %d", inner.textCalls)
	}
	if len(first) != 2 || len(second) != 2 || second[0].ID != "1163" || second[1].ID != "52488" {
		t.Fatalf("unexpected results: %v / %v", first, second)
	}
	if len(ms.data) != 1 {
		t.Fatalf("expected 1 cached entry, got %d", len(ms.data))
	}
	for k, ttl := range ms.ttls {
		if !strings.HasPrefix(k, "test:results:text:") {
			t.Errorf("unexpected key %q", k)
		}
		if ttl != time.Minute {
			t.Errorf("expected ttl 1m, got %v", ttl)
		}
	}
}

func TestSearchProducts_KeyIncludesTopN(t *testing.T) {
	inner := &mockSearcher{products: sample}
	cs, ms := newTestCachedSearcher(t, inner)
	ctx := context.Background()

	_, _ = cs.SearchProducts(ctx, "dress", 5)
	_, _ = cs.SearchProducts(ctx, "dress", 10)

	if inner.textCalls != 2 {
		t.Fatalf("expected 2 inner calls, got %d", inner.textCalls)
	}
	if len(ms.data) != 2 {
		t.Fatalf("expected 2 cached entries, got %d", len(ms.data))
	}
}

func TestSearchProducts_ErrorNotCached(t *testing.T) {
	inner := &mockSearcher{err: errors.New("backend down")}
	cs, ms := newTestCachedSearcher(t, inner)

	_, err := cs.SearchProducts(context.Background(), "q", 5)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, inner.err) {
		t.Errorf("expected wrapped inner error, got %v", err)
	}
	if len(ms.data) != 0 {
		t.Fatalf("expected nothing cached, got %d entries", len(ms.data))
	}
}

func TestSearchProducts_EmptyResultCached(t *testing.T) {
	inner := &mockSearcher{products: []product.Product{}}
	cs, _ := newTestCachedSearcher(t, inner)
	ctx := context.Background()

	_, _ = cs.SearchProducts(ctx, "red rose", 5)
	got, err := cs.SearchProducts(ctx, "red rose", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %v", got)
	}
	if inner.textCalls != 1 {
		t.Fatalf("expected 1 inner call, got %d", inner.textCalls)
	}
}

func TestSearchProducts_StoreFailuresBypassed(t *testing.T) {
	inner := &mockSearcher{products: sample}
	cs, ms := newTestCachedSearcher(t, inner)
	ms.getErr = errors.New("connection refused")
	ms.setErr = errors.New("connection refused")

	got, err := cs.SearchProducts(context.Background(), "q", 5)
	if err != nil {
		t.Fatalf("cache failure must not fail the search: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected inner results, got %v", got)
	}
}

func TestSearchProducts_CorruptEntryIsMiss(t *testing.T) {
	inner := &mockSearcher{products: sample}
	cs, ms := newTestCachedSearcher(t, inner)
	ctx := context.Background()

	_, _ = cs.SearchProducts(ctx, "q", 5)
	for k := range ms.data {
		ms.data[k] = []byte("not json")
	}

	if _, err := cs.SearchProducts(ctx, "q", 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.textCalls != 2 {
		t.Fatalf("expected corrupt entry to fall through, got %d inner calls", inner.textCalls)
	}
}

func TestSearchProductsByImage_KeyedByContent(t *testing.T) {
	inner := &mockSearcher{products: sample}
	cs, ms := newTestCachedSearcher(t, inner)
	ctx := context.Background()

	a := upload.File{Name: "a.jpg", Data: []byte("same-bytes")}
	b := upload.File{Name: "b.jpg", Data: []byte("same-bytes")}

	_, _ = cs.SearchProductsByImage(ctx, a, 5)
	_, _ = cs.SearchProductsByImage(ctx, b, 5)

	if inner.imageCalls != 1 {
		t.Fatalf("expected 1 inner call for identical bytes, got %d", inner.imageCalls)
	}
	for k := range ms.data {
		if !strings.HasPrefix(k, "test:results:image:") {
			t.Errorf("unexpected key %q", k)
		}
	}
}

func TestTextAndImageKeysDiffer(t *testing.T) {
	cs, _ := newTestCachedSearcher(t, &mockSearcher{})
	if cs.key(kindText, []byte("x"), 5) == cs.key(kindImage, []byte("x"), 5) {
		t.Fatal("text and image keys must not collide")
	}
}

func TestCacheCounter(t *testing.T) {
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_cache_total"}, []string{"kind", "result"})
	inner := &mockSearcher{products: sample}
	cs := New(inner, newMockKVStore(), "test:", time.Minute, counter, zap.NewNop())
	ctx := context.Background()

	_, _ = cs.SearchProducts(ctx, "q", 5)
	_, _ = cs.SearchProducts(ctx, "q", 5)

	if got := testutil.ToFloat64(counter.WithLabelValues("text", "miss")); got != 1 {
		t.Errorf("expected 1 miss, got %f", got)
	}
	if got := testutil.ToFloat64(counter.WithLabelValues("text", "hit")); got != 1 {
		t.Errorf("expected 1 hit, got %f", got)
	}
}
