package store

import (
	"context"

	"github.com/kailas-cloud/shopsearch/internal/domain/product"
	"github.com/kailas-cloud/shopsearch/internal/domain/state"
	"github.com/kailas-cloud/shopsearch/internal/domain/upload"
)

// Searcher runs searches against the product backend.
type Searcher interface {
	SearchProducts(ctx context.Context, query string, topN int) ([]product.Product, error)
	SearchProductsByImage(ctx context.Context, file upload.File, topN int) ([]product.Product, error)
}

// Listener receives snapshots. It runs while the store serializes delivery,
// so it must not start searches or subscribe on the same store.
type Listener func(state.State)
