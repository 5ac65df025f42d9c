// Package session composes a search bar, a state store and a results grid
// into one user's search experience.
package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/shopsearch/internal/domain/product"
	"github.com/kailas-cloud/shopsearch/internal/domain/state"
	"github.com/kailas-cloud/shopsearch/internal/usecase/grid"
	"github.com/kailas-cloud/shopsearch/internal/usecase/searchbar"
	"github.com/kailas-cloud/shopsearch/internal/usecase/store"
)

// Deps are shared by every session.
type Deps struct {
	Searcher store.Searcher
	Logger   *zap.Logger
	PageSize int
	Bar      searchbar.Config
}

// Session wires bar requests into the store and store snapshots into the grid.
type Session struct {
	ID    string
	Bar   *searchbar.Bar
	Store *store.Store
	Grid  *grid.Grid

	unsubscribe func()

	mu       sync.Mutex
	lastSeen time.Time
}

// New creates a session.
func New(id string, deps Deps) *Session {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("session", id))

	s := &Session{
		ID:       id,
		Store:    store.New(deps.Searcher, logger),
		Grid:     grid.New(deps.PageSize),
		lastSeen: time.Now(),
	}
	s.Bar = searchbar.New(deps.Bar,
		func(ctx context.Context, r searchbar.Request) {
			s.Store.PerformSearch(ctx, r.Query, r.TopN)
		},
		func(ctx context.Context, r searchbar.ImageRequest) {
			s.Store.PerformImageSearch(ctx, r.File, r.TopN)
		},
	)

	prev := []product.Product{}
	s.unsubscribe = s.Store.Subscribe(func(next state.State) {
		if !product.SameIDs(prev, next.Products) {
			s.Grid.SetProducts(next.Products)
		}
		prev = next.Products
	})
	return s
}

// State returns the store's current snapshot.
func (s *Session) State() state.State {
	return s.Store.State()
}

// Touch marks the session as used at now.
func (s *Session) Touch(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = now
}

// LastSeen returns the last time the session was used.
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Close stops the session's store and in-flight searches.
func (s *Session) Close() {
	s.unsubscribe()
	s.Store.Close()
}
