// Package store owns the current search snapshot and coordinates backend
// searches with it.
package store

import (
	"context"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/kailas-cloud/shopsearch/internal/domain/product"
	"github.com/kailas-cloud/shopsearch/internal/domain/state"
	"github.com/kailas-cloud/shopsearch/internal/domain/upload"
	logpkg "github.com/kailas-cloud/shopsearch/internal/logger"
	"github.com/kailas-cloud/shopsearch/internal/metrics"
)

// Messages shown to users when a search fails. Details go to the log.
const (
	TextSearchFailed  = "Failed to fetch search results"
	ImageSearchFailed = "Failed to fetch image search results"
)

// ImageQueryPrefix labels image searches in State.Query.
const ImageQueryPrefix = "Image: "

type subscription struct {
	id uint64
	fn Listener
}

// Store holds one search snapshot. Every change goes through state.Reduce and
// is delivered to listeners in dispatch order.
//
// Each search takes a new generation. Completions of older generations are
// discarded, so the most recently started search always wins.
type Store struct {
	searcher Searcher
	logger   *zap.Logger

	baseCtx context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	once    sync.Once
	wg      sync.WaitGroup

	// dispatchMu serializes reduce + delivery.
	dispatchMu sync.Mutex

	mu        sync.Mutex
	state     state.State
	gen       uint64
	listeners []subscription
	nextSubID uint64
	closed    bool
}

// New creates a Store in the initial state.
func New(searcher Searcher, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Store{
		searcher: searcher,
		logger:   logger,
		baseCtx:  ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
		state:    state.Initial(),
	}
}

// State returns the current snapshot.
func (s *Store) State() state.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// PerformSearch moves the store into loading synchronously and runs a text
// search in the background. ctx provides request-scoped values only; its
// cancellation does not abort the search.
func (s *Store) PerformSearch(ctx context.Context, query string, topN int) {
	gen, ok := s.begin(ctx, query)
	if !ok {
		return
	}
	s.run(ctx, gen, query, TextSearchFailed, func(opCtx context.Context) ([]product.Product, error) {
		return s.searcher.SearchProducts(opCtx, query, topN)
	})
}

// PerformImageSearch is PerformSearch for an uploaded image. The query shown
// in the snapshot is the file name prefixed with "Image: ".
func (s *Store) PerformImageSearch(ctx context.Context, file upload.File, topN int) {
	label := ImageQueryPrefix + file.Name
	gen, ok := s.begin(ctx, label)
	if !ok {
		return
	}
	s.run(ctx, gen, label, ImageSearchFailed, func(opCtx context.Context) ([]product.Product, error) {
		return s.searcher.SearchProductsByImage(opCtx, file, topN)
	})
}

// Subscribe registers fn. fn immediately receives the current snapshot and
// then every accepted snapshot in order. The returned func unregisters fn.
func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	s.mu.Lock()
	s.nextSubID++
	id := s.nextSubID
	s.listeners = append(s.listeners, subscription{id: id, fn: fn})
	current := s.state
	s.mu.Unlock()

	fn(current)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.listeners = slices.DeleteFunc(s.listeners, func(sub subscription) bool { return sub.id == id })
		})
	}
}

// Watch returns a channel carrying the current snapshot followed by every
// accepted snapshot. Slow readers never lose snapshots. The channel is closed
// when ctx ends or the store is closed.
func (s *Store) Watch(ctx context.Context) <-chan state.State {
	out := make(chan state.State)

	select {
	case <-s.done:
		close(out)
		return out
	default:
	}

	box := newMailbox()
	unsubscribe := s.Subscribe(box.push)

	go func() {
		defer close(out)
		defer unsubscribe()
		for {
			next, ok := box.pop(ctx, s.done)
			if !ok {
				return
			}
			select {
			case out <- next:
			case <-ctx.Done():
				return
			case <-s.done:
				return
			}
		}
	}()
	return out
}

// Wait blocks until all started searches have completed.
func (s *Store) Wait() {
	s.wg.Wait()
}

// Close cancels in-flight searches, waits for them and closes watchers.
// Completions arriving after Close are discarded. Safe to call repeatedly.
func (s *Store) Close() {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		s.cancel()
		s.wg.Wait()
		close(s.done)
	})
}

// begin dispatches REQUEST under a fresh generation.
func (s *Store) begin(ctx context.Context, query string) (uint64, bool) {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		logpkg.FromContext(ctx, s.logger).Debug("search ignored, store closed", zap.String("query", query))
		return 0, false
	}
	s.gen++
	gen := s.gen
	s.wg.Add(1)
	s.mu.Unlock()

	s.applyLocked(ctx, state.Request(query, gen))
	return gen, true
}

func (s *Store) run(
	ctx context.Context, gen uint64, query, failMsg string,
	search func(context.Context) ([]product.Product, error),
) {
	go func() {
		defer s.wg.Done()

		opCtx, stop := s.opContext(ctx)
		defer stop()

		products, err := search(opCtx)
		if err != nil {
			logpkg.FromContext(ctx, s.logger).Warn("search failed",
				zap.String("query", query),
				zap.Uint64("generation", gen),
				zap.Error(err),
			)
			s.dispatch(ctx, state.Failure(failMsg, gen))
			return
		}
		s.dispatch(ctx, state.Success(products, gen))
	}()
}

// opContext detaches the search from the caller's cancellation while keeping
// its values, and ties it to the store lifetime instead.
func (s *Store) opContext(ctx context.Context) (context.Context, func()) {
	opCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stopAfter := context.AfterFunc(s.baseCtx, cancel)
	return opCtx, func() {
		stopAfter()
		cancel()
	}
}

func (s *Store) dispatch(ctx context.Context, a state.Action) {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()
	s.applyLocked(ctx, a)
}

// applyLocked reduces a and delivers the result. dispatchMu must be held.
func (s *Store) applyLocked(ctx context.Context, a state.Action) {
	s.mu.Lock()
	if a.Terminal() && (s.closed || a.Generation != s.state.Generation) {
		current := s.state.Generation
		s.mu.Unlock()
		metrics.StoreTransitionsTotal.WithLabelValues(string(a.Kind), "false").Inc()
		logpkg.FromContext(ctx, s.logger).Debug("discarding stale search result",
			zap.String("action", string(a.Kind)),
			zap.Uint64("generation", a.Generation),
			zap.Uint64("current", current),
		)
		return
	}
	next := state.Reduce(s.state, a)
	s.state = next
	listeners := slices.Clone(s.listeners)
	s.mu.Unlock()

	metrics.StoreTransitionsTotal.WithLabelValues(string(a.Kind), "true").Inc()
	for _, sub := range listeners {
		sub.fn(next)
	}
}
