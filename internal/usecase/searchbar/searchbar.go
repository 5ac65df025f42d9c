// Package searchbar holds the user's draft search and turns it into search
// requests.
package searchbar

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/kailas-cloud/shopsearch/internal/domain"
	"github.com/kailas-cloud/shopsearch/internal/domain/upload"
)

// DefaultTopN is the initial number of results requested.
const DefaultTopN = 20

// DefaultTopNOptions are the result counts offered to the user.
var DefaultTopNOptions = []int{5, 10, 20, 30, 50}

// DefaultQuickQueries are one-click example queries.
var DefaultQuickQueries = []string{
	"red floral dress",
	"formal black blazer",
	"running shoes for men",
}

// Request is an emitted text search.
type Request struct {
	Query string
	TopN  int
}

// ImageRequest is an emitted image search.
type ImageRequest struct {
	File upload.File
	TopN int
}

// Config customizes the bar. Zero values select the defaults.
type Config struct {
	DefaultTopN  int
	TopNOptions  []int
	QuickQueries []string
}

// Draft is a snapshot of the bar's editable state.
type Draft struct {
	Query        string
	TopN         int
	TopNOptions  []int
	QuickQueries []string
	ImageName    string
}

// Bar is the search input. Safe for concurrent use.
type Bar struct {
	onSearch      func(context.Context, Request)
	onImageSearch func(context.Context, ImageRequest)
	topNOptions   []int
	quickQueries  []string

	mu    sync.Mutex
	query string
	topN  int
	image *upload.File
}

// New creates a Bar that emits requests to the given callbacks.
func New(
	cfg Config,
	onSearch func(context.Context, Request),
	onImageSearch func(context.Context, ImageRequest),
) *Bar {
	b := &Bar{
		onSearch:      onSearch,
		onImageSearch: onImageSearch,
		topN:          cfg.DefaultTopN,
		topNOptions:   cfg.TopNOptions,
		quickQueries:  cfg.QuickQueries,
	}
	if b.topN <= 0 {
		b.topN = DefaultTopN
	}
	if len(b.topNOptions) == 0 {
		b.topNOptions = DefaultTopNOptions
	}
	if b.quickQueries == nil {
		b.quickQueries = DefaultQuickQueries
	}
	return b
}

// SetQuery replaces the draft query.
func (b *Bar) SetQuery(q string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.query = q
}

// SetTopN changes the requested result count.
func (b *Bar) SetTopN(n int) error {
	if n <= 0 {
		return domain.ErrInvalidTopN
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.topN = n
	return nil
}

// SelectImage stores the image for the next image search. An empty file
// clears the selection.
func (b *Bar) SelectImage(f upload.File) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if f.Empty() {
		b.image = nil
		return
	}
	b.image = &f
}

// Draft returns the current editable state.
func (b *Bar) Draft() Draft {
	b.mu.Lock()
	defer b.mu.Unlock()

	d := Draft{
		Query:        b.query,
		TopN:         b.topN,
		TopNOptions:  slices.Clone(b.topNOptions),
		QuickQueries: slices.Clone(b.quickQueries),
	}
	if b.image != nil {
		d.ImageName = b.image.Name
	}
	return d
}

// Submit emits a text search for the trimmed draft query. A blank query
// emits nothing and reports false.
func (b *Bar) Submit(ctx context.Context) bool {
	b.mu.Lock()
	req := Request{Query: strings.TrimSpace(b.query), TopN: b.topN}
	b.mu.Unlock()

	if req.Query == "" {
		return false
	}
	if b.onSearch != nil {
		b.onSearch(ctx, req)
	}
	return true
}

// UseQuickQuery sets the draft to q and submits it.
func (b *Bar) UseQuickQuery(ctx context.Context, q string) bool {
	b.SetQuery(q)
	return b.Submit(ctx)
}

// SubmitImage emits an image search for the selected file. Without a
// selection it emits nothing and reports false.
func (b *Bar) SubmitImage(ctx context.Context) bool {
	b.mu.Lock()
	if b.image == nil {
		b.mu.Unlock()
		return false
	}
	req := ImageRequest{File: *b.image, TopN: b.topN}
	b.mu.Unlock()

	if b.onImageSearch != nil {
		b.onImageSearch(ctx, req)
	}
	return true
}
