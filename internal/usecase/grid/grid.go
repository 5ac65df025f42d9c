// Package grid paginates a result set and tracks per-product image failures.
package grid

import (
	"fmt"
	"sync"

	"github.com/kailas-cloud/shopsearch/internal/domain/product"
)

// DefaultPageSize is the number of products per page.
const DefaultPageSize = 8

// Confidence thresholds over backend similarity scores.
const (
	HighMatchThreshold     = 0.12
	ModerateMatchThreshold = 0.08
)

// Grid is the paginated view over the current result set. Safe for
// concurrent use.
type Grid struct {
	mu       sync.Mutex
	pageSize int
	products []product.Product
	page     int
	failed   map[string]struct{}
}

// New creates an empty Grid. A non-positive pageSize selects DefaultPageSize.
func New(pageSize int) *Grid {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Grid{
		pageSize: pageSize,
		products: []product.Product{},
		page:     1,
		failed:   map[string]struct{}{},
	}
}

// SetProducts replaces the result set, returns to page 1 and forgets image
// failures of the previous set.
func (g *Grid) SetProducts(products []product.Product) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.products = append([]product.Product{}, products...)
	g.page = 1
	g.failed = map[string]struct{}{}
}

// PageSize returns the configured page size.
func (g *Grid) PageSize() int { return g.pageSize }

// Page returns the current 1-based page.
func (g *Grid) Page() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.page
}

// Total returns the number of products in the result set.
func (g *Grid) Total() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.products)
}

// TotalPages returns ceil(total / pageSize); zero for an empty set.
func (g *Grid) TotalPages() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.totalPages()
}

// Items returns the products on the current page.
func (g *Grid) Items() []product.Product {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.items()
}

// GoToPage moves to page p. Out-of-range pages are rejected and leave the
// grid unchanged.
func (g *Grid) GoToPage(p int) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if p < 1 || p > g.totalPages() {
		return false
	}
	g.page = p
	return true
}

// NextPage advances one page if possible.
func (g *Grid) NextPage() bool {
	g.mu.Lock()
	p := g.page + 1
	g.mu.Unlock()
	return g.GoToPage(p)
}

// PrevPage goes back one page if possible.
func (g *Grid) PrevPage() bool {
	g.mu.Lock()
	p := g.page - 1
	g.mu.Unlock()
	return g.GoToPage(p)
}

// Summary describes the visible range, e.g. "Showing 1-8 of 12".
func (g *Grid) Summary() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.summary()
}

// ShowImage reports whether p's image should be rendered: it has an image URL
// and that image has not failed to load in the current result set.
func (g *Grid) ShowImage(p product.Product) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.showImage(p)
}

// MarkImageFailed records that the image of product id failed to load. The
// mark lasts until the next SetProducts.
func (g *Grid) MarkImageFailed(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failed[id] = struct{}{}
}

// Item is one rendered card.
type Item struct {
	product.Product
	ShowImage  bool
	Confidence string
	Percent    float64
}

// View is a consistent snapshot of the grid for rendering.
type View struct {
	Items      []Item
	Page       int
	TotalPages int
	Total      int
	Summary    string
	HasPrev    bool
	HasNext    bool
}

// View returns the current page as render-ready items.
func (g *Grid) View() View {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.view()
}

// ViewFor returns the view the grid shows while it holds products: the
// current page when products has the ids of the current result set,
// otherwise page 1 of products with no image failures.
func (g *Grid) ViewFor(products []product.Product) View {
	g.mu.Lock()
	defer g.mu.Unlock()

	if product.SameIDs(g.products, products) {
		return g.view()
	}
	next := &Grid{pageSize: g.pageSize, products: products, page: 1, failed: map[string]struct{}{}}
	return next.view()
}

func (g *Grid) view() View {
	visible := g.items()
	items := make([]Item, len(visible))
	for i, p := range visible {
		items[i] = Item{
			Product:    p,
			ShowImage:  g.showImage(p),
			Confidence: ConfidenceLabel(p.Similarity),
			Percent:    SimilarityPercent(p.Similarity),
		}
	}
	total := g.totalPages()
	return View{
		Items:      items,
		Page:       g.page,
		TotalPages: total,
		Total:      len(g.products),
		Summary:    g.summary(),
		HasPrev:    g.page > 1,
		HasNext:    g.page < total,
	}
}

func (g *Grid) totalPages() int {
	return (len(g.products) + g.pageSize - 1) / g.pageSize
}

func (g *Grid) bounds() (start, end int) {
	start = min((g.page-1)*g.pageSize, len(g.products))
	end = min(start+g.pageSize, len(g.products))
	return start, end
}

func (g *Grid) items() []product.Product {
	start, end := g.bounds()
	out := make([]product.Product, end-start)
	copy(out, g.products[start:end])
	return out
}

func (g *Grid) summary() string {
	if len(g.products) == 0 {
		return "Showing 0-0 of 0"
	}
	start, end := g.bounds()
	return fmt.Sprintf("Showing %d-%d of %d", start+1, end, len(g.products))
}

func (g *Grid) showImage(p product.Product) bool {
	if !p.HasImage() {
		return false
	}
	_, failed := g.failed[p.ID]
	return !failed
}

// ConfidenceLabel buckets a similarity score for display.
func ConfidenceLabel(similarity float64) string {
	switch {
	case similarity >= HighMatchThreshold:
		return "High match"
	case similarity >= ModerateMatchThreshold:
		return "Moderate match"
	default:
		return "Candidate match"
	}
}

// SimilarityPercent converts a similarity score to a percentage in [0, 100].
func SimilarityPercent(similarity float64) float64 {
	return max(0, min(100, similarity*100))
}

// EmptyMessage is shown when a search returned nothing.
func EmptyMessage(query string) string {
	return fmt.Sprintf("No products found for %q", query)
}
