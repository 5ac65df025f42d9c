// Package state holds the search state snapshot and the pure reducer that
// produces every new snapshot.
package state

import "github.com/kailas-cloud/shopsearch/internal/domain/product"

// State is one immutable snapshot of the search experience.
type State struct {
	Query       string            `json:"query"`
	Products    []product.Product `json:"products"`
	Loading     bool              `json:"loading"`
	Error       string            `json:"error"`
	HasSearched bool              `json:"hasSearched"`
	// Generation identifies the request that produced the snapshot.
	Generation uint64 `json:"generation"`
}

// Initial returns the state before the first user interaction.
func Initial() State {
	return State{Products: []product.Product{}}
}

// Kind enumerates reducer actions.
type Kind string

const (
	// KindRequest starts a search.
	KindRequest Kind = "REQUEST"
	// KindSuccess completes a search with results.
	KindSuccess Kind = "SUCCESS"
	// KindFailure completes a search with an error.
	KindFailure Kind = "FAILURE"
)

// Action is a discrete state transition.
type Action struct {
	Kind       Kind
	Generation uint64
	Query      string
	Products   []product.Product
	Err        string
}

// Request builds a REQUEST action.
func Request(query string, generation uint64) Action {
	return Action{Kind: KindRequest, Query: query, Generation: generation}
}

// Success builds a SUCCESS action.
func Success(products []product.Product, generation uint64) Action {
	return Action{Kind: KindSuccess, Products: products, Generation: generation}
}

// Failure builds a FAILURE action.
func Failure(err string, generation uint64) Action {
	return Action{Kind: KindFailure, Err: err, Generation: generation}
}

// Reduce applies an action to a snapshot and returns the next snapshot.
// It never mutates s. Unknown kinds return s unchanged.
func Reduce(s State, a Action) State {
	switch a.Kind {
	case KindRequest:
		s.Query = a.Query
		s.Products = []product.Product{}
		s.Loading = true
		s.Error = ""
		s.HasSearched = true
		s.Generation = a.Generation
	case KindSuccess:
		products := make([]product.Product, len(a.Products))
		copy(products, a.Products)
		s.Products = products
		s.Loading = false
	case KindFailure:
		s.Error = a.Err
		s.Loading = false
	}
	return s
}

// Terminal reports whether the action completes a search.
func (a Action) Terminal() bool {
	return a.Kind == KindSuccess || a.Kind == KindFailure
}
