package chi

import (
	"fmt"
	"html/template"

	"github.com/kailas-cloud/shopsearch/internal/domain/state"
	"github.com/kailas-cloud/shopsearch/internal/usecase/grid"
	"github.com/kailas-cloud/shopsearch/internal/usecase/searchbar"
	"github.com/kailas-cloud/shopsearch/internal/usecase/session"
)

var templateFuncs = template.FuncMap{
	"percent": func(v float64) string { return fmt.Sprintf("%.1f%%", v) },
	"inc":     func(n int) int { return n + 1 },
	"dec":     func(n int) int { return n - 1 },
}

type itemView struct {
	ID                 string  `json:"id"`
	ProductDisplayName string  `json:"productDisplayName"`
	Similarity         float64 `json:"similarity"`
	ImageURL           string  `json:"imageUrl"`
	MasterCategory     string  `json:"masterCategory,omitempty"`
	SubCategory        string  `json:"subCategory,omitempty"`
	BaseColour         string  `json:"baseColour,omitempty"`
	ShowImage          bool    `json:"showImage"`
	Confidence         string  `json:"confidence"`
	Percent            float64 `json:"percent"`
}

type draftView struct {
	Query        string   `json:"query"`
	TopN         int      `json:"topN"`
	TopNOptions  []int    `json:"topNOptions"`
	QuickQueries []string `json:"quickQueries"`
	ImageName    string   `json:"imageName,omitempty"`
}

// viewModel is everything the page and the websocket feed render.
type viewModel struct {
	Query        string     `json:"query"`
	Loading      bool       `json:"loading"`
	Error        string     `json:"error"`
	HasSearched  bool       `json:"hasSearched"`
	Generation   uint64     `json:"generation"`
	Placeholders []int      `json:"-"`
	Items        []itemView `json:"items"`
	Summary      string     `json:"summary"`
	Page         int        `json:"page"`
	TotalPages   int        `json:"totalPages"`
	Total        int        `json:"total"`
	Pages        []int      `json:"-"`
	HasPrev      bool       `json:"hasPrev"`
	HasNext      bool       `json:"hasNext"`
	Empty        bool       `json:"empty"`
	EmptyMessage string     `json:"emptyMessage,omitempty"`
	Draft        draftView  `json:"draft"`
}

func newViewModel(st state.State, g grid.View, d searchbar.Draft, placeholders int) viewModel {
	vm := viewModel{
		Query:       st.Query,
		Loading:     st.Loading,
		Error:       st.Error,
		HasSearched: st.HasSearched,
		Generation:  st.Generation,
		Items:       make([]itemView, len(g.Items)),
		Summary:     g.Summary,
		Page:        g.Page,
		TotalPages:  g.TotalPages,
		Total:       g.Total,
		HasPrev:     g.HasPrev,
		HasNext:     g.HasNext,
		Draft: draftView{
			Query:        d.Query,
			TopN:         d.TopN,
			TopNOptions:  d.TopNOptions,
			QuickQueries: d.QuickQueries,
			ImageName:    d.ImageName,
		},
	}
	if st.Loading {
		vm.Placeholders = make([]int, placeholders)
		for i := range vm.Placeholders {
			vm.Placeholders[i] = i + 1
		}
	}
	for i, it := range g.Items {
		vm.Items[i] = itemView{
			ID:                 it.ID,
			ProductDisplayName: it.ProductDisplayName,
			Similarity:         it.Similarity,
			ImageURL:           it.ImageURL,
			MasterCategory:     it.MasterCategory,
			SubCategory:        it.SubCategory,
			BaseColour:         it.BaseColour,
			ShowImage:          it.ShowImage,
			Confidence:         it.Confidence,
			Percent:            it.Percent,
		}
	}
	for p := 1; p <= g.TotalPages; p++ {
		vm.Pages = append(vm.Pages, p)
	}
	if st.HasSearched && !st.Loading && st.Error == "" && g.Total == 0 {
		vm.Empty = true
		vm.EmptyMessage = grid.EmptyMessage(st.Query)
	}
	return vm
}

func (s *Server) sessionView(sess *session.Session, st state.State) viewModel {
	return newViewModel(st, sess.Grid.ViewFor(st.Products), sess.Bar.Draft(), s.cfg.Placeholders)
}
