package searchbar

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/shopsearch/internal/domain"
	"github.com/kailas-cloud/shopsearch/internal/domain/upload"
)

type sink struct {
	requests []Request
	images   []ImageRequest
}

func (s *sink) search(_ context.Context, r Request)           { s.requests = append(s.requests, r) }
func (s *sink) imageSearch(_ context.Context, r ImageRequest) { s.images = append(s.images, r) }

func newTestBar() (*Bar, *sink) {
	s := &sink{}
	return New(Config{}, s.search, s.imageSearch), s
}

func TestDefaults(t *testing.T) {
	b, _ := newTestBar()
	d := b.Draft()

	if d.TopN != 20 {
		t.Errorf("expected default topN 20, got %d", d.TopN)
	}
	if len(d.TopNOptions) != 5 || d.TopNOptions[0] != 5 || d.TopNOptions[4] != 50 {
		t.Errorf("unexpected options %v", d.TopNOptions)
	}
	if len(d.QuickQueries) != 3 || d.QuickQueries[0] != "red floral dress" {
		t.Errorf("unexpected quick queries %v", d.QuickQueries)
	}
}

func TestSubmit_Trims(t *testing.T) {
	b, s := newTestBar()
	b.SetQuery("  red dress  ")

	if !b.Submit(context.Background()) {
		t.Fatal("expected submit")
	}
	if len(s.requests) != 1 || s.requests[0].Query != "red dress" || s.requests[0].TopN != 20 {
		t.Fatalf("unexpected requests %+v", s.requests)
	}
}

func TestSubmit_BlankIgnored(t *testing.T) {
	b, s := newTestBar()

	for _, q := range []string{"", "   ", "\t\n"} {
		b.SetQuery(q)
		if b.Submit(context.Background()) {
			t.Errorf("expected %q ignored", q)
		}
	}
	if len(s.requests) != 0 {
		t.Fatalf("expected no requests, got %+v", s.requests)
	}
}

func TestSetTopN(t *testing.T) {
	b, s := newTestBar()

	if err := b.SetTopN(0); !errors.Is(err, domain.ErrInvalidTopN) {
		t.Fatalf("expected ErrInvalidTopN, got %v", err)
	}
	if err := b.SetTopN(5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b.SetQuery("shoes")
	b.Submit(context.Background())

	if s.requests[0].TopN != 5 {
		t.Fatalf("expected topN 5, got %d", s.requests[0].TopN)
	}
}

func TestUseQuickQuery(t *testing.T) {
	b, s := newTestBar()

	if !b.UseQuickQuery(context.Background(), "formal black blazer") {
		t.Fatal("expected submit")
	}
	if b.Draft().Query != "formal black blazer" {
		t.Error("expected draft updated")
	}
	if len(s.requests) != 1 || s.requests[0].Query != "formal black blazer" {
		t.Fatalf("unexpected requests %+v", s.requests)
	}
}

func TestSubmitImage(t *testing.T) {
	b, s := newTestBar()

	if b.SubmitImage(context.Background()) {
		t.Fatal("expected no image search without selection")
	}

	b.SelectImage(upload.File{Name: "shoe.jpg", Data: []byte("jpg")})
	if got := b.Draft().ImageName; got != "shoe.jpg" {
		t.Fatalf("expected selected name, got %q", got)
	}
	_ = b.SetTopN(10)

	if !b.SubmitImage(context.Background()) {
		t.Fatal("expected image search")
	}
	if len(s.images) != 1 || s.images[0].File.Name != "shoe.jpg" || s.images[0].TopN != 10 {
		t.Fatalf("unexpected image requests %+v", s.images)
	}
	if len(s.requests) != 0 {
		t.Fatal("image search must not emit a text request")
	}

	b.SelectImage(upload.File{})
	if b.SubmitImage(context.Background()) {
		t.Fatal("expected selection cleared by empty file")
	}
}

func TestNilCallbacks(t *testing.T) {
	b := New(Config{DefaultTopN: 30}, nil, nil)
	b.SetQuery("q")
	if !b.Submit(context.Background()) {
		t.Fatal("expected submit to report true")
	}
	if b.Draft().TopN != 30 {
		t.Fatal("expected configured default topN")
	}
}
