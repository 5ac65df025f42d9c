package searchapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/kailas-cloud/shopsearch/internal/domain"
	"github.com/kailas-cloud/shopsearch/internal/domain/upload"
	"github.com/kailas-cloud/shopsearch/internal/metrics"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Config{BaseURL: srv.URL, HealthPath: "/actuator/health", Logger: zap.NewNop()})
}

func writeJSON(t *testing.T, w http.ResponseWriter, body string) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, body)
}

func TestSearchProducts_RequestEnvelope(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/api/graphql" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type %q", ct)
		}

		var req struct {
			Query     string         `json:"query"`
			Variables map[string]any `json:"variables"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if !strings.Contains(req.Query, "searchProducts(query: $query, topN: $topN)") {
			t.Errorf("unexpected document: %s", req.Query)
		}
		if strings.Contains(req.Query, "red rose") {
			t.Error("user input must not be interpolated into the document")
		}
		if req.Variables["query"] != "red rose" {
			t.Errorf("unexpected query variable: %v", req.Variables["query"])
		}
		if req.Variables["topN"] != float64(5) {
			t.Errorf("unexpected topN variable: %v", req.Variables["topN"])
		}

		writeJSON(t, w, `{"data":{"searchProducts":[]}}`)
	})

	products, err := c.SearchProducts(context.Background(), "red rose", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if products == nil || len(products) != 0 {
		t.Fatalf("expected empty non-nil slice, got %v", products)
	}
}

func TestSearchProducts_Normalizes(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, `{"data":{"searchProducts":[
			{"id": 52488, "productDisplayName": "red rose red camisole", "similarity": 0.118, "imageUrl": null},
			{"id": "1163", "productDisplayName": "sample", "similarity": 0.82, "imageUrl": "https://cdn/1163.jpg"}
		]}}`)
	})

	products, err := c.SearchProducts(context.Background(), "red rose", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(products) != 2 {
		t.Fatalf("expected 2 products, got %d", len(products))
	}
	if products[0].ID != "52488" || products[0].ImageURL != "/image/52488" {
		t.Errorf("unexpected first product: %+v", products[0])
	}
	if products[1].ID != "1163" || products[1].ImageURL != "https://cdn/1163.jpg" {
		t.Errorf("unexpected second product: %+v", products[1])
	}
}

func TestSearchProducts_MissingData(t *testing.T) {
	for _, body := range []string{`{}`, `{"data":null}`, `{"data":{}}`, `{"data":{"searchProducts":null}}`} {
		t.Run(body, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(t, w, body)
			})
			products, err := c.SearchProducts(context.Background(), "q", 5)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if products == nil || len(products) != 0 {
				t.Fatalf("expected empty slice, got %v", products)
			}
		})
	}
}

func TestSearchProducts_GraphQLErrors(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, `{"errors":[{"message":"embedding service down"},{"message":"second"}]}`)
	})

	_, err := c.SearchProducts(context.Background(), "q", 5)
	if !errors.Is(err, domain.ErrBackendQuery) {
		t.Fatalf("expected ErrBackendQuery, got %v", err)
	}
	var gqlErr *domain.GraphQLError
	if !errors.As(err, &gqlErr) {
		t.Fatalf("expected *GraphQLError, got %T", err)
	}
	if err.Error() != "embedding service down" {
		t.Errorf("expected first message surfaced, got %q", err.Error())
	}
	if len(gqlErr.Messages) != 2 {
		t.Errorf("expected all messages kept, got %v", gqlErr.Messages)
	}
}

func TestSearchProducts_StatusError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"message":"Vector search failed"}`)
	})

	_, err := c.SearchProducts(context.Background(), "q", 5)
	if !errors.Is(err, domain.ErrBackendStatus) {
		t.Fatalf("expected ErrBackendStatus, got %v", err)
	}
	var se *domain.StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StatusError, got %T", err)
	}
	if se.Code != http.StatusInternalServerError || se.Body != "Vector search failed" {
		t.Errorf("unexpected status error: %+v", se)
	}
}

func TestSearchProducts_InvalidBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, `<html>`)
	})

	_, err := c.SearchProducts(context.Background(), "q", 5)
	if !errors.Is(err, domain.ErrBackendResponse) {
		t.Fatalf("expected ErrBackendResponse, got %v", err)
	}
}

func TestSearchProducts_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(Config{BaseURL: url})
	_, err := c.SearchProducts(context.Background(), "q", 5)
	if !errors.Is(err, domain.ErrBackendUnavailable) {
		t.Fatalf("expected ErrBackendUnavailable, got %v", err)
	}
}

func TestSearchProducts_Validation(t *testing.T) {
	c := New(Config{BaseURL: "http://127.0.0.1:1"})

	if _, err := c.SearchProducts(context.Background(), "   ", 5); !errors.Is(err, domain.ErrEmptyQuery) {
		t.Errorf("expected ErrEmptyQuery, got %v", err)
	}
	if _, err := c.SearchProducts(context.Background(), "q", 0); !errors.Is(err, domain.ErrInvalidTopN) {
		t.Errorf("expected ErrInvalidTopN, got %v", err)
	}
}

func TestSearchProducts_RecordsMetrics(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, `{"data":{"searchProducts":[]}}`)
	})

	before := testutil.ToFloat64(metrics.BackendRequestsTotal.WithLabelValues("search_products", "ok"))
	if _, err := c.SearchProducts(context.Background(), "q", 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	after := testutil.ToFloat64(metrics.BackendRequestsTotal.WithLabelValues("search_products", "ok"))
	if after != before+1 {
		t.Errorf("expected counter to grow by 1, got %f -> %f", before, after)
	}
}

func TestSearchProductsByImage_Multipart(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/image-search" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		if got := r.FormValue("topN"); got != "10" {
			t.Errorf("expected topN=10, got %q", got)
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		if string(data) != "fake-image" {
			t.Errorf("unexpected file content %q", data)
		}
		if hdr.Filename != "query.jpg" {
			t.Errorf("unexpected filename %q", hdr.Filename)
		}
		if ct := hdr.Header.Get("Content-Type"); ct != "image/jpeg" {
			t.Errorf("unexpected part content type %q", ct)
		}

		writeJSON(t, w, `[{"id": 1163, "productDisplayName": "sample image product", "similarity": 0.82}]`)
	})

	file := upload.File{Name: "query.jpg", ContentType: "image/jpeg", Data: []byte("fake-image")}
	products, err := c.SearchProductsByImage(context.Background(), file, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(products) != 1 {
		t.Fatalf("expected 1 product, got %d", len(products))
	}
	if products[0].ID != "1163" || products[0].ImageURL != "/image/1163" {
		t.Errorf("unexpected product: %+v", products[0])
	}
}

func TestSearchProductsByImage_Validation(t *testing.T) {
	c := New(Config{BaseURL: "http://127.0.0.1:1"})
	file := upload.File{Name: "q.jpg", Data: []byte("x")}

	if _, err := c.SearchProductsByImage(context.Background(), upload.File{Name: "q.jpg"}, 5); !errors.Is(err, domain.ErrEmptyImage) {
		t.Errorf("expected ErrEmptyImage, got %v", err)
	}
	if _, err := c.SearchProductsByImage(context.Background(), file, -1); !errors.Is(err, domain.ErrInvalidTopN) {
		t.Errorf("expected ErrInvalidTopN, got %v", err)
	}
}

func TestSearchProductsByImage_StatusError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "Uploaded image is empty", http.StatusBadRequest)
	})

	file := upload.File{Name: "q.jpg", Data: []byte("x")}
	_, err := c.SearchProductsByImage(context.Background(), file, 5)
	var se *domain.StatusError
	if !errors.As(err, &se) || se.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 StatusError, got %v", err)
	}
	if se.Body != "Uploaded image is empty" {
		t.Errorf("unexpected body %q", se.Body)
	}
}

func TestHealthCheck(t *testing.T) {
	healthy := true
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/actuator/health" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if !healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	})

	if err := c.HealthCheck(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	healthy = false
	if err := c.HealthCheck(context.Background()); !errors.Is(err, domain.ErrBackendStatus) {
		t.Fatalf("expected ErrBackendStatus, got %v", err)
	}
}

func TestHealthCheck_Unconfigured(t *testing.T) {
	c := New(Config{BaseURL: "http://127.0.0.1:1"})
	if err := c.HealthCheck(context.Background()); err != nil {
		t.Fatalf("expected no-op health check, got %v", err)
	}
}
