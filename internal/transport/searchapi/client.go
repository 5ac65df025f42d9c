// Package searchapi talks to the external product search backend: GraphQL
// for text queries and a multipart endpoint for image queries.
package searchapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/shopsearch/internal/domain"
	"github.com/kailas-cloud/shopsearch/internal/domain/product"
	"github.com/kailas-cloud/shopsearch/internal/domain/upload"
)

// searchProductsDocument is sent verbatim; user input only travels in variables.
const searchProductsDocument = `query SearchProducts($query: String!, $topN: Int!) {
  searchProducts(query: $query, topN: $topN) {
    id
    productDisplayName
    similarity
    imageUrl
  }
}`

// maxErrorBody bounds how much of a failed response is kept for diagnostics.
const maxErrorBody = 512

// Config holds the backend location and transport settings.
type Config struct {
	BaseURL         string
	GraphQLPath     string
	ImageSearchPath string
	HealthPath      string
	// Timeout bounds each request; zero means no timeout.
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client is the search backend client.
type Client struct {
	http           *http.Client
	graphqlURL     string
	imageSearchURL string
	healthURL      string
	obs            *observer
}

// New creates a Client.
func New(cfg Config) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	base := strings.TrimRight(cfg.BaseURL, "/")

	c := &Client{
		http:           hc,
		graphqlURL:     base + withDefault(cfg.GraphQLPath, "/api/graphql"),
		imageSearchURL: base + withDefault(cfg.ImageSearchPath, "/api/image-search"),
		obs:            newObserver(logger),
	}
	if cfg.HealthPath != "" {
		c.healthURL = base + cfg.HealthPath
	}
	return c
}

func withDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphqlResponse struct {
	Data *struct {
		SearchProducts []product.Record `json:"searchProducts"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// SearchProducts runs a text search and returns normalized products in
// backend order.
func (c *Client) SearchProducts(ctx context.Context, query string, topN int) (products []product.Product, err error) {
	start := time.Now()
	defer func() { c.obs.observe(ctx, "search_products", start, len(products), err) }()

	if strings.TrimSpace(query) == "" {
		return nil, domain.ErrEmptyQuery
	}
	if topN <= 0 {
		return nil, domain.ErrInvalidTopN
	}

	body, err := json.Marshal(graphqlRequest{
		Query:     searchProductsDocument,
		Variables: map[string]any{"query": query, "topN": topN},
	})
	if err != nil {
		return nil, fmt.Errorf("encode graphql request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.graphqlURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build graphql request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	var resp graphqlResponse
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}

	if len(resp.Errors) > 0 {
		msgs := make([]string, len(resp.Errors))
		for i, e := range resp.Errors {
			msgs[i] = e.Message
		}
		return nil, &domain.GraphQLError{Messages: msgs}
	}

	if resp.Data == nil {
		return []product.Product{}, nil
	}
	return product.NormalizeAll(resp.Data.SearchProducts), nil
}

// SearchProductsByImage uploads an image and returns normalized products in
// backend order.
func (c *Client) SearchProductsByImage(
	ctx context.Context, file upload.File, topN int,
) (products []product.Product, err error) {
	start := time.Now()
	defer func() { c.obs.observe(ctx, "search_products_by_image", start, len(products), err) }()

	if file.Empty() {
		return nil, domain.ErrEmptyImage
	}
	if topN <= 0 {
		return nil, domain.ErrInvalidTopN
	}

	body, contentType, err := multipartBody(file, topN)
	if err != nil {
		return nil, fmt.Errorf("encode image request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.imageSearchURL, body)
	if err != nil {
		return nil, fmt.Errorf("build image request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	var records []product.Record
	if err := c.do(req, &records); err != nil {
		return nil, err
	}
	return product.NormalizeAll(records), nil
}

// HealthCheck probes the backend health path. Without a configured path it
// always succeeds.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.healthURL == "" {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.healthURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("build health request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("health check: %w: %w", domain.ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &domain.StatusError{Code: resp.StatusCode}
	}
	return nil
}

func multipartBody(file upload.File, topN int) (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="file"; filename=%q`, withDefault(file.Name, "upload")))
	h.Set("Content-Type", withDefault(file.ContentType, "application/octet-stream"))
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("create file part: %w", err)
	}
	if _, err := part.Write(file.Data); err != nil {
		return nil, "", fmt.Errorf("write file part: %w", err)
	}
	if err := w.WriteField("topN", strconv.Itoa(topN)); err != nil {
		return nil, "", fmt.Errorf("write topN field: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}
	return buf, w.FormDataContentType(), nil
}

// do executes req and decodes a 2xx JSON body into out.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w: %w", req.Method, req.URL.Path, domain.ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &domain.StatusError{Code: resp.StatusCode, Body: extractMessage(snippet)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("empty body: %w", domain.ErrBackendResponse)
		}
		return fmt.Errorf("decode response: %w: %w", domain.ErrBackendResponse, err)
	}
	return nil
}

// extractMessage pulls a human-readable message out of a JSON error body
// (Spring's {"message": ...} or {"error": ...}); falls back to the raw text.
func extractMessage(body []byte) string {
	var parsed struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &parsed) == nil {
		if parsed.Message != "" {
			return parsed.Message
		}
		if parsed.Error != "" {
			return parsed.Error
		}
	}
	return strings.TrimSpace(string(body))
}
