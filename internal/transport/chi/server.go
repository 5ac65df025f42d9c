// Package chi serves the search front end over HTTP: HTML pages, form
// endpoints, a websocket state feed and operational routes.
package chi

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/shopsearch/internal/metrics"
	healthuc "github.com/kailas-cloud/shopsearch/internal/usecase/health"
	"github.com/kailas-cloud/shopsearch/internal/usecase/session"
)

//go:embed templates/*.html
var templateFS embed.FS

// DefaultPlaceholders is the number of skeleton cards shown while loading.
const DefaultPlaceholders = 4

// Config holds transport settings.
type Config struct {
	CookieName     string
	SecureCookie   bool
	MaxUploadBytes int64
	// BackendURL and ImagePath locate product images behind /image/.
	BackendURL   string
	ImagePath    string
	Placeholders int
	// MetricsHandler serves /metrics; nil selects promhttp.Handler().
	MetricsHandler http.Handler
}

// Server holds the HTTP handlers.
type Server struct {
	cfg        Config
	sessions   *session.Manager
	health     *healthuc.Service
	logger     *zap.Logger
	page       *template.Template
	imageProxy http.Handler
	upgrader   websocket.Upgrader
}

// NewServer creates a Server.
func NewServer(
	cfg Config,
	sessions *session.Manager,
	health *healthuc.Service,
	logger *zap.Logger,
) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CookieName == "" {
		cfg.CookieName = "shopsearch_session"
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 10 << 20
	}
	if cfg.Placeholders <= 0 {
		cfg.Placeholders = DefaultPlaceholders
	}
	if cfg.ImagePath == "" {
		cfg.ImagePath = "/image/"
	}
	if cfg.MetricsHandler == nil {
		cfg.MetricsHandler = promhttp.Handler()
	}

	page, err := template.New("index.html").Funcs(templateFuncs).ParseFS(templateFS, "templates/index.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	backend, err := url.Parse(cfg.BackendURL)
	if err != nil || backend.Scheme == "" || backend.Host == "" {
		return nil, fmt.Errorf("invalid backend url %q", cfg.BackendURL)
	}

	return &Server{
		cfg:        cfg,
		sessions:   sessions,
		health:     health,
		logger:     logger,
		page:       page,
		imageProxy: newImageProxy(backend, cfg.ImagePath, logger),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}, nil
}

// Handler builds the router with the full middleware stack.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(jsonRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(s.logger))
	r.Use(metrics.Middleware())

	r.Get("/health", s.HealthCheck)
	r.Method(http.MethodGet, "/metrics", s.cfg.MetricsHandler)
	r.Method(http.MethodGet, "/image/*", s.imageProxy)

	r.Group(func(r chi.Router) {
		r.Use(s.sessionMiddleware)

		r.Get("/", s.Index)
		r.Post("/search", s.Search)
		r.Post("/image-search", s.ImageSearch)
		r.Get("/page/{n}", s.GoToPage)
		r.Post("/images/{id}/failed", s.ImageFailed)
		r.Get("/api/state", s.State)
		r.Get("/ws", s.Watch)
	})
	return r
}
