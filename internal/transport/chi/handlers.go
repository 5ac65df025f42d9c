package chi

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/kailas-cloud/shopsearch/internal/domain/upload"
	logpkg "github.com/kailas-cloud/shopsearch/internal/logger"
	healthuc "github.com/kailas-cloud/shopsearch/internal/usecase/health"
)

const wsWriteTimeout = 10 * time.Second

// Index handles GET /.
func (s *Server) Index(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	vm := s.sessionView(sess, sess.State())

	var buf bytes.Buffer
	if err := s.page.Execute(&buf, vm); err != nil {
		logpkg.FromContext(r.Context(), s.logger).Error("render page", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = buf.WriteTo(w)
}

// Search handles POST /search. A "quick" field runs a preset query.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid form")
		return
	}
	if !s.applyTopN(w, r) {
		return
	}

	if quick := r.PostForm.Get("quick"); quick != "" {
		sess.Bar.UseQuickQuery(r.Context(), quick)
	} else {
		sess.Bar.SetQuery(r.PostForm.Get("query"))
		sess.Bar.Submit(r.Context())
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// ImageSearch handles POST /image-search.
func (s *Server) ImageSearch(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "too_large", "uploaded image is too large")
			return
		}
		writeError(w, http.StatusBadRequest, "bad_request", "invalid multipart form")
		return
	}
	if !s.applyTopN(w, r) {
		return
	}

	file, hdr, err := r.FormFile("file")
	switch {
	case err == nil:
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", "failed to read uploaded image")
			return
		}
		sess.Bar.SelectImage(upload.New(hdr.Filename, hdr.Header.Get("Content-Type"), data))
	case errors.Is(err, http.ErrMissingFile):
		// Reuse the previously selected image, if any.
	default:
		writeError(w, http.StatusBadRequest, "bad_request", "invalid file field")
		return
	}

	sess.Bar.SubmitImage(r.Context())
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// applyTopN updates the bar's result count from an optional topN field.
func (s *Server) applyTopN(w http.ResponseWriter, r *http.Request) bool {
	raw := strings.TrimSpace(r.FormValue("topN"))
	if raw == "" {
		return true
	}
	n, err := strconv.Atoi(raw)
	if err == nil {
		err = sessionFrom(r.Context()).Bar.SetTopN(n)
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_top_n", "topN must be a positive integer")
		return false
	}
	return true
}

// GoToPage handles GET /page/{n}. Out-of-range pages leave the grid as is.
func (s *Server) GoToPage(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(chi.URLParam(r, "n"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "page must be a number")
		return
	}
	sessionFrom(r.Context()).Grid.GoToPage(n)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// ImageFailed handles POST /images/{id}/failed.
func (s *Server) ImageFailed(w http.ResponseWriter, r *http.Request) {
	sessionFrom(r.Context()).Grid.MarkImageFailed(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

// State handles GET /api/state.
func (s *Server) State(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	writeJSON(w, http.StatusOK, s.sessionView(sess, sess.State()))
}

// Watch handles GET /ws: one view model message per accepted snapshot,
// starting with the current one.
func (s *Server) Watch(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	log := logpkg.FromContext(r.Context(), s.logger)

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	defer cancel()

	// The reader only detects the peer going away.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for st := range sess.Store.Watch(ctx) {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteJSON(s.sessionView(sess, st)); err != nil {
			log.Debug("websocket write failed", zap.Error(err))
			return
		}
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(time.Second))
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	status := http.StatusOK
	if report.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}
