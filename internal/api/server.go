package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rriarchive/harvester/internal/article"
	"github.com/rriarchive/harvester/internal/metrics"
	"github.com/rriarchive/harvester/internal/section"
)

// StatsSource reconstructs the current statistics for one section from its
// persisted crawl state.
type StatsSource interface {
	Stats(ctx context.Context, sectionName, outputRoot string) (article.Stats, error)
}

// Server wires the read-only status handlers to a chi router.
type Server struct {
	router chi.Router
	stats  StatsSource
	logger *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(stats StatsSource, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		stats:  stats,
		logger: logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(timeoutMiddleware(15 * time.Second))
	r.Use(metrics.Middleware)

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Route("/sections", func(r chi.Router) {
			r.Get("/", s.listSections)
			r.Route("/{section}", func(r chi.Router) {
				r.Get("/", s.getSection)
				r.Get("/stats", s.getSectionStats)
			})
		})
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	// State lives on the filesystem; once the process is up it is ready.
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// sectionDTO is the wire representation of a section.
type sectionDTO struct {
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	PathPrefix    string   `json:"path_prefix"`
	Categories    []string `json:"categories"`
	DefaultOutput string   `json:"default_output"`
}

func toSectionDTO(sec *section.Section) sectionDTO {
	return sectionDTO{
		Name:          sec.Name,
		Description:   sec.Description,
		PathPrefix:    sec.PathPrefix,
		Categories:    append([]string(nil), sec.CategoryPaths...),
		DefaultOutput: sec.DefaultOutput,
	}
}

func (s *Server) listSections(w http.ResponseWriter, _ *http.Request) {
	all := section.All()
	dtos := make([]sectionDTO, 0, len(all))
	for _, sec := range all {
		dtos = append(dtos, toSectionDTO(sec))
	}
	writeJSON(w, http.StatusOK, map[string]any{"sections": dtos})
}

func (s *Server) getSection(w http.ResponseWriter, r *http.Request) {
	sec, err := section.Get(chi.URLParam(r, "section"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"section": toSectionDTO(sec)})
}

func (s *Server) getSectionStats(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "section")
	if _, err := section.Get(name); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	stats, err := s.stats.Stats(r.Context(), name, "")
	if err != nil {
		s.logger.Error("stats lookup failed", zap.String("section", name), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load section stats")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"section": name, "stats": stats})
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.status),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			)
		})
	}
}

func recoverMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered", zap.Any("error", rec))
					writeError(w, http.StatusInternalServerError, "internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("write response: %w", err)
	}
	return n, nil
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := rw.ResponseWriter.(http.Hijacker); ok {
		conn, buf, err := h.Hijack()
		if err != nil {
			return nil, nil, fmt.Errorf("hijack connection: %w", err)
		}
		return conn, buf, nil
	}
	return nil, nil, errors.New("hijacker not supported")
}

type requestIDKey struct{}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
