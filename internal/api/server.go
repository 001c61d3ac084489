// Package api exposes the HTTP front-end: upload, status polling, and
// question answering over the session pipeline.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"docchat/internal/session"
)

// Server is the HTTP API front-end.
type Server struct {
	router *chi.Mux
	mgr    *session.Manager
	log    *zap.Logger
	debug  bool
	addr   string
}

func NewServer(addr string, mgr *session.Manager, log *zap.Logger, debug bool) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)

	s := &Server{
		router: router,
		mgr:    mgr,
		log:    log,
		debug:  debug,
		addr:   addr,
	}
	router.Use(s.logRequests)

	router.Get("/", s.root)
	router.Get("/status", s.status)
	router.Post("/upload", s.upload)
	router.Get("/document/status/{session_id}", s.documentStatus)
	router.Post("/question", s.question)

	return s
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.router}

	errc := make(chan error, 1)
	go func() {
		s.log.Info("API server starting", zap.String("addr", s.addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string, detail error) {
	body := map[string]string{"error": message}
	if s.debug && detail != nil {
		body["detail"] = detail.Error()
	}
	writeJSON(w, status, body)
}
