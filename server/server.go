// Package server is the HTTP backend behind the practice analysis and the
// assistant chat.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/devansharma-72/sensory-support-hub/llm"
	"github.com/devansharma-72/sensory-support-hub/log"
	"golang.org/x/sync/errgroup"
)

const (
	defaultMaxUpload = 256 << 20
	shutdownTimeout  = 10 * time.Second
)

type Options struct {
	Generator  llm.Generator
	EyeTracker EyeTracker
	// MaxUpload caps the analyze-video request body in bytes.
	MaxUpload int64
	Now       func() time.Time
}

type Server struct {
	gen       llm.Generator
	eyes      EyeTracker
	maxUpload int64
	now       func() time.Time
}

func New(opts Options) *Server {
	if opts.EyeTracker == nil {
		opts.EyeTracker = NoFaceTracker{}
	}
	if opts.MaxUpload <= 0 {
		opts.MaxUpload = defaultMaxUpload
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Server{gen: opts.Generator, eyes: opts.EyeTracker, maxUpload: opts.MaxUpload, now: opts.Now}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/assistant", s.handleAssistant)
	mux.HandleFunc("POST /api/analyze-video", s.handleAnalyzeVideo)
	mux.HandleFunc("GET /api/health", s.handleHealth)
	return withRequestLog(withRecover(withCORS(mux)))
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Infof("listening on %s", ln.Addr())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
	return g.Wait()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type errorBody struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warnf("writing response: %v", err)
	}
}
