// Package transporthttp exposes the chat service over HTTP.
package transporthttp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/hay-kot/hive-chat/internal/core/config"
	"github.com/hay-kot/hive-chat/internal/hive"
)

// Server serves the chat API.
type Server struct {
	svc *hive.Service
	cfg *config.Config
	log zerolog.Logger
	ai  http.Handler
}

// NewServer creates a Server. The AI proxy is only mounted when an upstream
// is configured.
func NewServer(svc *hive.Service, cfg *config.Config, log zerolog.Logger) (*Server, error) {
	s := &Server{svc: svc, cfg: cfg, log: log}

	if cfg.AI.UpstreamURL != "" {
		upstream, err := url.Parse(cfg.AI.UpstreamURL)
		if err != nil {
			return nil, fmt.Errorf("parse ai upstream: %w", err)
		}
		s.ai = newAIProxy(upstream, log)
	}

	return s, nil
}

// Router builds the HTTP handler tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(AccessLog(s.log))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)

	r.Route("/api", func(r chi.Router) {
		r.Use(BodyLimit(s.cfg.Server.MaxBodyBytes))
		r.Post("/chat", s.handleCommand)
		r.Get("/chat", s.handlePoll)
		r.Post("/ai", s.handleAI)
	})

	return r
}

// ListenAndServe serves until ctx is canceled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// Polls and AI calls can legitimately hold a response open.
		WriteTimeout: s.cfg.Client.AITimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", srv.Addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s.log.Info().Msg("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}

func newAIProxy(upstream *url.URL, log zerolog.Logger) http.Handler {
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.Out.URL = &url.URL{
				Scheme:   upstream.Scheme,
				Host:     upstream.Host,
				Path:     upstream.Path,
				RawQuery: upstream.RawQuery,
			}
			pr.Out.Host = upstream.Host
			pr.SetXForwarded()
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			log.Warn().Err(err).Str("upstream", upstream.Host).Msg("ai upstream failed")
			writeError(w, http.StatusBadGateway, "AI upstream not available")
		},
	}
}
