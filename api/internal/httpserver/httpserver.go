package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"hazard-identify/api/internal/handle"
	"hazard-identify/api/internal/metrics"
	"hazard-identify/api/internal/ratelimit"
)

// NewRouter wires every HTTP route of the service.
func NewRouter(h *handle.Handle, m *metrics.Metrics, lim *ratelimit.Limiter, log zerolog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RealIP)
	r.Use(RequestID)
	r.Use(AccessLog(log, m))
	r.Use(chiMiddleware.Recoverer)

	limited := r.With(RateLimit(lim))

	r.Get("/", h.Page)
	limited.Post("/", h.SubmitPage)
	r.Get("/healthz", h.Healthz)
	if m != nil {
		r.Method(http.MethodGet, "/metrics", m.Handler())
	}

	r.Route("/api/v1/hazards", func(r chi.Router) {
		r.With(RateLimit(lim)).Post("/", h.CreateHazard)
		r.Get("/", h.ListHazards)
		r.Get("/{id}", h.GetHazard)
	})
	return r
}

type Server struct {
	srv *http.Server
	log zerolog.Logger
}

func New(addr string, handler http.Handler, log zerolog.Logger) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		log: log,
	}
}

// Start blocks until the server stops. A clean Shutdown returns nil.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.srv.Addr).Msg("http server listening")
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
