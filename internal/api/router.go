package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"bindrelay/internal/core"
	"bindrelay/internal/metrics"
	"bindrelay/internal/platform"
	"bindrelay/internal/store"
)

// ContractSource looks up the contract a binding task is derived from.
type ContractSource interface {
	GetContract(ctx context.Context, contractID, token string) (*core.Contract, error)
}

// Server holds the HTTP API state.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	store      *store.Store
	scheduler  *core.Scheduler
	contracts  ContractSource
	tokens     platform.TokenSource
	logger     *slog.Logger
	authToken  string
}

// NewServer constructs the HTTP API server.
func NewServer(addr, authToken string, st *store.Store, scheduler *core.Scheduler, contracts ContractSource, tokens platform.TokenSource, logger *slog.Logger) (*Server, error) {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)

	s := &Server{
		router:    router,
		store:     st,
		scheduler: scheduler,
		contracts: contracts,
		tokens:    tokens,
		logger:    logger,
		authToken: authToken,
	}
	s.registerRoutes()

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("http server listening", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) registerRoutes() {
	s.router.Get("/healthz", s.handleHealth)
	s.router.Handle("/metrics", metrics.Handler())

	s.router.Route("/v1", func(r chi.Router) {
		if s.authToken != "" {
			r.Use(AuthMiddleware(s.authToken))
		}

		r.Post("/reconcile", s.handleReconcile)

		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", s.handleListTasks)
			r.Post("/", s.handleCreateTask)

			r.Route("/{taskID}", func(r chi.Router) {
				r.Get("/", s.handleGetTask)
				r.Delete("/", s.handleDeleteTask)
				r.Get("/firings", s.handleListFirings)
			})
		})
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"live_timers": s.scheduler.TimerCount(),
	})
}

// handleReconcile requests an immediate reconciliation pass. The pass runs
// asynchronously on the scheduler's loop.
func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	s.scheduler.Kick()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "reconcile requested"})
}
