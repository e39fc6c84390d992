package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/sitemirror/internal/clock/system"
	"github.com/JakeFAU/sitemirror/internal/config"
	"github.com/JakeFAU/sitemirror/internal/metrics"
	"github.com/JakeFAU/sitemirror/internal/mirror"
	"github.com/JakeFAU/sitemirror/internal/session"
	"github.com/JakeFAU/sitemirror/internal/users"
)

// TaskExecutor runs a decoded task.
type TaskExecutor interface {
	Execute(ctx context.Context, task mirror.Task) (mirror.Result, error)
}

// SessionManager tracks the archival session.
type SessionManager interface {
	Start() (session.Session, error)
	End() (session.Session, error)
	Current() (session.Session, error)
}

// UserService registers and lists users.
type UserService interface {
	Create(ctx context.Context, username string) (users.User, error)
	List(ctx context.Context) ([]users.User, error)
}

// Clock stamps asset batches.
type Clock interface {
	Now() time.Time
}

// Deps groups the collaborators a Server needs. Publisher may be nil, in
// which case discovered assets are not announced. A nil Clock uses the
// system clock in UTC.
type Deps struct {
	Executor  TaskExecutor
	Sessions  SessionManager
	Users     UserService
	Publisher mirror.Publisher
	Topic     string
	Clock     Clock
}

// Server wires HTTP handlers to the executor, session manager and registry.
type Server struct {
	router    chi.Router
	executor  TaskExecutor
	sessions  SessionManager
	users     UserService
	publisher mirror.Publisher
	topic     string
	clock     Clock
	cfg       config.Config
	logger    *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(deps Deps, cfg config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()
	clock := deps.Clock
	if clock == nil {
		clock = system.New(time.UTC)
	}
	s := &Server{
		executor:  deps.Executor,
		sessions:  deps.Sessions,
		users:     deps.Users,
		publisher: deps.Publisher,
		topic:     deps.Topic,
		clock:     clock,
		cfg:       cfg,
		logger:    logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(metrics.Middleware)
	r.Use(timeoutMiddleware(cfg.RequestTimeout()))
	if cfg.Auth.Enabled {
		r.Use(apiKeyMiddleware(cfg.Auth.APIKey))
	}

	r.Get("/", s.hello)
	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Post("/task", s.runTask)
	r.Route("/save", func(r chi.Router) {
		r.Get("/", s.currentSession)
		r.Post("/init", s.startSession)
		r.Post("/end", s.endSession)
	})
	r.Route("/users", func(r chi.Router) {
		r.Get("/", s.listUsers)
		r.Post("/", s.createUser)
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) hello(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if _, err := w.Write([]byte("Hello, World!")); err != nil {
		s.logger.Debug("hello write failed", zap.Error(err))
	}
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	if s.executor == nil || s.sessions == nil {
		writeError(w, http.StatusServiceUnavailable, "not ready")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

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
