package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// Pinger is a dependency the health check probes.
type Pinger interface {
	Ping(ctx context.Context) error
}

// OpsServer serves /healthz and /metrics.
type OpsServer struct {
	srv    *http.Server
	checks map[string]Pinger
	logger *log.Logger
}

// NewOpsServer builds the ops router. checks maps a dependency name to its
// probe; metrics may be nil.
func NewOpsServer(addr string, checks map[string]Pinger, metrics http.Handler, logger *log.Logger) *OpsServer {
	if logger == nil {
		logger = log.Default()
	}
	o := &OpsServer{checks: checks, logger: logger}

	r := chi.NewRouter()
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Get("/healthz", o.health)
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}

	o.srv = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return o
}

// Handler exposes the router, mainly for tests.
func (o *OpsServer) Handler() http.Handler {
	return o.srv.Handler
}

func (o *OpsServer) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := map[string]any{"status": "ok"}
	checks := make(map[string]string, len(o.checks))
	code := http.StatusOK
	for name, p := range o.checks {
		if err := p.Ping(ctx); err != nil {
			checks[name] = "unreachable"
			code = http.StatusServiceUnavailable
			status["status"] = "degraded"
			continue
		}
		checks[name] = "ok"
	}
	status["checks"] = checks

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(status); err != nil {
		o.logger.Warn("failed to write health response", "error", err)
	}
}

// Start serves until Shutdown. It returns nil on a clean shutdown.
func (o *OpsServer) Start() error {
	o.logger.Info("ops server listening", "addr", o.srv.Addr)
	if err := o.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (o *OpsServer) Shutdown(ctx context.Context) error {
	return o.srv.Shutdown(ctx)
}
