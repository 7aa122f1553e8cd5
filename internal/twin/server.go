// Package twin is an in-memory stand-in for the UPTRMS API. It serves the
// endpoints the bundled feature files exercise so the harness can be run and
// tested without a deployed backend.
package twin

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/uptrms/bddkit/internal/metrics"
)

// Twin wraps a chi router with the common middleware stack.
type Twin struct {
	Router  *chi.Mux
	Logger  *slog.Logger
	store   *Store
	metrics *metrics.Metrics
}

type Option func(*Twin)

func WithLogger(logger *slog.Logger) Option {
	return func(t *Twin) {
		if logger != nil {
			t.Logger = logger
		}
	}
}

// WithMetrics records served requests and mounts GET /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(t *Twin) {
		t.metrics = m
	}
}

func New(opts ...Option) *Twin {
	t := &Twin{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		store:  NewStore(),
	}
	for _, opt := range opts {
		opt(t)
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(t.requestLog)

	r.Get("/health", t.health)
	r.Post("/admin/reset", t.reset)
	if t.metrics != nil {
		r.Method(http.MethodGet, "/metrics", t.metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/audit/log", t.auditLog)
		r.Post("/security/zero-trust/access-request", t.accessRequest)

		r.Route("/{collection}", func(r chi.Router) {
			r.Post("/", t.create)
			r.Get("/", t.list)
			r.Get("/{id}", t.get)
			r.Put("/{id}", t.update)
			r.Delete("/{id}", t.remove)
		})
	})

	t.Router = r
	return t
}

// Store exposes the twin state for seeding in tests.
func (t *Twin) Store() *Store {
	return t.store
}

// ServeHTTP implements http.Handler so Twin can be used directly in tests
// and as a fixture handler.
func (t *Twin) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	t.Router.ServeHTTP(w, r)
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
func (t *Twin) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return t.serve(ctx, ln)
}

func (t *Twin) serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      t.Router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		t.Logger.Info("starting twin", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	t.Logger.Info("shutting down twin")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (t *Twin) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)
		t.Logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"duration", elapsed,
			"request_id", chimw.GetReqID(r.Context()),
		)
		if t.metrics != nil && r.URL.Path != "/metrics" {
			t.metrics.ObserveRequest(r.Method, status, elapsed)
		}
	})
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]any{
		"error": map[string]any{
			"message": message,
			"type":    http.StatusText(status),
			"code":    status,
		},
	})
}
