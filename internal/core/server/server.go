package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/mohammed-shakir/cartalex/internal/cache/respcache"
	"github.com/mohammed-shakir/cartalex/internal/core/config"
	"github.com/mohammed-shakir/cartalex/internal/core/health"
	middleware "github.com/mohammed-shakir/cartalex/internal/core/middleware"
	"github.com/mohammed-shakir/cartalex/internal/httpapi"
)

type Deps struct {
	API   *httpapi.API
	Cache *respcache.Cache
	// Metrics is mounted at cfg.Metrics.Path when non-nil.
	Metrics http.Handler
	Ready   map[string]health.Pinger
}

// NewRouter assembles middleware and routes.
func NewRouter(cfg config.Config, logger *slog.Logger, d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recover(logger))
	r.Use(middleware.Logging(logger))
	r.Use(middleware.Metrics())
	r.Use(middleware.CORS(cfg.CORSOrigin))
	r.Use(chimw.Compress(5, "application/json"))

	r.Get("/healthz", health.Liveness())
	r.Get("/readyz", health.Readiness(2*time.Second, d.Ready))
	if d.Metrics != nil {
		r.Method(http.MethodGet, cfg.Metrics.Path, d.Metrics)
	}

	var cached httpapi.Middleware
	if d.Cache != nil {
		cached = d.Cache.Tagged
	}
	d.API.Mount(r, cached)
	return r
}

// sets up http and starts serving
func Run(ctx context.Context, addr string, logger *slog.Logger, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listen", "addr", addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
