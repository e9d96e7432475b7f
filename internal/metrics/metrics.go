// Package metrics owns the Prometheus registry of the site API and serves it,
// either mounted on the main router or on a dedicated listener.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mohammed-shakir/cartalex/internal/core/observability"
)

const DefaultPath = "/metrics"

type BuildInfo struct {
	Version   string
	Revision  string
	BuildDate string
}

// Config controls where the registry is exposed. An empty Addr means the
// caller mounts Handler itself.
type Config struct {
	Addr  string
	Path  string
	Build BuildInfo
}

type Provider struct {
	reg  *prometheus.Registry
	addr string
	path string
}

// Init builds a private registry with the runtime collectors, the
// cartalex_build_info gauge and every service vector from observability.
func Init(cfg Config) (*Provider, error) {
	reg := prometheus.NewRegistry()
	if err := reg.Register(collectors.NewGoCollector()); err != nil {
		return nil, err
	}
	if err := reg.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return nil, err
	}

	b := cfg.Build
	if b.Version == "" {
		b.Version = "dev"
	}
	info := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cartalex_build_info",
		Help: "Build metadata of the running binary; always 1.",
		ConstLabels: prometheus.Labels{
			"version":    b.Version,
			"revision":   b.Revision,
			"build_date": b.BuildDate,
		},
	})
	info.Set(1)
	if err := reg.Register(info); err != nil {
		return nil, err
	}

	if err := observability.Init(reg); err != nil {
		return nil, err
	}

	path := cfg.Path
	if path == "" {
		path = DefaultPath
	}
	return &Provider{reg: reg, addr: cfg.Addr, path: path}, nil
}

// Handler renders the registry. Scrapes themselves are counted under
// promhttp_metric_handler_requests_total.
func (p *Provider) Handler() http.Handler {
	return promhttp.InstrumentMetricHandler(p.reg,
		promhttp.HandlerFor(p.reg, promhttp.HandlerOpts{
			Registry:          p.reg,
			ErrorHandling:     promhttp.ContinueOnError,
			EnableOpenMetrics: true,
		}))
}

// Register adds collectors, tolerating ones that are already present.
func (p *Provider) Register(cs ...prometheus.Collector) error {
	for _, c := range cs {
		if err := p.reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	return nil
}

func (p *Provider) Path() string { return p.path }

// Serve runs the dedicated metrics listener until ctx is cancelled. It
// returns immediately when no Addr was configured.
func (p *Provider) Serve(ctx context.Context, log *slog.Logger) error {
	if p.addr == "" {
		return nil
	}
	r := chi.NewRouter()
	r.Method(http.MethodGet, p.path, p.Handler())

	srv := &http.Server{
		Addr:              p.addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			log.Warn("metrics shutdown error", "err", err)
		}
	}()

	log.Info("metrics listening", "addr", p.addr, "path", p.path)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
