package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mohammed-shakir/cartalex/internal/cache"
	"github.com/mohammed-shakir/cartalex/internal/cache/memory"
	"github.com/mohammed-shakir/cartalex/internal/cache/rediscache"
	"github.com/mohammed-shakir/cartalex/internal/cache/redisstore"
	"github.com/mohammed-shakir/cartalex/internal/cache/respcache"
	"github.com/mohammed-shakir/cartalex/internal/catalog"
	"github.com/mohammed-shakir/cartalex/internal/core/config"
	"github.com/mohammed-shakir/cartalex/internal/core/health"
	"github.com/mohammed-shakir/cartalex/internal/core/server"
	"github.com/mohammed-shakir/cartalex/internal/httpapi"
	"github.com/mohammed-shakir/cartalex/internal/invalidation/kafkaconsumer"
	"github.com/mohammed-shakir/cartalex/internal/logger"
	"github.com/mohammed-shakir/cartalex/internal/metrics"
	"github.com/mohammed-shakir/cartalex/internal/store"
)

var Version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	addrFlag := flag.String("addr", "", "listen address (overrides ADDR)")
	flag.Parse()

	cfg := config.FromEnv()
	if *addrFlag != "" {
		cfg.Addr = strings.TrimSpace(*addrFlag)
	}

	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   cfg.LogConsole,
		Service:   "cartalex",
		Component: "server",
	}, os.Stdout)
	appLog := logger.NewSlog(&zl)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	appLog.Info("starting cartalex",
		"addr", cfg.Addr,
		"version", Version,
		"db_driver", cfg.DB.Driver,
		"cache_driver", cfg.Cache.Driver)

	db, err := store.Open(ctx, store.Options{
		Driver:       cfg.DB.Driver,
		URL:          cfg.DB.URL,
		MaxConns:     cfg.DB.MaxConns,
		QueryTimeout: cfg.DB.QueryTimeout,
	})
	if err != nil {
		appLog.Error("database setup failed", "err", err)
		return 1
	}
	defer func() { _ = db.Close() }()

	ready := map[string]health.Pinger{"database": db}

	backend, err := openCache(ctx, cfg.Cache, ready)
	if err != nil {
		appLog.Error("cache setup failed", "err", err)
		return 1
	}
	var rc *respcache.Cache
	if backend != nil {
		defer func() { _ = backend.Close() }()
		rc = respcache.New(backend, cfg.Cache.OpTimeout, appLog)
	}

	var metricsHandler http.Handler
	if cfg.Metrics.Enabled {
		p, err := metrics.Init(metrics.Config{
			Addr: cfg.Metrics.Addr,
			Path: cfg.Metrics.Path,
			Build: metrics.BuildInfo{
				Version:   Version,
				Revision:  os.Getenv("BUILD_REVISION"),
				BuildDate: os.Getenv("BUILD_DATE"),
			},
		})
		if err != nil {
			appLog.Error("metrics setup failed", "err", err)
			return 1
		}
		if cfg.Metrics.Addr == "" {
			metricsHandler = p.Handler()
		} else {
			go func() {
				if err := p.Serve(ctx, appLog); err != nil {
					appLog.Error("metrics server exited", "err", err)
				}
			}()
		}
	}

	cat := catalog.Sites()

	if cfg.Invalidation.Enabled {
		if rc == nil {
			appLog.Warn("invalidation enabled without a response cache; ignoring")
		} else {
			cons := kafkaconsumer.New(kafkaconsumer.Config{
				Brokers: cfg.Invalidation.BrokerList(),
				Topic:   cfg.Invalidation.Topic,
				GroupID: cfg.Invalidation.GroupID,
			}, appLog, cat, rc)
			go func() {
				if err := cons.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
					appLog.Error("invalidation consumer stopped", "err", err)
				}
			}()
		}
	}

	api := httpapi.New(cat, db, appLog, cfg.H3ResDefault)
	handler := server.NewRouter(cfg, appLog, server.Deps{
		API:     api,
		Cache:   rc,
		Metrics: metricsHandler,
		Ready:   ready,
	})

	if err := server.Run(ctx, cfg.Addr, appLog, handler); err != nil {
		appLog.Error("server exited with error", "err", err)
		return 1
	}
	appLog.Info("server stopped")
	return 0
}

// openCache returns nil when caching is disabled.
func openCache(ctx context.Context, c config.CacheCfg, ready map[string]health.Pinger) (cache.Store, error) {
	switch c.Driver {
	case "none", "off", "":
		return nil, nil
	case "memory":
		return memory.New(c.Size, c.TTL), nil
	case "redis":
		cli, err := redisstore.New(ctx, c.RedisAddr, redisstore.WithReadTimeout(c.OpTimeout))
		if err != nil {
			return nil, err
		}
		ready["redis"] = cli
		return rediscache.New(cli, c.TTL), nil
	default:
		return nil, fmt.Errorf("unknown cache driver %q", c.Driver)
	}
}
