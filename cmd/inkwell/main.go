package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/inkwell-cms/inkwell/pkg/api"
	"github.com/inkwell-cms/inkwell/pkg/async"
	"github.com/inkwell-cms/inkwell/pkg/auth"
	"github.com/inkwell-cms/inkwell/pkg/blog"
	"github.com/inkwell-cms/inkwell/pkg/config"
	"github.com/inkwell-cms/inkwell/pkg/document"
	"github.com/inkwell-cms/inkwell/pkg/middleware"
	"github.com/inkwell-cms/inkwell/pkg/observability"
	"github.com/inkwell-cms/inkwell/pkg/service"
	"github.com/inkwell-cms/inkwell/pkg/store"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := observability.NewLogger(cfg.LogLevel(), os.Stdout)

	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("server exited with error")
	}
}

func run(cfg *config.Config, log *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()
	log.WithField("backend", cfg.Store.Backend).Info("store opened")

	var redisClient *redis.Client
	caches := service.LRUFactory(cfg.Cache.LRUSize)
	if cfg.Cache.Backend == config.CacheRedis {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.RedisURL,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to reach redis: %w", err)
		}
		caches = service.RedisFactory(redisClient, cfg.Cache.TTL)
		log.WithField("addr", cfg.Cache.RedisURL).Info("redis cache enabled")
	}

	metrics := observability.NewMetrics(nil)

	platform, err := blog.NewPlatform(ctx, blog.Config{
		Store:   st,
		Caches:  caches,
		Logger:  log,
		Metrics: metrics,
	})
	if err != nil {
		return fmt.Errorf("failed to configure services: %w", err)
	}

	// Pre-fill the default listings so the first page load after a restart
	// is served from cache.
	async.SafeGo(logrus.NewEntry(log), "cache warmup", func() error {
		warm := auth.AsSystem(ctx)
		for _, svc := range []*service.Service{platform.Posts, platform.Tags, platform.Headlines, platform.Options} {
			if res := svc.Find(warm, document.Query{}, nil); !res.IsOK() {
				return fmt.Errorf("warmup of %s failed: %s", svc.Name(), res.ErrorMessage)
			}
		}
		return nil
	})

	server := api.NewServer(api.ServerConfig{
		Services: platform.Services(),
		Auth:     middleware.NewAuthenticator(platform.Users, cfg.Auth.Optional),
		Logger:   log,
		Metrics:  metrics,
	})

	health := observability.NewHealthChecker(st, redisClient)
	opsMux := http.NewServeMux()
	opsMux.HandleFunc("/healthz", health.Liveness)
	opsMux.HandleFunc("/readyz", health.Readiness)
	opsMux.Handle("/metrics", metrics.Handler())

	apiServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      server,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	opsServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler:      opsMux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithField("addr", apiServer.Addr).Info("API server listening")
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		log.WithField("addr", opsServer.Addr).Info("ops server listening")
		if err := opsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return opsServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("server stopped")
	return nil
}

func openStore(cfg *config.Config, log *logrus.Logger) (store.Store, error) {
	switch cfg.Store.Backend {
	case config.StoreMemory:
		return store.NewMemory(), nil
	case config.StoreFile:
		return store.NewFile(cfg.Store.FileDir, cfg.Store.CompactSchedule, log)
	case config.StoreSQLite:
		return store.NewSQLite(cfg.Store.SQLitePath)
	case config.StorePostgres:
		return store.NewPostgres(cfg.Store.PostgresURL, 0)
	default:
		return nil, fmt.Errorf("unknown store backend: %s", cfg.Store.Backend)
	}
}
