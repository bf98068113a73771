package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jpalacios-dev/comanda-backend/api/routes"
	"github.com/jpalacios-dev/comanda-backend/internal/catalog"
	"github.com/jpalacios-dev/comanda-backend/internal/orders"
	"github.com/jpalacios-dev/comanda-backend/internal/stock"
	"github.com/jpalacios-dev/comanda-backend/pkg/config"
	"github.com/jpalacios-dev/comanda-backend/pkg/db"
	"github.com/jpalacios-dev/comanda-backend/pkg/events"
	"github.com/jpalacios-dev/comanda-backend/pkg/logger"
	"github.com/jpalacios-dev/comanda-backend/pkg/metrics"
	"github.com/jpalacios-dev/comanda-backend/pkg/migrate"
	pkgredis "github.com/jpalacios-dev/comanda-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	var (
		redisClient *pkgredis.Client
		redisStore  pkgredis.IdempotencyStore
	)
	if cfg.Redis.Enabled() {
		redisClient, err = pkgredis.New(context.Background(), cfg.Redis)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
		redisStore = redisClient
	} else {
		logg.Warn(context.Background(), "redis not configured, idempotency replay protection disabled")
	}

	registry := prometheus.NewRegistry()
	posMetrics := metrics.NewPOSMetrics(registry)

	eventsRepo := events.NewRepository(dbClient.DB())
	emitter := events.NewEmitter(eventsRepo, logg)
	dispatcher := events.NewDispatcher(eventsRepo, logg, events.LogSubscriber{Logg: logg})

	stockSvc, err := stock.NewService(stock.NewRepository(dbClient.DB()), dbClient, posMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create stock service", err)
		os.Exit(1)
	}

	catalogRepo := catalog.NewRepository(dbClient.DB())
	catalogSvc, err := catalog.NewService(catalogRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	ordersSvc, err := orders.NewService(orders.ServiceParams{
		Repo:     orders.NewRepository(dbClient.DB()),
		Catalog:  catalogRepo,
		Tx:       dbClient,
		Outbox:   emitter,
		Notifier: dispatcher,
		Metrics:  posMetrics,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create order service", err)
		os.Exit(1)
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go dispatcher.Run(rootCtx)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(rootCtx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
		"db":   cfg.DB.Driver,
	})
	logg.Info(ctx, "starting api server")

	var redisPinger = pingerOrNil(redisClient)
	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Params{
			Config:     cfg,
			Logger:     logg,
			DBPinger:   dbClient,
			RedisP:     redisPinger,
			RedisStore: redisStore,
			Gatherer:   registry,
			Orders:     ordersSvc,
			Stock:      stockSvc,
			Catalog:    catalogSvc,
		}),
	}

	go func() {
		<-rootCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "server shutdown failed", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

type pinger interface {
	Ping(ctx context.Context) error
}

func pingerOrNil(client *pkgredis.Client) pinger {
	if client == nil {
		return nil
	}
	return client
}
