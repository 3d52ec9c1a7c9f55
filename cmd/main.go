package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/courtside/reservation-guard/config"
	"github.com/courtside/reservation-guard/internal/handler"
	"github.com/courtside/reservation-guard/internal/httpserver"
	"github.com/courtside/reservation-guard/internal/metrics"
	"github.com/courtside/reservation-guard/internal/monitor"
	"github.com/courtside/reservation-guard/internal/reservation"
	"github.com/courtside/reservation-guard/internal/statestore"
	"github.com/courtside/reservation-guard/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("err", err))
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, true, cfg.Server.Environment)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, cleanup, err := initializeStore(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to initialize state store", slog.Any("err", err))
		os.Exit(1)
	}
	defer cleanup()

	collector := metrics.NewCollector(cfg.Metrics.BufferSize, logger.Component(log, "metrics"))
	collector.Start(ctx)

	registry, err := initializeRegistry(cfg, log, store, collector)
	if err != nil {
		log.Error("Failed to initialize breaker registry", slog.Any("err", err))
		os.Exit(1)
	}

	monitorInterval, err := time.ParseDuration(cfg.Monitor.Interval)
	if err != nil {
		log.Error("Invalid monitor interval", slog.Any("err", err))
		os.Exit(1)
	}
	go monitor.Watch(ctx, registry, monitorInterval, logger.Component(log, "monitor"), collector)

	guardHandler := handler.New(logger.Component(log, "handler"), registry)
	mux := setupRouter(guardHandler, collector, activeInjector)

	srv, err := httpserver.New(cfg.Server.Address, mux)
	if err != nil {
		log.Error("Failed to create server", slog.Any("err", err))
		os.Exit(1)
	}

	srvErrCh := make(chan error, 1)

	go func() {
		srvErrCh <- srv.Start()
	}()

	log.Info("reservation guard started", slog.String("address", cfg.Server.Address))

	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
		if err := srv.Shutdown(context.Background()); err != nil {
			log.Error("Error during shutdown", slog.Any("err", err))
		}
	case err := <-srvErrCh:
		if err != nil {
			log.Error("Error starting server", slog.Any("err", err))
			os.Exit(1)
		}
	}
}

// activeInjector backs the demo operations; a real deployment replaces
// demoOperations with functions hitting its actual dependencies.
var activeInjector = newFailureInjector()

func initializeStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (statestore.Store, func(), error) {
	if cfg.Store.Backend == config.StoreRedis {
		store := statestore.NewRedis(statestore.RedisOptions{
			Addr:      cfg.Store.Redis.Addr,
			Password:  cfg.Store.Redis.Password,
			DB:        cfg.Store.Redis.DB,
			KeyPrefix: cfg.Store.Redis.KeyPrefix,
		})

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := store.Ping(pingCtx); err != nil {
			return nil, nil, err
		}

		log.Info("using redis state store", slog.String("addr", cfg.Store.Redis.Addr))
		return store, func() { _ = store.Close() }, nil
	}

	log.Info("using in-memory state store")
	return statestore.NewMemory(), func() {}, nil
}

func initializeRegistry(
	cfg *config.Config,
	log *slog.Logger,
	store statestore.Store,
	collector *metrics.Collector,
) (*reservation.Registry, error) {
	ttl, err := time.ParseDuration(cfg.Store.TTL)
	if err != nil {
		return nil, err
	}

	policies := make(map[string]reservation.Policy, len(cfg.Breakers))
	for name, bc := range cfg.Breakers {
		recovery, err := time.ParseDuration(bc.RecoveryTimeout)
		if err != nil {
			return nil, err
		}
		policies[name] = reservation.Policy{
			FailureThreshold: bc.FailureThreshold,
			RecoveryTimeout:  recovery,
			SingleTrial:      bc.SingleTrial,
		}
	}

	onStateChange, onCall, onReject := collector.BreakerHooks()

	return reservation.NewRegistry(demoOperations(activeInjector), reservation.Settings{
		Store:         store,
		StateTTL:      ttl,
		Logger:        logger.Component(log, "circuitbreaker"),
		Policies:      policies,
		DefaultPrice:  cfg.Fallbacks.DefaultPrice,
		Currency:      cfg.Fallbacks.Currency,
		OnStateChange: onStateChange,
		OnCall:        onCall,
		OnReject:      onReject,
	}), nil
}
