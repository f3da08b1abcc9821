package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ledgerbus/ledgerbus/internal/config"
	"github.com/ledgerbus/ledgerbus/internal/eventlog"
	"github.com/ledgerbus/ledgerbus/internal/events"
	"github.com/ledgerbus/ledgerbus/internal/history"
	"github.com/ledgerbus/ledgerbus/internal/infra"
	"github.com/ledgerbus/ledgerbus/internal/ledger"
	"github.com/ledgerbus/ledgerbus/internal/logging"
	"github.com/ledgerbus/ledgerbus/internal/notification"
	"github.com/ledgerbus/ledgerbus/internal/profile"
	"github.com/ledgerbus/ledgerbus/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.AppName, cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := infra.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("connect postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := ledger.NewPostgresStore(db).Migrate(ctx); err != nil {
		logger.Error("migrate ledger", "error", err)
		os.Exit(1)
	}
	if err := history.NewPostgresRepository(db).Migrate(ctx); err != nil {
		logger.Error("migrate history", "error", err)
		os.Exit(1)
	}

	cache, err := infra.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error("connect redis", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := cache.Close(); err != nil {
			logger.Warn("close redis", "error", err)
		}
	}()

	var bus eventlog.Log
	switch cfg.Broker {
	case config.BrokerRabbitMQ:
		conn, err := infra.NewAMQPConnection(cfg.BrokerURL)
		if err != nil {
			logger.Error("connect rabbitmq", "error", err)
			os.Exit(1)
		}
		defer conn.Close()
		bus, err = eventlog.NewAMQPLog(conn, logger)
		if err != nil {
			logger.Error("build amqp event log", "error", err)
			os.Exit(1)
		}
	default:
		busClient := cache
		if cfg.BrokerURL != cfg.RedisURL {
			busClient, err = infra.NewRedisClient(ctx, cfg.BrokerURL)
			if err != nil {
				logger.Error("connect broker redis", "error", err)
				os.Exit(1)
			}
			defer busClient.Close()
		}
		bus = eventlog.NewRedisLog(busClient, logger)
	}

	publisher := events.NewLogPublisher(bus, logger)
	go publisher.Run(ctx)

	var profiles profile.Client
	if cfg.ProfileBaseURL != "" {
		profiles = profile.NewHTTPClient(cfg.ProfileBaseURL)
	} else {
		profiles = profile.NewStaticClient()
	}

	var historyRepo history.Repository = history.NewPostgresRepository(db)
	recorder := history.NewRecorder(historyRepo, bus, logger)
	go func() {
		if err := recorder.Run(ctx); err != nil {
			logger.Error("recorder stopped", "error", err)
		}
	}()

	notifier := notification.NewLoggerNotifier(logger)
	consumer := notification.NewConsumer(notifier, profiles, bus, logger)
	go func() {
		if err := consumer.Run(ctx); err != nil {
			logger.Error("notification consumer stopped", "error", err)
		}
	}()

	srv, err := server.New(cfg, db, cache, publisher, profiles, logger)
	if err != nil {
		logger.Error("build server", "error", err)
		os.Exit(1)
	}

	srvErrCh := make(chan error, 1)
	go func() {
		srvErrCh <- srv.Listen()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-srvErrCh:
		if err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
		return
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownPeriod)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server exited cleanly")
}
