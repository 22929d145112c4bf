package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/catalyst/moodle-availability-paypal/api/controllers"
	"github.com/catalyst/moodle-availability-paypal/api/routes"
	"github.com/catalyst/moodle-availability-paypal/internal/availability"
	"github.com/catalyst/moodle-availability-paypal/internal/contexts"
	"github.com/catalyst/moodle-availability-paypal/internal/ipn"
	"github.com/catalyst/moodle-availability-paypal/internal/notify"
	"github.com/catalyst/moodle-availability-paypal/internal/privacy"
	"github.com/catalyst/moodle-availability-paypal/internal/transactions"
	"github.com/catalyst/moodle-availability-paypal/internal/users"
	"github.com/catalyst/moodle-availability-paypal/pkg/config"
	"github.com/catalyst/moodle-availability-paypal/pkg/db"
	"github.com/catalyst/moodle-availability-paypal/pkg/logger"
	"github.com/catalyst/moodle-availability-paypal/pkg/metrics"
	"github.com/catalyst/moodle-availability-paypal/pkg/migrate"
	"github.com/catalyst/moodle-availability-paypal/pkg/paypal"
	"github.com/catalyst/moodle-availability-paypal/pkg/pubsub"
	"github.com/catalyst/moodle-availability-paypal/pkg/redis"
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

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap pubsub", err)
		os.Exit(1)
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing pubsub", err)
		}
	}()

	verifier, err := paypal.NewClient(context.Background(), cfg.PayPal, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create paypal client", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	ipnMetrics := metrics.NewIPNMetrics(registry)

	gormDB := dbClient.DB()
	transactionsRepo := transactions.NewRepository(gormDB)
	usersRepo := users.NewRepository(gormDB)
	contextsRepo := contexts.NewRepository(gormDB)
	availabilityRepo := availability.NewRepository(gormDB)
	messagesRepo := notify.NewMessageRepository(gormDB)

	notifier, err := notify.NewService(notify.ServiceParams{
		Recipients: usersRepo,
		Messages:   messagesRepo,
		Bus:        pubsubClient.MessageBus(),
		Logger:     logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create notifier", err)
		os.Exit(1)
	}

	ipnService, err := ipn.NewService(ipn.ServiceParams{
		Store:        transactionsRepo,
		Users:        usersRepo,
		Contexts:     contextsRepo,
		Availability: availabilityRepo,
		Verifier:     verifier,
		Notifier:     notifier,
		Logger:       logg,
		Metrics:      ipnMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create ipn service", err)
		os.Exit(1)
	}

	privacyService, err := privacy.NewService(transactionsRepo, contextsRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create privacy service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":        cfg.App.Env,
		"addr":       addr,
		"paypal_env": verifier.Environment(),
	})
	logg.Info(ctx, "starting api server")

	deps := map[string]controllers.Pinger{
		"database": dbClient,
		"redis":    redisClient,
	}

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, deps, redisClient, registry, ipnService, privacyService),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
