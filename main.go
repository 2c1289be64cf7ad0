package main

import (
	"context"
	"fmt"
	"ms-marketplace/internal/analytics"
	"ms-marketplace/internal/api"
	"ms-marketplace/internal/auth"
	"ms-marketplace/internal/clock"
	"ms-marketplace/internal/config"
	"ms-marketplace/internal/database"
	"ms-marketplace/internal/database/migrations"
	"ms-marketplace/internal/festivals"
	"ms-marketplace/internal/kafka"
	"ms-marketplace/internal/lifecycle"
	"ms-marketplace/internal/listing"
	"ms-marketplace/internal/logger"
	"ms-marketplace/internal/payment"
	"ms-marketplace/internal/roles"
	"ms-marketplace/internal/settlement"
	"ms-marketplace/internal/sse"
	ticket_db "ms-marketplace/internal/tickets/db"
	"ms-marketplace/internal/tickets/qr"
	tickets "ms-marketplace/internal/tickets/service"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/uptrace/bun"
)

func main() {
	envErr := godotenv.Load()
	cfg := config.Load()

	log, err := logger.NewLogger(cfg.Log.Dir, "marketplace", logger.ParseLevel(cfg.Log.Level))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	if envErr != nil {
		log.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		log.Info("CONFIG", "Loaded environment variables from .env file")
	}

	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		os.Exit(runMigrate(os.Args[2:], cfg, log))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("APP", "Starting marketplace service initialization")
	bunDB, err := database.Open(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal("DATABASE", err.Error())
	}
	defer bunDB.Close()

	store := &ticket_db.DB{Bun: bunDB}
	prepareSchema(ctx, cfg, bunDB, store, log)

	clk := clock.NewSystem()
	feed := sse.NewFeed()
	store.OnCommit = feed.Publish

	ledger, redisClient := buildLedger(cfg, store, clk, log)
	if redisClient != nil {
		defer redisClient.Close()
	}

	var producer *kafka.Producer
	if cfg.Kafka.Enabled {
		if err := kafka.EnsureTopicsExist(ctx, cfg.Kafka.Brokers, []string{cfg.Kafka.Topic}, log); err != nil {
			log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		}
		producer = kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		defer producer.Close()

		relay := kafka.NewRelay(store, producer, cfg.Kafka.RelayInterval, cfg.Kafka.RelayBatch, clk, log)
		go relay.Run(ctx)
		log.Info("KAFKA", fmt.Sprintf("Outbox relay publishing to %s every %s", cfg.Kafka.Topic, cfg.Kafka.RelayInterval))
	} else {
		log.Warn("KAFKA", "Kafka disabled, events stay in the outbox")
	}

	verifier := buildVerifier(ctx, cfg, log)

	if cfg.Marketplace.QRSecret == "" {
		log.Fatal("CONFIG", "QR_SECRET_KEY not set")
	}
	generator, err := qr.NewQRGenerator(cfg.Marketplace.QRSecret)
	if err != nil {
		log.Fatal("CONFIG", fmt.Sprintf("Failed to initialise QR generator: %v", err))
	}

	roleService := roles.NewService(store, clk, log)
	ticketService := tickets.NewTicketService(store, roleService, clk, log)
	handler := &api.Handler{
		Festivals: festivals.NewService(store, roleService, festivals.Defaults{
			Marketplace:         cfg.Marketplace.Operator,
			MaxTicketsPerWallet: cfg.Marketplace.DefaultMaxTicketsPerWallet,
			MaxResalePercentage: cfg.Marketplace.DefaultMaxResalePercentage,
			RoyaltyPercentage:   cfg.Marketplace.DefaultRoyaltyPercentage,
		}, clk, log),
		Roles:      roleService,
		Lifecycle:  lifecycle.NewService(store, roleService, clk, log),
		Tickets:    ticketService,
		Listing:    listing.NewService(store, roleService, clk, log),
		Settlement: settlement.NewEngine(store, ticketService, ledger, clk, log),
		Ledger:     ledger,
		Events:     store,
		Feed:       feed,
		QR:         generator,
		Analytics:  analytics.NewService(bunDB),
		Clock:      clk,
		Logger:     log,
		Treasury:   cfg.Marketplace.Operator,
	}

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      handler.Routes(verifier),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: 0, // SSE streams stay open
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP", fmt.Sprintf("🚀 Marketplace service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	log.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-ctx.Done()

	log.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	} else {
		log.Info("HTTP", "✅ Marketplace service shutdown complete")
	}
}

// prepareSchema runs the SQL migrations on PostgreSQL and creates the tables
// directly on SQLite.
func prepareSchema(ctx context.Context, cfg *config.Config, bunDB *bun.DB, store *ticket_db.DB, log *logger.Logger) {
	if cfg.Database.Driver != "postgres" {
		if err := store.CreateSchema(ctx); err != nil {
			log.Fatal("DATABASE", fmt.Sprintf("Failed to create schema: %v", err))
		}
		return
	}
	if !cfg.Migrations.Auto {
		log.Info("MIGRATE", "Automatic migrations disabled")
		return
	}
	runner := migrations.NewRunner(bunDB, migrations.MigrateOptions{
		MigrationsDir: cfg.Migrations.Dir,
		AutoMigrate:   cfg.Migrations.Auto,
	}, log)
	if err := runner.RunMigrations(); err != nil {
		log.Fatal("MIGRATE", fmt.Sprintf("Failed to run migrations: %v", err))
	}
}

func buildLedger(cfg *config.Config, store *ticket_db.DB, clk clock.Clock, log *logger.Logger) (payment.Ledger, *redis.Client) {
	switch cfg.Marketplace.Ledger {
	case "redis":
		client, err := payment.InitializeRedis(cfg.Redis.Addr, log)
		if err != nil {
			log.Fatal("REDIS", fmt.Sprintf("Redis ledger unavailable: %v", err))
		}
		log.Info("PAYMENT", "Using Redis balance ledger")
		return payment.NewRedisLedger(client, log), client
	case "db", "":
		log.Info("PAYMENT", "Using database balance ledger")
		return payment.NewDBLedger(store, clk, log), nil
	}
	log.Fatal("CONFIG", fmt.Sprintf("unknown PAYMENT_LEDGER %q", cfg.Marketplace.Ledger))
	return nil, nil
}

func buildVerifier(ctx context.Context, cfg *config.Config, log *logger.Logger) auth.Verifier {
	if cfg.Auth.OIDCIssuer != "" {
		v, err := auth.NewOIDCVerifier(ctx, cfg.Auth.OIDCIssuer)
		if err != nil {
			log.Fatal("AUTH", fmt.Sprintf("Failed to initialise OIDC verifier: %v", err))
		}
		log.Info("AUTH", fmt.Sprintf("Verifying tokens issued by %s", cfg.Auth.OIDCIssuer))
		return v
	}
	if cfg.Auth.JWTSecret == "" {
		log.Fatal("CONFIG", "either OIDC_ISSUER or JWT_SECRET must be set")
	}
	log.Info("AUTH", "Verifying HS256 tokens with the shared secret")
	return auth.NewHMACVerifier(cfg.Auth.JWTSecret)
}
