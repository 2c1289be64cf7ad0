// Command indexer follows the festival event topic and serves the rebuilt
// ownership view over HTTP.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"ms-marketplace/internal/config"
	"ms-marketplace/internal/indexer"
	"ms-marketplace/internal/kafka"
	"ms-marketplace/internal/logger"
	"ms-marketplace/internal/models"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	addr := pflag.String("addr", ":8085", "HTTP listen address")
	group := pflag.String("group", "marketplace-indexer", "Kafka consumer group")
	pflag.Parse()

	log, err := logger.NewLogger(cfg.Log.Dir, "indexer", logger.ParseLevel(cfg.Log.Level))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	projection := indexer.NewProjection(log)
	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topic, *group, log)
	defer consumer.Close()

	go func() {
		err := consumer.Start(ctx, func(ev models.Event) {
			if err := projection.Apply(ev); err != nil {
				log.Error("INDEXER", err.Error())
			}
		})
		if err != nil {
			log.Error("KAFKA", fmt.Sprintf("Consumer stopped: %v", err))
		}
	}()

	r := chi.NewRouter()
	r.Get("/festivals/{festivalID}", func(w http.ResponseWriter, r *http.Request) {
		view, ok := projection.Festival(chi.URLParam(r, "festivalID"))
		if !ok {
			http.Error(w, "Festival not indexed", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(view)
	})
	r.Get("/festivals/{festivalID}/owners/{address}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(projection.TokensOf(chi.URLParam(r, "festivalID"), chi.URLParam(r, "address")))
	})

	server := &http.Server{Addr: *addr, Handler: r, ReadTimeout: cfg.Server.ReadTimeout}
	go func() {
		log.Info("HTTP", fmt.Sprintf("🚀 Indexer running on %s, following %s", *addr, cfg.Kafka.Topic))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	<-ctx.Done()
	ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(ctxShutdown)
	log.Info("APP", "✅ Indexer shutdown complete")
}
