package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"paylog/internal/config"
	"paylog/internal/infra"
	"paylog/internal/repository"
	"paylog/internal/router"
	"paylog/internal/worker"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Structured logger — dev: pretty, prod: JSON
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	rdb, err := infra.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	// Worker handlers are wired here (composition root) so that the pool and
	// the overdue sweep have full access to all infrastructure dependencies.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	webhook := infra.NewWebhookClient(cfg.WebhookURL)
	notifCB := infra.NewCircuitBreaker("webhook", infra.WebhookBreakerConfig(cfg))
	mailer := infra.NewMailer(cfg)
	dispatcher := worker.NewDispatcher(rdb)
	dlq := worker.NewDeadLetterQueue(rdb)

	invoiceRepo := repository.NewInvoiceRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	userRepo := repository.NewUserRepository(db)

	workerHandlers := &worker.WorkerHandlers{
		Notification: worker.NewNotificationWorker(webhook, notifCB, invoiceRepo, paymentRepo, userRepo, dispatcher, cfg.PDFStoragePath),
		Email:        worker.NewEmailWorker(mailer, dlq),
	}
	worker.StartWorkerPool(ctx, rdb, workerHandlers, cfg.WorkerPoolSize)

	worker.StartOverdueCron(ctx, worker.OverdueCronConfig{
		InvoiceRepo: invoiceRepo,
		RDB:         rdb,
		Dispatcher:  dispatcher,
		Interval:    time.Duration(cfg.OverdueSweepMinutes) * time.Minute,
	})

	r := router.New(cfg, db, rdb, notifCB)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Msgf("paylog backend listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server exited")
}
