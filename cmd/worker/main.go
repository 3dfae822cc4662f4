package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/unclebandit/mailer-backend/internal/config"
	"github.com/unclebandit/mailer-backend/internal/db"
	"github.com/unclebandit/mailer-backend/internal/logger"
	"github.com/unclebandit/mailer-backend/internal/metrics"
	"github.com/unclebandit/mailer-backend/internal/queue"
	"github.com/unclebandit/mailer-backend/internal/repository"
	"github.com/unclebandit/mailer-backend/internal/service"
	"github.com/unclebandit/mailer-backend/internal/transport"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log := logger.New(cfg.AppEnv)

	if cfg.AMQP.URL == "" {
		log.Fatal().Msg("AMQP_URL is required for the standalone worker")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to DB
	conn, err := db.Open(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("database unavailable")
	}
	defer conn.Close()

	ses, err := transport.NewSESSender(ctx, cfg.Transport)
	if err != nil {
		log.Fatal().Err(err).Msg("mail transport setup failed")
	}
	if ses == nil {
		log.Fatal().Msg("mail transport credentials are required for the worker")
	}

	m := metrics.New()
	w := service.NewWorker(
		&repository.QueueRepository{DB: conn},
		&repository.CampaignRepository{DB: conn},
		ses,
		log,
	)
	w.MaxAttempts = cfg.Worker.MaxAttempts
	w.Metrics = m

	// Connect to RabbitMQ
	q, err := queue.DialAMQP(cfg.AMQP.URL, log)
	if err != nil {
		log.Fatal().Err(err).Msg("broker unavailable")
	}
	defer q.Close()

	if err := q.Subscribe(ctx, cfg.AMQP.Queue, w.HandleJob); err != nil {
		log.Fatal().Err(err).Msg("failed to register consumer")
	}

	srv := &http.Server{
		Addr:              cfg.Worker.MetricsAddress,
		Handler:           m.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("metrics server error")
		}
	}()

	log.Info().Str("queue", cfg.AMQP.Queue).Msg("worker running, waiting for messages")
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	log.Info().Msg("worker stopped")
}
