// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/unclebandit/mailer-backend/internal/config"
	"github.com/unclebandit/mailer-backend/internal/controller"
	"github.com/unclebandit/mailer-backend/internal/db"
	"github.com/unclebandit/mailer-backend/internal/handler"
	"github.com/unclebandit/mailer-backend/internal/lock"
	"github.com/unclebandit/mailer-backend/internal/logger"
	"github.com/unclebandit/mailer-backend/internal/metrics"
	"github.com/unclebandit/mailer-backend/internal/queue"
	"github.com/unclebandit/mailer-backend/internal/quota"
	"github.com/unclebandit/mailer-backend/internal/repository"
	"github.com/unclebandit/mailer-backend/internal/service"
	"github.com/unclebandit/mailer-backend/internal/tracking"
	"github.com/unclebandit/mailer-backend/internal/transport"
	"github.com/unclebandit/mailer-backend/internal/validator"
)

func main() {
	// Load .env
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log := logger.New(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := db.Open(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("database unavailable")
	}
	defer conn.Close()

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatal().Err(err).Str("addr", cfg.Redis.Address).Msg("redis unavailable")
		}
		log.Info().Str("addr", cfg.Redis.Address).Msg("dispatch locks use redis")
	} else {
		log.Info().Msg("dispatch locks use postgres advisory locks")
	}

	campaignRepo := &repository.CampaignRepository{DB: conn}
	recipientRepo := &repository.RecipientRepository{DB: conn}
	contactRepo := &repository.ContactRepository{DB: conn}
	queueRepo := &repository.QueueRepository{DB: conn}
	usageRepo := &repository.UsageRepository{DB: conn}

	var sender transport.Sender
	ses, err := transport.NewSESSender(ctx, cfg.Transport)
	if err != nil {
		log.Fatal().Err(err).Msg("mail transport setup failed")
	}
	if ses != nil {
		sender = ses
	} else {
		log.Warn().Msg("no mail transport credentials; dispatch is disabled")
	}

	m := metrics.New()

	notifier, closeQueue := setupQueue(ctx, cfg, queueRepo, campaignRepo, sender, m, log)
	defer closeQueue()

	templates := service.NewTemplateService()
	dispatcher := &service.DispatchService{
		Campaigns:  campaignRepo,
		Recipients: recipientRepo,
		Contacts:   contactRepo,
		Queue:      queueRepo,
		Quota:      quota.NewReader(usageRepo),
		Selector: &service.Selector{
			Recipients: recipientRepo,
			Contacts:   contactRepo,
			PageSize:   cfg.Dispatch.PageSize,
		},
		Tracker:    tracking.New(cfg.Tracking.BaseURL, cfg.Tracking.SigningKey),
		Templates:  templates,
		BounceRisk: validator.PatternChecker{},
		Transport:  sender,
		Notifier:   notifier,
		Topic:      cfg.AMQP.Queue,
		Locker:     lock.New(redisClient, conn, cfg.Dispatch.LockTTL),
		Metrics:    m,
		Log:        log,
		Options: service.DispatchOptions{
			SubBatchSize: cfg.Dispatch.SubBatchSize,
			StoreTimeout: cfg.Dispatch.StoreTimeout,
		},
	}
	campaignService := &service.CampaignService{
		CampaignRepo:  campaignRepo,
		RecipientRepo: recipientRepo,
		QueueRepo:     queueRepo,
		ContactRepo:   contactRepo,
		Templates:     templates,
	}

	campaignController := controller.NewCampaignController(dispatcher, campaignService, log)
	campaignHandler := handler.NewCampaignHandler(campaignService, log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", controller.AccountHeader},
		MaxAge:         300,
	}))

	// Campaign routes
	campaignController.Routes(r)
	r.Get("/campaigns/{id}", campaignHandler.GetCampaignHandlerWithStats)

	r.Handle("/metrics", m.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := conn.PingContext(r.Context()); err != nil {
			http.Error(w, "database down", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	srv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info().Str("addr", cfg.Server.Address).Msg("server running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
	log.Info().Msg("server stopped")
}

// setupQueue connects to the broker when one is configured. Without one,
// jobs go to an in-process queue drained by an embedded worker.
func setupQueue(
	ctx context.Context,
	cfg *config.Config,
	queueRepo repository.QueueRepositoryInterface,
	campaignRepo repository.CampaignRepositoryInterface,
	sender transport.Sender,
	m *metrics.Metrics,
	log zerolog.Logger,
) (queue.Queue, func()) {
	if cfg.AMQP.URL != "" {
		q, err := queue.DialAMQP(cfg.AMQP.URL, log)
		if err != nil {
			log.Fatal().Err(err).Msg("broker unavailable")
		}
		return q, func() {
			if err := q.Close(); err != nil {
				log.Warn().Err(err).Msg("closing broker connection")
			}
		}
	}

	q := queue.NewInMemoryQueue(log)
	if sender != nil {
		w := service.NewWorker(queueRepo, campaignRepo, sender, log)
		w.MaxAttempts = cfg.Worker.MaxAttempts
		w.Metrics = m
		if err := q.Subscribe(ctx, cfg.AMQP.Queue, w.HandleJob); err != nil {
			log.Fatal().Err(err).Msg("subscribe embedded worker")
		}
		log.Info().Msg("using in-process queue with embedded worker")
	}
	return q, q.Wait
}
