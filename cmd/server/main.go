package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"
	_ "github.com/lib/pq"
	config "github.com/maheshrc27/liveflow/configs"
	"github.com/maheshrc27/liveflow/internal/api/handlers"
	"github.com/maheshrc27/liveflow/internal/api/middleware"
	"github.com/maheshrc27/liveflow/internal/clients"
	job "github.com/maheshrc27/liveflow/internal/jobs"
	"github.com/maheshrc27/liveflow/internal/queue"
	"github.com/maheshrc27/liveflow/internal/repository"
	"github.com/maheshrc27/liveflow/internal/service"
	"github.com/maheshrc27/liveflow/pkg/logging"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron"
)

const (
	clickBuffer  = 1024
	clickWorkers = 4
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := logging.NewLoggerWithService("liveflow", logging.Options{
		Level: cfg.LogLevel,
		File:  cfg.LogFile,
	})

	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		logger.WithFields(logging.Fields{"error": err}).Fatal("failed to open database")
	}

	if err := db.Ping(); err != nil {
		logger.WithFields(logging.Fields{"error": err}).Fatal("database is unreachable")
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisURI})
	redisConn := asynq.RedisClientOpt{Addr: cfg.RedisURI}
	client := asynq.NewClient(redisConn)
	inspector := asynq.NewInspector(redisConn)

	// repositories
	streamRepo := repository.NewStreamRepository(db)
	draftRepo := repository.NewDraftRepository(db)
	deliveryRepo := repository.NewDeliveryRepository(db)
	linkRepo := repository.NewLinkRepository(db)
	clickRepo := repository.NewClickRepository(db)
	quotaRepo := repository.NewQuotaRepository(db)
	sampleRepo := repository.NewSampleRepository(db)
	runRepo := repository.NewSamplingRunRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)

	// outbound clients
	var viewers service.ViewerCounter
	switch cfg.Platform {
	case "youtube":
		yt, err := clients.NewYoutubeViewerClient(context.Background(), cfg.YoutubeAPIKey, cfg.PlatformTimeout, logger)
		if err != nil {
			logger.WithFields(logging.Fields{"error": err}).Fatal("failed to create youtube client")
		}
		viewers = yt
	default:
		viewers = clients.NewTwitchViewerClient(cfg.Twitch.ClientID, cfg.Twitch.ClientSecret, cfg.PlatformTimeout, logger)
	}
	postClient := clients.NewSocialPostClient(cfg.PostAPIURL, cfg.PostAPIToken, 10*time.Second, logger)
	webhookClient := clients.NewWebhookClient(10*time.Second, logger)

	var uploader service.ObjectUploader
	if cfg.R2.BucketName != "" {
		r2, err := service.NewR2Client(context.Background(), cfg.R2)
		if err != nil {
			logger.WithFields(logging.Fields{"error": err}).Fatal("failed to create r2 client")
		}
		uploader = r2
	}

	allowList, err := service.NewAllowList(cfg.AllowedRedirectDomains, cfg.PublicBaseURL)
	if err != nil {
		logger.WithFields(logging.Fields{"error": err}).Fatal("invalid redirect allow-list")
	}

	// services
	clickRecorder := service.NewClickRecorder(clickRepo, clickBuffer, clickWorkers, logger)
	quotaService := service.NewQuotaService(quotaRepo, cfg.OwnerMonthlyLimit, cfg.GlobalMonthlyLimit, logger)
	settingsService := service.NewSettingsService(settingsRepo, cfg.SecretKey, cfg.DefaultGraceSeconds, logger)
	linkService := service.NewLinkService(linkRepo, clickRepo, streamRepo, draftRepo, deliveryRepo, clickRecorder, allowList, cfg.PublicBaseURL, logger)
	mediaService := service.NewMediaService(uploader, cfg.R2.BucketName, cfg.R2.PublicURL, cfg.PlatformTimeout, logger)
	samplingService := service.NewSamplingService(streamRepo, sampleRepo, deliveryRepo, viewers, cfg.PlatformTimeout, logger)
	capacityService := service.NewCapacityService(runRepo)
	draftService := service.NewDraftService(service.DraftDeps{
		Streams:            streamRepo,
		Drafts:             draftRepo,
		Deliveries:         deliveryRepo,
		Settings:           settingsService,
		Quota:              quotaService,
		Links:              linkService,
		Media:              mediaService,
		Sampler:            samplingService,
		Timer:              queue.NewGraceTimer(client, inspector, logger),
		Sender:             postClient,
		Fallback:           webhookClient,
		Platform:           cfg.Platform,
		FallbackWebhookURL: cfg.FallbackWebhookURL,
		Logger:             logger,
	})

	if err := quotaService.EnsureGlobal(context.Background(), time.Now()); err != nil {
		logger.WithFields(logging.Fields{"error": err}).Fatal("failed to initialise global quota")
	}

	app := fiber.New(fiber.Config{
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		BodyLimit:    1 * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			if code >= fiber.StatusInternalServerError {
				logger.WithFields(logging.Fields{"path": c.Path(), "error": err}).Error("unhandled error")
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(recover.New())
	app.Use(middleware.Metrics())

	app.Get("/healthz", func(c *fiber.Ctx) error {
		if err := db.PingContext(c.UserContext()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "db unavailable"})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	webhook := handlers.NewWebhookHandler(draftService, handlers.NewRedisDeduper(rdb), cfg.WebhookSecret, logger)
	app.Post("/webhooks/stream-online", webhook.StreamOnline)

	redirect := handlers.NewRedirectHandler(linkService, logger)
	app.Get("/s/:code", redirect.Redirect)

	authMiddleware := middleware.NewAuthMiddleware(cfg.SecretKey, cfg.CookieName, cfg.OpsToken, logger)

	api := app.Group("/api")
	api.Use(authMiddleware.AuthMiddleware())

	drafts := handlers.NewDraftHandler(draftService, logger)
	api.Get("/drafts/:id", drafts.GetDraft)
	api.Post("/drafts/:id/resolve", drafts.ResolveDraft)

	settings := handlers.NewSettingsHandler(settingsService, logger)
	api.Get("/settings", settings.GetSettings)
	api.Post("/settings", settings.UpdateSettings)

	reports := handlers.NewReportHandler(quotaService, linkService, samplingService, logger)
	api.Get("/quota", reports.Quota)
	api.Get("/deliveries/:id/clicks", reports.DeliveryClicks)
	api.Get("/deliveries/:id/lift", reports.DeliveryLift)

	ops := app.Group("/ops")
	ops.Use(authMiddleware.OpsMiddleware())
	opsHandler := handlers.NewOpsHandler(capacityService, logger)
	ops.Get("/capacity", opsHandler.Capacity)

	// cron jobs
	samplingJob := job.NewSamplingJob(streamRepo, runRepo, samplingService, cfg.SampleConcurrency, cfg.StaleAfter, logger)
	reconcileJob := job.NewReconcileJob(draftRepo, draftService, cfg.SweepSlack, logger)
	quotaResetJob := job.NewQuotaResetJob(quotaService, logger)

	c := cron.New()
	mustAddCron(c, "@every "+cfg.SampleInterval.String(), samplingJob.Run, logger)
	mustAddCron(c, "@every 1m", reconcileJob.Run, logger)
	mustAddCron(c, "0 5 0 * * *", quotaResetJob.Run, logger)
	c.Start()

	// queue
	queueW := queue.NewQueue(draftService, logger)
	server := asynq.NewServer(redisConn, asynq.Config{
		Concurrency: 10,
		Queues:      map[string]int{queue.DefaultQueue: 1},
		Logger:      logger,
	})

	go func() {
		mux := asynq.NewServeMux()
		mux.HandleFunc(queue.TaskTypeDraftGrace, queueW.HandleDraftGraceTask)

		logger.Info("starting the asynq server")
		if err := server.Run(mux); err != nil {
			logger.WithFields(logging.Fields{"error": err}).Fatal("could not start asynq server")
		}
	}()

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			logger.WithFields(logging.Fields{"error": err}).Fatal("failed to start server")
		}
	}()
	logger.WithFields(logging.Fields{"port": cfg.Port, "platform": cfg.Platform}).Info("server is running")

	gracefulShutdown(logger, app, c, server, func() {
		clickRecorder.Close()
		if err := client.Close(); err != nil {
			logger.WithFields(logging.Fields{"error": err}).Warn("failed to close asynq client")
		}
		if err := inspector.Close(); err != nil {
			logger.WithFields(logging.Fields{"error": err}).Warn("failed to close asynq inspector")
		}
		if err := rdb.Close(); err != nil {
			logger.WithFields(logging.Fields{"error": err}).Warn("failed to close redis")
		}
		closeDB(logger, db)
	})
}

func mustAddCron(c *cron.Cron, spec string, fn func(), logger logging.Logger) {
	if err := c.AddFunc(spec, fn); err != nil {
		logger.WithFields(logging.Fields{"spec": spec, "error": err}).Fatal("invalid cron schedule")
	}
}

func closeDB(logger logging.Logger, db *sql.DB) {
	if err := db.Close(); err != nil {
		logger.WithFields(logging.Fields{"error": err}).Error("failed to close database")
		return
	}
	logger.Info("database connection closed")
}

func gracefulShutdown(logger logging.Logger, app *fiber.App, c *cron.Cron, server *asynq.Server, cleanup func()) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	logger.Info("shutting down server")

	if err := app.ShutdownWithTimeout(15 * time.Second); err != nil {
		logger.WithFields(logging.Fields{"error": err}).Error("failed to shut down server")
	}
	c.Stop()
	server.Shutdown()

	cleanup()
	logger.Info("server shutdown complete")
}
