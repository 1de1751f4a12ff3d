package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/issuetracker/tracker-bot-go/internal/config"
	"github.com/issuetracker/tracker-bot-go/internal/conversation"
	"github.com/issuetracker/tracker-bot-go/internal/database"
	"github.com/issuetracker/tracker-bot-go/internal/handler"
	"github.com/issuetracker/tracker-bot-go/internal/httputil"
	"github.com/issuetracker/tracker-bot-go/internal/jobs"
	"github.com/issuetracker/tracker-bot-go/internal/middleware"
	"github.com/issuetracker/tracker-bot-go/internal/redis"
	"github.com/issuetracker/tracker-bot-go/internal/repository"
	"github.com/issuetracker/tracker-bot-go/internal/service"
	"github.com/issuetracker/tracker-bot-go/internal/sheets"
	"github.com/issuetracker/tracker-bot-go/internal/taxonomy"
	"github.com/issuetracker/tracker-bot-go/internal/telegram"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
	if err := db.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}
	if err := db.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}
	cancel()
	log.Info().Msg("database connected")

	redisCtx, redisCancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
	redisClient, err := redis.NewClient(redisCtx, cfg.RedisURL)
	redisCancel()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected")

	deviceRepo := repository.NewDeviceRepository(db.DB)
	messageRepo := repository.NewPredefinedMessageRepository(db.DB)
	recordRepo := repository.NewRecordRepository(db.DB)
	userRepo := repository.NewUserRepository(db.DB)

	taxonomyCache := taxonomy.NewCache(deviceRepo, messageRepo)
	loadCtx, loadCancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
	if err := taxonomyCache.Refresh(loadCtx); err != nil {
		log.Warn().Err(err).Msg("initial taxonomy load failed, retrying on first use")
	}
	loadCancel()

	reportService := service.NewReportService(userRepo, recordRepo)
	sessions := conversation.NewStore(cfg.SessionTTL())
	machine := conversation.NewMachine(taxonomyCache, reportService, sessions, conversation.DefaultLayout)

	// nil when the spreadsheet integration is off
	var (
		syncer   *service.ContextSyncService
		exporter *service.ExportService
	)
	if cfg.SheetsEnabled() {
		sheetsCtx, sheetsCancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
		sheetsClient, err := sheets.NewClient(sheetsCtx, cfg.GoogleCredentialsPath)
		sheetsCancel()
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create google sheets client")
		}
		if cfg.ContextSheetID != "" {
			source := sheets.NewContextSource(sheetsClient, cfg.ContextSheetID)
			syncer = service.NewContextSyncService(source, db, deviceRepo, messageRepo, taxonomyCache)
		}
		if cfg.TrackingSheetID != "" {
			exporter = service.NewExportService(recordRepo, sheets.NewExporter(sheetsClient, cfg.TrackingSheetID))
		}
		log.Info().Bool("sync", syncer != nil).Bool("export", exporter != nil).Msg("google sheets enabled")
	}

	bot, err := telegram.NewBot(cfg.TelegramToken)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to telegram")
	}
	log.Info().Str("bot", bot.Self.UserName).Msg("telegram connected")

	opts := telegram.Options{
		AuthorizedIDs:  cfg.AuthorizedIDs,
		AdminIDs:       cfg.AdminIDs,
		Limiter:        service.NewRateLimiter(redisClient.Client),
		UserRatePerMin: cfg.UserRateLimitPerMin,
		Dedup:          service.NewUpdateDeduplicator(redisClient.Client, config.UpdateDedupTTL),
	}
	var adminSyncer handler.ContextSyncer
	var adminExporter handler.ReportExporter
	if syncer != nil {
		opts.Syncer = syncer
		adminSyncer = syncer
	}
	if exporter != nil {
		opts.Exporter = exporter
		adminExporter = exporter
	}
	dispatcher := telegram.NewDispatcher(bot, machine, opts)

	adminBodyLimit := middleware.NewBodyLimitMiddleware(config.AdminMaxBodyBytes)
	updateBodyLimit := middleware.NewUpdateBodyLimitMiddleware(config.TelegramMaxUpdateBytes)
	telegramSecretMiddleware := middleware.NewTelegramSecretMiddleware(cfg.WebhookSecret)
	adminAuthMiddleware := middleware.NewAdminAuthMiddleware(cfg.AdminTokenHash)
	apiHeadersMiddleware := middleware.NewAPIHeadersMiddleware()

	adminHandler := handler.NewAdminHandler(reportService, taxonomyCache, adminSyncer, adminExporter)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), config.DBPingTimeout)
		defer cancel()

		status, code := "ok", http.StatusOK
		dbStatus, redisStatus := "ok", "ok"
		if err := db.Ping(ctx); err != nil {
			dbStatus, status, code = "down", "degraded", http.StatusServiceUnavailable
		}
		if err := redisClient.Ping(ctx).Err(); err != nil {
			redisStatus, status, code = "down", "degraded", http.StatusServiceUnavailable
		}

		httputil.WriteJSON(w, code, map[string]any{
			"status":     status,
			"database":   dbStatus,
			"redis":      redisStatus,
			"sessions":   sessions.Len(),
			"taxonomyAt": taxonomyCache.RefreshedAt(),
			"timestamp":  time.Now().UnixMilli(),
		})
	})

	if cfg.TelegramMode == config.ModeWebhook {
		r.Route("/telegram", func(r chi.Router) {
			r.Use(telegramSecretMiddleware.Handler)
			r.Use(updateBodyLimit.Handler)
			r.Post("/webhook", telegram.NewWebhookHandler(dispatcher).ServeHTTP)
		})
	}

	r.Route("/admin", func(r chi.Router) {
		r.Use(apiHeadersMiddleware.Handler)
		r.Use(adminAuthMiddleware.Handler)
		r.Use(adminBodyLimit.Handler)
		r.Mount("/", adminHandler.Routes())
	})

	var tasks []jobs.Task
	tasks = append(tasks, jobs.SessionEvictionTask(sessions, sessionSweepInterval(cfg)))
	if syncer != nil {
		tasks = append(tasks, jobs.ContextSyncTask(syncer, cfg.ContextSyncInterval()))
	}
	maintenanceJob := jobs.NewMaintenanceJob(tasks...)
	maintenanceJob.Start()
	defer maintenanceJob.Stop()

	pollCtx, stopPolling := context.WithCancel(context.Background())
	defer stopPolling()
	if cfg.TelegramMode == config.ModePolling {
		// getUpdates is rejected while a webhook is registered.
		if _, err := bot.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
			log.Fatal().Err(err).Msg("failed to delete telegram webhook")
		}
		go telegram.NewPoller(bot, dispatcher).Run(pollCtx)
	}

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: config.ServerWriteTimeout,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Str("mode", cfg.TelegramMode).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	stopPolling()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

// sessionSweepInterval is zero, which disables the task, when sessions never
// expire.
func sessionSweepInterval(cfg *config.Config) time.Duration {
	if cfg.SessionTTL() == 0 {
		return 0
	}
	return config.SessionSweepInterval
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
