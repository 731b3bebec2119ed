package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prospecta/leads-api/docs"
	"github.com/prospecta/leads-api/internal/auth"
	"github.com/prospecta/leads-api/internal/config"
	"github.com/prospecta/leads-api/internal/database"
	"github.com/prospecta/leads-api/internal/enrichment"
	"github.com/prospecta/leads-api/internal/http/handler"
	"github.com/prospecta/leads-api/internal/http/middleware"
	"github.com/prospecta/leads-api/internal/http/router"
	"github.com/prospecta/leads-api/internal/jobs"
	"github.com/prospecta/leads-api/internal/logger"
	"github.com/prospecta/leads-api/internal/registry"
	"github.com/prospecta/leads-api/internal/repository"
	"github.com/prospecta/leads-api/internal/service"
	"github.com/prospecta/leads-api/internal/storage"
	"github.com/prospecta/leads-api/internal/webhook"
	"go.uber.org/zap"
)

// @title Prospecta Leads API
// @version 1.0
// @description B2B lead prospecting API: search, scoring, pipeline, enrichment and campaigns

// @contact.name API Support

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Bearer token

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name x-api-key
// @description API key for system operations

const shutdownTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	// Basic configuration first, for logging setup
	basicCfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewLogger(&basicCfg.Logging, &basicCfg.App)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting application",
		zap.String("app", basicCfg.App.Name),
		zap.String("env", basicCfg.App.Environment),
		zap.Int("port", basicCfg.App.Port),
	)

	if host := os.Getenv("SWAGGER_HOST"); host != "" {
		docs.SwaggerInfo.Host = host
	} else {
		docs.SwaggerInfo.Host = fmt.Sprintf("localhost:%d", basicCfg.App.Port)
	}

	// Full configuration, with secrets from Key Vault in staging/production
	cfg, err := config.LoadWithSecrets(ctx, log)
	if err != nil {
		return fmt.Errorf("failed to load secrets: %w", err)
	}

	db, err := database.NewDatabase(&cfg.Database, log)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if cfg.Database.AutoMigrate {
		if err := database.AutoMigrate(db); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
		log.Info("Database schema migrated from models")
	}

	exportStorage, err := storage.NewStorage(&cfg.Storage, log)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	log.Info("Storage initialized", zap.String("mode", cfg.Storage.Mode))

	// The registry is optional; the API runs without it
	registryClient, err := registry.NewClient(&cfg.Registry, log)
	if err != nil {
		log.Warn("Company registry connection failed, continuing without it", zap.Error(err))
		registryClient = nil
	}

	webhookClient := webhook.NewClient(&cfg.Webhook, log)
	log.Info("Webhooks configured",
		zap.Bool("search", webhookClient.SearchEnabled()),
		zap.Bool("followup", webhookClient.FollowUpEnabled()),
	)

	// Registry first since it answers from a local mirror
	var providers []enrichment.Provider
	if registryClient.IsEnabled() {
		providers = append(providers, enrichment.NewRegistryProvider(registryClient))
	}
	if cfg.Enrichment.LookupURL != "" {
		providers = append(providers, enrichment.NewHTTPProvider(&cfg.Enrichment, log))
	}
	enrichmentChain := enrichment.NewChain(providers...)
	log.Info("Enrichment providers configured",
		zap.Int("count", enrichmentChain.Len()),
		zap.String("providers", enrichmentChain.Name()),
	)

	// Repositories
	companyRepo := repository.NewCompanyRepository(db)
	tagRepo := repository.NewTagRepository(db)
	kanbanRepo := repository.NewKanbanRepository(db)
	audienceRepo := repository.NewAudienceRepository(db)
	campaignRepo := repository.NewCampaignRepository(db)
	savedSearchRepo := repository.NewSavedSearchRepository(db)

	// Services
	companyService := service.NewCompanyService(companyRepo, tagRepo, kanbanRepo, log)
	searchService := service.NewSearchService(companyRepo, webhookClient, log)
	enrichmentService := service.NewEnrichmentService(companyRepo, enrichmentChain, &cfg.Enrichment, log)
	kanbanService := service.NewKanbanService(kanbanRepo, companyRepo, log)
	tagService := service.NewTagService(tagRepo, log)
	audienceService := service.NewAudienceService(audienceRepo, companyRepo, log)
	campaignService := service.NewCampaignService(campaignRepo, audienceRepo, companyRepo, log)
	savedSearchService := service.NewSavedSearchService(savedSearchRepo, log)
	followUpService := service.NewFollowUpService(companyRepo, campaignRepo, webhookClient, log)
	insightsService := service.NewInsightsService(companyRepo, kanbanRepo, log)
	exportService := service.NewExportService(companyRepo, exportStorage, log)

	// Middleware
	authMiddleware := auth.NewMiddleware(&cfg.Auth, log)
	rateLimiter := middleware.NewRateLimiter(&cfg.RateLimit, log)

	rt := router.NewRouter(
		cfg,
		log,
		db,
		registryClient,
		webhookClient,
		authMiddleware,
		rateLimiter,
		router.Handlers{
			Company:     handler.NewCompanyHandler(companyService, enrichmentService, log),
			Search:      handler.NewSearchHandler(searchService, log),
			Enrichment:  handler.NewEnrichmentHandler(enrichmentService, log),
			Kanban:      handler.NewKanbanHandler(kanbanService, log),
			Tag:         handler.NewTagHandler(tagService, log),
			Audience:    handler.NewAudienceHandler(audienceService, log),
			Campaign:    handler.NewCampaignHandler(campaignService, log),
			SavedSearch: handler.NewSavedSearchHandler(savedSearchService, log),
			FollowUp:    handler.NewFollowUpHandler(followUpService, log),
			Insights:    handler.NewInsightsHandler(insightsService, log),
			Export:      handler.NewExportHandler(exportService, log),
		},
	)

	var scheduler *jobs.Scheduler
	if cfg.Jobs.Enabled {
		scheduler = jobs.NewScheduler(log)
		if err := jobs.RegisterCampaignActivationJob(scheduler, campaignService, log, cfg.Jobs.CampaignSchedule); err != nil {
			return fmt.Errorf("failed to register campaign job: %w", err)
		}
		if err := jobs.RegisterRescoreJob(scheduler, companyService, cfg.Jobs.RescoreBatchSize, log, cfg.Jobs.RescoreSchedule); err != nil {
			return fmt.Errorf("failed to register rescore job: %w", err)
		}
		scheduler.Start()
	} else {
		log.Info("Background jobs disabled")
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      rt.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeoutDuration(),
		WriteTimeout: cfg.Server.WriteTimeoutDuration(),
		IdleTimeout:  cfg.Server.IdleTimeoutDuration(),
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Failed to shutdown gracefully", zap.Error(err))
		return err
	}

	if scheduler != nil {
		select {
		case <-scheduler.Stop().Done():
			log.Info("Scheduler stopped")
		case <-ctx.Done():
			log.Warn("Scheduler did not stop before the shutdown deadline")
		}
	}

	if err := registryClient.Close(); err != nil {
		log.Warn("Error closing company registry connection", zap.Error(err))
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}

	log.Info("Server stopped gracefully")
	return nil
}
