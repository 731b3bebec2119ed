package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prospecta/leads-api/internal/auth"
	"github.com/prospecta/leads-api/internal/config"
	"github.com/prospecta/leads-api/internal/database"
	"github.com/prospecta/leads-api/internal/http/handler"
	"github.com/prospecta/leads-api/internal/http/middleware"
	"github.com/prospecta/leads-api/internal/registry"
	"github.com/prospecta/leads-api/internal/webhook"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	_ "github.com/prospecta/leads-api/docs" // swagger docs
)

// Handlers groups the HTTP handlers mounted under /api
type Handlers struct {
	Company     *handler.CompanyHandler
	Search      *handler.SearchHandler
	Enrichment  *handler.EnrichmentHandler
	Kanban      *handler.KanbanHandler
	Tag         *handler.TagHandler
	Audience    *handler.AudienceHandler
	Campaign    *handler.CampaignHandler
	SavedSearch *handler.SavedSearchHandler
	FollowUp    *handler.FollowUpHandler
	Insights    *handler.InsightsHandler
	Export      *handler.ExportHandler
}

type Router struct {
	cfg            *config.Config
	logger         *zap.Logger
	db             *gorm.DB
	registry       *registry.Client
	webhook        *webhook.Client
	authMiddleware *auth.Middleware
	rateLimiter    *middleware.RateLimiter
	h              Handlers
}

// NewRouter wires the handlers. registryClient and webhookClient may be nil
// when those integrations are not configured.
func NewRouter(
	cfg *config.Config,
	logger *zap.Logger,
	db *gorm.DB,
	registryClient *registry.Client,
	webhookClient *webhook.Client,
	authMiddleware *auth.Middleware,
	rateLimiter *middleware.RateLimiter,
	handlers Handlers,
) *Router {
	return &Router{
		cfg:            cfg,
		logger:         logger,
		db:             db,
		registry:       registryClient,
		webhook:        webhookClient,
		authMiddleware: authMiddleware,
		rateLimiter:    rateLimiter,
		h:              handlers,
	}
}

func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Recovery(rt.logger))
	r.Use(middleware.Logging(rt.logger))
	r.Use(middleware.SecurityHeaders(&rt.cfg.Security))
	r.Use(middleware.CORS(&rt.cfg.CORS, rt.cfg.App.Environment, rt.logger))
	r.Use(rt.rateLimiter.LimitByIP)

	// liveness
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.With(rt.authMiddleware.OptionalAuthenticate).Get("/health/db", rt.databaseHealth)
	r.Get("/health/ready", rt.readiness)

	if rt.cfg.Server.EnableSwagger {
		r.Get("/swagger/*", httpSwagger.Handler(
			httpSwagger.URL("/swagger/doc.json"),
		))
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(rt.authMiddleware.Authenticate)
		admin := rt.authMiddleware.RequireRole(auth.RoleAdmin)

		r.Post("/search-leads", rt.h.Search.Search)
		r.Post("/direct-search", rt.h.Search.DirectSearch)

		r.Route("/companies", func(r chi.Router) {
			r.Get("/", rt.h.Company.List)
			r.Post("/", rt.h.Company.Upsert)
			r.Post("/apply-tags", rt.h.Company.ApplyTags)
			r.Get("/{id}", rt.h.Company.Get)
			r.Put("/{id}/enrich", rt.h.Company.EnrichManual)
			r.Post("/{id}/enrich", rt.h.Company.EnrichLookup)
		})
		r.Put("/leads/{cnpj}/status", rt.h.Company.UpdateLeadStatus)

		r.Post("/enrich-lead", rt.h.Enrichment.EnrichLead)
		r.With(admin).Post("/enrich/bulk", rt.h.Enrichment.Bulk)

		r.Route("/kanban-leads", func(r chi.Router) {
			r.Get("/", rt.h.Kanban.List)
			r.Post("/", rt.h.Kanban.Create)
			r.Post("/restore", rt.h.Kanban.Restore)
			r.Put("/{id}", rt.h.Kanban.Update)
			r.Delete("/{id}", rt.h.Kanban.Delete)
		})

		r.Route("/tags", func(r chi.Router) {
			r.Get("/", rt.h.Tag.List)
			r.Post("/", rt.h.Tag.Create)
			r.Put("/{id}", rt.h.Tag.Update)
			r.With(admin).Delete("/{id}", rt.h.Tag.Delete)
		})

		r.Route("/audiences", func(r chi.Router) {
			r.Get("/", rt.h.Audience.List)
			r.Post("/", rt.h.Audience.Create)
			r.Get("/{id}", rt.h.Audience.Get)
			r.Put("/{id}", rt.h.Audience.Update)
			r.With(admin).Delete("/{id}", rt.h.Audience.Delete)
		})

		r.Route("/campaigns", func(r chi.Router) {
			r.Get("/", rt.h.Campaign.List)
			r.Post("/", rt.h.Campaign.Create)
			r.Get("/{id}", rt.h.Campaign.Get)
			r.Put("/{id}", rt.h.Campaign.Update)
			r.With(admin).Delete("/{id}", rt.h.Campaign.Delete)
			r.Post("/{id}/start", rt.h.Campaign.Start)
			r.Post("/{id}/pause", rt.h.Campaign.Pause)
			r.Post("/{id}/complete", rt.h.Campaign.Complete)
			r.Post("/{id}/fail", rt.h.Campaign.Fail)
			r.Post("/{id}/preview", rt.h.Campaign.Preview)
		})

		r.Route("/saved-searches", func(r chi.Router) {
			r.Get("/", rt.h.SavedSearch.List)
			r.Post("/", rt.h.SavedSearch.Create)
			r.Put("/{id}", rt.h.SavedSearch.Update)
			r.With(admin).Delete("/{id}", rt.h.SavedSearch.Delete)
			r.Post("/{id}/use", rt.h.SavedSearch.Use)
		})

		r.Post("/send-followup", rt.h.FollowUp.Send)
		r.Get("/insights/overview", rt.h.Insights.Overview)

		r.Post("/exports/leads", rt.h.Export.ExportLeads)
		r.Get("/exports/*", rt.h.Export.Download)
	})

	return r
}

// databaseHealth reports pool statistics. When auth is enabled they are only
// shown to authenticated callers.
func (rt *Router) databaseHealth(w http.ResponseWriter, r *http.Request) {
	stats, err := database.HealthCheckWithStats(r.Context(), rt.db)
	if err != nil {
		rt.logger.Error("database health check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":  "unhealthy",
			"service": "database",
		})
		return
	}

	body := map[string]interface{}{"status": "healthy", "service": "database"}
	if _, ok := auth.FromContext(r.Context()); ok || !rt.cfg.Auth.Enabled {
		body["stats"] = stats
	}
	writeJSON(w, http.StatusOK, body)
}

// readiness checks the database, which the API cannot serve without, and
// reports the optional integrations without failing on them.
func (rt *Router) readiness(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]interface{})
	status := http.StatusOK

	if err := database.HealthCheck(r.Context(), rt.db); err != nil {
		rt.logger.Error("database health check failed", zap.Error(err))
		checks["database"] = map[string]string{"status": "unhealthy"}
		status = http.StatusServiceUnavailable
	} else {
		checks["database"] = map[string]string{"status": "healthy"}
	}

	if rt.registry.IsEnabled() {
		checks["registry"] = rt.registry.HealthCheck(r.Context())
	} else {
		checks["registry"] = map[string]string{"status": "disabled"}
	}

	if rt.webhook != nil {
		checks["webhook"] = map[string]interface{}{
			"search_enabled":   rt.webhook.SearchEnabled(),
			"followup_enabled": rt.webhook.FollowUpEnabled(),
			"breakers":         rt.webhook.BreakerStates(),
		}
	}

	overall := "healthy"
	if status != http.StatusOK {
		overall = "unhealthy"
	}
	writeJSON(w, status, map[string]interface{}{
		"status": overall,
		"checks": checks,
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
