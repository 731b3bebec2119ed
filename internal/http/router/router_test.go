package router_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prospecta/leads-api/internal/auth"
	"github.com/prospecta/leads-api/internal/config"
	"github.com/prospecta/leads-api/internal/enrichment"
	"github.com/prospecta/leads-api/internal/http/handler"
	"github.com/prospecta/leads-api/internal/http/middleware"
	"github.com/prospecta/leads-api/internal/http/router"
	"github.com/prospecta/leads-api/internal/repository"
	"github.com/prospecta/leads-api/internal/service"
	"github.com/prospecta/leads-api/internal/storage"
	"github.com/prospecta/leads-api/internal/testutil"
	"github.com/prospecta/leads-api/internal/webhook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testAPIKey = "test-api-key"

func setupRouter(t *testing.T, authEnabled bool) http.Handler {
	t.Helper()
	logger := zap.NewNop()
	db := testutil.SetupTestDB(t)

	cfg := &config.Config{
		App: config.AppConfig{Environment: "test"},
		Auth: config.AuthConfig{
			Enabled:   authEnabled,
			APIKey:    testAPIKey,
			JWTSecret: "router-test-secret",
		},
		Security: config.SecurityConfig{ContentTypeNosniff: true},
	}

	companies := repository.NewCompanyRepository(db)
	tags := repository.NewTagRepository(db)
	kanban := repository.NewKanbanRepository(db)
	audiences := repository.NewAudienceRepository(db)
	campaigns := repository.NewCampaignRepository(db)
	searches := repository.NewSavedSearchRepository(db)

	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	hooks := webhook.NewClient(&config.WebhookConfig{}, logger)

	enrichmentService := service.NewEnrichmentService(companies, enrichment.NewChain(), &config.EnrichmentConfig{}, logger)
	handlers := router.Handlers{
		Company:     handler.NewCompanyHandler(service.NewCompanyService(companies, tags, kanban, logger), enrichmentService, logger),
		Search:      handler.NewSearchHandler(service.NewSearchService(companies, hooks, logger), logger),
		Enrichment:  handler.NewEnrichmentHandler(enrichmentService, logger),
		Kanban:      handler.NewKanbanHandler(service.NewKanbanService(kanban, companies, logger), logger),
		Tag:         handler.NewTagHandler(service.NewTagService(tags, logger), logger),
		Audience:    handler.NewAudienceHandler(service.NewAudienceService(audiences, companies, logger), logger),
		Campaign:    handler.NewCampaignHandler(service.NewCampaignService(campaigns, audiences, companies, logger), logger),
		SavedSearch: handler.NewSavedSearchHandler(service.NewSavedSearchService(searches, logger), logger),
		FollowUp:    handler.NewFollowUpHandler(service.NewFollowUpService(companies, campaigns, hooks, logger), logger),
		Insights:    handler.NewInsightsHandler(service.NewInsightsService(companies, kanban, logger), logger),
		Export:      handler.NewExportHandler(service.NewExportService(companies, store, logger), logger),
	}

	rt := router.NewRouter(
		cfg,
		logger,
		db,
		nil,
		hooks,
		auth.NewMiddleware(&cfg.Auth, logger),
		middleware.NewRateLimiter(&cfg.RateLimit, logger),
		handlers,
	)
	return rt.Setup()
}

func do(h http.Handler, method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestRouter_Health(t *testing.T) {
	h := setupRouter(t, true)

	rr := do(h, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "OK", rr.Body.String())
	assert.NotEmpty(t, rr.Header().Get("X-Content-Type-Options"))

	rr = do(h, http.MethodGet, "/health/ready", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var ready struct {
		Status string                            `json:"status"`
		Checks map[string]map[string]interface{} `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &ready))
	assert.Equal(t, "healthy", ready.Status)
	assert.Equal(t, "healthy", ready.Checks["database"]["status"])
	assert.Equal(t, "disabled", ready.Checks["registry"]["status"])
	assert.Equal(t, false, ready.Checks["webhook"]["search_enabled"])
}

func TestRouter_DatabaseHealthHidesStatsFromAnonymous(t *testing.T) {
	h := setupRouter(t, true)

	rr := do(h, http.MethodGet, "/health/db", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotContains(t, rr.Body.String(), "stats")

	rr = do(h, http.MethodGet, "/health/db", "", map[string]string{"x-api-key": testAPIKey})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "stats")
}

func TestRouter_APIRequiresAuthentication(t *testing.T) {
	h := setupRouter(t, true)

	rr := do(h, http.MethodGet, "/api/tags", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = do(h, http.MethodGet, "/api/tags", "", map[string]string{"x-api-key": testAPIKey})
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "no-store", rr.Header().Get("Cache-Control"))
}

func TestRouter_DeleteRequiresAdmin(t *testing.T) {
	h := setupRouter(t, true)
	cfg := &config.AuthConfig{Enabled: true, JWTSecret: "router-test-secret"}

	token, err := auth.IssueToken(cfg, &auth.UserContext{
		UserID: uuid.New(),
		Email:  "seller@example.com",
		Roles:  []string{"sales"},
	}, time.Hour)
	require.NoError(t, err)

	target := "/api/tags/" + uuid.NewString()
	rr := do(h, http.MethodDelete, target, "", map[string]string{"Authorization": "Bearer " + token})
	assert.Equal(t, http.StatusForbidden, rr.Code)

	// the API key passes role checks, so the request reaches the handler
	rr = do(h, http.MethodDelete, target, "", map[string]string{"x-api-key": testAPIKey})
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRouter_Routes(t *testing.T) {
	h := setupRouter(t, false)

	tests := []struct {
		name   string
		method string
		target string
		body   string
		want   int
	}{
		{"list companies", http.MethodGet, "/api/companies", "", http.StatusOK},
		{"local search", http.MethodPost, "/api/search-leads?source=local", `{"uf":"RS"}`, http.StatusOK},
		{"direct search without webhook", http.MethodPost, "/api/direct-search", `{}`, http.StatusServiceUnavailable},
		{"kanban", http.MethodGet, "/api/kanban-leads", "", http.StatusOK},
		{"audiences", http.MethodGet, "/api/audiences", "", http.StatusOK},
		{"campaigns", http.MethodGet, "/api/campaigns", "", http.StatusOK},
		{"saved searches", http.MethodGet, "/api/saved-searches", "", http.StatusOK},
		{"insights", http.MethodGet, "/api/insights/overview", "", http.StatusOK},
		{"export", http.MethodPost, "/api/exports/leads", `{}`, http.StatusCreated},
		{"missing export", http.MethodGet, "/api/exports/leads-missing.csv", "", http.StatusNotFound},
		{"unknown route", http.MethodGet, "/api/nope", "", http.StatusNotFound},
		{"swagger disabled", http.MethodGet, "/swagger/index.html", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(h, tt.method, tt.target, tt.body, nil)
			assert.Equal(t, tt.want, rr.Code, rr.Body.String())
		})
	}
}
