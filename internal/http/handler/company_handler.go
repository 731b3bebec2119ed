package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prospecta/leads-api/internal/domain"
	"github.com/prospecta/leads-api/internal/service"
	"go.uber.org/zap"
)

type CompanyHandler struct {
	companyService    *service.CompanyService
	enrichmentService *service.EnrichmentService
	logger            *zap.Logger
}

func NewCompanyHandler(companyService *service.CompanyService, enrichmentService *service.EnrichmentService, logger *zap.Logger) *CompanyHandler {
	return &CompanyHandler{
		companyService:    companyService,
		enrichmentService: enrichmentService,
		logger:            logger,
	}
}

// List godoc
// @Summary List companies
// @Description Companies ordered by score, including leads on the pipeline board
// @Tags Companies
// @Produce json
// @Param search query string false "Search by legal or trade name"
// @Param tag query string false "Tag ID"
// @Param minScore query int false "Minimum score"
// @Param maxScore query int false "Maximum score"
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page (max 1000)" default(50)
// @Success 200 {object} domain.SearchResult
// @Failure 400 {object} domain.APIError
// @Failure 500 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /companies [get]
func (h *CompanyHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := service.CompanyListParams{
		Search: q.Get("search"),
		TagID:  q.Get("tag"),
	}
	params.Page, _ = strconv.Atoi(q.Get("page"))
	params.Limit, _ = strconv.Atoi(q.Get("limit"))

	for name, dst := range map[string]**int{"minScore": &params.MinScore, "maxScore": &params.MaxScore} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid "+name)
			return
		}
		*dst = &v
	}

	result, err := h.companyService.List(r.Context(), params)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to list companies")
		return
	}
	respondSearchResult(w, "companies", result)
}

// Get godoc
// @Summary Get company
// @Tags Companies
// @Produce json
// @Param id path string true "Company ID"
// @Success 200 {object} domain.LeadDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /companies/{id} [get]
func (h *CompanyHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	company, err := h.companyService.GetByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to get company")
		return
	}
	respondOK(w, http.StatusOK, "company", company)
}

// Upsert godoc
// @Summary Import companies
// @Description Creates or updates companies by CNPJ. Accepts one object or an array.
// @Tags Companies
// @Accept json
// @Produce json
// @Param request body []domain.CompanyInput true "Companies"
// @Success 200 {object} service.UpsertResult
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /companies [post]
func (h *CompanyHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var inputs []domain.CompanyInput
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		err = json.Unmarshal(trimmed, &inputs)
	} else {
		var single domain.CompanyInput
		err = json.Unmarshal(trimmed, &single)
		inputs = []domain.CompanyInput{single}
	}
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(inputs) == 0 {
		respondWithError(w, http.StatusBadRequest, "At least one company is required")
		return
	}
	for i := range inputs {
		if err := validate.Struct(&inputs[i]); err != nil {
			respondValidationError(w, err)
			return
		}
	}

	result, err := h.companyService.Upsert(r.Context(), inputs)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to import companies")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"companies": result.Companies,
		"created":   result.Created,
		"updated":   result.Updated,
	})
}

// ApplyTags godoc
// @Summary Tag companies
// @Description Links a tag to companies by CNPJ. Existing links are kept.
// @Tags Companies
// @Accept json
// @Produce json
// @Param request body domain.ApplyTagsRequest true "Companies and tag"
// @Success 200 {object} service.ApplyTagsResult
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /companies/apply-tags [post]
func (h *CompanyHandler) ApplyTags(w http.ResponseWriter, r *http.Request) {
	var req domain.ApplyTagsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	result, err := h.companyService.ApplyTags(r.Context(), &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to apply tags")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"tagged":  result.Tagged,
		"missing": result.Missing,
	})
}

// EnrichManual godoc
// @Summary Enrich company by hand
// @Tags Enrichment
// @Accept json
// @Produce json
// @Param id path string true "Company ID"
// @Param request body domain.ManualEnrichmentRequest true "Contact data"
// @Success 200 {object} domain.LeadDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /companies/{id}/enrich [put]
func (h *CompanyHandler) EnrichManual(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	var req domain.ManualEnrichmentRequest
	if !decodeBody(w, r, &req) {
		return
	}
	company, err := h.enrichmentService.Manual(r.Context(), id, &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to enrich company")
		return
	}
	respondOK(w, http.StatusOK, "company", company)
}

// EnrichLookup godoc
// @Summary Enrich company from the lookup providers
// @Tags Enrichment
// @Produce json
// @Param id path string true "Company ID"
// @Success 200 {object} domain.LeadDTO
// @Failure 404 {object} domain.APIError
// @Failure 502 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /companies/{id}/enrich [post]
func (h *CompanyHandler) EnrichLookup(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	company, err := h.enrichmentService.Lookup(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to enrich company")
		return
	}
	respondOK(w, http.StatusOK, "company", company)
}

// UpdateLeadStatus godoc
// @Summary Update lead status
// @Description Sets enrichment, pipeline and follow-up state of a lead
// @Tags Companies
// @Accept json
// @Produce json
// @Param cnpj path string true "CNPJ, formatted or digits"
// @Param request body domain.LeadStatusRequest true "Status fields"
// @Success 200 {object} domain.LeadDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /leads/{cnpj}/status [put]
func (h *CompanyHandler) UpdateLeadStatus(w http.ResponseWriter, r *http.Request) {
	cnpj := chi.URLParam(r, "cnpj")
	if len(domain.DigitsOnly(cnpj)) != 14 {
		respondWithError(w, http.StatusBadRequest, "Invalid cnpj")
		return
	}
	var req domain.LeadStatusRequest
	if !decodeBody(w, r, &req) {
		return
	}
	lead, err := h.companyService.UpdateLeadStatus(r.Context(), cnpj, &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to update lead status")
		return
	}
	respondOK(w, http.StatusOK, "lead", lead)
}

// respondSearchResult writes a lead page with its pagination fields
func respondSearchResult(w http.ResponseWriter, key string, result *domain.SearchResult) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		key:          result.Leads,
		"total":      result.Total,
		"page":       result.Page,
		"limit":      result.Limit,
		"totalPages": result.TotalPages,
		"hasMore":    result.HasMore,
		"estimated":  result.Estimated,
		"source":     result.Source,
	})
}
