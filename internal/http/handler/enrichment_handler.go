package handler

import (
	"net/http"

	"github.com/prospecta/leads-api/internal/domain"
	"github.com/prospecta/leads-api/internal/service"
	"go.uber.org/zap"
)

type EnrichmentHandler struct {
	enrichmentService *service.EnrichmentService
	logger            *zap.Logger
}

func NewEnrichmentHandler(enrichmentService *service.EnrichmentService, logger *zap.Logger) *EnrichmentHandler {
	return &EnrichmentHandler{enrichmentService: enrichmentService, logger: logger}
}

// EnrichLead godoc
// @Summary Look up a CNPJ
// @Description Returns the provider profile of a CNPJ without storing it
// @Tags Enrichment
// @Accept json
// @Produce json
// @Param request body domain.EnrichLeadRequest true "CNPJ"
// @Success 200 {object} enrichment.Profile
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Failure 502 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /enrich-lead [post]
func (h *EnrichmentHandler) EnrichLead(w http.ResponseWriter, r *http.Request) {
	var req domain.EnrichLeadRequest
	if !decodeBody(w, r, &req) {
		return
	}
	profile, err := h.enrichmentService.LookupCNPJ(r.Context(), req.CNPJ)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to look up cnpj")
		return
	}
	respondOK(w, http.StatusOK, "data", profile)
}

// Bulk godoc
// @Summary Enrich companies in bulk
// @Description Enriches companies one at a time at the configured rate. Returns per-item outcomes.
// @Tags Enrichment
// @Accept json
// @Produce json
// @Param request body domain.BulkEnrichmentRequest true "Company IDs"
// @Success 200 {object} domain.BulkEnrichmentResult
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /enrich/bulk [post]
func (h *EnrichmentHandler) Bulk(w http.ResponseWriter, r *http.Request) {
	var req domain.BulkEnrichmentRequest
	if !decodeBody(w, r, &req) {
		return
	}
	result, err := h.enrichmentService.Bulk(r.Context(), &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "bulk enrichment failed")
		return
	}
	respondOK(w, http.StatusOK, "result", result)
}
