package handler

import (
	"net/http"

	"github.com/prospecta/leads-api/internal/domain"
	"github.com/prospecta/leads-api/internal/service"
	"go.uber.org/zap"
)

type AudienceHandler struct {
	audienceService *service.AudienceService
	logger          *zap.Logger
}

func NewAudienceHandler(audienceService *service.AudienceService, logger *zap.Logger) *AudienceHandler {
	return &AudienceHandler{audienceService: audienceService, logger: logger}
}

// List godoc
// @Summary List audiences
// @Tags Audiences
// @Produce json
// @Success 200 {array} domain.AudienceDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /audiences [get]
func (h *AudienceHandler) List(w http.ResponseWriter, r *http.Request) {
	audiences, err := h.audienceService.List(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to list audiences")
		return
	}
	respondOK(w, http.StatusOK, "audiences", audiences)
}

// Get godoc
// @Summary Get audience
// @Tags Audiences
// @Produce json
// @Param id path string true "Audience ID"
// @Success 200 {object} domain.AudienceDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /audiences/{id} [get]
func (h *AudienceHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	audience, err := h.audienceService.GetByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to get audience")
		return
	}
	respondOK(w, http.StatusOK, "audience", audience)
}

// Create godoc
// @Summary Create audience
// @Description Filters use the search filter fields; situacao, keywords and hasFantasia are accepted as aliases
// @Tags Audiences
// @Accept json
// @Produce json
// @Param request body domain.CreateAudienceRequest true "Audience"
// @Success 201 {object} domain.AudienceDTO
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /audiences [post]
func (h *AudienceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateAudienceRequest
	if !decodeBody(w, r, &req) {
		return
	}
	audience, err := h.audienceService.Create(r.Context(), &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to create audience")
		return
	}
	respondOK(w, http.StatusCreated, "audience", audience)
}

// Update godoc
// @Summary Update audience
// @Tags Audiences
// @Accept json
// @Produce json
// @Param id path string true "Audience ID"
// @Param request body domain.UpdateAudienceRequest true "Fields"
// @Success 200 {object} domain.AudienceDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /audiences/{id} [put]
func (h *AudienceHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	var req domain.UpdateAudienceRequest
	if !decodeBody(w, r, &req) {
		return
	}
	audience, err := h.audienceService.Update(r.Context(), id, &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to update audience")
		return
	}
	respondOK(w, http.StatusOK, "audience", audience)
}

// Delete godoc
// @Summary Delete audience
// @Tags Audiences
// @Param id path string true "Audience ID"
// @Success 204
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /audiences/{id} [delete]
func (h *AudienceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	if err := h.audienceService.Delete(r.Context(), id); err != nil {
		respondServiceError(w, h.logger, err, "failed to delete audience")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
