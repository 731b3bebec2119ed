package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/prospecta/leads-api/internal/domain"
	"github.com/prospecta/leads-api/internal/service"
	"go.uber.org/zap"
)

type CampaignHandler struct {
	campaignService *service.CampaignService
	logger          *zap.Logger
}

func NewCampaignHandler(campaignService *service.CampaignService, logger *zap.Logger) *CampaignHandler {
	return &CampaignHandler{campaignService: campaignService, logger: logger}
}

// List godoc
// @Summary List campaigns
// @Tags Campaigns
// @Produce json
// @Param status query string false "Status" Enums(draft, active, paused, completed, failed)
// @Success 200 {array} domain.CampaignDTO
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /campaigns [get]
func (h *CampaignHandler) List(w http.ResponseWriter, r *http.Request) {
	var status *domain.CampaignStatus
	if s := r.URL.Query().Get("status"); s != "" {
		st := domain.CampaignStatus(s)
		if !st.IsValid() {
			respondWithError(w, http.StatusBadRequest, "Invalid status")
			return
		}
		status = &st
	}
	campaigns, err := h.campaignService.List(r.Context(), status)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to list campaigns")
		return
	}
	respondOK(w, http.StatusOK, "campaigns", campaigns)
}

// Get godoc
// @Summary Get campaign
// @Tags Campaigns
// @Produce json
// @Param id path string true "Campaign ID"
// @Success 200 {object} domain.CampaignDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /campaigns/{id} [get]
func (h *CampaignHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.withID(w, r, "failed to get campaign", h.campaignService.GetByID)
}

// Create godoc
// @Summary Create campaign
// @Description New campaigns start as drafts. scheduled_at is RFC 3339.
// @Tags Campaigns
// @Accept json
// @Produce json
// @Param request body domain.CreateCampaignRequest true "Campaign"
// @Success 201 {object} domain.CampaignDTO
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /campaigns [post]
func (h *CampaignHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateCampaignRequest
	if !decodeBody(w, r, &req) {
		return
	}
	campaign, err := h.campaignService.Create(r.Context(), &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to create campaign")
		return
	}
	respondOK(w, http.StatusCreated, "campaign", campaign)
}

// Update godoc
// @Summary Update campaign
// @Description Completed and failed campaigns cannot be edited. An empty scheduled_at clears the schedule.
// @Tags Campaigns
// @Accept json
// @Produce json
// @Param id path string true "Campaign ID"
// @Param request body domain.UpdateCampaignRequest true "Fields"
// @Success 200 {object} domain.CampaignDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /campaigns/{id} [put]
func (h *CampaignHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	var req domain.UpdateCampaignRequest
	if !decodeBody(w, r, &req) {
		return
	}
	campaign, err := h.campaignService.Update(r.Context(), id, &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to update campaign")
		return
	}
	respondOK(w, http.StatusOK, "campaign", campaign)
}

// Delete godoc
// @Summary Delete campaign
// @Tags Campaigns
// @Param id path string true "Campaign ID"
// @Success 204
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /campaigns/{id} [delete]
func (h *CampaignHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	if err := h.campaignService.Delete(r.Context(), id); err != nil {
		respondServiceError(w, h.logger, err, "failed to delete campaign")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Start godoc
// @Summary Start or resume campaign
// @Tags Campaigns
// @Produce json
// @Param id path string true "Campaign ID"
// @Success 200 {object} domain.CampaignDTO
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /campaigns/{id}/start [post]
func (h *CampaignHandler) Start(w http.ResponseWriter, r *http.Request) {
	h.withID(w, r, "failed to start campaign", h.campaignService.Start)
}

// Pause godoc
// @Summary Pause campaign
// @Tags Campaigns
// @Produce json
// @Param id path string true "Campaign ID"
// @Success 200 {object} domain.CampaignDTO
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /campaigns/{id}/pause [post]
func (h *CampaignHandler) Pause(w http.ResponseWriter, r *http.Request) {
	h.withID(w, r, "failed to pause campaign", h.campaignService.Pause)
}

// Complete godoc
// @Summary Complete campaign
// @Tags Campaigns
// @Produce json
// @Param id path string true "Campaign ID"
// @Success 200 {object} domain.CampaignDTO
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /campaigns/{id}/complete [post]
func (h *CampaignHandler) Complete(w http.ResponseWriter, r *http.Request) {
	h.withID(w, r, "failed to complete campaign", h.campaignService.Complete)
}

// Fail godoc
// @Summary Mark campaign failed
// @Tags Campaigns
// @Produce json
// @Param id path string true "Campaign ID"
// @Success 200 {object} domain.CampaignDTO
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /campaigns/{id}/fail [post]
func (h *CampaignHandler) Fail(w http.ResponseWriter, r *http.Request) {
	h.withID(w, r, "failed to fail campaign", h.campaignService.Fail)
}

// Preview godoc
// @Summary Render campaign message for a company
// @Description Fills {{nome_empresa}}, {{cnpj}}, {{nome_fantasia}}, {{segmento}}, {{seu_nome}} and {{sua_empresa}}. Unknown placeholders are left as is.
// @Tags Campaigns
// @Accept json
// @Produce json
// @Param id path string true "Campaign ID"
// @Param request body domain.PreviewCampaignRequest true "Company and sender"
// @Success 200 {object} domain.PreviewCampaignResponse
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /campaigns/{id}/preview [post]
func (h *CampaignHandler) Preview(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	var req domain.PreviewCampaignRequest
	if !decodeBody(w, r, &req) {
		return
	}
	preview, err := h.campaignService.Preview(r.Context(), id, &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to preview campaign")
		return
	}
	respondOK(w, http.StatusOK, "preview", preview)
}

func (h *CampaignHandler) withID(
	w http.ResponseWriter,
	r *http.Request,
	what string,
	fn func(ctx context.Context, id uuid.UUID) (*domain.CampaignDTO, error),
) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	campaign, err := fn(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, what)
		return
	}
	respondOK(w, http.StatusOK, "campaign", campaign)
}
