package handler

import (
	"net/http"

	"github.com/prospecta/leads-api/internal/domain"
	"github.com/prospecta/leads-api/internal/service"
	"go.uber.org/zap"
)

type FollowUpHandler struct {
	followUpService *service.FollowUpService
	logger          *zap.Logger
}

func NewFollowUpHandler(followUpService *service.FollowUpService, logger *zap.Logger) *FollowUpHandler {
	return &FollowUpHandler{followUpService: followUpService, logger: logger}
}

// Send godoc
// @Summary Send follow-up message
// @Description Posts the lead and message to the follow-up webhook. The lead is marked as followed up only when delivery succeeds.
// @Tags Follow-up
// @Accept json
// @Produce json
// @Param request body domain.FollowUpRequest true "Lead and message"
// @Success 200 {object} domain.FollowUpResponse
// @Failure 400 {object} domain.APIError
// @Failure 502 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /send-followup [post]
func (h *FollowUpHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req domain.FollowUpRequest
	if !decodeBody(w, r, &req) {
		return
	}
	resp, err := h.followUpService.Send(r.Context(), &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to send follow-up")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"delivered": resp.Delivered,
		"sent_at":   resp.SentAt,
	})
}
