package handler

import (
	"net/http"

	"github.com/prospecta/leads-api/internal/service"
	"go.uber.org/zap"
)

type InsightsHandler struct {
	insightsService *service.InsightsService
	logger          *zap.Logger
}

func NewInsightsHandler(insightsService *service.InsightsService, logger *zap.Logger) *InsightsHandler {
	return &InsightsHandler{insightsService: insightsService, logger: logger}
}

// Overview godoc
// @Summary Lead base overview
// @Description Totals, average score, high-score leads and pipeline counts per stage
// @Tags Insights
// @Produce json
// @Success 200 {object} domain.InsightsOverviewDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /insights/overview [get]
func (h *InsightsHandler) Overview(w http.ResponseWriter, r *http.Request) {
	overview, err := h.insightsService.Overview(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to build insights overview")
		return
	}
	respondOK(w, http.StatusOK, "overview", overview)
}
