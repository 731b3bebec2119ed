package handler

import (
	"net/http"

	"github.com/prospecta/leads-api/internal/domain"
	"github.com/prospecta/leads-api/internal/service"
	"go.uber.org/zap"
)

type KanbanHandler struct {
	kanbanService *service.KanbanService
	logger        *zap.Logger
}

func NewKanbanHandler(kanbanService *service.KanbanService, logger *zap.Logger) *KanbanHandler {
	return &KanbanHandler{kanbanService: kanbanService, logger: logger}
}

// List godoc
// @Summary List pipeline board
// @Tags Kanban
// @Produce json
// @Param stage query string false "Stage" Enums(lead, qualified, proposal, negotiation, closed_won, closed_lost)
// @Success 200 {array} domain.KanbanLeadDTO
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /kanban-leads [get]
func (h *KanbanHandler) List(w http.ResponseWriter, r *http.Request) {
	var stage *domain.KanbanStage
	if s := r.URL.Query().Get("stage"); s != "" {
		st := domain.KanbanStage(s)
		stage = &st
	}
	leads, err := h.kanbanService.List(r.Context(), stage)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to list pipeline")
		return
	}
	counts, err := h.kanbanService.Counts(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to count pipeline")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"leads":   leads,
		"counts":  counts,
	})
}

// Create godoc
// @Summary Move leads to the pipeline
// @Description Creates unknown companies, then places one card per company. Companies already on the board are skipped.
// @Tags Kanban
// @Accept json
// @Produce json
// @Param request body domain.MoveToKanbanRequest true "Leads and stage"
// @Success 201 {object} domain.MoveToKanbanResponse
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /kanban-leads [post]
func (h *KanbanHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.MoveToKanbanRequest
	if !decodeBody(w, r, &req) {
		return
	}
	resp, err := h.kanbanService.MoveToKanban(r.Context(), &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to move leads to pipeline")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"created": resp.Created,
		"skipped": resp.Skipped,
	})
}

// Update godoc
// @Summary Update pipeline lead
// @Description Moves a card and edits its contact fields. A from_stage that no longer matches returns 409.
// @Tags Kanban
// @Accept json
// @Produce json
// @Param id path string true "Card ID"
// @Param request body domain.UpdateKanbanLeadRequest true "Fields"
// @Success 200 {object} domain.KanbanLeadDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /kanban-leads/{id} [put]
func (h *KanbanHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	var req domain.UpdateKanbanLeadRequest
	if !decodeBody(w, r, &req) {
		return
	}
	lead, err := h.kanbanService.Update(r.Context(), id, &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to update pipeline lead")
		return
	}
	respondOK(w, http.StatusOK, "lead", lead)
}

// Delete godoc
// @Summary Remove pipeline lead
// @Description Deletes the card and returns its company to search results
// @Tags Kanban
// @Param id path string true "Card ID"
// @Success 204
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /kanban-leads/{id} [delete]
func (h *KanbanHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	if err := h.kanbanService.Delete(r.Context(), id); err != nil {
		respondServiceError(w, h.logger, err, "failed to remove pipeline lead")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Restore godoc
// @Summary Restore leads to search
// @Tags Kanban
// @Accept json
// @Produce json
// @Param request body domain.RestoreLeadsRequest true "CNPJs"
// @Success 200 {object} domain.RestoreLeadsResponse
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /kanban-leads/restore [post]
func (h *KanbanHandler) Restore(w http.ResponseWriter, r *http.Request) {
	var req domain.RestoreLeadsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	resp, err := h.kanbanService.Restore(r.Context(), req.CNPJs)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to restore leads")
		return
	}
	respondOK(w, http.StatusOK, "restored", resp.Restored)
}
