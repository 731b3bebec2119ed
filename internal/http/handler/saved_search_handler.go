package handler

import (
	"net/http"

	"github.com/prospecta/leads-api/internal/domain"
	"github.com/prospecta/leads-api/internal/service"
	"go.uber.org/zap"
)

type SavedSearchHandler struct {
	savedSearchService *service.SavedSearchService
	logger             *zap.Logger
}

func NewSavedSearchHandler(savedSearchService *service.SavedSearchService, logger *zap.Logger) *SavedSearchHandler {
	return &SavedSearchHandler{savedSearchService: savedSearchService, logger: logger}
}

// List godoc
// @Summary List saved searches
// @Description Most recently used first, never used last
// @Tags Saved Searches
// @Produce json
// @Success 200 {array} domain.SavedSearchDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /saved-searches [get]
func (h *SavedSearchHandler) List(w http.ResponseWriter, r *http.Request) {
	searches, err := h.savedSearchService.List(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to list saved searches")
		return
	}
	respondOK(w, http.StatusOK, "searches", searches)
}

// Create godoc
// @Summary Save a search
// @Tags Saved Searches
// @Accept json
// @Produce json
// @Param request body domain.CreateSavedSearchRequest true "Search"
// @Success 201 {object} domain.SavedSearchDTO
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /saved-searches [post]
func (h *SavedSearchHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateSavedSearchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	search, err := h.savedSearchService.Create(r.Context(), &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to save search")
		return
	}
	respondOK(w, http.StatusCreated, "search", search)
}

// Update godoc
// @Summary Update saved search
// @Tags Saved Searches
// @Accept json
// @Produce json
// @Param id path string true "Saved search ID"
// @Param request body domain.UpdateSavedSearchRequest true "Fields"
// @Success 200 {object} domain.SavedSearchDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /saved-searches/{id} [put]
func (h *SavedSearchHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	var req domain.UpdateSavedSearchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	search, err := h.savedSearchService.Update(r.Context(), id, &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to update saved search")
		return
	}
	respondOK(w, http.StatusOK, "search", search)
}

// Delete godoc
// @Summary Delete saved search
// @Tags Saved Searches
// @Param id path string true "Saved search ID"
// @Success 204
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /saved-searches/{id} [delete]
func (h *SavedSearchHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	if err := h.savedSearchService.Delete(r.Context(), id); err != nil {
		respondServiceError(w, h.logger, err, "failed to delete saved search")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Use godoc
// @Summary Record use of a saved search
// @Description Increments used_count and sets last_used
// @Tags Saved Searches
// @Produce json
// @Param id path string true "Saved search ID"
// @Success 200 {object} domain.SavedSearchDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /saved-searches/{id}/use [post]
func (h *SavedSearchHandler) Use(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	search, err := h.savedSearchService.Use(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to use saved search")
		return
	}
	respondOK(w, http.StatusOK, "search", search)
}
