package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/prospecta/leads-api/internal/service"
	"go.uber.org/zap"
)

type SearchHandler struct {
	searchService *service.SearchService
	logger        *zap.Logger
}

func NewSearchHandler(searchService *service.SearchService, logger *zap.Logger) *SearchHandler {
	return &SearchHandler{searchService: searchService, logger: logger}
}

// Search godoc
// @Summary Search leads
// @Description Runs the filters against the local store or the search webhook. Page and limit are read from "pagina" and "limite". Leads on the pipeline board are hidden unless include_pipeline is set.
// @Tags Search
// @Accept json
// @Produce json
// @Param source query string false "Search source" Enums(local, webhook)
// @Param request body filter.LeadFilter false "Search filters"
// @Success 200 {object} domain.SearchResult
// @Failure 400 {object} domain.APIError
// @Failure 503 {object} domain.DegradedSearchResponse "Search unavailable, degraded is set and leads is empty"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /search-leads [post]
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	body, ok := readRawJSON(w, r)
	if !ok {
		return
	}
	result, err := h.searchService.Search(r.Context(), body, r.URL.Query().Get("source"))
	if err != nil {
		respondServiceError(w, h.logger, err, "lead search failed")
		return
	}
	respondSearchResult(w, "leads", result)
}

// DirectSearch godoc
// @Summary Relay a search to the webhook
// @Description Forwards the body to the search webhook and returns its answer and status unchanged
// @Tags Search
// @Accept json
// @Produce json
// @Param request body object true "Webhook payload"
// @Success 200 {object} object
// @Failure 503 {object} domain.DegradedSearchResponse
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /direct-search [post]
func (h *SearchHandler) DirectSearch(w http.ResponseWriter, r *http.Request) {
	body, ok := readRawJSON(w, r)
	if !ok {
		return
	}
	resp, err := h.searchService.DirectSearch(r.Context(), body)
	if err != nil {
		respondServiceError(w, h.logger, err, "direct search failed")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(resp.Body)
}

// readRawJSON reads a body that must be empty or valid JSON
func readRawJSON(w http.ResponseWriter, r *http.Request) (json.RawMessage, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return nil, false
	}
	if len(body) > 0 && !json.Valid(body) {
		respondWithError(w, http.StatusBadRequest, "Request body must be JSON")
		return nil, false
	}
	return body, true
}
