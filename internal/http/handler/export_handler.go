package handler

import (
	"io"
	"net/http"
	"path"

	"github.com/go-chi/chi/v5"
	"github.com/prospecta/leads-api/internal/domain"
	"github.com/prospecta/leads-api/internal/service"
	"go.uber.org/zap"
)

type ExportHandler struct {
	exportService *service.ExportService
	logger        *zap.Logger
}

func NewExportHandler(exportService *service.ExportService, logger *zap.Logger) *ExportHandler {
	return &ExportHandler{exportService: exportService, logger: logger}
}

// ExportLeads godoc
// @Summary Export leads to CSV
// @Description Writes every lead matching the filters to a CSV file in storage and returns its key
// @Tags Exports
// @Accept json
// @Produce json
// @Param request body domain.ExportLeadsRequest true "Filters"
// @Success 201 {object} domain.ExportDTO
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /exports/leads [post]
func (h *ExportHandler) ExportLeads(w http.ResponseWriter, r *http.Request) {
	var req domain.ExportLeadsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	export, err := h.exportService.ExportLeads(r.Context(), &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to export leads")
		return
	}
	respondOK(w, http.StatusCreated, "export", export)
}

// Download godoc
// @Summary Download an export
// @Tags Exports
// @Produce text/csv
// @Param key path string true "Export key"
// @Success 200 {file} file
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /exports/{key} [get]
func (h *ExportHandler) Download(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")
	if key == "" {
		respondWithError(w, http.StatusBadRequest, "Invalid key")
		return
	}

	rc, err := h.exportService.Open(r.Context(), key)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to open export")
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+path.Base(key)+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Warn("export download interrupted", zap.String("key", key), zap.Error(err))
	}
}
