package handler

import (
	"net/http"

	"github.com/prospecta/leads-api/internal/domain"
	"github.com/prospecta/leads-api/internal/service"
	"go.uber.org/zap"
)

type TagHandler struct {
	tagService *service.TagService
	logger     *zap.Logger
}

func NewTagHandler(tagService *service.TagService, logger *zap.Logger) *TagHandler {
	return &TagHandler{tagService: tagService, logger: logger}
}

// List godoc
// @Summary List tags
// @Tags Tags
// @Produce json
// @Success 200 {array} domain.TagDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /tags [get]
func (h *TagHandler) List(w http.ResponseWriter, r *http.Request) {
	tags, err := h.tagService.List(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to list tags")
		return
	}
	respondOK(w, http.StatusOK, "tags", tags)
}

// Create godoc
// @Summary Create tag
// @Tags Tags
// @Accept json
// @Produce json
// @Param request body domain.CreateTagRequest true "Tag"
// @Success 201 {object} domain.TagDTO
// @Failure 400 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /tags [post]
func (h *TagHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateTagRequest
	if !decodeBody(w, r, &req) {
		return
	}
	tag, err := h.tagService.Create(r.Context(), &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to create tag")
		return
	}
	respondOK(w, http.StatusCreated, "tag", tag)
}

// Update godoc
// @Summary Update tag
// @Tags Tags
// @Accept json
// @Produce json
// @Param id path string true "Tag ID"
// @Param request body domain.UpdateTagRequest true "Fields"
// @Success 200 {object} domain.TagDTO
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /tags/{id} [put]
func (h *TagHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	var req domain.UpdateTagRequest
	if !decodeBody(w, r, &req) {
		return
	}
	tag, err := h.tagService.Update(r.Context(), id, &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to update tag")
		return
	}
	respondOK(w, http.StatusOK, "tag", tag)
}

// Delete godoc
// @Summary Delete tag
// @Description Deletes the tag and unlinks it from every company
// @Tags Tags
// @Param id path string true "Tag ID"
// @Success 204
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /tags/{id} [delete]
func (h *TagHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	if err := h.tagService.Delete(r.Context(), id); err != nil {
		respondServiceError(w, h.logger, err, "failed to delete tag")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
