package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prospecta/leads-api/internal/domain"
	"github.com/prospecta/leads-api/internal/mapper"
	"github.com/prospecta/leads-api/internal/repository"
	"go.uber.org/zap"
)

type SavedSearchService struct {
	searchRepo *repository.SavedSearchRepository
	logger     *zap.Logger
}

func NewSavedSearchService(searchRepo *repository.SavedSearchRepository, logger *zap.Logger) *SavedSearchService {
	return &SavedSearchService{searchRepo: searchRepo, logger: logger}
}

func (s *SavedSearchService) List(ctx context.Context) ([]domain.SavedSearchDTO, error) {
	searches, err := s.searchRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list saved searches: %w", err)
	}
	dtos := make([]domain.SavedSearchDTO, 0, len(searches))
	for i := range searches {
		dtos = append(dtos, mapper.ToSavedSearchDTO(&searches[i]))
	}
	return dtos, nil
}

func (s *SavedSearchService) GetByID(ctx context.Context, id uuid.UUID) (*domain.SavedSearchDTO, error) {
	search, err := s.searchRepo.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err, "failed to get saved search")
	}
	dto := mapper.ToSavedSearchDTO(search)
	return &dto, nil
}

func (s *SavedSearchService) Create(ctx context.Context, req *domain.CreateSavedSearchRequest) (*domain.SavedSearchDTO, error) {
	filters, err := normalizedFilters(req.Filters)
	if err != nil {
		return nil, err
	}
	search := &domain.SavedSearch{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Filters:     filters,
	}
	if err := s.searchRepo.Create(ctx, search); err != nil {
		return nil, fmt.Errorf("failed to create saved search: %w", err)
	}
	dto := mapper.ToSavedSearchDTO(search)
	return &dto, nil
}

func (s *SavedSearchService) Update(ctx context.Context, id uuid.UUID, req *domain.UpdateSavedSearchRequest) (*domain.SavedSearchDTO, error) {
	search, err := s.searchRepo.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err, "failed to get saved search")
	}
	if req.Name != nil {
		search.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		search.Description = *req.Description
	}
	if len(req.Filters) > 0 {
		filters, err := normalizedFilters(req.Filters)
		if err != nil {
			return nil, err
		}
		search.Filters = filters
	}
	if err := s.searchRepo.Update(ctx, search); err != nil {
		return nil, fmt.Errorf("failed to update saved search: %w", err)
	}
	dto := mapper.ToSavedSearchDTO(search)
	return &dto, nil
}

func (s *SavedSearchService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.searchRepo.Delete(ctx, id); err != nil {
		return translate(err, "failed to delete saved search")
	}
	return nil
}

// Use records that the search was run and returns it
func (s *SavedSearchService) Use(ctx context.Context, id uuid.UUID) (*domain.SavedSearchDTO, error) {
	if err := s.searchRepo.MarkUsed(ctx, id, time.Now().UTC()); err != nil {
		return nil, translate(err, "failed to mark saved search as used")
	}
	return s.GetByID(ctx, id)
}
