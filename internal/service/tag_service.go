package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/prospecta/leads-api/internal/domain"
	"github.com/prospecta/leads-api/internal/mapper"
	"github.com/prospecta/leads-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultTagColor = "#3b82f6"

type TagService struct {
	tagRepo *repository.TagRepository
	logger  *zap.Logger
}

func NewTagService(tagRepo *repository.TagRepository, logger *zap.Logger) *TagService {
	return &TagService{tagRepo: tagRepo, logger: logger}
}

// List returns every tag with the number of companies carrying it
func (s *TagService) List(ctx context.Context) ([]domain.TagDTO, error) {
	tags, err := s.tagRepo.ListWithCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	dtos := make([]domain.TagDTO, 0, len(tags))
	for i := range tags {
		dtos = append(dtos, mapper.ToTagDTO(&tags[i].Tag, tags[i].CompanyCount))
	}
	return dtos, nil
}

func (s *TagService) Create(ctx context.Context, req *domain.CreateTagRequest) (*domain.TagDTO, error) {
	name := strings.TrimSpace(req.Name)
	if err := s.ensureNameFree(ctx, name, uuid.Nil); err != nil {
		return nil, err
	}

	tag := &domain.Tag{
		Name:        name,
		Color:       req.Color,
		Description: req.Description,
	}
	if tag.Color == "" {
		tag.Color = defaultTagColor
	}
	if err := s.tagRepo.Create(ctx, tag); err != nil {
		return nil, fmt.Errorf("failed to create tag: %w", err)
	}

	dto := mapper.ToTagDTO(tag, 0)
	return &dto, nil
}

func (s *TagService) Update(ctx context.Context, id uuid.UUID, req *domain.UpdateTagRequest) (*domain.TagDTO, error) {
	tag, err := s.tagRepo.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err, "failed to get tag")
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if err := s.ensureNameFree(ctx, name, id); err != nil {
			return nil, err
		}
		tag.Name = name
	}
	if req.Color != nil {
		tag.Color = *req.Color
	}
	if req.Description != nil {
		tag.Description = *req.Description
	}

	if err := s.tagRepo.Update(ctx, tag); err != nil {
		return nil, fmt.Errorf("failed to update tag: %w", err)
	}

	count, err := s.tagRepo.CountCompanies(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to count tagged companies: %w", err)
	}
	dto := mapper.ToTagDTO(tag, count)
	return &dto, nil
}

// Delete removes the tag and its links to companies
func (s *TagService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.tagRepo.Delete(ctx, id); err != nil {
		return translate(err, "failed to delete tag")
	}
	return nil
}

// ensureNameFree fails with ErrConflict when another tag has the name
func (s *TagService) ensureNameFree(ctx context.Context, name string, self uuid.UUID) error {
	if name == "" {
		return fmt.Errorf("%w: tag name is required", ErrInvalidInput)
	}
	existing, err := s.tagRepo.GetByName(ctx, name)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to check tag name: %w", err)
	}
	if existing.ID != self {
		return fmt.Errorf("%w: tag %q already exists", ErrConflict, name)
	}
	return nil
}
