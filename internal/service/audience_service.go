package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/prospecta/leads-api/internal/domain"
	"github.com/prospecta/leads-api/internal/filter"
	"github.com/prospecta/leads-api/internal/mapper"
	"github.com/prospecta/leads-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// AudienceService manages saved segments. Company counts are computed on
// every read by running the audience filter.
type AudienceService struct {
	audienceRepo *repository.AudienceRepository
	companyRepo  *repository.CompanyRepository
	logger       *zap.Logger
}

func NewAudienceService(
	audienceRepo *repository.AudienceRepository,
	companyRepo *repository.CompanyRepository,
	logger *zap.Logger,
) *AudienceService {
	return &AudienceService{
		audienceRepo: audienceRepo,
		companyRepo:  companyRepo,
		logger:       logger,
	}
}

func (s *AudienceService) List(ctx context.Context) ([]domain.AudienceDTO, error) {
	audiences, err := s.audienceRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list audiences: %w", err)
	}
	dtos := make([]domain.AudienceDTO, 0, len(audiences))
	for i := range audiences {
		count, err := s.count(ctx, &audiences[i])
		if err != nil {
			// a stored filter that no longer parses still lists, with no count
			s.logger.Warn("failed to count audience",
				zap.String("audience_id", audiences[i].ID.String()),
				zap.Error(err),
			)
		}
		dtos = append(dtos, mapper.ToAudienceDTO(&audiences[i], count))
	}
	return dtos, nil
}

func (s *AudienceService) GetByID(ctx context.Context, id uuid.UUID) (*domain.AudienceDTO, error) {
	audience, err := s.audienceRepo.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err, "failed to get audience")
	}
	count, err := s.count(ctx, audience)
	if err != nil {
		return nil, err
	}
	dto := mapper.ToAudienceDTO(audience, count)
	return &dto, nil
}

func (s *AudienceService) Create(ctx context.Context, req *domain.CreateAudienceRequest) (*domain.AudienceDTO, error) {
	filters, err := normalizedFilters(req.Filters)
	if err != nil {
		return nil, err
	}
	audience := &domain.Audience{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Filters:     filters,
	}
	if err := s.audienceRepo.Create(ctx, audience); err != nil {
		return nil, fmt.Errorf("failed to create audience: %w", err)
	}

	count, err := s.count(ctx, audience)
	if err != nil {
		return nil, err
	}
	dto := mapper.ToAudienceDTO(audience, count)
	return &dto, nil
}

func (s *AudienceService) Update(ctx context.Context, id uuid.UUID, req *domain.UpdateAudienceRequest) (*domain.AudienceDTO, error) {
	audience, err := s.audienceRepo.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err, "failed to get audience")
	}

	if req.Name != nil {
		audience.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		audience.Description = *req.Description
	}
	if len(req.Filters) > 0 {
		filters, err := normalizedFilters(req.Filters)
		if err != nil {
			return nil, err
		}
		audience.Filters = filters
	}

	if err := s.audienceRepo.Update(ctx, audience); err != nil {
		return nil, fmt.Errorf("failed to update audience: %w", err)
	}

	count, err := s.count(ctx, audience)
	if err != nil {
		return nil, err
	}
	dto := mapper.ToAudienceDTO(audience, count)
	return &dto, nil
}

func (s *AudienceService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.audienceRepo.Delete(ctx, id); err != nil {
		return translate(err, "failed to delete audience")
	}
	return nil
}

// Filter returns the parsed filter of an audience
func (s *AudienceService) Filter(ctx context.Context, id uuid.UUID) (filter.LeadFilter, error) {
	audience, err := s.audienceRepo.GetByID(ctx, id)
	if err != nil {
		return filter.LeadFilter{}, translate(err, "failed to get audience")
	}
	return audienceFilter(audience)
}

func (s *AudienceService) count(ctx context.Context, audience *domain.Audience) (int64, error) {
	f, err := audienceFilter(audience)
	if err != nil {
		return 0, err
	}
	count, err := s.companyRepo.Count(ctx, f)
	if err != nil {
		return 0, fmt.Errorf("failed to count audience: %w", err)
	}
	return count, nil
}

// audienceFilter parses the stored filter. Audiences cover the whole lead
// base, including leads on the board.
func audienceFilter(audience *domain.Audience) (filter.LeadFilter, error) {
	f, err := filter.Parse(audience.Filters)
	if err != nil {
		return f, translate(err, "invalid audience filters")
	}
	f.IncludePipeline = true
	return f, nil
}

// normalizedFilters validates a submitted filter and returns its canonical
// JSON, with aliases folded in.
func normalizedFilters(raw json.RawMessage) (datatypes.JSON, error) {
	f, err := filter.Parse(raw)
	if err != nil {
		return nil, translate(err, "invalid filters")
	}
	out, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("failed to encode filters: %w", err)
	}
	return datatypes.JSON(out), nil
}
