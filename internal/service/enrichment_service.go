package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prospecta/leads-api/internal/config"
	"github.com/prospecta/leads-api/internal/domain"
	"github.com/prospecta/leads-api/internal/enrichment"
	"github.com/prospecta/leads-api/internal/logger"
	"github.com/prospecta/leads-api/internal/mapper"
	"github.com/prospecta/leads-api/internal/repository"
	"github.com/prospecta/leads-api/internal/scoring"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/datatypes"
)

const defaultMaxBulkItems = 200

// EnrichmentService fills in contact and firmographic data on companies,
// either typed in by a user or fetched from a provider.
type EnrichmentService struct {
	companyRepo  *repository.CompanyRepository
	provider     enrichment.Provider
	limit        rate.Limit
	maxBulkItems int
	logger       *zap.Logger
	now          func() time.Time
}

// NewEnrichmentService paces bulk runs at cfg.RequestsPerSecond. A zero rate
// disables pacing.
func NewEnrichmentService(
	companyRepo *repository.CompanyRepository,
	provider enrichment.Provider,
	cfg *config.EnrichmentConfig,
	logger *zap.Logger,
) *EnrichmentService {
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	maxItems := cfg.MaxBulkItems
	if maxItems <= 0 {
		maxItems = defaultMaxBulkItems
	}
	return &EnrichmentService{
		companyRepo:  companyRepo,
		provider:     provider,
		limit:        limit,
		maxBulkItems: maxItems,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Manual stores user-supplied contact data. Phone and email are copied onto
// the company only when non-empty.
func (s *EnrichmentService) Manual(ctx context.Context, id uuid.UUID, req *domain.ManualEnrichmentRequest) (*domain.LeadDTO, error) {
	company, err := s.companyRepo.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err, "failed to get company")
	}

	raw, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode enrichment data: %w", err)
	}

	if v := strings.TrimSpace(req.Telefone); v != "" {
		company.Phone = v
	}
	if v := strings.TrimSpace(req.Email); v != "" {
		company.Email = v
	}
	now := s.now()
	company.EnrichedData = datatypes.JSON(raw)
	company.EnrichmentStatus = domain.EnrichmentManual
	company.EnrichedAt = &now

	if err := s.save(ctx, company); err != nil {
		return nil, err
	}

	s.logger.Info("company enriched manually", zap.String("cnpj", company.CNPJ))
	dto := mapper.ToLeadDTO(company)
	return &dto, nil
}

// Lookup enriches a stored company from the provider. A failed lookup is
// recorded on the company before the error is returned.
func (s *EnrichmentService) Lookup(ctx context.Context, id uuid.UUID) (*domain.LeadDTO, error) {
	company, err := s.companyRepo.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err, "failed to get company")
	}

	if _, err := s.enrich(ctx, company); err != nil {
		return nil, err
	}
	dto := mapper.ToLeadDTO(company)
	return &dto, nil
}

// LookupCNPJ returns the provider profile without storing anything
func (s *EnrichmentService) LookupCNPJ(ctx context.Context, cnpj string) (*enrichment.Profile, error) {
	if len(domain.DigitsOnly(cnpj)) != 14 {
		return nil, fmt.Errorf("%w: cnpj must have 14 digits", ErrInvalidInput)
	}
	profile, err := s.provider.Lookup(ctx, cnpj)
	if err != nil {
		return nil, lookupError(err)
	}
	return profile, nil
}

// Bulk enriches companies one at a time, paced by the configured rate. When
// ctx is cancelled the run stops and the partial result is returned.
func (s *EnrichmentService) Bulk(ctx context.Context, req *domain.BulkEnrichmentRequest) (*domain.BulkEnrichmentResult, error) {
	if len(req.CompanyIDs) > s.maxBulkItems {
		return nil, fmt.Errorf("%w: at most %d companies per bulk run", ErrInvalidInput, s.maxBulkItems)
	}
	ids := make([]uuid.UUID, 0, len(req.CompanyIDs))
	for _, raw := range req.CompanyIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid company id %q", ErrInvalidInput, raw)
		}
		ids = append(ids, id)
	}

	limiter := rate.NewLimiter(s.limit, 1)
	result := &domain.BulkEnrichmentResult{Items: make([]domain.BulkEnrichmentItem, 0, len(ids))}

	for _, id := range ids {
		if err := limiter.Wait(ctx); err != nil {
			result.Cancelled = true
			break
		}

		item := domain.BulkEnrichmentItem{CompanyID: id}
		company, err := s.companyRepo.GetByID(ctx, id)
		if err != nil {
			if ctx.Err() != nil {
				result.Cancelled = true
				break
			}
			item.Status = domain.EnrichmentFailed
			item.Error = translate(err, "failed to get company").Error()
			result.Items = append(result.Items, item)
			result.Processed++
			result.Failed++
			continue
		}

		item.CNPJ = company.CNPJ
		source, err := s.enrich(ctx, company)
		if err != nil && ctx.Err() != nil {
			result.Cancelled = true
			break
		}
		item.Status = company.EnrichmentStatus
		item.Provider = source
		result.Processed++
		if err != nil {
			item.Error = err.Error()
			result.Failed++
		} else {
			result.Succeeded++
		}
		result.Items = append(result.Items, item)
	}

	s.logger.Info("bulk enrichment finished",
		zap.Int("requested", len(ids)),
		zap.Int("processed", result.Processed),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", result.Failed),
		zap.Bool("cancelled", result.Cancelled),
	)
	return result, nil
}

// enrich looks the company up and stores the outcome. It returns the name of
// the source that answered.
func (s *EnrichmentService) enrich(ctx context.Context, company *domain.Company) (string, error) {
	now := s.now()
	log := logger.WithLead(s.logger, company.CNPJ)
	profile, err := s.provider.Lookup(ctx, company.CNPJ)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		log.Warn("enrichment lookup failed", zap.Error(err))
		company.EnrichmentStatus = domain.EnrichmentFailed
		company.EnrichedAt = &now
		if saveErr := s.save(ctx, company); saveErr != nil {
			return "", saveErr
		}
		return "", lookupError(err)
	}

	raw, err := json.Marshal(profile)
	if err != nil {
		return "", fmt.Errorf("failed to encode enrichment data: %w", err)
	}
	profile.ApplyTo(company)
	company.EnrichedData = datatypes.JSON(raw)
	company.EnrichmentStatus = domain.EnrichmentBulk
	company.EnrichedAt = &now

	if err := s.save(ctx, company); err != nil {
		return "", err
	}
	log.Debug("company enriched", zap.String("provider", profile.Source))
	return profile.Source, nil
}

// save rescores the company, since contact data feeds the score, and stores it
func (s *EnrichmentService) save(ctx context.Context, company *domain.Company) error {
	if _, err := scoring.Apply(company); err != nil {
		return fmt.Errorf("failed to score company: %w", err)
	}
	company.UpdatedAt = s.now()
	if err := s.companyRepo.UpdateEnrichment(ctx, company); err != nil {
		return fmt.Errorf("failed to save enrichment: %w", err)
	}
	return nil
}

func lookupError(err error) error {
	switch {
	case errors.Is(err, enrichment.ErrNotFound):
		return fmt.Errorf("company not found by enrichment provider: %w", ErrNotFound)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
}
