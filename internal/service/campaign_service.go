package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prospecta/leads-api/internal/domain"
	"github.com/prospecta/leads-api/internal/mapper"
	"github.com/prospecta/leads-api/internal/messaging"
	"github.com/prospecta/leads-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CampaignService manages campaigns and their draft → active ⇄ paused →
// completed/failed lifecycle.
type CampaignService struct {
	campaignRepo *repository.CampaignRepository
	audienceRepo *repository.AudienceRepository
	companyRepo  *repository.CompanyRepository
	logger       *zap.Logger
	now          func() time.Time
}

func NewCampaignService(
	campaignRepo *repository.CampaignRepository,
	audienceRepo *repository.AudienceRepository,
	companyRepo *repository.CompanyRepository,
	logger *zap.Logger,
) *CampaignService {
	return &CampaignService{
		campaignRepo: campaignRepo,
		audienceRepo: audienceRepo,
		companyRepo:  companyRepo,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (s *CampaignService) List(ctx context.Context, status *domain.CampaignStatus) ([]domain.CampaignDTO, error) {
	campaigns, err := s.campaignRepo.List(ctx, &repository.CampaignFilters{Status: status})
	if err != nil {
		return nil, fmt.Errorf("failed to list campaigns: %w", err)
	}
	dtos := make([]domain.CampaignDTO, 0, len(campaigns))
	for i := range campaigns {
		dtos = append(dtos, mapper.ToCampaignDTO(&campaigns[i]))
	}
	return dtos, nil
}

func (s *CampaignService) GetByID(ctx context.Context, id uuid.UUID) (*domain.CampaignDTO, error) {
	campaign, err := s.campaignRepo.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err, "failed to get campaign")
	}
	dto := mapper.ToCampaignDTO(campaign)
	return &dto, nil
}

// Create stores a new draft campaign
func (s *CampaignService) Create(ctx context.Context, req *domain.CreateCampaignRequest) (*domain.CampaignDTO, error) {
	scheduledAt, err := parseSchedule(req.ScheduledAt)
	if err != nil {
		return nil, err
	}
	if err := s.checkAudience(ctx, req.AudienceID); err != nil {
		return nil, err
	}

	campaign := &domain.Campaign{
		Name:            strings.TrimSpace(req.Name),
		MessageTemplate: req.MessageTemplate,
		Status:          domain.CampaignDraft,
		AudienceID:      req.AudienceID,
		ScheduledAt:     scheduledAt,
	}
	if err := s.campaignRepo.Create(ctx, campaign); err != nil {
		return nil, fmt.Errorf("failed to create campaign: %w", err)
	}

	s.logger.Info("campaign created",
		zap.String("campaign_id", campaign.ID.String()),
		zap.Bool("scheduled", scheduledAt != nil),
	)
	dto := mapper.ToCampaignDTO(campaign)
	return &dto, nil
}

// Update edits a campaign. Finished campaigns are read-only.
func (s *CampaignService) Update(ctx context.Context, id uuid.UUID, req *domain.UpdateCampaignRequest) (*domain.CampaignDTO, error) {
	campaign, err := s.campaignRepo.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err, "failed to get campaign")
	}
	if campaign.Status == domain.CampaignCompleted || campaign.Status == domain.CampaignFailed {
		return nil, fmt.Errorf("%w: campaign is %s", ErrConflict, campaign.Status)
	}

	if req.Name != nil {
		campaign.Name = strings.TrimSpace(*req.Name)
	}
	if req.MessageTemplate != nil {
		campaign.MessageTemplate = *req.MessageTemplate
	}
	if req.AudienceID != nil {
		if err := s.checkAudience(ctx, req.AudienceID); err != nil {
			return nil, err
		}
		campaign.AudienceID = req.AudienceID
	}
	if req.ScheduledAt != nil {
		scheduledAt, err := parseSchedule(*req.ScheduledAt)
		if err != nil {
			return nil, err
		}
		campaign.ScheduledAt = scheduledAt
	}

	if err := s.campaignRepo.Update(ctx, campaign); err != nil {
		return nil, fmt.Errorf("failed to update campaign: %w", err)
	}
	dto := mapper.ToCampaignDTO(campaign)
	return &dto, nil
}

func (s *CampaignService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.campaignRepo.Delete(ctx, id); err != nil {
		return translate(err, "failed to delete campaign")
	}
	return nil
}

// Start activates a draft or paused campaign
func (s *CampaignService) Start(ctx context.Context, id uuid.UUID) (*domain.CampaignDTO, error) {
	return s.transition(ctx, id, domain.CampaignActive)
}

func (s *CampaignService) Pause(ctx context.Context, id uuid.UUID) (*domain.CampaignDTO, error) {
	return s.transition(ctx, id, domain.CampaignPaused)
}

func (s *CampaignService) Complete(ctx context.Context, id uuid.UUID) (*domain.CampaignDTO, error) {
	return s.transition(ctx, id, domain.CampaignCompleted)
}

func (s *CampaignService) Fail(ctx context.Context, id uuid.UUID) (*domain.CampaignDTO, error) {
	return s.transition(ctx, id, domain.CampaignFailed)
}

// transition applies a state change with a compare-and-set on the current
// status, so two concurrent requests cannot both move the campaign.
func (s *CampaignService) transition(ctx context.Context, id uuid.UUID, to domain.CampaignStatus) (*domain.CampaignDTO, error) {
	campaign, err := s.campaignRepo.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err, "failed to get campaign")
	}
	from := campaign.Status
	if !from.CanTransitionTo(to) {
		return nil, fmt.Errorf("%w: %s → %s", ErrInvalidTransition, from, to)
	}

	now := s.now()
	fields := map[string]interface{}{"updated_at": now}
	switch to {
	case domain.CampaignActive:
		if campaign.StartedAt == nil {
			fields["started_at"] = now
		}
	case domain.CampaignCompleted, domain.CampaignFailed:
		fields["completed_at"] = now
	}

	changed, err := s.campaignRepo.TransitionStatus(ctx, id, from, to, fields)
	if err != nil {
		return nil, fmt.Errorf("failed to update campaign status: %w", err)
	}
	if !changed {
		return nil, fmt.Errorf("%w: campaign status changed concurrently", ErrInvalidTransition)
	}

	s.logger.Info("campaign status changed",
		zap.String("campaign_id", id.String()),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
	)
	return s.GetByID(ctx, id)
}

// Preview renders the campaign template for one company
func (s *CampaignService) Preview(ctx context.Context, id uuid.UUID, req *domain.PreviewCampaignRequest) (*domain.PreviewCampaignResponse, error) {
	campaign, err := s.campaignRepo.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err, "failed to get campaign")
	}
	companyID, err := uuid.Parse(req.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("%w: company_id must be a UUID", ErrInvalidInput)
	}
	company, err := s.companyRepo.GetByID(ctx, companyID)
	if err != nil {
		return nil, translate(err, "failed to get company")
	}

	message := messaging.Render(campaign.MessageTemplate, company, messaging.Sender{
		Name:    req.SeuNome,
		Company: req.SuaEmpresa,
	})
	return &domain.PreviewCampaignResponse{Message: message}, nil
}

// ActivateDue starts every draft campaign whose scheduled time has passed and
// returns how many were started.
func (s *CampaignService) ActivateDue(ctx context.Context, now time.Time) (int, error) {
	due, err := s.campaignRepo.ListDueDrafts(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("failed to list due campaigns: %w", err)
	}

	started := 0
	for _, c := range due {
		changed, err := s.campaignRepo.TransitionStatus(ctx, c.ID, domain.CampaignDraft, domain.CampaignActive, map[string]interface{}{
			"started_at": now,
			"updated_at": now,
		})
		if err != nil {
			return started, fmt.Errorf("failed to activate campaign %s: %w", c.ID, err)
		}
		if changed {
			started++
			s.logger.Info("scheduled campaign activated", zap.String("campaign_id", c.ID.String()))
		}
	}
	return started, nil
}

// RecordDelivery adds one delivery attempt to the campaign counters
func (s *CampaignService) RecordDelivery(ctx context.Context, id uuid.UUID, delivered bool) error {
	d, f := 0, 1
	if delivered {
		d, f = 1, 0
	}
	if err := s.campaignRepo.IncrementCounters(ctx, id, 1, d, f); err != nil {
		return translate(err, "failed to record campaign delivery")
	}
	return nil
}

func (s *CampaignService) checkAudience(ctx context.Context, id *uuid.UUID) error {
	if id == nil {
		return nil
	}
	_, err := s.audienceRepo.GetByID(ctx, *id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: audience %s does not exist", ErrInvalidInput, id)
	}
	if err != nil {
		return fmt.Errorf("failed to get audience: %w", err)
	}
	return nil
}

// parseSchedule accepts an empty string or an RFC 3339 timestamp
func parseSchedule(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: scheduled_at must be an RFC 3339 timestamp", ErrInvalidInput)
	}
	t = t.UTC()
	return &t, nil
}
