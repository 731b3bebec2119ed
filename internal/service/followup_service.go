package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/prospecta/leads-api/internal/domain"
	"github.com/prospecta/leads-api/internal/repository"
	"github.com/prospecta/leads-api/internal/webhook"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// FollowUpService delivers follow-up messages through the follow-up webhook
// and records the outcome on the lead and campaign.
type FollowUpService struct {
	companyRepo  *repository.CompanyRepository
	campaignRepo *repository.CampaignRepository
	webhook      *webhook.Client
	logger       *zap.Logger
}

func NewFollowUpService(
	companyRepo *repository.CompanyRepository,
	campaignRepo *repository.CampaignRepository,
	webhookClient *webhook.Client,
	logger *zap.Logger,
) *FollowUpService {
	return &FollowUpService{
		companyRepo:  companyRepo,
		campaignRepo: campaignRepo,
		webhook:      webhookClient,
		logger:       logger,
	}
}

// Send posts the message. A failed delivery returns ErrUpstream and leaves
// the lead unmarked.
func (s *FollowUpService) Send(ctx context.Context, req *domain.FollowUpRequest) (*domain.FollowUpResponse, error) {
	if s.webhook == nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, webhook.ErrNotConfigured)
	}

	receipt, err := s.webhook.SendFollowUp(ctx, req.Lead, req.Message)
	if err != nil {
		s.logger.Warn("follow-up delivery failed",
			zap.String("cnpj", domain.NormalizeCNPJ(req.Lead.CNPJ)),
			zap.Error(err),
		)
		s.recordCampaign(ctx, req, false)
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	s.recordCampaign(ctx, req, true)
	if err := s.markSent(ctx, req.Lead.CNPJ, receipt); err != nil {
		return nil, err
	}

	return &domain.FollowUpResponse{
		Delivered: true,
		SentAt:    receipt.SentAt.Format("2006-01-02T15:04:05Z"),
	}, nil
}

// markSent flags the stored lead. Leads that were never stored are skipped.
func (s *FollowUpService) markSent(ctx context.Context, cnpj string, receipt *webhook.FollowUpReceipt) error {
	company, err := s.companyRepo.GetByCNPJ(ctx, cnpj)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get lead: %w", err)
	}
	err = s.companyRepo.UpdateFields(ctx, company.ID, map[string]interface{}{
		"follow_up_sent":    true,
		"follow_up_sent_at": receipt.SentAt,
		"updated_at":        receipt.SentAt,
	})
	if err != nil {
		return fmt.Errorf("failed to mark follow-up as sent: %w", err)
	}
	return nil
}

// recordCampaign bumps the campaign counters. Counter errors are logged only;
// the message has already gone out or failed by then.
func (s *FollowUpService) recordCampaign(ctx context.Context, req *domain.FollowUpRequest, delivered bool) {
	if req.CampaignID == nil {
		return
	}
	d, f := 0, 1
	if delivered {
		d, f = 1, 0
	}
	if err := s.campaignRepo.IncrementCounters(ctx, *req.CampaignID, 1, d, f); err != nil {
		s.logger.Warn("failed to update campaign counters",
			zap.String("campaign_id", req.CampaignID.String()),
			zap.Error(err),
		)
	}
}
