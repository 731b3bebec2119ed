package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/prospecta/leads-api/internal/domain"
	"gorm.io/gorm"
)

// CampaignFilters narrows campaign listings
type CampaignFilters struct {
	Status *domain.CampaignStatus
}

type CampaignRepository struct {
	db *gorm.DB
}

func NewCampaignRepository(db *gorm.DB) *CampaignRepository {
	return &CampaignRepository{db: db}
}

func (r *CampaignRepository) Create(ctx context.Context, campaign *domain.Campaign) error {
	return conn(ctx, r.db).Create(campaign).Error
}

func (r *CampaignRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Campaign, error) {
	var campaign domain.Campaign
	if err := conn(ctx, r.db).Where("id = ?", id).First(&campaign).Error; err != nil {
		return nil, err
	}
	return &campaign, nil
}

func (r *CampaignRepository) Update(ctx context.Context, campaign *domain.Campaign) error {
	return conn(ctx, r.db).Save(campaign).Error
}

func (r *CampaignRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := conn(ctx, r.db).Where("id = ?", id).Delete(&domain.Campaign{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *CampaignRepository) List(ctx context.Context, filters *CampaignFilters) ([]domain.Campaign, error) {
	var campaigns []domain.Campaign
	query := conn(ctx, r.db).Model(&domain.Campaign{})
	if filters != nil && filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	err := query.Order("created_at DESC").Find(&campaigns).Error
	return campaigns, err
}

// ListDueDrafts returns draft campaigns whose scheduled time has passed
func (r *CampaignRepository) ListDueDrafts(ctx context.Context, now time.Time) ([]domain.Campaign, error) {
	var campaigns []domain.Campaign
	err := conn(ctx, r.db).
		Where("status = ? AND scheduled_at IS NOT NULL AND scheduled_at <= ?", domain.CampaignDraft, now).
		Order("scheduled_at ASC").
		Find(&campaigns).Error
	return campaigns, err
}

// TransitionStatus moves a campaign from one status to another only if it
// is still in the expected status. It reports whether the row changed.
func (r *CampaignRepository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to domain.CampaignStatus, fields map[string]interface{}) (bool, error) {
	updates := map[string]interface{}{"status": to}
	for k, v := range fields {
		updates[k] = v
	}
	result := conn(ctx, r.db).Model(&domain.Campaign{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// IncrementCounters adds to the delivery counters atomically
func (r *CampaignRepository) IncrementCounters(ctx context.Context, id uuid.UUID, sent, delivered, failed int) error {
	result := conn(ctx, r.db).Model(&domain.Campaign{}).Where("id = ?", id).Updates(map[string]interface{}{
		"sent_count":      gorm.Expr("sent_count + ?", sent),
		"delivered_count": gorm.Expr("delivered_count + ?", delivered),
		"failed_count":    gorm.Expr("failed_count + ?", failed),
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
