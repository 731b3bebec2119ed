package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/prospecta/leads-api/internal/domain"
	"gorm.io/gorm"
)

type AudienceRepository struct {
	db *gorm.DB
}

func NewAudienceRepository(db *gorm.DB) *AudienceRepository {
	return &AudienceRepository{db: db}
}

func (r *AudienceRepository) Create(ctx context.Context, audience *domain.Audience) error {
	return conn(ctx, r.db).Create(audience).Error
}

func (r *AudienceRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Audience, error) {
	var audience domain.Audience
	if err := conn(ctx, r.db).Where("id = ?", id).First(&audience).Error; err != nil {
		return nil, err
	}
	return &audience, nil
}

func (r *AudienceRepository) Update(ctx context.Context, audience *domain.Audience) error {
	return conn(ctx, r.db).Save(audience).Error
}

func (r *AudienceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := conn(ctx, r.db).Where("id = ?", id).Delete(&domain.Audience{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *AudienceRepository) List(ctx context.Context) ([]domain.Audience, error) {
	var audiences []domain.Audience
	err := conn(ctx, r.db).Order("created_at DESC").Find(&audiences).Error
	return audiences, err
}
