package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/prospecta/leads-api/internal/domain"
	"gorm.io/gorm"
)

type SavedSearchRepository struct {
	db *gorm.DB
}

func NewSavedSearchRepository(db *gorm.DB) *SavedSearchRepository {
	return &SavedSearchRepository{db: db}
}

func (r *SavedSearchRepository) Create(ctx context.Context, search *domain.SavedSearch) error {
	return conn(ctx, r.db).Create(search).Error
}

func (r *SavedSearchRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.SavedSearch, error) {
	var search domain.SavedSearch
	if err := conn(ctx, r.db).Where("id = ?", id).First(&search).Error; err != nil {
		return nil, err
	}
	return &search, nil
}

func (r *SavedSearchRepository) Update(ctx context.Context, search *domain.SavedSearch) error {
	return conn(ctx, r.db).Save(search).Error
}

func (r *SavedSearchRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := conn(ctx, r.db).Where("id = ?", id).Delete(&domain.SavedSearch{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// List orders recently used searches first; never used ones come last,
// newest first.
func (r *SavedSearchRepository) List(ctx context.Context) ([]domain.SavedSearch, error) {
	var searches []domain.SavedSearch
	err := conn(ctx, r.db).
		Order("CASE WHEN last_used IS NULL THEN 1 ELSE 0 END").
		Order("last_used DESC").
		Order("created_at DESC").
		Find(&searches).Error
	return searches, err
}

// MarkUsed increments the usage counter and stamps last_used
func (r *SavedSearchRepository) MarkUsed(ctx context.Context, id uuid.UUID, at time.Time) error {
	result := conn(ctx, r.db).Model(&domain.SavedSearch{}).Where("id = ?", id).Updates(map[string]interface{}{
		"used_count": gorm.Expr("used_count + 1"),
		"last_used":  at,
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
