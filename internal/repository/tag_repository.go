package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/prospecta/leads-api/internal/domain"
	"gorm.io/gorm"
)

// TagWithCount is a tag plus the number of companies carrying it
type TagWithCount struct {
	domain.Tag
	CompanyCount int64
}

type TagRepository struct {
	db *gorm.DB
}

func NewTagRepository(db *gorm.DB) *TagRepository {
	return &TagRepository{db: db}
}

func (r *TagRepository) Create(ctx context.Context, tag *domain.Tag) error {
	return conn(ctx, r.db).Create(tag).Error
}

func (r *TagRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Tag, error) {
	var tag domain.Tag
	if err := conn(ctx, r.db).Where("id = ?", id).First(&tag).Error; err != nil {
		return nil, err
	}
	return &tag, nil
}

func (r *TagRepository) GetByName(ctx context.Context, name string) (*domain.Tag, error) {
	var tag domain.Tag
	if err := conn(ctx, r.db).Where("LOWER(name) = LOWER(?)", name).First(&tag).Error; err != nil {
		return nil, err
	}
	return &tag, nil
}

func (r *TagRepository) Update(ctx context.Context, tag *domain.Tag) error {
	return conn(ctx, r.db).Save(tag).Error
}

// Delete removes the tag and its company links in one transaction
func (r *TagRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("tag_id = ?", id).Delete(&domain.CompanyTag{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&domain.Tag{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// ListWithCounts returns every tag ordered by name with its company count
func (r *TagRepository) ListWithCounts(ctx context.Context) ([]TagWithCount, error) {
	var tags []TagWithCount
	err := conn(ctx, r.db).Model(&domain.Tag{}).
		Select("tags.*, COUNT(company_tags.company_id) AS company_count").
		Joins("LEFT JOIN company_tags ON company_tags.tag_id = tags.id").
		Group("tags.id").
		Order("tags.name ASC").
		Scan(&tags).Error
	return tags, err
}

// CountCompanies returns how many companies carry the tag
func (r *TagRepository) CountCompanies(ctx context.Context, id uuid.UUID) (int64, error) {
	var count int64
	err := conn(ctx, r.db).Model(&domain.CompanyTag{}).Where("tag_id = ?", id).Count(&count).Error
	return count, err
}
