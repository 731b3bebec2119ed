package repository

import (
	"context"
	"errors"
	"strconv"

	"github.com/google/uuid"
	"github.com/prospecta/leads-api/internal/domain"
	"github.com/prospecta/leads-api/internal/pipeline"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// KanbanFilters narrows board listings
type KanbanFilters struct {
	Stage *domain.KanbanStage
}

// KanbanRepository persists pipeline cards. It implements pipeline.Store:
// every card write also updates in_crm and crm_stage on the company.
type KanbanRepository struct {
	*Transactor
	db *gorm.DB
}

var _ pipeline.Store = (*KanbanRepository)(nil)

func NewKanbanRepository(db *gorm.DB) *KanbanRepository {
	return &KanbanRepository{Transactor: NewTransactor(db), db: db}
}

func (r *KanbanRepository) CardByID(ctx context.Context, id uuid.UUID) (*domain.KanbanLead, error) {
	var card domain.KanbanLead
	err := conn(ctx, r.db).Preload("Company").Where("id = ?", id).First(&card).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pipeline.ErrCardNotFound
	}
	if err != nil {
		return nil, err
	}
	return &card, nil
}

func (r *KanbanRepository) CardsByCompany(ctx context.Context, companyIDs []uuid.UUID) ([]domain.KanbanLead, error) {
	if len(companyIDs) == 0 {
		return nil, nil
	}
	var cards []domain.KanbanLead
	err := conn(ctx, r.db).Preload("Company").Where("company_id IN ?", companyIDs).Find(&cards).Error
	return cards, err
}

func (r *KanbanRepository) CardsByCNPJ(ctx context.Context, cnpjs []string) ([]domain.KanbanLead, error) {
	if len(cnpjs) == 0 {
		return nil, nil
	}
	normalized := make([]string, 0, len(cnpjs))
	for _, c := range cnpjs {
		normalized = append(normalized, domain.NormalizeCNPJ(c))
	}
	var cards []domain.KanbanLead
	err := conn(ctx, r.db).
		Preload("Company").
		Joins("JOIN companies ON companies.id = kanban_leads.company_id").
		Where("companies.cnpj IN ?", normalized).
		Find(&cards).Error
	return cards, err
}

func (r *KanbanRepository) Place(ctx context.Context, card *domain.KanbanLead) error {
	db := conn(ctx, r.db)
	if err := db.Omit(clause.Associations).Create(card).Error; err != nil {
		return err
	}
	return r.flagCompany(db, card.CompanyID, map[string]interface{}{
		"in_crm":    true,
		"crm_stage": card.Stage,
	})
}

func (r *KanbanRepository) SetStage(ctx context.Context, card *domain.KanbanLead, stage domain.KanbanStage) error {
	db := conn(ctx, r.db)
	result := db.Model(&domain.KanbanLead{}).Where("id = ?", card.ID).Update("stage", stage)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pipeline.ErrCardNotFound
	}
	return r.flagCompany(db, card.CompanyID, map[string]interface{}{"crm_stage": stage})
}

func (r *KanbanRepository) Remove(ctx context.Context, card *domain.KanbanLead) error {
	db := conn(ctx, r.db)
	result := db.Where("id = ?", card.ID).Delete(&domain.KanbanLead{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pipeline.ErrCardNotFound
	}
	return r.flagCompany(db, card.CompanyID, map[string]interface{}{
		"in_crm":    false,
		"crm_stage": nil,
	})
}

func (r *KanbanRepository) flagCompany(db *gorm.DB, companyID uuid.UUID, fields map[string]interface{}) error {
	result := db.Model(&domain.Company{}).Where("id = ?", companyID).Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// List returns the board in column order, oldest cards first within a column
func (r *KanbanRepository) List(ctx context.Context, filters *KanbanFilters) ([]domain.KanbanLead, error) {
	var cards []domain.KanbanLead
	query := conn(ctx, r.db).Model(&domain.KanbanLead{}).Preload("Company").Preload("Company.Tags")
	if filters != nil && filters.Stage != nil {
		query = query.Where("stage = ?", *filters.Stage)
	}
	err := query.Order(stageOrderClause()).Order("created_at ASC").Find(&cards).Error
	return cards, err
}

// Update writes the editable card fields. Stage changes go through SetStage.
func (r *KanbanRepository) Update(ctx context.Context, card *domain.KanbanLead) error {
	result := conn(ctx, r.db).Model(&domain.KanbanLead{}).Where("id = ?", card.ID).
		Select("contact_name", "phone", "email", "value", "notes", "updated_at").
		Updates(card)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pipeline.ErrCardNotFound
	}
	return nil
}

// CountByStage returns the number of cards per column. Empty columns are
// present with a zero count.
func (r *KanbanRepository) CountByStage(ctx context.Context) (map[domain.KanbanStage]int64, error) {
	var rows []struct {
		Stage domain.KanbanStage
		Count int64
	}
	err := conn(ctx, r.db).Model(&domain.KanbanLead{}).
		Select("stage, COUNT(*) AS count").
		Group("stage").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[domain.KanbanStage]int64, len(domain.KanbanStages))
	for _, stage := range domain.KanbanStages {
		counts[stage] = 0
	}
	for _, row := range rows {
		counts[row.Stage] = row.Count
	}
	return counts, nil
}

// stageOrderClause sorts cards by board column
func stageOrderClause() string {
	expr := "CASE stage"
	for i, stage := range domain.KanbanStages {
		expr += " WHEN '" + string(stage) + "' THEN " + strconv.Itoa(i)
	}
	return expr + " ELSE 99 END"
}
