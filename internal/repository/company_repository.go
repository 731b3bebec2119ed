package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/prospecta/leads-api/internal/domain"
	"github.com/prospecta/leads-api/internal/filter"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CompanyRepository struct {
	db *gorm.DB
}

func NewCompanyRepository(db *gorm.DB) *CompanyRepository {
	return &CompanyRepository{db: db}
}

func (r *CompanyRepository) Create(ctx context.Context, company *domain.Company) error {
	return conn(ctx, r.db).Omit(clause.Associations).Create(company).Error
}

func (r *CompanyRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Company, error) {
	var company domain.Company
	err := conn(ctx, r.db).Preload("Tags").Where("id = ?", id).First(&company).Error
	if err != nil {
		return nil, err
	}
	return &company, nil
}

func (r *CompanyRepository) GetByCNPJ(ctx context.Context, cnpj string) (*domain.Company, error) {
	var company domain.Company
	err := conn(ctx, r.db).Preload("Tags").Where("cnpj = ?", domain.NormalizeCNPJ(cnpj)).First(&company).Error
	if err != nil {
		return nil, err
	}
	return &company, nil
}

// GetByCNPJs returns the companies found for the given CNPJs, in no
// particular order. Missing CNPJs are simply absent.
func (r *CompanyRepository) GetByCNPJs(ctx context.Context, cnpjs []string) ([]domain.Company, error) {
	normalized := make([]string, 0, len(cnpjs))
	for _, c := range cnpjs {
		normalized = append(normalized, domain.NormalizeCNPJ(c))
	}
	var companies []domain.Company
	err := conn(ctx, r.db).Where("cnpj IN ?", normalized).Find(&companies).Error
	return companies, err
}

// UpdateEnrichment writes the columns enrichment owns. Pipeline and
// follow-up columns are left as stored, so a lead moved to the board while a
// lookup runs keeps its pipeline state.
func (r *CompanyRepository) UpdateEnrichment(ctx context.Context, company *domain.Company) error {
	result := conn(ctx, r.db).Model(company).Omit(clause.Associations).Select(enrichmentColumns).Updates(company)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// columns written by UpdateEnrichment
var enrichmentColumns = []string{
	"razao_social", "nome_fantasia", "situacao_cadastral", "logradouro", "numero", "complemento",
	"bairro", "municipio", "uf", "cep", "telefone", "email", "capital_social", "porte",
	"cnae_principal", "cnae_descricao", "natureza_juridica", "ai_score", "ai_insights",
	"enrichment_status", "enriched_data", "enriched_at", "updated_at",
}

// UpdateFields writes the given columns, including zero values
func (r *CompanyRepository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	result := conn(ctx, r.db).Model(&domain.Company{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Upsert inserts the company or, when the CNPJ already exists, overwrites
// its registry fields. Enrichment, pipeline and tag state of an existing row
// are preserved. The passed company receives the stored ID.
func (r *CompanyRepository) Upsert(ctx context.Context, company *domain.Company) (created bool, err error) {
	company.CNPJ = domain.NormalizeCNPJ(company.CNPJ)

	err = conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		var existing domain.Company
		findErr := tx.Where("cnpj = ?", company.CNPJ).First(&existing).Error
		if errors.Is(findErr, gorm.ErrRecordNotFound) {
			created = true
			return tx.Omit(clause.Associations).Create(company).Error
		}
		if findErr != nil {
			return findErr
		}

		company.ID = existing.ID
		company.CreatedAt = existing.CreatedAt
		company.UpdatedAt = time.Now().UTC()
		return tx.Model(&existing).Select(upsertColumns).Updates(company).Error
	})
	return created, err
}

// registry columns refreshed by Upsert
var upsertColumns = []string{
	"razao_social", "nome_fantasia", "situacao_cadastral", "motivo_situacao", "data_situacao",
	"data_abertura", "logradouro", "numero", "complemento", "bairro", "municipio", "uf", "cep",
	"telefone", "email", "capital_social", "porte", "cnae_principal", "cnae_descricao",
	"natureza_juridica", "ai_score", "ai_insights", "latitude", "longitude", "updated_at",
}

// Search runs the page query and the COUNT query for the same predicate in
// parallel. Results are ordered by filter.OrderScope.
func (r *CompanyRepository) Search(ctx context.Context, f filter.LeadFilter, offset, limit int) ([]domain.Company, int64, error) {
	var (
		companies []domain.Company
		total     int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return conn(gctx, r.db).Model(&domain.Company{}).Scopes(f.Scope()).Count(&total).Error
	})
	g.Go(func() error {
		return conn(gctx, r.db).Model(&domain.Company{}).
			Preload("Tags").
			Scopes(f.Scope(), filter.OrderScope).
			Offset(offset).Limit(limit).
			Find(&companies).Error
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return companies, total, nil
}

// Count returns how many companies match the filter
func (r *CompanyRepository) Count(ctx context.Context, f filter.LeadFilter) (int64, error) {
	var total int64
	err := conn(ctx, r.db).Model(&domain.Company{}).Scopes(f.Scope()).Count(&total).Error
	return total, err
}

// FindBatch returns up to limit matching companies after the given CNPJ in
// ranking-independent CNPJ order, for streaming exports.
func (r *CompanyRepository) FindBatch(ctx context.Context, f filter.LeadFilter, afterCNPJ string, limit int) ([]domain.Company, error) {
	var companies []domain.Company
	query := conn(ctx, r.db).Model(&domain.Company{}).Scopes(f.Scope())
	if afterCNPJ != "" {
		query = query.Where("companies.cnpj > ?", afterCNPJ)
	}
	err := query.Order("companies.cnpj ASC").Limit(limit).Find(&companies).Error
	return companies, err
}

// ListUnscored returns companies that have never been scored
func (r *CompanyRepository) ListUnscored(ctx context.Context, limit int) ([]domain.Company, error) {
	var companies []domain.Company
	err := conn(ctx, r.db).Where("ai_score IS NULL").Order("created_at ASC").Limit(limit).Find(&companies).Error
	return companies, err
}

// SaveScore stores a computed score and its insights
func (r *CompanyRepository) SaveScore(ctx context.Context, company *domain.Company) error {
	return conn(ctx, r.db).Model(&domain.Company{}).Where("id = ?", company.ID).
		Updates(map[string]interface{}{
			"ai_score":    company.AIScore,
			"ai_insights": company.AIInsights,
		}).Error
}

// ApplyTag links the tag to each company, ignoring pairs that already exist.
func (r *CompanyRepository) ApplyTag(ctx context.Context, companyIDs []uuid.UUID, tagID uuid.UUID) error {
	if len(companyIDs) == 0 {
		return nil
	}
	now := time.Now().UTC()
	rows := make([]domain.CompanyTag, 0, len(companyIDs))
	for _, id := range companyIDs {
		rows = append(rows, domain.CompanyTag{CompanyID: id, TagID: tagID, CreatedAt: now})
	}
	return conn(ctx, r.db).Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
}

// CompanyStats aggregates the lead base for the insights overview
type CompanyStats struct {
	Total     int64
	Active    int64
	HighScore int64
	AvgScore  float64
}

func (r *CompanyRepository) Stats(ctx context.Context, highScoreThreshold int) (*CompanyStats, error) {
	var row struct {
		Total     int64
		Active    int64
		HighScore int64
		AvgScore  *float64
	}
	err := conn(ctx, r.db).Model(&domain.Company{}).
		Select(`COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN situacao_cadastral = ? THEN 1 ELSE 0 END), 0) AS active,
			COALESCE(SUM(CASE WHEN COALESCE(ai_score, 0) > ? THEN 1 ELSE 0 END), 0) AS high_score,
			AVG(COALESCE(ai_score, 0)) AS avg_score`, domain.RegistrationActive, highScoreThreshold).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}
	stats := &CompanyStats{Total: row.Total, Active: row.Active, HighScore: row.HighScore}
	if row.AvgScore != nil {
		stats.AvgScore = *row.AvgScore
	}
	return stats, nil
}
