package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prospecta/leads-api/internal/domain"
	"github.com/prospecta/leads-api/internal/filter"
	"github.com/prospecta/leads-api/internal/geo"
	"github.com/prospecta/leads-api/internal/mapper"
	"github.com/prospecta/leads-api/internal/pipeline"
	"github.com/prospecta/leads-api/internal/repository"
	"github.com/prospecta/leads-api/internal/scoring"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CompanyListParams are the query parameters of the companies listing
type CompanyListParams struct {
	Search   string
	TagID    string
	MinScore *int
	MaxScore *int
	Page     int
	Limit    int
}

// UpsertResult reports the outcome of a company import
type UpsertResult struct {
	Companies []domain.LeadDTO `json:"companies"`
	Created   int              `json:"created"`
	Updated   int              `json:"updated"`
}

// ApplyTagsResult reports which CNPJs were tagged
type ApplyTagsResult struct {
	Tagged  int      `json:"tagged"`
	Missing []string `json:"missing"`
}

// CompanyService handles the lead base: imports, listing, tagging and
// pipeline bookkeeping.
type CompanyService struct {
	companyRepo *repository.CompanyRepository
	tagRepo     *repository.TagRepository
	kanbanRepo  *repository.KanbanRepository
	board       *pipeline.Board
	logger      *zap.Logger
}

func NewCompanyService(
	companyRepo *repository.CompanyRepository,
	tagRepo *repository.TagRepository,
	kanbanRepo *repository.KanbanRepository,
	logger *zap.Logger,
) *CompanyService {
	return &CompanyService{
		companyRepo: companyRepo,
		tagRepo:     tagRepo,
		kanbanRepo:  kanbanRepo,
		board:       pipeline.NewBoard(kanbanRepo),
		logger:      logger,
	}
}

// List returns companies ordered by score, including those on the board
func (s *CompanyService) List(ctx context.Context, params CompanyListParams) (*domain.SearchResult, error) {
	f := filter.LeadFilter{
		Keyword:         params.Search,
		TagID:           params.TagID,
		MinScore:        params.MinScore,
		MaxScore:        params.MaxScore,
		IncludePipeline: true,
	}
	f.Normalize()
	if err := f.Validate(); err != nil {
		return nil, translate(err, "invalid company filter")
	}

	page, limit := clampPage(params.Page, params.Limit)
	companies, total, err := s.companyRepo.Search(ctx, f, repository.Offset(page, limit), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}

	return pageResult(mapper.ToLeadDTOs(companies), total, page, limit, "local"), nil
}

func (s *CompanyService) GetByID(ctx context.Context, id uuid.UUID) (*domain.LeadDTO, error) {
	company, err := s.companyRepo.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err, "failed to get company")
	}
	dto := mapper.ToLeadDTO(company)
	return &dto, nil
}

// Upsert imports companies by CNPJ. Each company is scored and, when it has
// no coordinates, placed at its city centroid.
func (s *CompanyService) Upsert(ctx context.Context, inputs []domain.CompanyInput) (*UpsertResult, error) {
	result := &UpsertResult{Companies: make([]domain.LeadDTO, 0, len(inputs))}

	for i := range inputs {
		company := mapper.CompanyFromInput(&inputs[i])
		if err := prepare(company); err != nil {
			return nil, err
		}

		created, err := s.companyRepo.Upsert(ctx, company)
		if err != nil {
			return nil, fmt.Errorf("failed to upsert company %s: %w", company.CNPJ, err)
		}
		if created {
			result.Created++
		} else {
			result.Updated++
		}

		stored, err := s.companyRepo.GetByID(ctx, company.ID)
		if err != nil {
			return nil, translate(err, "failed to reload company")
		}
		result.Companies = append(result.Companies, mapper.ToLeadDTO(stored))
	}

	s.logger.Info("companies imported",
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated),
	)
	return result, nil
}

// ApplyTags links the tag to every known company in the list. Unknown CNPJs
// are reported, not rejected.
func (s *CompanyService) ApplyTags(ctx context.Context, req *domain.ApplyTagsRequest) (*ApplyTagsResult, error) {
	tagID, err := uuid.Parse(req.TagID)
	if err != nil {
		return nil, fmt.Errorf("%w: tag_id must be a UUID", ErrInvalidInput)
	}
	if _, err := s.tagRepo.GetByID(ctx, tagID); err != nil {
		return nil, translate(err, "failed to get tag")
	}

	companies, err := s.companyRepo.GetByCNPJs(ctx, req.CompanyCNPJs)
	if err != nil {
		return nil, fmt.Errorf("failed to get companies: %w", err)
	}

	found := make(map[string]bool, len(companies))
	ids := make([]uuid.UUID, 0, len(companies))
	for _, c := range companies {
		found[c.CNPJ] = true
		ids = append(ids, c.ID)
	}
	if err := s.companyRepo.ApplyTag(ctx, ids, tagID); err != nil {
		return nil, fmt.Errorf("failed to apply tag: %w", err)
	}

	result := &ApplyTagsResult{Tagged: len(ids), Missing: []string{}}
	for _, cnpj := range req.CompanyCNPJs {
		if !found[domain.NormalizeCNPJ(cnpj)] {
			result.Missing = append(result.Missing, cnpj)
		}
	}
	return result, nil
}

// UpdateLeadStatus sets pipeline bookkeeping on a lead. Pipeline changes go
// through the board so a lead never shows in search and on the board at once.
func (s *CompanyService) UpdateLeadStatus(ctx context.Context, cnpj string, req *domain.LeadStatusRequest) (*domain.LeadDTO, error) {
	company, err := s.companyRepo.GetByCNPJ(ctx, cnpj)
	if err != nil {
		return nil, translate(err, "failed to get lead")
	}

	if req.EnrichmentStatus != nil && !req.EnrichmentStatus.IsValid() {
		return nil, fmt.Errorf("%w: unknown enrichment_status %q", ErrInvalidInput, *req.EnrichmentStatus)
	}
	if req.CRMStage != nil && !req.CRMStage.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStage, *req.CRMStage)
	}

	now := time.Now().UTC()
	fields := map[string]interface{}{}
	if req.EnrichmentStatus != nil {
		fields["enrichment_status"] = *req.EnrichmentStatus
		if *req.EnrichmentStatus == domain.EnrichmentNone {
			fields["enriched_at"] = nil
		} else if company.EnrichedAt == nil {
			fields["enriched_at"] = now
		}
	}
	if req.FollowUpSent != nil {
		fields["follow_up_sent"] = *req.FollowUpSent
		if *req.FollowUpSent {
			fields["follow_up_sent_at"] = now
		} else {
			fields["follow_up_sent_at"] = nil
		}
	}
	if len(fields) > 0 {
		fields["updated_at"] = now
		if err := s.companyRepo.UpdateFields(ctx, company.ID, fields); err != nil {
			return nil, translate(err, "failed to update lead")
		}
	}

	if err := s.syncPipeline(ctx, company, req); err != nil {
		return nil, err
	}

	return s.GetByID(ctx, company.ID)
}

func (s *CompanyService) syncPipeline(ctx context.Context, company *domain.Company, req *domain.LeadStatusRequest) error {
	wantInCRM := company.InCRM
	if req.InCRM != nil {
		wantInCRM = *req.InCRM
	} else if req.CRMStage != nil {
		wantInCRM = true
	}

	switch {
	case !wantInCRM && company.InCRM:
		_, err := s.board.RestoreToSearch(ctx, []string{company.CNPJ})
		return translate(err, "failed to restore lead")

	case wantInCRM && !company.InCRM:
		stage := domain.StageLead
		if req.CRMStage != nil {
			stage = *req.CRMStage
		}
		_, _, err := s.board.MoveToKanban(ctx, []domain.KanbanLead{newCard(company, stage)})
		return translate(err, "failed to move lead to pipeline")

	case wantInCRM && req.CRMStage != nil:
		cards, err := s.kanbanRepo.CardsByCompany(ctx, []uuid.UUID{company.ID})
		if err != nil {
			return fmt.Errorf("failed to get pipeline card: %w", err)
		}
		if len(cards) == 0 {
			_, _, err := s.board.MoveToKanban(ctx, []domain.KanbanLead{newCard(company, *req.CRMStage)})
			return translate(err, "failed to move lead to pipeline")
		}
		_, err = s.board.MoveStage(ctx, cards[0].ID, "", *req.CRMStage)
		return translate(err, "failed to move lead")
	}
	return nil
}

// RescoreUnscored scores up to limit companies that have no score yet and
// returns how many were scored.
func (s *CompanyService) RescoreUnscored(ctx context.Context, limit int) (int, error) {
	companies, err := s.companyRepo.ListUnscored(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to list unscored companies: %w", err)
	}

	scored := 0
	for i := range companies {
		if err := ctx.Err(); err != nil {
			return scored, err
		}
		if _, err := scoring.Apply(&companies[i]); err != nil {
			s.logger.Warn("failed to score company", zap.String("cnpj", companies[i].CNPJ), zap.Error(err))
			continue
		}
		if err := s.companyRepo.SaveScore(ctx, &companies[i]); err != nil {
			return scored, fmt.Errorf("failed to save score: %w", err)
		}
		scored++
	}
	return scored, nil
}

// findOrCreateCompany returns the stored company for the input, creating it
// when the CNPJ is new.
func findOrCreateCompany(ctx context.Context, repo *repository.CompanyRepository, in *domain.CompanyInput) (*domain.Company, bool, error) {
	existing, err := repo.GetByCNPJ(ctx, in.CNPJ)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("failed to get company: %w", err)
	}

	company := mapper.CompanyFromInput(in)
	if err := prepare(company); err != nil {
		return nil, false, err
	}
	if err := repo.Create(ctx, company); err != nil {
		return nil, false, fmt.Errorf("failed to create company %s: %w", company.CNPJ, err)
	}
	return company, true, nil
}

// prepare scores and geocodes a company before it is stored
func prepare(company *domain.Company) error {
	if strings.TrimSpace(company.LegalName) == "" {
		return fmt.Errorf("%w: razao_social is required", ErrInvalidInput)
	}
	if len(domain.DigitsOnly(company.CNPJ)) != 14 {
		return fmt.Errorf("%w: cnpj must have 14 digits", ErrInvalidInput)
	}
	geo.Assign(company)
	if _, err := scoring.Apply(company); err != nil {
		return fmt.Errorf("failed to score company: %w", err)
	}
	return nil
}

func newCard(company *domain.Company, stage domain.KanbanStage) domain.KanbanLead {
	return domain.KanbanLead{
		CompanyID: company.ID,
		Company:   company,
		Stage:     stage,
		Phone:     company.Phone,
		Email:     company.Email,
		Value:     scoring.EstimatedValue(company.Score()),
	}
}

// clampPage applies the default and maximum page size
func clampPage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = repository.DefaultPageSize
	}
	if limit > repository.MaxPageSize {
		limit = repository.MaxPageSize
	}
	return page, limit
}

func pageResult(leads []domain.LeadDTO, total int64, page, limit int, source string) *domain.SearchResult {
	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return &domain.SearchResult{
		Leads:      leads,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
		HasMore:    page < totalPages,
		Source:     source,
	}
}
