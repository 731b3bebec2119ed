package service_test

import (
	"testing"

	"github.com/prospecta/leads-api/internal/domain"
	"github.com/prospecta/leads-api/internal/filter"
	"github.com/prospecta/leads-api/internal/repository"
	"github.com/prospecta/leads-api/internal/testutil"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type testRepos struct {
	db        *gorm.DB
	companies *repository.CompanyRepository
	tags      *repository.TagRepository
	kanban    *repository.KanbanRepository
	audiences *repository.AudienceRepository
	campaigns *repository.CampaignRepository
	searches  *repository.SavedSearchRepository
	logger    *zap.Logger
}

func setupRepos(t *testing.T) *testRepos {
	t.Helper()
	db := testutil.SetupTestDB(t)
	return &testRepos{
		db:        db,
		companies: repository.NewCompanyRepository(db),
		tags:      repository.NewTagRepository(db),
		kanban:    repository.NewKanbanRepository(db),
		audiences: repository.NewAudienceRepository(db),
		campaigns: repository.NewCampaignRepository(db),
		searches:  repository.NewSavedSearchRepository(db),
		logger:    zap.NewNop(),
	}
}

func companyInput(cnpj, name string) domain.CompanyInput {
	return domain.CompanyInput{
		CNPJ:              cnpj,
		RazaoSocial:       name,
		SituacaoCadastral: "ATIVA",
		Municipio:         "São Paulo",
		UF:                "SP",
	}
}

func filterAll() filter.LeadFilter {
	return filter.LeadFilter{IncludePipeline: true}
}
