package mapper_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prospecta/leads-api/internal/domain"
	"github.com/prospecta/leads-api/internal/mapper"
	"github.com/prospecta/leads-api/internal/scoring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompanyFromInput(t *testing.T) {
	in := &domain.CompanyInput{
		CNPJ:              "11222333000181",
		RazaoSocial:       " ACME TECNOLOGIA LTDA ",
		SituacaoCadastral: "ativa",
		Municipio:         "São Paulo",
		UF:                "sp",
		CEP:               "01310-100",
		DataAbertura:      "2015-03-10",
	}
	company := mapper.CompanyFromInput(in)

	assert.Equal(t, "11.222.333/0001-81", company.CNPJ)
	assert.Equal(t, "ACME TECNOLOGIA LTDA", company.LegalName)
	assert.Equal(t, domain.RegistrationActive, company.RegistrationStatus)
	assert.Equal(t, "SP", company.State)
	assert.Equal(t, "01310100", company.PostalCode)
	assert.Equal(t, domain.EnrichmentNone, company.EnrichmentStatus)
	require.NotNil(t, company.OpenedAt)
	assert.Equal(t, 2015, company.OpenedAt.Year())
}

func TestToLeadDTO(t *testing.T) {
	enrichedAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	company := &domain.Company{
		BaseModel:          domain.BaseModel{ID: uuid.New()},
		CNPJ:               "11.222.333/0001-81",
		LegalName:          "ACME TECNOLOGIA LTDA",
		RegistrationStatus: domain.RegistrationActive,
		EnrichmentStatus:   domain.EnrichmentManual,
		EnrichedAt:         &enrichedAt,
		Tags:               []domain.Tag{{Name: "vip"}},
	}
	_, err := scoring.Apply(company)
	require.NoError(t, err)

	dto := mapper.ToLeadDTO(company)
	assert.Equal(t, company.ID, *dto.ID)
	assert.Equal(t, company.Score(), dto.AIScore)
	require.NotNil(t, dto.AIInsights)
	assert.Equal(t, "low", dto.AIInsights.RiskLevel)
	assert.Equal(t, "2024-05-01T12:00:00Z", dto.EnrichedAt)
	require.Len(t, dto.Tags, 1)
	assert.Equal(t, "vip", dto.Tags[0].Name)
}

func TestToKanbanLeadDTO(t *testing.T) {
	company := &domain.Company{CNPJ: "11.222.333/0001-81", LegalName: "ACME"}
	card := &domain.KanbanLead{Stage: domain.StageProposal, Value: 25000}

	assert.Nil(t, mapper.ToKanbanLeadDTO(card).Lead)

	card.Company = company
	dto := mapper.ToKanbanLeadDTO(card)
	require.NotNil(t, dto.Lead)
	assert.Equal(t, "ACME", dto.Lead.RazaoSocial)
	assert.Equal(t, domain.StageProposal, dto.Stage)
}

func TestToAudienceDTO_EmptyFilters(t *testing.T) {
	dto := mapper.ToAudienceDTO(&domain.Audience{Name: "SP"}, 3)
	assert.JSONEq(t, `{}`, string(dto.Filters))
	assert.Equal(t, int64(3), dto.CompanyCount)
}
