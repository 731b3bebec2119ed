package mapper

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/prospecta/leads-api/internal/domain"
	"github.com/prospecta/leads-api/internal/scoring"
	"gorm.io/datatypes"
)

const (
	timestampLayout = "2006-01-02T15:04:05Z"
	dateLayout      = "2006-01-02"
)

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(timestampLayout)
}

// ToLeadDTO converts Company to LeadDTO. Undecodable insights are dropped.
func ToLeadDTO(company *domain.Company) domain.LeadDTO {
	id := company.ID
	dto := domain.LeadDTO{
		ID:                &id,
		CNPJ:              company.CNPJ,
		RazaoSocial:       company.LegalName,
		NomeFantasia:      company.TradeName,
		SituacaoCadastral: company.RegistrationStatus,
		MotivoSituacao:    company.StatusReason,
		DataSituacao:      company.StatusDate,
		Logradouro:        company.Street,
		Numero:            company.Number,
		Complemento:       company.Complement,
		Bairro:            company.District,
		Municipio:         company.City,
		UF:                company.State,
		CEP:               company.PostalCode,
		Telefone:          company.Phone,
		Email:             company.Email,
		CapitalSocial:     company.ShareCapital,
		Porte:             company.Size,
		CNAEPrincipal:     company.MainActivityCode,
		CNAEDescricao:     company.MainActivity,
		NaturezaJuridica:  company.LegalNature,
		AIScore:           company.Score(),
		EnrichmentStatus:  company.EnrichmentStatus,
		EnrichedAt:        formatTime(company.EnrichedAt),
		InCRM:             company.InCRM,
		CRMStage:          company.CRMStage,
		FollowUpSent:      company.FollowUpSent,
		FollowUpSentAt:    formatTime(company.FollowUpSentAt),
		Latitude:          company.Latitude,
		Longitude:         company.Longitude,
		CreatedAt:         company.CreatedAt.Format(timestampLayout),
		UpdatedAt:         company.UpdatedAt.Format(timestampLayout),
	}

	if company.OpenedAt != nil {
		dto.DataAbertura = company.OpenedAt.Format(dateLayout)
	}
	if insight, err := scoring.DecodeInsight(company.AIInsights); err == nil {
		dto.AIInsights = insight
	}
	if len(company.EnrichedData) > 0 {
		dto.EnrichedData = json.RawMessage(company.EnrichedData)
	}
	if len(company.Tags) > 0 {
		dto.Tags = make([]domain.TagDTO, 0, len(company.Tags))
		for i := range company.Tags {
			dto.Tags = append(dto.Tags, ToTagDTO(&company.Tags[i], 0))
		}
	}

	return dto
}

// ToLeadDTOs converts a page of companies
func ToLeadDTOs(companies []domain.Company) []domain.LeadDTO {
	dtos := make([]domain.LeadDTO, 0, len(companies))
	for i := range companies {
		dtos = append(dtos, ToLeadDTO(&companies[i]))
	}
	return dtos
}

// CompanyFromInput builds a Company from a submitted lead. Scoring,
// enrichment and pipeline fields are left for the caller.
func CompanyFromInput(in *domain.CompanyInput) *domain.Company {
	company := &domain.Company{
		CNPJ:               domain.NormalizeCNPJ(in.CNPJ),
		LegalName:          strings.TrimSpace(in.RazaoSocial),
		TradeName:          strings.TrimSpace(in.NomeFantasia),
		RegistrationStatus: domain.ParseRegistrationStatus(in.SituacaoCadastral),
		StatusReason:       in.MotivoSituacao,
		StatusDate:         in.DataSituacao,
		Street:             in.Logradouro,
		Number:             in.Numero,
		Complement:         in.Complemento,
		District:           in.Bairro,
		City:               strings.TrimSpace(in.Municipio),
		State:              strings.ToUpper(strings.TrimSpace(in.UF)),
		PostalCode:         domain.DigitsOnly(in.CEP),
		Phone:              strings.TrimSpace(in.Telefone),
		Email:              strings.TrimSpace(in.Email),
		ShareCapital:       in.CapitalSocial,
		Size:               in.Porte,
		MainActivityCode:   in.CNAEPrincipal,
		MainActivity:       in.CNAEDescricao,
		LegalNature:        in.NaturezaJuridica,
		EnrichmentStatus:   domain.EnrichmentNone,
	}
	if in.DataAbertura != "" {
		if t, err := time.Parse(dateLayout, in.DataAbertura); err == nil {
			company.OpenedAt = &t
		}
	}
	return company
}

// ToTagDTO converts Tag to TagDTO
func ToTagDTO(tag *domain.Tag, companyCount int64) domain.TagDTO {
	return domain.TagDTO{
		ID:           tag.ID,
		Name:         tag.Name,
		Color:        tag.Color,
		Description:  tag.Description,
		CompanyCount: companyCount,
		CreatedAt:    tag.CreatedAt.Format(timestampLayout),
	}
}

// ToAudienceDTO converts Audience to AudienceDTO
func ToAudienceDTO(audience *domain.Audience, companyCount int64) domain.AudienceDTO {
	return domain.AudienceDTO{
		ID:           audience.ID,
		Name:         audience.Name,
		Description:  audience.Description,
		Filters:      rawOrEmpty(audience.Filters),
		CompanyCount: companyCount,
		CreatedAt:    audience.CreatedAt.Format(timestampLayout),
		UpdatedAt:    audience.UpdatedAt.Format(timestampLayout),
	}
}

// ToCampaignDTO converts Campaign to CampaignDTO
func ToCampaignDTO(campaign *domain.Campaign) domain.CampaignDTO {
	return domain.CampaignDTO{
		ID:              campaign.ID,
		Name:            campaign.Name,
		MessageTemplate: campaign.MessageTemplate,
		Status:          campaign.Status,
		AudienceID:      campaign.AudienceID,
		ScheduledAt:     formatTime(campaign.ScheduledAt),
		StartedAt:       formatTime(campaign.StartedAt),
		CompletedAt:     formatTime(campaign.CompletedAt),
		SentCount:       campaign.SentCount,
		DeliveredCount:  campaign.DeliveredCount,
		FailedCount:     campaign.FailedCount,
		CreatedAt:       campaign.CreatedAt.Format(timestampLayout),
		UpdatedAt:       campaign.UpdatedAt.Format(timestampLayout),
	}
}

// ToSavedSearchDTO converts SavedSearch to SavedSearchDTO
func ToSavedSearchDTO(search *domain.SavedSearch) domain.SavedSearchDTO {
	return domain.SavedSearchDTO{
		ID:          search.ID,
		Name:        search.Name,
		Description: search.Description,
		Filters:     rawOrEmpty(search.Filters),
		UsedCount:   search.UsedCount,
		LastUsed:    formatTime(search.LastUsed),
		CreatedAt:   search.CreatedAt.Format(timestampLayout),
		UpdatedAt:   search.UpdatedAt.Format(timestampLayout),
	}
}

// ToKanbanLeadDTO converts KanbanLead to KanbanLeadDTO, embedding the lead
// when the company is loaded.
func ToKanbanLeadDTO(card *domain.KanbanLead) domain.KanbanLeadDTO {
	dto := domain.KanbanLeadDTO{
		ID:          card.ID,
		CompanyID:   card.CompanyID,
		Stage:       card.Stage,
		ContactName: card.ContactName,
		Phone:       card.Phone,
		Email:       card.Email,
		Value:       card.Value,
		Notes:       card.Notes,
		CreatedAt:   card.CreatedAt.Format(timestampLayout),
		UpdatedAt:   card.UpdatedAt.Format(timestampLayout),
	}
	if card.Company != nil {
		lead := ToLeadDTO(card.Company)
		dto.Lead = &lead
	}
	return dto
}

func rawOrEmpty(raw datatypes.JSON) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage("{}")
	}
	return json.RawMessage(raw)
}
