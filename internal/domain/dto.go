package domain

import (
	"encoding/json"

	"github.com/google/uuid"
)

// DTOs use snake_case JSON to match the dashboard's field names.

// LeadDTO is the common lead record returned by local search, webhook
// search and the companies endpoints.
type LeadDTO struct {
	ID                *uuid.UUID         `json:"id,omitempty"`
	CNPJ              string             `json:"cnpj"`
	RazaoSocial       string             `json:"razao_social"`
	NomeFantasia      string             `json:"nome_fantasia,omitempty"`
	SituacaoCadastral RegistrationStatus `json:"situacao_cadastral"`
	MotivoSituacao    string             `json:"motivo_situacao,omitempty"`
	DataSituacao      string             `json:"data_situacao,omitempty"`
	DataAbertura      string             `json:"data_abertura,omitempty"`
	Logradouro        string             `json:"logradouro,omitempty"`
	Numero            string             `json:"numero,omitempty"`
	Complemento       string             `json:"complemento,omitempty"`
	Bairro            string             `json:"bairro,omitempty"`
	Municipio         string             `json:"municipio,omitempty"`
	UF                string             `json:"uf,omitempty"`
	CEP               string             `json:"cep,omitempty"`
	Telefone          string             `json:"telefone,omitempty"`
	Email             string             `json:"email,omitempty"`
	CapitalSocial     float64            `json:"capital_social"`
	Porte             string             `json:"porte,omitempty"`
	CNAEPrincipal     string             `json:"cnae_principal,omitempty"`
	CNAEDescricao     string             `json:"cnae_descricao,omitempty"`
	NaturezaJuridica  string             `json:"natureza_juridica,omitempty"`
	AIScore           int                `json:"ai_score"`
	AIInsights        *Insight           `json:"ai_insights,omitempty"`
	EnrichmentStatus  EnrichmentStatus   `json:"enrichment_status"`
	EnrichedData      json.RawMessage    `json:"enriched_data,omitempty"`
	EnrichedAt        string             `json:"enriched_at,omitempty"`
	InCRM             bool               `json:"in_crm"`
	CRMStage          *KanbanStage       `json:"crm_stage,omitempty"`
	FollowUpSent      bool               `json:"follow_up_sent"`
	FollowUpSentAt    string             `json:"follow_up_sent_at,omitempty"`
	Latitude          *float64           `json:"latitude,omitempty"`
	Longitude         *float64           `json:"longitude,omitempty"`
	Tags              []TagDTO           `json:"tags,omitempty"`
	CreatedAt         string             `json:"created_at,omitempty"`
	UpdatedAt         string             `json:"updated_at,omitempty"`
}

// CompanyInput is a lead as submitted by the dashboard, either from a search
// result or typed in by hand.
type CompanyInput struct {
	CNPJ              string          `json:"cnpj" validate:"required,cnpj"`
	RazaoSocial       string          `json:"razao_social" validate:"required,max=255"`
	NomeFantasia      string          `json:"nome_fantasia" validate:"max=255"`
	SituacaoCadastral string          `json:"situacao_cadastral"`
	MotivoSituacao    string          `json:"motivo_situacao"`
	DataSituacao      string          `json:"data_situacao"`
	DataAbertura      string          `json:"data_abertura"`
	Logradouro        string          `json:"logradouro"`
	Numero            string          `json:"numero"`
	Complemento       string          `json:"complemento"`
	Bairro            string          `json:"bairro"`
	Municipio         string          `json:"municipio"`
	UF                string          `json:"uf" validate:"omitempty,len=2"`
	CEP               string          `json:"cep"`
	Telefone          string          `json:"telefone"`
	Email             string          `json:"email" validate:"omitempty,email"`
	CapitalSocial     float64         `json:"capital_social" validate:"gte=0"`
	Porte             string          `json:"porte"`
	CNAEPrincipal     string          `json:"cnae_principal"`
	CNAEDescricao     string          `json:"cnae_descricao"`
	NaturezaJuridica  string          `json:"natureza_juridica"`
	EnrichedData      json.RawMessage `json:"enriched_data,omitempty"`
}

// ManualEnrichmentRequest is contact data typed in by the user
type ManualEnrichmentRequest struct {
	Telefone    string `json:"telefone" validate:"max=40"`
	Email       string `json:"email" validate:"omitempty,email"`
	Contato     string `json:"contato" validate:"max=200"`
	Cargo       string `json:"cargo" validate:"max=120"`
	Website     string `json:"website" validate:"omitempty,url"`
	LinkedIn    string `json:"linkedin" validate:"omitempty,url"`
	Observacoes string `json:"observacoes"`
}

type EnrichLeadRequest struct {
	CNPJ string `json:"cnpj" validate:"required,cnpj"`
}

type BulkEnrichmentRequest struct {
	CompanyIDs []string `json:"company_ids" validate:"required,min=1,dive,uuid"`
}

// BulkEnrichmentItem is the outcome for one company of a bulk run
type BulkEnrichmentItem struct {
	CompanyID uuid.UUID        `json:"company_id"`
	CNPJ      string           `json:"cnpj,omitempty"`
	Status    EnrichmentStatus `json:"status"`
	Provider  string           `json:"provider,omitempty"`
	Error     string           `json:"error,omitempty"`
}

type BulkEnrichmentResult struct {
	Processed int                  `json:"processed"`
	Succeeded int                  `json:"succeeded"`
	Failed    int                  `json:"failed"`
	Cancelled bool                 `json:"cancelled"`
	Items     []BulkEnrichmentItem `json:"items"`
}

type ApplyTagsRequest struct {
	CompanyCNPJs []string `json:"company_cnpjs" validate:"required,min=1,dive,required"`
	TagID        string   `json:"tag_id" validate:"required,uuid"`
}

// LeadStatusRequest updates pipeline bookkeeping on a lead. Nil fields are left unchanged.
type LeadStatusRequest struct {
	EnrichmentStatus *EnrichmentStatus `json:"enrichment_status"`
	InCRM            *bool             `json:"in_crm"`
	CRMStage         *KanbanStage      `json:"crm_stage"`
	FollowUpSent     *bool             `json:"follow_up_sent"`
}

type TagDTO struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Color        string    `json:"color"`
	Description  string    `json:"description,omitempty"`
	CompanyCount int64     `json:"company_count"`
	CreatedAt    string    `json:"created_at"`
}

type CreateTagRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Color       string `json:"color" validate:"omitempty,hexcolor"`
	Description string `json:"description"`
}

type UpdateTagRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=100"`
	Color       *string `json:"color" validate:"omitempty,hexcolor"`
	Description *string `json:"description"`
}

type AudienceDTO struct {
	ID           uuid.UUID       `json:"id"`
	Name         string          `json:"name"`
	Description  string          `json:"description,omitempty"`
	Filters      json.RawMessage `json:"filters"`
	CompanyCount int64           `json:"company_count"`
	CreatedAt    string          `json:"created_at"`
	UpdatedAt    string          `json:"updated_at"`
}

type CreateAudienceRequest struct {
	Name        string          `json:"name" validate:"required,max=200"`
	Description string          `json:"description"`
	Filters     json.RawMessage `json:"filters" validate:"required"`
}

type UpdateAudienceRequest struct {
	Name        *string         `json:"name" validate:"omitempty,min=1,max=200"`
	Description *string         `json:"description"`
	Filters     json.RawMessage `json:"filters"`
}

type CampaignDTO struct {
	ID              uuid.UUID      `json:"id"`
	Name            string         `json:"name"`
	MessageTemplate string         `json:"message_template"`
	Status          CampaignStatus `json:"status"`
	AudienceID      *uuid.UUID     `json:"audience_id,omitempty"`
	ScheduledAt     string         `json:"scheduled_at,omitempty"`
	StartedAt       string         `json:"started_at,omitempty"`
	CompletedAt     string         `json:"completed_at,omitempty"`
	SentCount       int            `json:"sent_count"`
	DeliveredCount  int            `json:"delivered_count"`
	FailedCount     int            `json:"failed_count"`
	CreatedAt       string         `json:"created_at"`
	UpdatedAt       string         `json:"updated_at"`
}

type CreateCampaignRequest struct {
	Name            string     `json:"name" validate:"required,max=200"`
	MessageTemplate string     `json:"message_template" validate:"required"`
	AudienceID      *uuid.UUID `json:"audience_id"`
	ScheduledAt     string     `json:"scheduled_at" validate:"omitempty"`
}

type UpdateCampaignRequest struct {
	Name            *string    `json:"name" validate:"omitempty,min=1,max=200"`
	MessageTemplate *string    `json:"message_template" validate:"omitempty,min=1"`
	AudienceID      *uuid.UUID `json:"audience_id"`
	ScheduledAt     *string    `json:"scheduled_at"`
}

// PreviewCampaignRequest renders a campaign template for one company
type PreviewCampaignRequest struct {
	CompanyID  string `json:"company_id" validate:"required,uuid"`
	SeuNome    string `json:"seu_nome"`
	SuaEmpresa string `json:"sua_empresa"`
}

type PreviewCampaignResponse struct {
	Message string `json:"message"`
}

type SavedSearchDTO struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Filters     json.RawMessage `json:"filters"`
	UsedCount   int             `json:"used_count"`
	LastUsed    string          `json:"last_used,omitempty"`
	CreatedAt   string          `json:"created_at"`
	UpdatedAt   string          `json:"updated_at"`
}

type CreateSavedSearchRequest struct {
	Name        string          `json:"name" validate:"required,max=200"`
	Description string          `json:"description"`
	Filters     json.RawMessage `json:"filters" validate:"required"`
}

type UpdateSavedSearchRequest struct {
	Name        *string         `json:"name" validate:"omitempty,min=1,max=200"`
	Description *string         `json:"description"`
	Filters     json.RawMessage `json:"filters"`
}

type KanbanLeadDTO struct {
	ID          uuid.UUID   `json:"id"`
	CompanyID   uuid.UUID   `json:"company_id"`
	Stage       KanbanStage `json:"stage"`
	ContactName string      `json:"contact_name,omitempty"`
	Phone       string      `json:"phone,omitempty"`
	Email       string      `json:"email,omitempty"`
	Value       float64     `json:"value"`
	Notes       string      `json:"notes,omitempty"`
	Lead        *LeadDTO    `json:"lead,omitempty"`
	CreatedAt   string      `json:"created_at"`
	UpdatedAt   string      `json:"updated_at"`
}

type MoveToKanbanRequest struct {
	Leads []CompanyInput `json:"leads" validate:"required,min=1,dive"`
	Stage KanbanStage    `json:"stage" validate:"omitempty,stage"`
}

type MoveToKanbanResponse struct {
	Created []KanbanLeadDTO `json:"created"`
	// Skipped lists CNPJs that already had a card
	Skipped []string `json:"skipped"`
}

// UpdateKanbanLeadRequest edits a card. When FromStage is set the move is
// rejected if the card is no longer in that stage.
type UpdateKanbanLeadRequest struct {
	Stage       *KanbanStage `json:"stage" validate:"omitempty,stage"`
	FromStage   *KanbanStage `json:"from_stage" validate:"omitempty,stage"`
	ContactName *string      `json:"contact_name" validate:"omitempty,max=200"`
	Phone       *string      `json:"phone" validate:"omitempty,max=40"`
	Email       *string      `json:"email" validate:"omitempty,email"`
	Value       *float64     `json:"value" validate:"omitempty,gte=0"`
	Notes       *string      `json:"notes"`
}

type RestoreLeadsRequest struct {
	CNPJs []string `json:"cnpjs" validate:"required,min=1,dive,required"`
}

type RestoreLeadsResponse struct {
	Restored []LeadDTO `json:"restored"`
}

// FollowUpRequest sends one message about a lead to the follow-up webhook
type FollowUpRequest struct {
	Lead       CompanyInput `json:"lead" validate:"required"`
	Message    string       `json:"message" validate:"required"`
	CampaignID *uuid.UUID   `json:"campaign_id"`
}

type FollowUpResponse struct {
	Delivered bool   `json:"delivered"`
	SentAt    string `json:"sent_at"`
}

// InsightsOverviewDTO summarizes the scored lead base
type InsightsOverviewDTO struct {
	Total                int64                 `json:"total"`
	Active               int64                 `json:"active"`
	HighScore            int64                 `json:"high_score"`
	AvgScore             float64               `json:"avg_score"`
	ConversionPrediction float64               `json:"conversion_prediction"`
	EstimatedRevenue     float64               `json:"estimated_revenue"`
	ByStage              map[KanbanStage]int64 `json:"by_stage"`
}

// ExportLeadsRequest selects the leads written to a CSV export. Filters is a
// search filter body; searchTerm and statusFilter refine it like the leads table.
type ExportLeadsRequest struct {
	Filters      json.RawMessage `json:"filters"`
	SearchTerm   string          `json:"searchTerm"`
	StatusFilter string          `json:"statusFilter" validate:"omitempty,oneof=all enriched not_enriched ativa baixada"`
}

type ExportDTO struct {
	Key       string `json:"key"`
	Rows      int    `json:"rows"`
	CreatedAt string `json:"created_at"`
}

// SearchResult is the paginated lead listing shared by both search modes.
// For webhook searches the totals are the upstream counts, taken before leads
// already on the kanban board are hidden, so a page may hold fewer than
// limit leads while hasMore is true.
type SearchResult struct {
	Leads      []LeadDTO `json:"leads"`
	Total      int64     `json:"total"`
	Page       int       `json:"page"`
	Limit      int       `json:"limit"`
	TotalPages int       `json:"totalPages"`
	HasMore    bool      `json:"hasMore"`
	// Estimated is set when total and totalPages are inferred from a full page
	Estimated bool   `json:"estimated"`
	Source    string `json:"source"`
}
