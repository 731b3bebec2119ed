package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// BaseModel carries the common id and timestamps. IDs are generated in Go
// so the same models work against PostgreSQL and SQLite.
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// RegistrationStatus is the company's situation in the federal registry
type RegistrationStatus string

const (
	RegistrationActive    RegistrationStatus = "ATIVA"
	RegistrationClosed    RegistrationStatus = "BAIXADA"
	RegistrationInapt     RegistrationStatus = "INAPTA"
	RegistrationSuspended RegistrationStatus = "SUSPENSA"
	RegistrationUnknown   RegistrationStatus = "N/A"
)

// ParseRegistrationStatus normalizes free-form upstream values. Anything
// unrecognized maps to N/A.
func ParseRegistrationStatus(s string) RegistrationStatus {
	switch RegistrationStatus(normalizeUpper(s)) {
	case RegistrationActive:
		return RegistrationActive
	case RegistrationClosed:
		return RegistrationClosed
	case RegistrationInapt:
		return RegistrationInapt
	case RegistrationSuspended:
		return RegistrationSuspended
	default:
		return RegistrationUnknown
	}
}

// EnrichmentStatus records how a company's contact data was obtained
type EnrichmentStatus string

const (
	EnrichmentNone   EnrichmentStatus = "none"
	EnrichmentManual EnrichmentStatus = "manual"
	EnrichmentBulk   EnrichmentStatus = "bulk"
	EnrichmentFailed EnrichmentStatus = "failed"
)

func (s EnrichmentStatus) IsValid() bool {
	switch s {
	case EnrichmentNone, EnrichmentManual, EnrichmentBulk, EnrichmentFailed:
		return true
	}
	return false
}

// KanbanStage is one of the fixed sales pipeline columns
type KanbanStage string

const (
	StageLead        KanbanStage = "lead"
	StageQualified   KanbanStage = "qualified"
	StageProposal    KanbanStage = "proposal"
	StageNegotiation KanbanStage = "negotiation"
	StageClosedWon   KanbanStage = "closed_won"
	StageClosedLost  KanbanStage = "closed_lost"
)

// KanbanStages lists the pipeline columns in board order
var KanbanStages = []KanbanStage{
	StageLead,
	StageQualified,
	StageProposal,
	StageNegotiation,
	StageClosedWon,
	StageClosedLost,
}

func (s KanbanStage) IsValid() bool {
	for _, stage := range KanbanStages {
		if s == stage {
			return true
		}
	}
	return false
}

// CampaignStatus is the lifecycle state of a messaging campaign
type CampaignStatus string

const (
	CampaignDraft     CampaignStatus = "draft"
	CampaignActive    CampaignStatus = "active"
	CampaignPaused    CampaignStatus = "paused"
	CampaignCompleted CampaignStatus = "completed"
	CampaignFailed    CampaignStatus = "failed"
)

var campaignTransitions = map[CampaignStatus][]CampaignStatus{
	CampaignDraft:  {CampaignActive},
	CampaignActive: {CampaignPaused, CampaignCompleted, CampaignFailed},
	CampaignPaused: {CampaignActive, CampaignCompleted, CampaignFailed},
}

func (s CampaignStatus) IsValid() bool {
	switch s {
	case CampaignDraft, CampaignActive, CampaignPaused, CampaignCompleted, CampaignFailed:
		return true
	}
	return false
}

// CanTransitionTo reports whether the campaign state machine allows moving
// from s to next. Completed and failed are terminal.
func (s CampaignStatus) CanTransitionTo(next CampaignStatus) bool {
	for _, allowed := range campaignTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Company is a lead from the company registry. CNPJ is the natural key.
type Company struct {
	BaseModel
	CNPJ               string             `gorm:"type:varchar(18);not null;uniqueIndex;column:cnpj"`
	LegalName          string             `gorm:"type:varchar(255);not null;column:razao_social"`
	TradeName          string             `gorm:"type:varchar(255);column:nome_fantasia"`
	RegistrationStatus RegistrationStatus `gorm:"type:varchar(20);not null;default:'N/A';column:situacao_cadastral;index"`
	StatusReason       string             `gorm:"type:varchar(255);column:motivo_situacao"`
	StatusDate         string             `gorm:"type:varchar(20);column:data_situacao"`
	OpenedAt           *time.Time         `gorm:"column:data_abertura"`
	Street             string             `gorm:"type:varchar(255);column:logradouro"`
	Number             string             `gorm:"type:varchar(20);column:numero"`
	Complement         string             `gorm:"type:varchar(255);column:complemento"`
	District           string             `gorm:"type:varchar(120);column:bairro"`
	City               string             `gorm:"type:varchar(120);column:municipio;index"`
	State              string             `gorm:"type:varchar(2);column:uf;index"`
	PostalCode         string             `gorm:"type:varchar(9);column:cep"`
	Phone              string             `gorm:"type:varchar(40);column:telefone"`
	Email              string             `gorm:"type:varchar(255);column:email"`
	ShareCapital       float64            `gorm:"not null;default:0;column:capital_social"`
	Size               string             `gorm:"type:varchar(40);column:porte"`
	MainActivityCode   string             `gorm:"type:varchar(20);column:cnae_principal"`
	MainActivity       string             `gorm:"type:varchar(255);column:cnae_descricao"`
	LegalNature        string             `gorm:"type:varchar(255);column:natureza_juridica"`
	AIScore            *int               `gorm:"column:ai_score;index"`
	AIInsights         datatypes.JSON     `gorm:"column:ai_insights"`
	EnrichmentStatus   EnrichmentStatus   `gorm:"type:varchar(20);not null;default:'none';column:enrichment_status"`
	EnrichedData       datatypes.JSON     `gorm:"column:enriched_data"`
	EnrichedAt         *time.Time         `gorm:"column:enriched_at"`
	InCRM              bool               `gorm:"not null;default:false;column:in_crm;index"`
	CRMStage           *KanbanStage       `gorm:"type:varchar(20);column:crm_stage"`
	FollowUpSent       bool               `gorm:"not null;default:false;column:follow_up_sent"`
	FollowUpSentAt     *time.Time         `gorm:"column:follow_up_sent_at"`
	Latitude           *float64           `gorm:"column:latitude"`
	Longitude          *float64           `gorm:"column:longitude"`
	Tags               []Tag              `gorm:"many2many:company_tags;joinForeignKey:CompanyID;joinReferences:TagID"`
}

func (Company) TableName() string { return "companies" }

// Score returns the stored score or zero when the company is unscored
func (c *Company) Score() int {
	if c.AIScore == nil {
		return 0
	}
	return *c.AIScore
}

// Insight is the qualitative annotation produced next to a lead score
type Insight struct {
	Factors               []string `json:"factors"`
	Recommendations       []string `json:"recommendations"`
	RiskLevel             string   `json:"riskLevel"`
	ConversionProbability float64  `json:"conversionProbability"`
	EstimatedValue        float64  `json:"estimatedValue"`
	BestContactTime       string   `json:"bestContactTime"`
}

// Tag labels companies. Deleting a tag removes its company_tags rows.
type Tag struct {
	BaseModel
	Name        string `gorm:"type:varchar(100);not null;uniqueIndex"`
	Color       string `gorm:"type:varchar(20);not null;default:'#3b82f6'"`
	Description string `gorm:"type:text"`
}

func (Tag) TableName() string { return "tags" }

// CompanyTag is the join row between companies and tags
type CompanyTag struct {
	CompanyID uuid.UUID `gorm:"type:uuid;primaryKey"`
	TagID     uuid.UUID `gorm:"type:uuid;primaryKey;index"`
	CreatedAt time.Time
}

func (CompanyTag) TableName() string { return "company_tags" }

// Audience is a saved filter predicate naming a reusable company segment.
// Its company count is derived on demand.
type Audience struct {
	BaseModel
	Name        string         `gorm:"type:varchar(200);not null"`
	Description string         `gorm:"type:text"`
	Filters     datatypes.JSON `gorm:"not null"`
}

func (Audience) TableName() string { return "audiences" }

// Campaign is a follow-up message template with delivery counters
type Campaign struct {
	BaseModel
	Name            string         `gorm:"type:varchar(200);not null"`
	MessageTemplate string         `gorm:"type:text;not null;column:message_template"`
	Status          CampaignStatus `gorm:"type:varchar(20);not null;default:'draft';index"`
	AudienceID      *uuid.UUID     `gorm:"type:uuid;column:audience_id"`
	ScheduledAt     *time.Time     `gorm:"column:scheduled_at"`
	StartedAt       *time.Time     `gorm:"column:started_at"`
	CompletedAt     *time.Time     `gorm:"column:completed_at"`
	SentCount       int            `gorm:"not null;default:0;column:sent_count"`
	DeliveredCount  int            `gorm:"not null;default:0;column:delivered_count"`
	FailedCount     int            `gorm:"not null;default:0;column:failed_count"`
}

func (Campaign) TableName() string { return "campaigns" }

// SavedSearch stores a named filter set and how often it is reused
type SavedSearch struct {
	BaseModel
	Name        string         `gorm:"type:varchar(200);not null"`
	Description string         `gorm:"type:text"`
	Filters     datatypes.JSON `gorm:"not null"`
	UsedCount   int            `gorm:"not null;default:0;column:used_count"`
	LastUsed    *time.Time     `gorm:"column:last_used"`
}

func (SavedSearch) TableName() string { return "saved_searches" }

// KanbanLead is a card on the pipeline board. A company has at most one card.
type KanbanLead struct {
	BaseModel
	CompanyID   uuid.UUID   `gorm:"type:uuid;not null;uniqueIndex;column:company_id"`
	Company     *Company    `gorm:"foreignKey:CompanyID"`
	Stage       KanbanStage `gorm:"type:varchar(20);not null;default:'lead';index"`
	ContactName string      `gorm:"type:varchar(200);column:contact_name"`
	Phone       string      `gorm:"type:varchar(40)"`
	Email       string      `gorm:"type:varchar(255)"`
	Value       float64     `gorm:"not null;default:0"`
	Notes       string      `gorm:"type:text"`
}

func (KanbanLead) TableName() string { return "kanban_leads" }
