// Package filter compiles lead search criteria into parameterized SQL scopes
// and equivalent in-memory predicates.
package filter

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prospecta/leads-api/internal/domain"
)

// ErrInvalidFilter is returned when a filter cannot be evaluated
var ErrInvalidFilter = errors.New("invalid filter")

const dateLayout = "2006-01-02"

// LeadFilter is the structured search predicate. Zero values mean "no
// constraint"; every set field is ANDed.
type LeadFilter struct {
	RazaoSocial        string   `json:"razao_social,omitempty"`
	NomeFantasia       string   `json:"nome_fantasia,omitempty"`
	Keyword            string   `json:"keyword,omitempty"`
	CNPJ               string   `json:"cnpj,omitempty"`
	UF                 string   `json:"uf,omitempty"`
	Municipio          string   `json:"municipio,omitempty"`
	Bairro             string   `json:"bairro,omitempty"`
	CEP                string   `json:"cep,omitempty"`
	AtividadeEconomica string   `json:"atividade_economica,omitempty"`
	CNAEPrincipal      string   `json:"cnae_principal,omitempty"`
	SituacaoCadastral  string   `json:"situacao_cadastral,omitempty"`
	Porte              string   `json:"porte,omitempty"`
	CapitalMinimo      *float64 `json:"capital_social_minimo,omitempty"`
	CapitalMaximo      *float64 `json:"capital_social_maximo,omitempty"`
	DataAberturaInicio string   `json:"data_abertura_inicio,omitempty"`
	DataAberturaFim    string   `json:"data_abertura_fim,omitempty"`
	MinScore           *int     `json:"min_score,omitempty"`
	MaxScore           *int     `json:"max_score,omitempty"`
	ComTelefone        bool     `json:"com_telefone,omitempty"`
	ComEmail           bool     `json:"com_email,omitempty"`
	ComNomeFantasia    *bool    `json:"com_nome_fantasia,omitempty"`
	ApenasAtivas       bool     `json:"apenas_ativas,omitempty"`
	SomenteMatriz      bool     `json:"somente_matriz,omitempty"`
	ExcluirMEI         bool     `json:"excluir_mei,omitempty"`
	EnrichmentStatus   string   `json:"enrichment_status,omitempty"`
	TagID              string   `json:"tag_id,omitempty"`
	// IncludePipeline keeps companies that are on the kanban board
	IncludePipeline bool `json:"include_pipeline,omitempty"`

	// Audience builder aliases, folded in by Normalize
	Situacao    string `json:"situacao,omitempty"`
	Keywords    string `json:"keywords,omitempty"`
	HasFantasia *bool  `json:"hasFantasia,omitempty"`
}

// Parse decodes a serialized filter, as stored on audiences and saved
// searches, and normalizes it.
func Parse(raw []byte) (LeadFilter, error) {
	var f LeadFilter
	if len(raw) == 0 {
		return f, nil
	}
	if err := json.Unmarshal(raw, &f); err != nil {
		return f, fmt.Errorf("%w: %v", ErrInvalidFilter, err)
	}
	f.Normalize()
	if err := f.Validate(); err != nil {
		return f, err
	}
	return f, nil
}

// Normalize trims input, folds aliases and canonicalizes codes.
// It is idempotent.
func (f *LeadFilter) Normalize() {
	if f.SituacaoCadastral == "" && f.Situacao != "" && !strings.EqualFold(f.Situacao, "all") {
		f.SituacaoCadastral = f.Situacao
	}
	if f.Keyword == "" && f.Keywords != "" {
		f.Keyword = f.Keywords
	}
	if f.ComNomeFantasia == nil && f.HasFantasia != nil {
		v := *f.HasFantasia
		f.ComNomeFantasia = &v
	}
	f.Situacao, f.Keywords, f.HasFantasia = "", "", nil

	f.RazaoSocial = strings.TrimSpace(f.RazaoSocial)
	f.NomeFantasia = strings.TrimSpace(f.NomeFantasia)
	f.Keyword = strings.TrimSpace(f.Keyword)
	f.CNPJ = domain.DigitsOnly(f.CNPJ)
	f.CEP = domain.DigitsOnly(f.CEP)
	f.UF = strings.ToUpper(strings.TrimSpace(f.UF))
	f.Municipio = strings.TrimSpace(f.Municipio)
	f.Bairro = strings.TrimSpace(f.Bairro)
	f.AtividadeEconomica = strings.TrimSpace(f.AtividadeEconomica)
	f.CNAEPrincipal = strings.TrimSpace(f.CNAEPrincipal)
	f.SituacaoCadastral = strings.ToUpper(strings.TrimSpace(f.SituacaoCadastral))
	f.Porte = strings.TrimSpace(f.Porte)
	f.EnrichmentStatus = strings.TrimSpace(f.EnrichmentStatus)
	f.TagID = strings.TrimSpace(f.TagID)
	f.DataAberturaInicio = strings.TrimSpace(f.DataAberturaInicio)
	f.DataAberturaFim = strings.TrimSpace(f.DataAberturaFim)
}

// Validate checks ranges, dates and ids.
func (f *LeadFilter) Validate() error {
	if f.CapitalMinimo != nil && f.CapitalMaximo != nil && *f.CapitalMinimo > *f.CapitalMaximo {
		return fmt.Errorf("%w: capital_social_minimo is greater than capital_social_maximo", ErrInvalidFilter)
	}
	if f.MinScore != nil && f.MaxScore != nil && *f.MinScore > *f.MaxScore {
		return fmt.Errorf("%w: min_score is greater than max_score", ErrInvalidFilter)
	}
	if _, err := f.openedFrom(); err != nil {
		return err
	}
	if _, err := f.openedUntil(); err != nil {
		return err
	}
	if f.TagID != "" {
		if _, err := uuid.Parse(f.TagID); err != nil {
			return fmt.Errorf("%w: tag_id must be a UUID", ErrInvalidFilter)
		}
	}
	if f.EnrichmentStatus != "" && !domain.EnrichmentStatus(f.EnrichmentStatus).IsValid() {
		return fmt.Errorf("%w: unknown enrichment_status %q", ErrInvalidFilter, f.EnrichmentStatus)
	}
	return nil
}

// IsEmpty reports whether the filter constrains nothing
func (f LeadFilter) IsEmpty() bool {
	f.IncludePipeline = false
	return f == LeadFilter{}
}

func (f *LeadFilter) openedFrom() (*time.Time, error) {
	return parseDate("data_abertura_inicio", f.DataAberturaInicio)
}

func (f *LeadFilter) openedUntil() (*time.Time, error) {
	t, err := parseDate("data_abertura_fim", f.DataAberturaFim)
	if t != nil {
		// inclusive of the whole day
		end := t.Add(24*time.Hour - time.Nanosecond)
		t = &end
	}
	return t, err
}

func parseDate(field, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be YYYY-MM-DD", ErrInvalidFilter, field)
	}
	return &t, nil
}

func contains(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// likeReplacer escapes LIKE wildcards so user text matches literally
var likeReplacer = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePattern(s string) string {
	return containsPattern(strings.ToLower(s))
}

func containsPattern(s string) string {
	return "%" + likeReplacer.Replace(s) + "%"
}
