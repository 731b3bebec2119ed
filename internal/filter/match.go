package filter

import (
	"sort"
	"strings"

	"github.com/prospecta/leads-api/internal/domain"
)

// Matches evaluates the filter against a company already in memory. It
// agrees with Scope for every field.
func (f LeadFilter) Matches(c *domain.Company) bool {
	if c == nil {
		return false
	}
	if f.RazaoSocial != "" && !contains(c.LegalName, f.RazaoSocial) {
		return false
	}
	if f.NomeFantasia != "" && !contains(c.TradeName, f.NomeFantasia) {
		return false
	}
	if f.Keyword != "" && !contains(c.LegalName, f.Keyword) && !contains(c.TradeName, f.Keyword) {
		return false
	}
	if f.CNPJ != "" && !strings.Contains(domain.DigitsOnly(c.CNPJ), f.CNPJ) {
		return false
	}
	if f.UF != "" && !strings.EqualFold(c.State, f.UF) {
		return false
	}
	if f.Municipio != "" && !contains(c.City, f.Municipio) {
		return false
	}
	if f.Bairro != "" && !contains(c.District, f.Bairro) {
		return false
	}
	if f.CEP != "" && !strings.Contains(strings.ReplaceAll(c.PostalCode, "-", ""), f.CEP) {
		return false
	}
	if f.AtividadeEconomica != "" && !contains(c.MainActivity, f.AtividadeEconomica) {
		return false
	}
	if f.CNAEPrincipal != "" && !strings.Contains(c.MainActivityCode, f.CNAEPrincipal) {
		return false
	}
	if f.SituacaoCadastral != "" && string(c.RegistrationStatus) != f.SituacaoCadastral {
		return false
	}
	if f.Porte != "" && c.Size != f.Porte {
		return false
	}
	if f.CapitalMinimo != nil && c.ShareCapital < *f.CapitalMinimo {
		return false
	}
	if f.CapitalMaximo != nil && c.ShareCapital > *f.CapitalMaximo {
		return false
	}
	if from, _ := f.openedFrom(); from != nil && (c.OpenedAt == nil || c.OpenedAt.Before(*from)) {
		return false
	}
	if until, _ := f.openedUntil(); until != nil && (c.OpenedAt == nil || c.OpenedAt.After(*until)) {
		return false
	}
	if f.MinScore != nil && c.Score() < *f.MinScore {
		return false
	}
	if f.MaxScore != nil && c.Score() > *f.MaxScore {
		return false
	}
	if f.ComTelefone && c.Phone == "" {
		return false
	}
	if f.ComEmail && c.Email == "" {
		return false
	}
	if f.ComNomeFantasia != nil && (c.TradeName != "") != *f.ComNomeFantasia {
		return false
	}
	if f.ApenasAtivas && c.RegistrationStatus != domain.RegistrationActive {
		return false
	}
	if f.SomenteMatriz && !domain.IsHeadOffice(c.CNPJ) {
		return false
	}
	if f.ExcluirMEI && c.Size == "MEI" {
		return false
	}
	if f.EnrichmentStatus != "" && string(c.EnrichmentStatus) != f.EnrichmentStatus {
		return false
	}
	if f.TagID != "" && !hasTag(c, f.TagID) {
		return false
	}
	if !f.IncludePipeline && c.InCRM {
		return false
	}
	return true
}

// Apply returns the companies matching f, preserving input order.
func (f LeadFilter) Apply(companies []domain.Company) []domain.Company {
	out := make([]domain.Company, 0, len(companies))
	for i := range companies {
		if f.Matches(&companies[i]) {
			out = append(out, companies[i])
		}
	}
	return out
}

// Sort orders companies the same way OrderScope does.
func Sort(companies []domain.Company) {
	sort.SliceStable(companies, func(i, j int) bool {
		a, b := &companies[i], &companies[j]
		if a.Score() != b.Score() {
			return a.Score() > b.Score()
		}
		if a.ShareCapital != b.ShareCapital {
			return a.ShareCapital > b.ShareCapital
		}
		if a.LegalName != b.LegalName {
			return a.LegalName < b.LegalName
		}
		return a.CNPJ < b.CNPJ
	})
}

func hasTag(c *domain.Company, tagID string) bool {
	for _, t := range c.Tags {
		if t.ID.String() == tagID {
			return true
		}
	}
	return false
}

// Client-side status refinements offered by the leads table
const (
	StatusAll         = "all"
	StatusEnriched    = "enriched"
	StatusNotEnriched = "not_enriched"
	StatusActive      = "ativa"
	StatusClosed      = "baixada"
)

// ClientFilter is the quick refinement applied to an already fetched page
// of leads: a free-text term and a status chip.
type ClientFilter struct {
	SearchTerm string `json:"searchTerm"`
	Status     string `json:"statusFilter"`
}

// Matches reports whether the lead passes the refinement. The search term
// matches legal name, trade name or CNPJ.
func (cf ClientFilter) Matches(c *domain.Company) bool {
	if term := strings.TrimSpace(cf.SearchTerm); term != "" {
		if !contains(c.LegalName, term) && !contains(c.TradeName, term) && !strings.Contains(c.CNPJ, term) {
			return false
		}
	}

	switch strings.ToLower(cf.Status) {
	case "", StatusAll:
		return true
	case StatusEnriched:
		return c.EnrichedAt != nil
	case StatusNotEnriched:
		return c.EnrichedAt == nil
	case StatusActive:
		return c.RegistrationStatus == domain.RegistrationActive
	case StatusClosed:
		return c.RegistrationStatus == domain.RegistrationClosed
	default:
		return true
	}
}

// Apply filters a page of leads, preserving order.
func (cf ClientFilter) Apply(companies []domain.Company) []domain.Company {
	out := make([]domain.Company, 0, len(companies))
	for i := range companies {
		if cf.Matches(&companies[i]) {
			out = append(out, companies[i])
		}
	}
	return out
}
