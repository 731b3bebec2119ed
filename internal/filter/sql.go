package filter

import (
	"github.com/prospecta/leads-api/internal/domain"
	"gorm.io/gorm"
)

// column expression for the CNPJ with punctuation removed
const cnpjDigitsExpr = "REPLACE(REPLACE(REPLACE(companies.cnpj, '.', ''), '/', ''), '-', '')"

// likeEscape makes the backslash the escape character of a LIKE pattern
const likeEscape = " ESCAPE '\\'"

// headOfficePattern matches 14 digits with branch suffix 0001
const headOfficePattern = "________0001__"

// Scope returns a gorm scope adding one bound WHERE condition per set field.
// The filter must have been normalized and validated.
func (f LeadFilter) Scope() func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if f.RazaoSocial != "" {
			db = db.Where("LOWER(companies.razao_social) LIKE ?"+likeEscape, likePattern(f.RazaoSocial))
		}
		if f.NomeFantasia != "" {
			db = db.Where("LOWER(companies.nome_fantasia) LIKE ?"+likeEscape, likePattern(f.NomeFantasia))
		}
		if f.Keyword != "" {
			p := likePattern(f.Keyword)
			db = db.Where("(LOWER(companies.razao_social) LIKE ?"+likeEscape+" OR LOWER(companies.nome_fantasia) LIKE ?"+likeEscape+")", p, p)
		}
		if f.CNPJ != "" {
			db = db.Where(cnpjDigitsExpr+" LIKE ?"+likeEscape, containsPattern(f.CNPJ))
		}
		if f.UF != "" {
			db = db.Where("UPPER(companies.uf) = ?", f.UF)
		}
		if f.Municipio != "" {
			db = db.Where("LOWER(companies.municipio) LIKE ?"+likeEscape, likePattern(f.Municipio))
		}
		if f.Bairro != "" {
			db = db.Where("LOWER(companies.bairro) LIKE ?"+likeEscape, likePattern(f.Bairro))
		}
		if f.CEP != "" {
			db = db.Where("REPLACE(companies.cep, '-', '') LIKE ?"+likeEscape, containsPattern(f.CEP))
		}
		if f.AtividadeEconomica != "" {
			db = db.Where("LOWER(companies.cnae_descricao) LIKE ?"+likeEscape, likePattern(f.AtividadeEconomica))
		}
		if f.CNAEPrincipal != "" {
			db = db.Where("companies.cnae_principal LIKE ?"+likeEscape, containsPattern(f.CNAEPrincipal))
		}
		if f.SituacaoCadastral != "" {
			db = db.Where("companies.situacao_cadastral = ?", f.SituacaoCadastral)
		}
		if f.Porte != "" {
			db = db.Where("companies.porte = ?", f.Porte)
		}
		if f.CapitalMinimo != nil {
			db = db.Where("companies.capital_social >= ?", *f.CapitalMinimo)
		}
		if f.CapitalMaximo != nil {
			db = db.Where("companies.capital_social <= ?", *f.CapitalMaximo)
		}
		if from, _ := f.openedFrom(); from != nil {
			db = db.Where("companies.data_abertura >= ?", *from)
		}
		if until, _ := f.openedUntil(); until != nil {
			db = db.Where("companies.data_abertura <= ?", *until)
		}
		if f.MinScore != nil {
			db = db.Where("COALESCE(companies.ai_score, 0) >= ?", *f.MinScore)
		}
		if f.MaxScore != nil {
			db = db.Where("COALESCE(companies.ai_score, 0) <= ?", *f.MaxScore)
		}
		if f.ComTelefone {
			db = db.Where("companies.telefone IS NOT NULL AND companies.telefone <> ''")
		}
		if f.ComEmail {
			db = db.Where("companies.email IS NOT NULL AND companies.email <> ''")
		}
		if f.ComNomeFantasia != nil {
			if *f.ComNomeFantasia {
				db = db.Where("companies.nome_fantasia IS NOT NULL AND companies.nome_fantasia <> ''")
			} else {
				db = db.Where("(companies.nome_fantasia IS NULL OR companies.nome_fantasia = '')")
			}
		}
		if f.ApenasAtivas {
			db = db.Where("companies.situacao_cadastral = ?", domain.RegistrationActive)
		}
		if f.SomenteMatriz {
			db = db.Where(cnpjDigitsExpr+" LIKE ?", headOfficePattern)
		}
		if f.ExcluirMEI {
			db = db.Where("(companies.porte IS NULL OR companies.porte <> ?)", "MEI")
		}
		if f.EnrichmentStatus != "" {
			db = db.Where("companies.enrichment_status = ?", f.EnrichmentStatus)
		}
		if f.TagID != "" {
			db = db.Where("companies.id IN (SELECT company_id FROM company_tags WHERE tag_id = ?)", f.TagID)
		}
		if !f.IncludePipeline {
			db = db.Where("companies.in_crm = ?", false)
		}
		return db
	}
}

// OrderScope applies the lead ranking: score descending (unscored as 0),
// capital descending, legal name ascending, CNPJ as the final tiebreaker so
// pages never overlap.
func OrderScope(db *gorm.DB) *gorm.DB {
	return db.Order("COALESCE(companies.ai_score, 0) DESC").
		Order("companies.capital_social DESC").
		Order("companies.razao_social ASC").
		Order("companies.cnpj ASC")
}
