package filter_test

import (
	"testing"
	"time"

	"github.com/prospecta/leads-api/internal/domain"
	"github.com/prospecta/leads-api/internal/filter"
	"github.com/prospecta/leads-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleCompanies() []domain.Company {
	opened := time.Date(2015, 3, 10, 0, 0, 0, 0, time.UTC)
	return []domain.Company{
		{
			CNPJ: "11.222.333/0001-81", LegalName: "ACME TECNOLOGIA LTDA", TradeName: "Acme",
			RegistrationStatus: domain.RegistrationActive, State: "SP", City: "São Paulo",
			District: "Pinheiros", PostalCode: "05422-000", Phone: "1133334444", Email: "contato@acme.com",
			ShareCapital: 2_000_000, Size: "DEMAIS", MainActivityCode: "6201-5/01",
			MainActivity: "Desenvolvimento de programas de computador sob encomenda",
			AIScore:      testutil.IntPtr(100), OpenedAt: &opened,
		},
		{
			CNPJ: "22.333.444/0002-10", LegalName: "BETA COMERCIO EIRELI",
			RegistrationStatus: domain.RegistrationClosed, State: "RJ", City: "Rio de Janeiro",
			ShareCapital: 50_000, Size: "ME", AIScore: testutil.IntPtr(20),
		},
		{
			CNPJ: "33.444.555/0001-20", LegalName: "JOAO DA SILVA MEI", TradeName: "Silva Reparos",
			RegistrationStatus: domain.RegistrationActive, State: "sp", City: "Campinas",
			Email: "joao@silva.com", ShareCapital: 5_000, Size: "MEI", AIScore: testutil.IntPtr(75),
		},
		{
			CNPJ: "44.555.666/0001-30", LegalName: "GAMMA SERVICOS S.A.",
			RegistrationStatus: domain.RegistrationInapt, State: "MG", City: "Belo Horizonte",
			ShareCapital: 500_000, InCRM: true,
		},
	}
}

func cnpjs(companies []domain.Company) []string {
	out := make([]string, 0, len(companies))
	for _, c := range companies {
		out = append(out, c.CNPJ)
	}
	return out
}

func TestLeadFilter_Matches(t *testing.T) {
	tests := []struct {
		name     string
		filter   filter.LeadFilter
		expected []string
	}{
		{
			name:     "empty filter hides pipeline companies",
			filter:   filter.LeadFilter{},
			expected: []string{"11.222.333/0001-81", "22.333.444/0002-10", "33.444.555/0001-20"},
		},
		{
			name:     "include pipeline",
			filter:   filter.LeadFilter{IncludePipeline: true},
			expected: []string{"11.222.333/0001-81", "22.333.444/0002-10", "33.444.555/0001-20", "44.555.666/0001-30"},
		},
		{
			name:     "legal name substring is case insensitive",
			filter:   filter.LeadFilter{RazaoSocial: "acme"},
			expected: []string{"11.222.333/0001-81"},
		},
		{
			name:     "keyword matches trade name",
			filter:   filter.LeadFilter{Keyword: "reparos"},
			expected: []string{"33.444.555/0001-20"},
		},
		{
			name:     "cnpj digits",
			filter:   filter.LeadFilter{CNPJ: "22.333.444"},
			expected: []string{"22.333.444/0002-10"},
		},
		{
			name:     "state is case insensitive",
			filter:   filter.LeadFilter{UF: "sp"},
			expected: []string{"11.222.333/0001-81", "33.444.555/0001-20"},
		},
		{
			name:     "status exact",
			filter:   filter.LeadFilter{SituacaoCadastral: "ativa"},
			expected: []string{"11.222.333/0001-81", "33.444.555/0001-20"},
		},
		{
			name:     "capital range",
			filter:   filter.LeadFilter{CapitalMinimo: testutil.FloatPtr(10_000), CapitalMaximo: testutil.FloatPtr(1_000_000)},
			expected: []string{"22.333.444/0002-10"},
		},
		{
			name:     "score range",
			filter:   filter.LeadFilter{MinScore: testutil.IntPtr(70), MaxScore: testutil.IntPtr(90)},
			expected: []string{"33.444.555/0001-20"},
		},
		{
			name:     "phone and email",
			filter:   filter.LeadFilter{ComTelefone: true, ComEmail: true},
			expected: []string{"11.222.333/0001-81"},
		},
		{
			name:     "head office only",
			filter:   filter.LeadFilter{SomenteMatriz: true},
			expected: []string{"11.222.333/0001-81", "33.444.555/0001-20"},
		},
		{
			name:     "exclude MEI",
			filter:   filter.LeadFilter{ExcluirMEI: true},
			expected: []string{"11.222.333/0001-81", "22.333.444/0002-10"},
		},
		{
			name:     "activity description",
			filter:   filter.LeadFilter{AtividadeEconomica: "programas"},
			expected: []string{"11.222.333/0001-81"},
		},
		{
			name:     "opening date window",
			filter:   filter.LeadFilter{DataAberturaInicio: "2015-03-10", DataAberturaFim: "2015-03-10"},
			expected: []string{"11.222.333/0001-81"},
		},
		{
			name:     "postal code digits",
			filter:   filter.LeadFilter{CEP: "05422"},
			expected: []string{"11.222.333/0001-81"},
		},
		{
			name:     "audience aliases",
			filter:   filter.LeadFilter{Situacao: "ATIVA", Keywords: "silva", HasFantasia: testutil.BoolPtr(true)},
			expected: []string{"33.444.555/0001-20"},
		},
		{
			name:     "audience alias all means any status",
			filter:   filter.LeadFilter{Situacao: "all", HasFantasia: testutil.BoolPtr(false)},
			expected: []string{"22.333.444/0002-10"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := tt.filter
			f.Normalize()
			require.NoError(t, f.Validate())
			assert.Equal(t, tt.expected, cnpjs(f.Apply(sampleCompanies())))
		})
	}
}

func TestLeadFilter_Idempotent(t *testing.T) {
	f := filter.LeadFilter{SituacaoCadastral: "ATIVA"}
	f.Normalize()

	once := f.Apply(sampleCompanies())
	twice := f.Apply(once)
	assert.Equal(t, cnpjs(once), cnpjs(twice))

	f.Normalize()
	assert.Equal(t, cnpjs(once), cnpjs(f.Apply(sampleCompanies())))
}

func TestLeadFilter_Validate(t *testing.T) {
	tests := []struct {
		name   string
		filter filter.LeadFilter
	}{
		{"capital inverted", filter.LeadFilter{CapitalMinimo: testutil.FloatPtr(10), CapitalMaximo: testutil.FloatPtr(1)}},
		{"score inverted", filter.LeadFilter{MinScore: testutil.IntPtr(80), MaxScore: testutil.IntPtr(10)}},
		{"bad date", filter.LeadFilter{DataAberturaInicio: "10/03/2015"}},
		{"bad tag", filter.LeadFilter{TagID: "not-a-uuid"}},
		{"bad enrichment status", filter.LeadFilter{EnrichmentStatus: "pending"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.filter.Validate()
			assert.ErrorIs(t, err, filter.ErrInvalidFilter)
		})
	}
}

func TestParse(t *testing.T) {
	f, err := filter.Parse([]byte(`{"situacao":"ATIVA","keywords":"acme","hasFantasia":true}`))
	require.NoError(t, err)
	assert.Equal(t, "ATIVA", f.SituacaoCadastral)
	assert.Equal(t, "acme", f.Keyword)
	require.NotNil(t, f.ComNomeFantasia)
	assert.True(t, *f.ComNomeFantasia)

	_, err = filter.Parse([]byte(`{"min_score": "high"}`))
	assert.ErrorIs(t, err, filter.ErrInvalidFilter)

	empty, err := filter.Parse(nil)
	require.NoError(t, err)
	assert.True(t, empty.IsEmpty())
}

func TestSort(t *testing.T) {
	companies := []domain.Company{
		{CNPJ: "c", LegalName: "ZETA", ShareCapital: 10},
		{CNPJ: "b", LegalName: "ALFA", ShareCapital: 10},
		{CNPJ: "a", LegalName: "BRAVO", ShareCapital: 500, AIScore: testutil.IntPtr(0)},
		{CNPJ: "d", LegalName: "OMEGA", AIScore: testutil.IntPtr(90)},
	}
	filter.Sort(companies)
	assert.Equal(t, []string{"d", "a", "b", "c"}, cnpjs(companies))
}

func TestClientFilter(t *testing.T) {
	enrichedAt := time.Now()
	companies := sampleCompanies()
	companies[1].EnrichedAt = &enrichedAt

	tests := []struct {
		name     string
		filter   filter.ClientFilter
		expected int
	}{
		{"no refinement", filter.ClientFilter{}, 4},
		{"search term on trade name", filter.ClientFilter{SearchTerm: "acme"}, 1},
		{"search term on cnpj", filter.ClientFilter{SearchTerm: "33.444.555"}, 1},
		{"enriched", filter.ClientFilter{Status: filter.StatusEnriched}, 1},
		{"not enriched", filter.ClientFilter{Status: filter.StatusNotEnriched}, 3},
		{"active", filter.ClientFilter{Status: filter.StatusActive}, 2},
		{"closed", filter.ClientFilter{Status: filter.StatusClosed}, 1},
		{"unknown status is ignored", filter.ClientFilter{Status: "whatever"}, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, tt.filter.Apply(companies), tt.expected)
		})
	}
}
