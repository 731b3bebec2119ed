package scoring_test

import (
	"testing"

	"github.com/prospecta/leads-api/internal/domain"
	"github.com/prospecta/leads-api/internal/scoring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScore(t *testing.T) {
	tests := []struct {
		name     string
		company  domain.Company
		expected int
	}{
		{
			name: "acme example clips to 100",
			company: domain.Company{
				RegistrationStatus: domain.RegistrationActive,
				TradeName:          "Acme",
				Phone:              "11999999999",
				Email:              "a@a.com",
				LegalName:          "ACME LTDA",
			},
			expected: 100,
		},
		{
			name:     "empty company gets base score",
			company:  domain.Company{},
			expected: 50,
		},
		{
			name:     "active only",
			company:  domain.Company{RegistrationStatus: domain.RegistrationActive},
			expected: 80,
		},
		{
			name:     "inapt",
			company:  domain.Company{RegistrationStatus: domain.RegistrationInapt},
			expected: 30,
		},
		{
			name:     "closed",
			company:  domain.Company{RegistrationStatus: domain.RegistrationClosed},
			expected: 10,
		},
		{
			name:     "suspended has no status delta",
			company:  domain.Company{RegistrationStatus: domain.RegistrationSuspended},
			expected: 50,
		},
		{
			name:     "capital above one million",
			company:  domain.Company{ShareCapital: 1_000_001},
			expected: 65,
		},
		{
			name:     "capital exactly one million is the next tier",
			company:  domain.Company{ShareCapital: 1_000_000},
			expected: 60,
		},
		{
			name:     "capital above ten thousand",
			company:  domain.Company{ShareCapital: 50_000},
			expected: 55,
		},
		{
			name:     "capital of ten thousand adds nothing",
			company:  domain.Company{ShareCapital: 10_000},
			expected: 50,
		},
		{
			name:     "multiple high value keywords stack",
			company:  domain.Company{LegalName: "Alfa Tecnologia e Consultoria Ltda"},
			expected: 65,
		},
		{
			name:     "low value keywords subtract",
			company:  domain.Company{LegalName: "JOAO DA SILVA MEI"},
			expected: 40,
		},
		{
			name: "closed individual company clips to zero",
			company: domain.Company{
				RegistrationStatus: domain.RegistrationClosed,
				LegalName:          "EMPRESARIO INDIVIDUAL MEI",
			},
			expected: 0,
		},
		{
			name:     "whitespace trade name is missing",
			company:  domain.Company{TradeName: "   "},
			expected: 50,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := tt.company
			assert.Equal(t, tt.expected, scoring.Score(&c))
		})
	}
}

func TestScore_NilCompany(t *testing.T) {
	assert.Equal(t, 50, scoring.Score(nil))
}

func TestScore_AlwaysInRange(t *testing.T) {
	statuses := []domain.RegistrationStatus{
		domain.RegistrationActive, domain.RegistrationClosed, domain.RegistrationInapt,
		domain.RegistrationSuspended, domain.RegistrationUnknown,
	}
	names := []string{"", "X LTDA S.A. EIRELI TECNOLOGIA SERVICOS COMERCIO CONSULTORIA", "MEI INDIVIDUAL", "MEI INDIVIDUAL MEI"}
	capitals := []float64{-1, 0, 10_001, 100_001, 5_000_000}

	for _, status := range statuses {
		for _, name := range names {
			for _, capital := range capitals {
				for _, contact := range []string{"", "x"} {
					c := domain.Company{
						RegistrationStatus: status,
						LegalName:          name,
						ShareCapital:       capital,
						Phone:              contact,
						Email:              contact,
						TradeName:          contact,
					}
					score := scoring.Score(&c)
					assert.GreaterOrEqual(t, score, 0)
					assert.LessOrEqual(t, score, 100)
				}
			}
		}
	}
}

func TestScore_MonotonicInPositiveSignals(t *testing.T) {
	bases := []domain.Company{
		{},
		{RegistrationStatus: domain.RegistrationClosed, LegalName: "FULANO MEI"},
		{RegistrationStatus: domain.RegistrationActive, LegalName: "ACME LTDA", ShareCapital: 2_000_000},
	}

	signals := map[string]func(*domain.Company){
		"phone":      func(c *domain.Company) { c.Phone = "1133334444" },
		"email":      func(c *domain.Company) { c.Email = "contato@acme.com" },
		"trade name": func(c *domain.Company) { c.TradeName = "Acme" },
		"capital":    func(c *domain.Company) { c.ShareCapital += 1_000_000 },
		"keyword":    func(c *domain.Company) { c.LegalName += " TECNOLOGIA" },
	}

	for i, base := range bases {
		for name, add := range signals {
			before := base
			after := base
			add(&after)
			assert.GreaterOrEqual(t, scoring.Score(&after), scoring.Score(&before), "base %d signal %s", i, name)
		}
	}
}

func TestInsights(t *testing.T) {
	t.Run("active high score lead", func(t *testing.T) {
		c := &domain.Company{
			RegistrationStatus: domain.RegistrationActive,
			TradeName:          "Acme",
			Phone:              "11999999999",
			Email:              "a@a.com",
			LegalName:          "ACME LTDA",
		}
		insight := scoring.Insights(c)
		assert.Equal(t, scoring.RiskLow, insight.RiskLevel)
		assert.Equal(t, 0.6, insight.ConversionProbability)
		assert.Equal(t, 45000.0, insight.EstimatedValue)
		assert.Equal(t, "14:00-16:00", insight.BestContactTime)
		assert.Len(t, insight.Factors, 3)
		assert.Contains(t, insight.Recommendations, "Lead de alta qualidade - priorizar contato")
		assert.Contains(t, insight.Recommendations, "Usar múltiplos canais de contato")
	})

	t.Run("closed low score lead", func(t *testing.T) {
		c := &domain.Company{RegistrationStatus: domain.RegistrationClosed, LegalName: "X"}
		insight := scoring.Insights(c)
		assert.Equal(t, scoring.RiskHigh, insight.RiskLevel)
		assert.Equal(t, 0.1, insight.ConversionProbability)
		assert.Equal(t, 10000.0, insight.EstimatedValue)
		assert.Contains(t, insight.Recommendations, "Pesquisar nome fantasia para melhor abordagem")
		assert.Contains(t, insight.Recommendations, "Lead de baixa qualidade - considerar descartar")
	})

	t.Run("unknown status is medium risk", func(t *testing.T) {
		insight := scoring.Insights(&domain.Company{TradeName: "Beta"})
		assert.Equal(t, scoring.RiskMedium, insight.RiskLevel)
		assert.Equal(t, 0.3, insight.ConversionProbability)
		assert.Equal(t, 25000.0, insight.EstimatedValue)
		assert.Empty(t, insight.Recommendations)
	})
}

func TestApply(t *testing.T) {
	c := &domain.Company{RegistrationStatus: domain.RegistrationActive, LegalName: "ACME LTDA"}

	insight, err := scoring.Apply(c)
	require.NoError(t, err)
	require.NotNil(t, c.AIScore)
	assert.Equal(t, 85, *c.AIScore)

	decoded, err := scoring.DecodeInsight(c.AIInsights)
	require.NoError(t, err)
	require.NotNil(t, decoded)
	assert.Equal(t, insight, *decoded)
}

func TestDecodeInsight_Empty(t *testing.T) {
	decoded, err := scoring.DecodeInsight(nil)
	require.NoError(t, err)
	assert.Nil(t, decoded)
}
