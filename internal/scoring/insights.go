package scoring

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/prospecta/leads-api/internal/domain"
	"gorm.io/datatypes"
)

const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"

	bestContactTime = "14:00-16:00"
)

// Estimated deal values per score band
const (
	valueHigh   = 45000
	valueMedium = 25000
	valueLow    = 10000
)

// Insights scores the company and describes the result.
func Insights(c *domain.Company) domain.Insight {
	return InsightsFor(c, Score(c))
}

// InsightsFor builds insights for an already computed score.
func InsightsFor(c *domain.Company, score int) domain.Insight {
	insight := domain.Insight{
		Factors:         []string{},
		Recommendations: []string{},
		BestContactTime: bestContactTime,
		EstimatedValue:  EstimatedValue(score),
	}
	if c == nil {
		insight.RiskLevel = RiskMedium
		insight.ConversionProbability = 0.3
		return insight
	}

	switch c.RegistrationStatus {
	case domain.RegistrationActive:
		insight.RiskLevel = RiskLow
		insight.ConversionProbability = 0.6
		insight.Factors = append(insight.Factors, "Empresa ativa na Receita Federal")
	case domain.RegistrationClosed:
		insight.RiskLevel = RiskHigh
		insight.ConversionProbability = 0.1
		insight.Factors = append(insight.Factors, "Empresa baixada na Receita Federal")
	default:
		insight.RiskLevel = RiskMedium
		insight.ConversionProbability = 0.3
	}

	hasPhone := strings.TrimSpace(c.Phone) != ""
	hasEmail := strings.TrimSpace(c.Email) != ""
	if hasPhone {
		insight.Factors = append(insight.Factors, "Telefone disponível para contato")
	}
	if hasEmail {
		insight.Factors = append(insight.Factors, "Email disponível para contato")
	}

	if strings.TrimSpace(c.TradeName) == "" {
		insight.Recommendations = append(insight.Recommendations, "Pesquisar nome fantasia para melhor abordagem")
	}
	if score > HighScoreThreshold {
		insight.Recommendations = append(insight.Recommendations, "Lead de alta qualidade - priorizar contato")
	} else if score < LowScoreThreshold {
		insight.Recommendations = append(insight.Recommendations, "Lead de baixa qualidade - considerar descartar")
	}
	if hasPhone && hasEmail {
		insight.Recommendations = append(insight.Recommendations, "Usar múltiplos canais de contato")
	}

	return insight
}

// EstimatedValue is the deal size expected for a lead of the given score
func EstimatedValue(score int) float64 {
	switch {
	case score > HighScoreThreshold:
		return valueHigh
	case score < LowScoreThreshold:
		return valueLow
	default:
		return valueMedium
	}
}

// DecodeInsight reads a stored insight blob. Empty input yields nil.
func DecodeInsight(raw datatypes.JSON) (*domain.Insight, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var insight domain.Insight
	if err := json.Unmarshal(raw, &insight); err != nil {
		return nil, fmt.Errorf("failed to decode insights: %w", err)
	}
	return &insight, nil
}

func marshalInsight(insight domain.Insight) (datatypes.JSON, error) {
	raw, err := json.Marshal(insight)
	if err != nil {
		return nil, fmt.Errorf("failed to encode insights: %w", err)
	}
	return datatypes.JSON(raw), nil
}
