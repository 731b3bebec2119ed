// Package scoring rates companies as sales leads with a fixed rule table.
package scoring

import (
	"strings"

	"github.com/prospecta/leads-api/internal/domain"
)

const (
	baseScore = 50
	minScore  = 0
	maxScore  = 100

	// HighScoreThreshold marks leads worth prioritizing
	HighScoreThreshold = 70
	// LowScoreThreshold marks leads worth discarding
	LowScoreThreshold = 30
)

var statusDelta = map[domain.RegistrationStatus]int{
	domain.RegistrationActive: 30,
	domain.RegistrationInapt:  -20,
	domain.RegistrationClosed: -40,
}

type capitalTier struct {
	above float64
	delta int
}

// checked top-down, first match wins
var capitalTiers = []capitalTier{
	{above: 1_000_000, delta: 15},
	{above: 100_000, delta: 10},
	{above: 10_000, delta: 5},
}

var highValueKeywords = []string{"LTDA", "S.A.", "EIRELI", "TECNOLOGIA", "SERVICOS", "COMERCIO", "CONSULTORIA"}

var lowValueKeywords = []string{"MEI", "INDIVIDUAL"}

const (
	tradeNameDelta = 10
	phoneDelta     = 5
	emailDelta     = 10
	highKeyword    = 5
	lowKeyword     = -10
)

// Score maps a company to an integer in [0,100]. Missing fields contribute
// nothing.
func Score(c *domain.Company) int {
	if c == nil {
		return baseScore
	}

	score := baseScore + statusDelta[c.RegistrationStatus]

	if strings.TrimSpace(c.TradeName) != "" {
		score += tradeNameDelta
	}

	for _, tier := range capitalTiers {
		if c.ShareCapital > tier.above {
			score += tier.delta
			break
		}
	}

	if strings.TrimSpace(c.Phone) != "" {
		score += phoneDelta
	}
	if strings.TrimSpace(c.Email) != "" {
		score += emailDelta
	}

	name := strings.ToUpper(c.LegalName)
	for _, kw := range highValueKeywords {
		if strings.Contains(name, kw) {
			score += highKeyword
		}
	}
	for _, kw := range lowValueKeywords {
		if strings.Contains(name, kw) {
			score += lowKeyword
		}
	}

	return clamp(score)
}

func clamp(score int) int {
	if score < minScore {
		return minScore
	}
	if score > maxScore {
		return maxScore
	}
	return score
}

// Apply computes the score and insights and stores both on the company.
func Apply(c *domain.Company) (domain.Insight, error) {
	score := Score(c)
	insight := InsightsFor(c, score)
	raw, err := marshalInsight(insight)
	if err != nil {
		return insight, err
	}
	c.AIScore = &score
	c.AIInsights = raw
	return insight, nil
}
