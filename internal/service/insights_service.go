package service

import (
	"context"
	"fmt"
	"math"

	"github.com/prospecta/leads-api/internal/domain"
	"github.com/prospecta/leads-api/internal/repository"
	"github.com/prospecta/leads-api/internal/scoring"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Overview ratios applied to the high-score lead count
const (
	conversionRate     = 0.15
	revenuePerHighLead = 25000
)

type InsightsService struct {
	companyRepo *repository.CompanyRepository
	kanbanRepo  *repository.KanbanRepository
	logger      *zap.Logger
}

func NewInsightsService(companyRepo *repository.CompanyRepository, kanbanRepo *repository.KanbanRepository, logger *zap.Logger) *InsightsService {
	return &InsightsService{companyRepo: companyRepo, kanbanRepo: kanbanRepo, logger: logger}
}

// Overview aggregates the lead base and the board
func (s *InsightsService) Overview(ctx context.Context) (*domain.InsightsOverviewDTO, error) {
	var (
		stats  *repository.CompanyStats
		stages map[domain.KanbanStage]int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		stats, err = s.companyRepo.Stats(gctx, scoring.HighScoreThreshold)
		return err
	})
	g.Go(func() error {
		var err error
		stages, err = s.kanbanRepo.CountByStage(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to compute insights: %w", err)
	}

	return &domain.InsightsOverviewDTO{
		Total:                stats.Total,
		Active:               stats.Active,
		HighScore:            stats.HighScore,
		AvgScore:             math.Round(stats.AvgScore*10) / 10,
		ConversionPrediction: float64(stats.HighScore) * conversionRate,
		EstimatedRevenue:     float64(stats.HighScore) * revenuePerHighLead,
		ByStage:              stages,
	}, nil
}
