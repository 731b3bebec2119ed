package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// RescoreJobName is the scheduler name of the rescore job
const RescoreJobName = "rescore"

const defaultRescoreBatchSize = 500

// Rescorer scores companies stored without a score
type Rescorer interface {
	RescoreUnscored(ctx context.Context, limit int) (int, error)
}

// RescoreJob scores one batch of unscored companies per run. Imports that
// bypass the API, such as migrations or direct loads, end up here.
type RescoreJob struct {
	companies Rescorer
	batchSize int
	logger    *zap.Logger
	timeout   time.Duration
}

func NewRescoreJob(companies Rescorer, batchSize int, logger *zap.Logger, timeout time.Duration) *RescoreJob {
	if batchSize <= 0 {
		batchSize = defaultRescoreBatchSize
	}
	if timeout <= 0 {
		timeout = defaultJobTimeout
	}
	return &RescoreJob{
		companies: companies,
		batchSize: batchSize,
		logger:    logger,
		timeout:   timeout,
	}
}

// Run is called by the scheduler
func (j *RescoreJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	start := time.Now()
	scored, err := j.companies.RescoreUnscored(ctx, j.batchSize)
	if err != nil {
		j.logger.Error("rescore failed",
			zap.Error(err),
			zap.Int("scored", scored),
			zap.Duration("duration", time.Since(start)))
		return
	}
	if scored > 0 {
		j.logger.Info("unscored companies scored",
			zap.Int("scored", scored),
			zap.Int("batch_size", j.batchSize),
			zap.Duration("duration", time.Since(start)))
	}
}

// RegisterRescoreJob adds the job to the scheduler. An empty expression
// leaves it unregistered.
func RegisterRescoreJob(s *Scheduler, companies Rescorer, batchSize int, logger *zap.Logger, cronExpr string) error {
	if cronExpr == "" {
		logger.Info("rescore job disabled")
		return nil
	}
	job := NewRescoreJob(companies, batchSize, logger, defaultJobTimeout)
	return s.AddJob(RescoreJobName, cronExpr, job.Run)
}
