package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// CampaignActivationJobName is the scheduler name of the campaign activation job
const CampaignActivationJobName = "campaign_activation"

const defaultJobTimeout = 5 * time.Minute

// CampaignActivator starts draft campaigns whose scheduled time has passed
type CampaignActivator interface {
	ActivateDue(ctx context.Context, now time.Time) (int, error)
}

// CampaignActivationJob moves scheduled drafts to active
type CampaignActivationJob struct {
	campaigns CampaignActivator
	logger    *zap.Logger
	timeout   time.Duration
	now       func() time.Time
}

func NewCampaignActivationJob(campaigns CampaignActivator, logger *zap.Logger, timeout time.Duration) *CampaignActivationJob {
	if timeout <= 0 {
		timeout = defaultJobTimeout
	}
	return &CampaignActivationJob{
		campaigns: campaigns,
		logger:    logger,
		timeout:   timeout,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Run is called by the scheduler
func (j *CampaignActivationJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	start := time.Now()
	started, err := j.campaigns.ActivateDue(ctx, j.now())
	if err != nil {
		j.logger.Error("campaign activation failed",
			zap.Error(err),
			zap.Int("started", started),
			zap.Duration("duration", time.Since(start)))
		return
	}
	if started > 0 {
		j.logger.Info("scheduled campaigns started",
			zap.Int("started", started),
			zap.Duration("duration", time.Since(start)))
	}
}

// RegisterCampaignActivationJob adds the job to the scheduler. An empty
// expression leaves it unregistered.
func RegisterCampaignActivationJob(s *Scheduler, campaigns CampaignActivator, logger *zap.Logger, cronExpr string) error {
	if cronExpr == "" {
		logger.Info("campaign activation job disabled")
		return nil
	}
	job := NewCampaignActivationJob(campaigns, logger, defaultJobTimeout)
	return s.AddJob(CampaignActivationJobName, cronExpr, job.Run)
}
