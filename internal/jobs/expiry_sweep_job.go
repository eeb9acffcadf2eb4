package jobs

import (
	"context"
	"time"

	"github.com/ArowuTest/prizedraw-engine/internal/services"
	"golang.org/x/exp/slog"
)

// Sweeper runs the expire-and-redraw pass over every announced draw
type Sweeper interface {
	SweepAll(ctx context.Context) ([]*services.SweepResult, error)
}

// ExpirySweepJob is the scheduled claim expiry sweep
type ExpirySweepJob struct {
	sweeper Sweeper
	timeout time.Duration
}

// NewExpirySweepJob creates a new ExpirySweepJob
func NewExpirySweepJob(sweeper Sweeper, timeout time.Duration) *ExpirySweepJob {
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &ExpirySweepJob{sweeper: sweeper, timeout: timeout}
}

// Run implements cron.Job
func (j *ExpirySweepJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	start := time.Now()
	results, err := j.sweeper.SweepAll(ctx)
	if err != nil {
		slog.Error("Expiry sweep failed", "error", err, "draws", len(results))
		return
	}

	var expired, redrawn, rolled, completed, failed int
	for _, r := range results {
		expired += r.Expired
		redrawn += r.Redrawn
		rolled += r.RolledOverSlots
		failed += len(r.Errors)
		if r.Completed {
			completed++
		}
	}
	slog.Info("Expiry sweep run", "draws", len(results), "expired", expired, "redrawn", redrawn,
		"rolledOverSlots", rolled, "completed", completed, "errors", failed, "duration", time.Since(start))
}
