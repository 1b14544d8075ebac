package job

import (
	"context"
	"fmt"
	"time"

	"github.com/maheshrc27/tupae-api/internal/service"
	"github.com/robfig/cron"
	"go.uber.org/zap"
)

const (
	defaultDueBatch = 100
	sweepTimeout    = 30 * time.Second
)

// DuePostJob re-enqueues scheduled posts whose time has passed. It covers
// dispatch tasks that were never enqueued or got lost.
type DuePostJob struct {
	ps    service.PostService
	batch int
}

func NewDuePostJob(ps service.PostService, batch int) *DuePostJob {
	if batch <= 0 {
		batch = defaultDueBatch
	}
	return &DuePostJob{ps: ps, batch: batch}
}

// Schedule adds the sweep to c under a six-field cron spec.
func (j *DuePostJob) Schedule(c *cron.Cron, spec string) error {
	if err := c.AddFunc(spec, j.EnqueueDuePosts); err != nil {
		return fmt.Errorf("schedule due post sweep %q: %w", spec, err)
	}
	return nil
}

func (j *DuePostJob) EnqueueDuePosts() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	n, err := j.ps.EnqueueDue(ctx, j.batch)
	if err != nil {
		zap.S().Errorw("due post sweep failed", "error", err)
		return
	}
	if n > 0 {
		zap.S().Infow("due posts re-enqueued", "count", n)
	}
}
