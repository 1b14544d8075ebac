package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

func (q *Queue) HandleDispatchPostTask(ctx context.Context, task *asynq.Task) error {
	var payload DispatchPostPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode dispatch payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.PostID == "" {
		return fmt.Errorf("dispatch payload without post id: %w", asynq.SkipRetry)
	}

	expectedAt := time.Unix(payload.ScheduledFor, 0).UTC()
	if err := q.ps.DispatchScheduled(ctx, payload.PostID, expectedAt); err != nil {
		zap.S().Errorw("dispatch task failed", "post_id", payload.PostID, "error", err)
		return err
	}
	return nil
}

func (q *Queue) HandleCleanupMediaTask(ctx context.Context, task *asynq.Task) error {
	var payload CleanupMediaPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode cleanup payload: %v: %w", err, asynq.SkipRetry)
	}

	if err := q.ps.CleanupMedia(ctx, payload.URLs); err != nil {
		zap.S().Warnw("media cleanup incomplete", "post_id", payload.PostID, "error", err)
		return err
	}
	zap.S().Infow("media cleaned up", "post_id", payload.PostID, "count", len(payload.URLs))
	return nil
}
