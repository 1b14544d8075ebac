package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

const (
	dispatchQueue    = "default"
	dispatchMaxRetry = 3
	cleanupMaxRetry  = 10
)

type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// taskInspector is the part of *asynq.Inspector used to clear dead tasks
// that still hold a dispatch task ID.
type taskInspector interface {
	GetTaskInfo(queue, id string) (*asynq.TaskInfo, error)
	DeleteTask(queue, id string) error
}

// Client enqueues post tasks. It satisfies service.Scheduler and
// service.CleanupQueue.
type Client struct {
	c         enqueuer
	inspector taskInspector
}

// NewClient wraps c. The inspector may be nil, in which case a task ID
// conflict is always treated as already queued.
func NewClient(c *asynq.Client, inspector *asynq.Inspector) *Client {
	client := &Client{c: c}
	if inspector != nil {
		client.inspector = inspector
	}
	return client
}

// DispatchTaskID identifies the dispatch task of a post for one schedule
// time, so enqueuing the same schedule twice is a no-op.
func DispatchTaskID(postID string, at time.Time) string {
	return fmt.Sprintf("%s:%d", postID, at.Unix())
}

func (q *Client) ScheduleDispatch(ctx context.Context, postID string, at time.Time) error {
	payload, err := json.Marshal(DispatchPostPayload{PostID: postID, ScheduledFor: at.Unix()})
	if err != nil {
		return err
	}

	id := DispatchTaskID(postID, at)
	task := asynq.NewTask(TaskTypeDispatchPost, payload)
	opts := []asynq.Option{
		asynq.Queue(dispatchQueue),
		asynq.ProcessAt(at),
		asynq.TaskID(id),
		asynq.MaxRetry(dispatchMaxRetry),
	}
	_, err = q.c.EnqueueContext(ctx, task, opts...)
	if isConflict(err) {
		retry, rerr := q.releaseDeadTask(id)
		if rerr != nil {
			return fmt.Errorf("enqueue dispatch of %s: %w", postID, rerr)
		}
		if !retry {
			zap.S().Debugw("dispatch task already queued", "post_id", postID, "task_id", id)
			return nil
		}
		_, err = q.c.EnqueueContext(ctx, task, opts...)
		if isConflict(err) {
			return nil
		}
	}
	if err != nil {
		return fmt.Errorf("enqueue dispatch of %s: %w", postID, err)
	}

	zap.S().Infow("dispatch task scheduled", "post_id", postID, "scheduled_for", at)
	return nil
}

// releaseDeadTask deletes an archived or completed task holding id, which
// asynq keeps around and which would otherwise block the id forever. It
// reports whether the enqueue should be retried.
func (q *Client) releaseDeadTask(id string) (bool, error) {
	if q.inspector == nil {
		zap.S().Warnw("dispatch task id in use, leaving it to the existing task", "task_id", id)
		return false, nil
	}

	info, err := q.inspector.GetTaskInfo(dispatchQueue, id)
	if errors.Is(err, asynq.ErrTaskNotFound) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("inspect task %s: %w", id, err)
	}
	if info.State != asynq.TaskStateArchived && info.State != asynq.TaskStateCompleted {
		return false, nil
	}

	if err := q.inspector.DeleteTask(dispatchQueue, id); err != nil && !errors.Is(err, asynq.ErrTaskNotFound) {
		return false, fmt.Errorf("delete %s task %s: %w", info.State, id, err)
	}
	zap.S().Infow("released dead dispatch task", "task_id", id, "state", info.State.String())
	return true, nil
}

func isConflict(err error) bool {
	return errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask)
}

func (q *Client) EnqueueMediaCleanup(ctx context.Context, postID string, urls []string) error {
	if len(urls) == 0 {
		return nil
	}
	payload, err := json.Marshal(CleanupMediaPayload{PostID: postID, URLs: urls})
	if err != nil {
		return err
	}

	task := asynq.NewTask(TaskTypeCleanupMedia, payload)
	if _, err := q.c.EnqueueContext(ctx, task, asynq.MaxRetry(cleanupMaxRetry)); err != nil {
		return fmt.Errorf("enqueue media cleanup of %s: %w", postID, err)
	}

	zap.S().Infow("media cleanup queued", "post_id", postID, "count", len(urls))
	return nil
}
