package queue

import (
	"github.com/hibiken/asynq"
	"github.com/maheshrc27/tupae-api/internal/service"
)

const (
	TaskTypeDispatchPost = "dispatch:post"
	TaskTypeCleanupMedia = "cleanup:media"
)

type DispatchPostPayload struct {
	PostID string `json:"post_id"`
	// ScheduledFor is the unix time the task was enqueued for. A post that
	// was rescheduled since no longer matches and the task is skipped.
	ScheduledFor int64 `json:"scheduled_for"`
}

type CleanupMediaPayload struct {
	PostID string   `json:"post_id"`
	URLs   []string `json:"urls"`
}

// Queue runs the worker side of the post tasks.
type Queue struct {
	ps service.PostService
}

func NewQueue(ps service.PostService) *Queue {
	return &Queue{ps: ps}
}

// Register routes every task type to its handler.
func (q *Queue) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TaskTypeDispatchPost, q.HandleDispatchPostTask)
	mux.HandleFunc(TaskTypeCleanupMedia, q.HandleCleanupMediaTask)
}
