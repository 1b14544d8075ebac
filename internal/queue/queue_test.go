package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/maheshrc27/tupae-api/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type enqueued struct {
	task *asynq.Task
	opts map[asynq.OptionType]any
}

type fakeEnqueuer struct {
	tasks     []enqueued
	err       error
	conflicts int
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.conflicts > 0 {
		f.conflicts--
		return nil, asynq.ErrTaskIDConflict
	}
	byType := make(map[asynq.OptionType]any, len(opts))
	for _, o := range opts {
		byType[o.Type()] = o.Value()
	}
	f.tasks = append(f.tasks, enqueued{task: task, opts: byType})
	return &asynq.TaskInfo{}, nil
}

type fakeInspector struct {
	state     asynq.TaskState
	infoErr   error
	deleteErr error
	deleted   []string
}

func (f *fakeInspector) GetTaskInfo(queue, id string) (*asynq.TaskInfo, error) {
	if f.infoErr != nil {
		return nil, f.infoErr
	}
	return &asynq.TaskInfo{ID: id, Queue: queue, State: f.state}, nil
}

func (f *fakeInspector) DeleteTask(queue, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, queue+"/"+id)
	return nil
}

// fakePosts implements only the worker-facing part of service.PostService.
type fakePosts struct {
	service.PostService
	dispatched []DispatchPostPayload
	cleaned    [][]string
	err        error
}

func (f *fakePosts) DispatchScheduled(_ context.Context, postID string, expectedAt time.Time) error {
	f.dispatched = append(f.dispatched, DispatchPostPayload{PostID: postID, ScheduledFor: expectedAt.Unix()})
	return f.err
}

func (f *fakePosts) CleanupMedia(_ context.Context, urls []string) error {
	f.cleaned = append(f.cleaned, urls)
	return f.err
}

func TestClient_ScheduleDispatch(t *testing.T) {
	fe := &fakeEnqueuer{}
	client := &Client{c: fe}
	at := time.Date(2026, 6, 1, 9, 30, 0, 0, time.UTC)

	require.NoError(t, client.ScheduleDispatch(context.Background(), "post1", at))
	require.Len(t, fe.tasks, 1)

	got := fe.tasks[0]
	assert.Equal(t, TaskTypeDispatchPost, got.task.Type())
	var payload DispatchPostPayload
	require.NoError(t, json.Unmarshal(got.task.Payload(), &payload))
	assert.Equal(t, DispatchPostPayload{PostID: "post1", ScheduledFor: at.Unix()}, payload)
	assert.Equal(t, "post1:1780306200", got.opts[asynq.TaskIDOpt])
	assert.Equal(t, at, got.opts[asynq.ProcessAtOpt])
	assert.Equal(t, dispatchMaxRetry, got.opts[asynq.MaxRetryOpt])
	assert.Equal(t, dispatchQueue, got.opts[asynq.QueueOpt])
}

func TestClient_ScheduleDispatchIgnoresDuplicates(t *testing.T) {
	client := &Client{c: &fakeEnqueuer{err: asynq.ErrTaskIDConflict}}
	assert.NoError(t, client.ScheduleDispatch(context.Background(), "post1", time.Now()))

	client = &Client{c: &fakeEnqueuer{err: errors.New("redis: connection refused")}}
	assert.Error(t, client.ScheduleDispatch(context.Background(), "post1", time.Now()))
}

func TestClient_ScheduleDispatchReleasesDeadTasks(t *testing.T) {
	at := time.Date(2026, 6, 1, 9, 30, 0, 0, time.UTC)
	ctx := context.Background()

	tests := []struct {
		name        string
		inspector   *fakeInspector
		wantDeleted []string
		wantQueued  int
		wantErr     bool
	}{
		{
			name:        "archived task is replaced",
			inspector:   &fakeInspector{state: asynq.TaskStateArchived},
			wantDeleted: []string{"default/post1:1780306200"},
			wantQueued:  1,
		},
		{
			name:        "completed task is replaced",
			inspector:   &fakeInspector{state: asynq.TaskStateCompleted},
			wantDeleted: []string{"default/post1:1780306200"},
			wantQueued:  1,
		},
		{
			name:      "scheduled task is left alone",
			inspector: &fakeInspector{state: asynq.TaskStateScheduled},
		},
		{
			name:      "retrying task is left alone",
			inspector: &fakeInspector{state: asynq.TaskStateRetry},
		},
		{
			name:       "task gone by the time it is inspected",
			inspector:  &fakeInspector{infoErr: asynq.ErrTaskNotFound},
			wantQueued: 1,
		},
		{
			name:      "inspection failure is reported",
			inspector: &fakeInspector{infoErr: errors.New("redis: i/o timeout")},
			wantErr:   true,
		},
		{
			name:      "delete failure is reported",
			inspector: &fakeInspector{state: asynq.TaskStateArchived, deleteErr: errors.New("redis: i/o timeout")},
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fe := &fakeEnqueuer{conflicts: 1}
			client := &Client{c: fe, inspector: tt.inspector}

			err := client.ScheduleDispatch(ctx, "post1", at)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantDeleted, tt.inspector.deleted)
			require.Len(t, fe.tasks, tt.wantQueued)
			if tt.wantQueued > 0 {
				assert.Equal(t, "post1:1780306200", fe.tasks[0].opts[asynq.TaskIDOpt])
			}
		})
	}
}

func TestClient_ScheduleDispatchWithoutInspector(t *testing.T) {
	fe := &fakeEnqueuer{conflicts: 1}
	client := NewClient(nil, nil)
	client.c = fe

	require.NoError(t, client.ScheduleDispatch(context.Background(), "post1", time.Now()))
	assert.Empty(t, fe.tasks)
	assert.Nil(t, client.inspector)
}

func TestClient_EnqueueMediaCleanup(t *testing.T) {
	fe := &fakeEnqueuer{}
	client := &Client{c: fe}

	require.NoError(t, client.EnqueueMediaCleanup(context.Background(), "post1", nil))
	assert.Empty(t, fe.tasks)

	require.NoError(t, client.EnqueueMediaCleanup(context.Background(), "post1", []string{"https://cdn/a"}))
	require.Len(t, fe.tasks, 1)
	assert.Equal(t, TaskTypeCleanupMedia, fe.tasks[0].task.Type())
	assert.Equal(t, cleanupMaxRetry, fe.tasks[0].opts[asynq.MaxRetryOpt])

	var payload CleanupMediaPayload
	require.NoError(t, json.Unmarshal(fe.tasks[0].task.Payload(), &payload))
	assert.Equal(t, []string{"https://cdn/a"}, payload.URLs)
}

func TestQueue_HandleDispatchPostTask(t *testing.T) {
	posts := &fakePosts{}
	q := NewQueue(posts)
	ctx := context.Background()

	payload, err := json.Marshal(DispatchPostPayload{PostID: "post1", ScheduledFor: 1780306200})
	require.NoError(t, err)
	require.NoError(t, q.HandleDispatchPostTask(ctx, asynq.NewTask(TaskTypeDispatchPost, payload)))
	require.Len(t, posts.dispatched, 1)
	assert.Equal(t, "post1", posts.dispatched[0].PostID)
	assert.Equal(t, int64(1780306200), posts.dispatched[0].ScheduledFor)

	err = q.HandleDispatchPostTask(ctx, asynq.NewTask(TaskTypeDispatchPost, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	err = q.HandleDispatchPostTask(ctx, asynq.NewTask(TaskTypeDispatchPost, []byte(`{"scheduled_for":1}`)))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	posts.err = errors.New("database is down")
	assert.Error(t, q.HandleDispatchPostTask(ctx, asynq.NewTask(TaskTypeDispatchPost, payload)))
}

func TestQueue_HandleCleanupMediaTask(t *testing.T) {
	posts := &fakePosts{}
	q := NewQueue(posts)
	ctx := context.Background()

	payload, err := json.Marshal(CleanupMediaPayload{PostID: "post1", URLs: []string{"a", "b"}})
	require.NoError(t, err)
	require.NoError(t, q.HandleCleanupMediaTask(ctx, asynq.NewTask(TaskTypeCleanupMedia, payload)))
	assert.Equal(t, [][]string{{"a", "b"}}, posts.cleaned)

	posts.err = errors.New("bucket unavailable")
	assert.Error(t, q.HandleCleanupMediaTask(ctx, asynq.NewTask(TaskTypeCleanupMedia, payload)))
}

func TestQueue_Register(t *testing.T) {
	posts := &fakePosts{}
	mux := asynq.NewServeMux()
	NewQueue(posts).Register(mux)

	payload, err := json.Marshal(CleanupMediaPayload{URLs: []string{"a"}})
	require.NoError(t, err)
	require.NoError(t, mux.ProcessTask(context.Background(), asynq.NewTask(TaskTypeCleanupMedia, payload)))
	assert.Len(t, posts.cleaned, 1)
}
