package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/isdelr/task-manager-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskService_Ownership(t *testing.T) {
	ctx := context.Background()
	env := setupEnv(t)
	owner := env.register(t, "owner@x.com")
	other := env.register(t, "other@x.com")

	task, err := env.tasks.CreateTask(ctx, owner, models.NewTask{Title: "Secret"})
	require.NoError(t, err)
	assert.Equal(t, owner.ID, task.UserID)

	_, err = env.tasks.GetTask(ctx, other, task.ID)
	assert.ErrorIs(t, err, ErrTaskNotFound)

	_, err = env.tasks.GetTask(ctx, other, task.ID+1000)
	assert.ErrorIs(t, err, ErrTaskNotFound, "foreign and missing tasks look the same")

	_, err = env.tasks.UpdateTask(ctx, other, task.ID, models.TaskPatch{Title: ptr("Mine now")})
	assert.ErrorIs(t, err, ErrTaskNotFound)

	_, err = env.tasks.ChangeStatus(ctx, other, task.ID, models.StatusCompleted)
	assert.ErrorIs(t, err, ErrTaskNotFound)

	_, err = env.tasks.DeleteTask(ctx, other, task.ID)
	assert.ErrorIs(t, err, ErrTaskNotFound)

	list, err := env.tasks.ListTasks(ctx, other, models.TaskFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)

	page, err := env.tasks.ListTasksPaginated(ctx, other, 15, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, page.Total)

	got, err := env.tasks.GetTask(ctx, owner, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "Secret", got.Title)
	assert.Equal(t, models.StatusPending, got.Status)
}

func TestTaskService_RoundTrip(t *testing.T) {
	ctx := context.Background()
	env := setupEnv(t)
	user := env.register(t, "a@x.com")

	created, err := env.tasks.CreateTask(ctx, user, models.NewTask{
		Title:       "Buy milk",
		Description: ptr("2 litres"),
		Status:      models.StatusPending,
		Priority:    models.PriorityLow,
		DueDate:     mustDate(t, "2025-12-01"),
	})
	require.NoError(t, err)

	got, err := env.tasks.GetTask(ctx, user, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Buy milk", got.Title)
	assert.Equal(t, "2 litres", *got.Description)
	assert.Equal(t, models.StatusPending, got.Status)
	assert.Equal(t, models.PriorityLow, got.Priority)
	require.NotNil(t, got.DueDate)
	assert.Equal(t, "2025-12-01", got.DueDate.String())
}

func TestTaskService_CreateValidation(t *testing.T) {
	ctx := context.Background()
	env := setupEnv(t)
	user := env.register(t, "a@x.com")

	tests := []struct {
		name string
		in   models.NewTask
		want error
	}{
		{name: "empty title", in: models.NewTask{Title: "  "}, want: ErrInvalidTitle},
		{name: "long title", in: models.NewTask{Title: strings.Repeat("x", 256)}, want: ErrInvalidTitle},
		{name: "bad status", in: models.NewTask{Title: "t", Status: "done"}, want: ErrInvalidStatus},
		{name: "bad priority", in: models.NewTask{Title: "t", Priority: "urgent"}, want: ErrInvalidPriority},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.tasks.CreateTask(ctx, user, tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestTaskService_UpdatePartial(t *testing.T) {
	ctx := context.Background()
	env := setupEnv(t)
	user := env.register(t, "a@x.com")

	task, err := env.tasks.CreateTask(ctx, user, models.NewTask{
		Title:       "Original",
		Description: ptr("keep me"),
		Priority:    models.PriorityHigh,
		DueDate:     mustDate(t, "2030-01-01"),
	})
	require.NoError(t, err)

	updated, err := env.tasks.UpdateTask(ctx, user, task.ID, models.TaskPatch{
		Title:   ptr("Renamed"),
		DueDate: models.Null[models.Date](),
	})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)
	assert.Equal(t, "keep me", *updated.Description)
	assert.Equal(t, models.PriorityHigh, updated.Priority)
	assert.Nil(t, updated.DueDate)

	_, err = env.tasks.UpdateTask(ctx, user, task.ID, models.TaskPatch{Status: ptr(models.Status("bogus"))})
	assert.ErrorIs(t, err, ErrInvalidStatus)

	same, err := env.tasks.UpdateTask(ctx, user, task.ID, models.TaskPatch{})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", same.Title)
}

func TestTaskService_ChangeStatusAndDelete(t *testing.T) {
	ctx := context.Background()
	env := setupEnv(t)
	user := env.register(t, "a@x.com")

	task, err := env.tasks.CreateTask(ctx, user, models.NewTask{Title: "Buy milk", Status: models.StatusPending, Priority: models.PriorityMedium})
	require.NoError(t, err)

	_, err = env.tasks.ChangeStatus(ctx, user, task.ID, "finished")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	updated, err := env.tasks.ChangeStatus(ctx, user, task.ID, models.StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, updated.Status)

	deleted, err := env.tasks.DeleteTask(ctx, user, task.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	_, err = env.tasks.GetTask(ctx, user, task.ID)
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestTaskService_BulkUpdateStatus(t *testing.T) {
	ctx := context.Background()
	env := setupEnv(t)
	user := env.register(t, "a@x.com")
	other := env.register(t, "b@x.com")

	mine1, _ := env.tasks.CreateTask(ctx, user, models.NewTask{Title: "1"})
	mine2, _ := env.tasks.CreateTask(ctx, user, models.NewTask{Title: "2"})
	theirs, _ := env.tasks.CreateTask(ctx, other, models.NewTask{Title: "3"})

	_, err := env.tasks.BulkUpdateStatus(ctx, user, []int64{mine1.ID}, "nope")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	count, err := env.tasks.BulkUpdateStatus(ctx, user, []int64{mine1.ID, mine2.ID, theirs.ID, 99999}, models.StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	untouched, err := env.tasks.GetTask(ctx, other, theirs.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, untouched.Status)

	stats, err := env.tasks.Statistics(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Completed)
	assert.Equal(t, stats.Total, stats.Completed+stats.Pending+stats.InProgress)
}

func TestTaskService_UpcomingTasks(t *testing.T) {
	ctx := context.Background()
	env := setupEnv(t)
	user := env.register(t, "a@x.com")
	env.tasks.now = func() time.Time { return time.Date(2025, 6, 10, 15, 0, 0, 0, time.UTC) }

	create := func(title, due string, status models.Status) {
		_, err := env.tasks.CreateTask(ctx, user, models.NewTask{Title: title, Status: status, DueDate: mustDate(t, due)})
		require.NoError(t, err)
	}
	create("yesterday", "2025-06-09", models.StatusPending)
	create("today", "2025-06-10", models.StatusPending)
	create("edge", "2025-06-17", models.StatusInProgress)
	create("done", "2025-06-12", models.StatusCompleted)
	create("too far", "2025-06-18", models.StatusPending)
	_, err := env.tasks.CreateTask(ctx, user, models.NewTask{Title: "undated"})
	require.NoError(t, err)

	tasks, err := env.tasks.UpcomingTasks(ctx, user, DefaultUpcomingDays)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "today", tasks[0].Title)
	assert.Equal(t, "edge", tasks[1].Title)

	for _, days := range []int{0, 91, -1} {
		_, err := env.tasks.UpcomingTasks(ctx, user, days)
		assert.ErrorIs(t, err, ErrInvalidDays)
	}
}

func TestTaskService_ListTasksFilters(t *testing.T) {
	ctx := context.Background()
	env := setupEnv(t)
	user := env.register(t, "a@x.com")

	_, err := env.tasks.CreateTask(ctx, user, models.NewTask{Title: "a", Priority: models.PriorityHigh, DueDate: mustDate(t, "2030-02-01")})
	require.NoError(t, err)
	_, err = env.tasks.CreateTask(ctx, user, models.NewTask{Title: "b", Priority: models.PriorityHigh})
	require.NoError(t, err)
	_, err = env.tasks.CreateTask(ctx, user, models.NewTask{Title: "c", Priority: models.PriorityLow, DueDate: mustDate(t, "2030-01-01")})
	require.NoError(t, err)

	high, err := env.tasks.ListTasks(ctx, user, models.TaskFilter{Priority: ptr(models.PriorityHigh)})
	require.NoError(t, err)
	require.Len(t, high, 2)
	assert.Equal(t, "a", high[0].Title)
	assert.Equal(t, "b", high[1].Title, "undated tasks sort last")

	all, err := env.tasks.ListTasks(ctx, user, models.TaskFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "c", all[0].Title)

	_, err = env.tasks.ListTasks(ctx, user, models.TaskFilter{Status: ptr(models.Status("x"))})
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestTaskService_RecordsEvents(t *testing.T) {
	ctx := context.Background()
	env := setupEnv(t)
	user := env.register(t, "a@x.com")
	other := env.register(t, "b@x.com")

	task, err := env.tasks.CreateTask(ctx, user, models.NewTask{Title: "Buy milk"})
	require.NoError(t, err)
	_, err = env.tasks.ChangeStatus(ctx, user, task.ID, models.StatusCompleted)
	require.NoError(t, err)
	_, err = env.tasks.DeleteTask(ctx, user, task.ID)
	require.NoError(t, err)

	events, err := env.events.GetRecentEvents(ctx, user.ID, 0)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, models.EventTaskDeleted, events[0].Type)
	assert.Equal(t, models.EventTaskStatus, events[1].Type)
	assert.Equal(t, models.EventTaskCreated, events[2].Type)
	require.NotNil(t, events[2].TaskID)
	assert.Equal(t, task.ID, *events[2].TaskID)

	assert.Len(t, env.pub.For(user.ID), 3)
	assert.Empty(t, env.pub.For(other.ID))

	otherEvents, err := env.events.GetRecentEvents(ctx, other.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, otherEvents)

	limited, err := env.events.GetRecentEvents(ctx, user.ID, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}
