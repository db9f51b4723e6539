package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/isdelr/task-manager-api/internal/models"
	"github.com/isdelr/task-manager-api/internal/repository"
)

var (
	// ErrTaskNotFound is returned when a task does not exist or belongs to another user.
	ErrTaskNotFound    = errors.New("task not found")
	ErrInvalidStatus   = errors.New("invalid task status")
	ErrInvalidPriority = errors.New("invalid task priority")
	ErrInvalidTitle    = errors.New("title is required and may not exceed 255 characters")
	ErrInvalidDays     = fmt.Errorf("days must be between %d and %d", MinUpcomingDays, MaxUpcomingDays)
)

const (
	MaxTitleLength      = 255
	DefaultUpcomingDays = 7
	MinUpcomingDays     = 1
	MaxUpcomingDays     = 90
)

// TaskServiceProvider defines the interface for task services. The user is
// always the authenticated caller; no method reads an owner from its input.
type TaskServiceProvider interface {
	ListTasks(ctx context.Context, user models.User, filter models.TaskFilter) ([]models.Task, error)
	ListTasksPaginated(ctx context.Context, user models.User, perPage, page int) (models.Page[models.Task], error)
	GetTask(ctx context.Context, user models.User, taskID int64) (models.Task, error)
	CreateTask(ctx context.Context, user models.User, task models.NewTask) (models.Task, error)
	UpdateTask(ctx context.Context, user models.User, taskID int64, patch models.TaskPatch) (models.Task, error)
	DeleteTask(ctx context.Context, user models.User, taskID int64) (bool, error)
	ChangeStatus(ctx context.Context, user models.User, taskID int64, status models.Status) (models.Task, error)
	BulkUpdateStatus(ctx context.Context, user models.User, taskIDs []int64, status models.Status) (int64, error)
	UpcomingTasks(ctx context.Context, user models.User, days int) ([]models.Task, error)
	Statistics(ctx context.Context, user models.User) (models.Statistics, error)
}

// TaskService provides business logic for task management.
type TaskService struct {
	tasks  repository.TaskRepositoryProvider
	events EventRecorder
	now    func() time.Time
}

// NewTaskService creates a new TaskService. events may be nil.
func NewTaskService(tasks repository.TaskRepositoryProvider, events EventRecorder) *TaskService {
	return &TaskService{tasks: tasks, events: events, now: time.Now}
}

// ListTasks returns the user's tasks matching filter, by ascending due date.
func (s *TaskService) ListTasks(ctx context.Context, user models.User, filter models.TaskFilter) ([]models.Task, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, ErrInvalidStatus
	}
	if filter.Priority != nil && !filter.Priority.Valid() {
		return nil, ErrInvalidPriority
	}
	return s.tasks.ListFiltered(ctx, user.ID, filter)
}

// ListTasksPaginated returns one page of the user's tasks, newest first.
func (s *TaskService) ListTasksPaginated(ctx context.Context, user models.User, perPage, page int) (models.Page[models.Task], error) {
	return s.tasks.Paginate(ctx, user.ID, perPage, page)
}

// GetTask retrieves a single task owned by user.
func (s *TaskService) GetTask(ctx context.Context, user models.User, taskID int64) (models.Task, error) {
	task, err := s.tasks.Find(ctx, user.ID, taskID)
	if err != nil {
		return models.Task{}, notFound(err)
	}
	return task, nil
}

// CreateTask creates a task owned by user.
func (s *TaskService) CreateTask(ctx context.Context, user models.User, in models.NewTask) (models.Task, error) {
	if err := validateTitle(in.Title); err != nil {
		return models.Task{}, err
	}
	if in.Status != "" && !in.Status.Valid() {
		return models.Task{}, ErrInvalidStatus
	}
	if in.Priority != "" && !in.Priority.Valid() {
		return models.Task{}, ErrInvalidPriority
	}

	task, err := s.tasks.Create(ctx, user.ID, in)
	if err != nil {
		return models.Task{}, err
	}
	s.record(ctx, user, models.EventTaskCreated, fmt.Sprintf("Task '%s' created", task.Title), task.ID)
	return task, nil
}

// UpdateTask applies the supplied fields to a task owned by user.
func (s *TaskService) UpdateTask(ctx context.Context, user models.User, taskID int64, patch models.TaskPatch) (models.Task, error) {
	if err := validatePatch(patch); err != nil {
		return models.Task{}, err
	}
	task, err := s.GetTask(ctx, user, taskID)
	if err != nil {
		return models.Task{}, err
	}
	if patch.Empty() {
		return task, nil
	}

	updated, err := s.tasks.Update(ctx, user.ID, taskID, patch)
	if err != nil {
		return models.Task{}, notFound(err)
	}
	s.record(ctx, user, models.EventTaskUpdated, fmt.Sprintf("Task '%s' updated", updated.Title), updated.ID)
	return updated, nil
}

// DeleteTask removes a task owned by user.
func (s *TaskService) DeleteTask(ctx context.Context, user models.User, taskID int64) (bool, error) {
	task, err := s.GetTask(ctx, user, taskID)
	if err != nil {
		return false, err
	}
	deleted, err := s.tasks.Delete(ctx, user.ID, taskID)
	if err != nil {
		return false, err
	}
	if deleted {
		s.record(ctx, user, models.EventTaskDeleted, fmt.Sprintf("Task '%s' deleted", task.Title), task.ID)
	}
	return deleted, nil
}

// ChangeStatus moves a task owned by user to status.
func (s *TaskService) ChangeStatus(ctx context.Context, user models.User, taskID int64, status models.Status) (models.Task, error) {
	if !status.Valid() {
		return models.Task{}, ErrInvalidStatus
	}
	if _, err := s.GetTask(ctx, user, taskID); err != nil {
		return models.Task{}, err
	}

	updated, err := s.tasks.Update(ctx, user.ID, taskID, models.TaskPatch{Status: &status})
	if err != nil {
		return models.Task{}, notFound(err)
	}
	s.record(ctx, user, models.EventTaskStatus, fmt.Sprintf("Task '%s' marked %s", updated.Title, status), updated.ID)
	return updated, nil
}

// BulkUpdateStatus sets status on the listed tasks the user owns and returns
// how many changed. Unknown and foreign ids are skipped.
func (s *TaskService) BulkUpdateStatus(ctx context.Context, user models.User, taskIDs []int64, status models.Status) (int64, error) {
	if !status.Valid() {
		return 0, ErrInvalidStatus
	}
	count, err := s.tasks.BulkUpdateStatus(ctx, user.ID, taskIDs, status)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		s.record(ctx, user, models.EventTaskBulkStatus, fmt.Sprintf("%d task(s) marked %s", count, status), 0)
	}
	return count, nil
}

// UpcomingTasks returns unfinished tasks due between today and today+days.
func (s *TaskService) UpcomingTasks(ctx context.Context, user models.User, days int) ([]models.Task, error) {
	if days < MinUpcomingDays || days > MaxUpcomingDays {
		return nil, ErrInvalidDays
	}
	today := models.DateOf(s.now())
	return s.tasks.ListUpcoming(ctx, user.ID, today, today.AddDays(days))
}

// Statistics counts the user's tasks per status.
func (s *TaskService) Statistics(ctx context.Context, user models.User) (models.Statistics, error) {
	return s.tasks.Statistics(ctx, user.ID)
}

func (s *TaskService) record(ctx context.Context, user models.User, eventType, message string, taskID int64) {
	if s.events == nil {
		return
	}
	var id *int64
	if taskID > 0 {
		id = &taskID
	}
	s.events.Record(ctx, user.ID, eventType, message, id)
}

func notFound(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrTaskNotFound
	}
	return err
}

func validateTitle(title string) error {
	if strings.TrimSpace(title) == "" || utf8.RuneCountInString(title) > MaxTitleLength {
		return ErrInvalidTitle
	}
	return nil
}

func validatePatch(patch models.TaskPatch) error {
	if patch.Title != nil {
		if err := validateTitle(*patch.Title); err != nil {
			return err
		}
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return ErrInvalidStatus
	}
	if patch.Priority != nil && !patch.Priority.Valid() {
		return ErrInvalidPriority
	}
	return nil
}
