package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/isdelr/task-manager-api/internal/database"
	"github.com/isdelr/task-manager-api/internal/models"
)

// TaskRepositoryProvider defines the user-scoped task store. Every method takes the
// owner's id and never touches rows belonging to anyone else.
type TaskRepositoryProvider interface {
	Find(ctx context.Context, userID, taskID int64) (models.Task, error)
	Paginate(ctx context.Context, userID int64, perPage, page int) (models.Page[models.Task], error)
	ListFiltered(ctx context.Context, userID int64, filter models.TaskFilter) ([]models.Task, error)
	ListUpcoming(ctx context.Context, userID int64, from, to models.Date) ([]models.Task, error)
	Statistics(ctx context.Context, userID int64) (models.Statistics, error)
	Create(ctx context.Context, userID int64, task models.NewTask) (models.Task, error)
	Update(ctx context.Context, userID, taskID int64, patch models.TaskPatch) (models.Task, error)
	Delete(ctx context.Context, userID, taskID int64) (bool, error)
	BulkUpdateStatus(ctx context.Context, userID int64, taskIDs []int64, status models.Status) (int64, error)
}

// TaskRepository persists tasks.
type TaskRepository struct {
	db *database.DB
}

// NewTaskRepository creates a new TaskRepository.
func NewTaskRepository(db *database.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

const (
	taskColumns = "id, user_id, title, description, status, priority, due_date, created_at, updated_at"
	// Tasks without a due date sort after dated ones.
	orderByDueDate = " ORDER BY due_date IS NULL, due_date ASC, id ASC"
)

// Find retrieves a task by id, scoped to its owner.
func (r *TaskRepository) Find(ctx context.Context, userID, taskID int64) (models.Task, error) {
	row := r.db.QueryRowContext(ctx, r.db.Rebind("SELECT "+taskColumns+" FROM tasks WHERE id = ? AND user_id = ?"), taskID, userID)
	return scanTask(row)
}

// Paginate returns one page of the user's tasks, newest first.
func (r *TaskRepository) Paginate(ctx context.Context, userID int64, perPage, page int) (models.Page[models.Task], error) {
	if perPage < 1 {
		perPage = 1
	}
	if page < 1 {
		page = 1
	}

	var total int
	err := r.db.QueryRowContext(ctx, r.db.Rebind("SELECT COUNT(*) FROM tasks WHERE user_id = ?"), userID).Scan(&total)
	if err != nil {
		return models.Page[models.Task]{}, fmt.Errorf("failed to count tasks: %w", err)
	}

	tasks, err := r.query(ctx,
		"SELECT "+taskColumns+" FROM tasks WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?",
		userID, perPage, (page-1)*perPage)
	if err != nil {
		return models.Page[models.Task]{}, err
	}
	return models.NewPage(tasks, total, perPage, page), nil
}

// ListFiltered returns the user's tasks matching the optional status/priority
// filters, ordered by ascending due date.
func (r *TaskRepository) ListFiltered(ctx context.Context, userID int64, filter models.TaskFilter) ([]models.Task, error) {
	query := "SELECT " + taskColumns + " FROM tasks WHERE user_id = ?"
	args := []any{userID}
	if filter.Status != nil {
		query += " AND status = ?"
		args = append(args, string(*filter.Status))
	}
	if filter.Priority != nil {
		query += " AND priority = ?"
		args = append(args, string(*filter.Priority))
	}
	return r.query(ctx, query+orderByDueDate, args...)
}

// ListUpcoming returns the user's unfinished tasks due within [from, to], inclusive.
func (r *TaskRepository) ListUpcoming(ctx context.Context, userID int64, from, to models.Date) ([]models.Task, error) {
	return r.query(ctx,
		"SELECT "+taskColumns+" FROM tasks WHERE user_id = ? AND status <> ? AND due_date IS NOT NULL AND due_date >= ? AND due_date <= ?"+orderByDueDate,
		userID, string(models.StatusCompleted), from.String(), to.String())
}

// Statistics counts the user's tasks per status in a single statement.
func (r *TaskRepository) Statistics(ctx context.Context, userID int64) (models.Statistics, error) {
	var stats models.Statistics
	query := r.db.Rebind(`
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0)
		FROM tasks WHERE user_id = ?`)
	err := r.db.QueryRowContext(ctx, query,
		string(models.StatusCompleted), string(models.StatusPending), string(models.StatusInProgress), userID,
	).Scan(&stats.Total, &stats.Completed, &stats.Pending, &stats.InProgress)
	if err != nil {
		return models.Statistics{}, fmt.Errorf("failed to compute statistics: %w", err)
	}
	return stats, nil
}

// Create inserts a task owned by userID.
func (r *TaskRepository) Create(ctx context.Context, userID int64, in models.NewTask) (models.Task, error) {
	ts := now()
	task := models.Task{
		UserID:      userID,
		Title:       in.Title,
		Description: in.Description,
		Status:      in.Status,
		Priority:    in.Priority,
		DueDate:     in.DueDate,
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}
	if task.Status == "" {
		task.Status = models.StatusPending
	}
	if task.Priority == "" {
		task.Priority = models.PriorityMedium
	}

	query := r.db.Rebind(`
		INSERT INTO tasks (user_id, title, description, status, priority, due_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`)
	err := r.db.QueryRowContext(ctx, query,
		task.UserID, task.Title, nullString(task.Description), string(task.Status), string(task.Priority),
		nullDate(task.DueDate), task.CreatedAt, task.UpdatedAt,
	).Scan(&task.ID)
	if err != nil {
		return models.Task{}, fmt.Errorf("failed to insert task: %w", err)
	}
	return task, nil
}

// Update applies only the fields present in patch and returns the stored row.
func (r *TaskRepository) Update(ctx context.Context, userID, taskID int64, patch models.TaskPatch) (models.Task, error) {
	var (
		sets []string
		args []any
	)
	if patch.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *patch.Title)
	}
	if patch.Description.Set {
		sets = append(sets, "description = ?")
		args = append(args, nullString(patch.Description.Ptr()))
	}
	if patch.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, string(*patch.Status))
	}
	if patch.Priority != nil {
		sets = append(sets, "priority = ?")
		args = append(args, string(*patch.Priority))
	}
	if patch.DueDate.Set {
		sets = append(sets, "due_date = ?")
		args = append(args, nullDate(patch.DueDate.Ptr()))
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, now(), taskID, userID)

	query := "UPDATE tasks SET " + strings.Join(sets, ", ") + " WHERE id = ? AND user_id = ?"
	res, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return models.Task{}, fmt.Errorf("failed to update task: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return models.Task{}, ErrNotFound
	}
	return r.Find(ctx, userID, taskID)
}

// Delete removes a task owned by userID and reports whether a row was removed.
func (r *TaskRepository) Delete(ctx context.Context, userID, taskID int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind("DELETE FROM tasks WHERE id = ? AND user_id = ?"), taskID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to delete task: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// BulkUpdateStatus sets status on every listed task the user owns, as one statement.
// Ids that do not exist or belong to someone else are skipped.
func (r *TaskRepository) BulkUpdateStatus(ctx context.Context, userID int64, taskIDs []int64, status models.Status) (int64, error) {
	ids := uniqueIDs(taskIDs)
	if len(ids) == 0 {
		return 0, nil
	}

	args := make([]any, 0, len(ids)+3)
	args = append(args, string(status), now())
	for _, id := range ids {
		args = append(args, id)
	}
	args = append(args, userID)

	query := "UPDATE tasks SET status = ?, updated_at = ? WHERE id IN (" + database.Placeholders(len(ids)) + ") AND user_id = ?"
	res, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return 0, fmt.Errorf("failed to bulk update tasks: %w", err)
	}
	return res.RowsAffected()
}

func (r *TaskRepository) query(ctx context.Context, query string, args ...any) ([]models.Task, error) {
	rows, err := r.db.QueryContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTasks(rows)
}

// scanTasks is a helper function to scan multiple rows into a slice of Tasks.
func scanTasks(rows *sql.Rows) ([]models.Task, error) {
	tasks := []models.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// scanTask is a helper function to scan a single row into a Task struct.
func scanTask(s scanner) (models.Task, error) {
	var (
		task        models.Task
		description sql.NullString
		dueDate     sql.NullString
		status      string
		priority    string
	)
	err := s.Scan(
		&task.ID,
		&task.UserID,
		&task.Title,
		&description,
		&status,
		&priority,
		&dueDate,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Task{}, ErrNotFound
		}
		return models.Task{}, err
	}
	task.Status = models.Status(status)
	task.Priority = models.Priority(priority)
	if description.Valid {
		task.Description = &description.String
	}
	if dueDate.Valid && len(dueDate.String) >= len(models.DateLayout) {
		// Postgres DATE columns arrive as RFC 3339 timestamps.
		d, err := models.ParseDate(dueDate.String[:len(models.DateLayout)])
		if err != nil {
			return models.Task{}, err
		}
		task.DueDate = &d
	}
	return task, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullDate(d *models.Date) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
