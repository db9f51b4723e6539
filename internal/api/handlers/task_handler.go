package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/task-manager-api/internal/auth"
	"github.com/isdelr/task-manager-api/internal/models"
	"github.com/isdelr/task-manager-api/internal/services"
	"github.com/rs/zerolog/log"
)

const (
	defaultPerPage = 15
	maxPerPage     = 100
)

// TaskHandler handles HTTP requests for the caller's tasks.
type TaskHandler struct {
	service services.TaskServiceProvider
	rs      *Responder
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(service services.TaskServiceProvider, rs *Responder) *TaskHandler {
	return &TaskHandler{service: service, rs: rs}
}

// CreateTaskPayload defines the structure for task creation. Any owner
// field in the body is ignored.
type CreateTaskPayload struct {
	Title       string  `json:"title" validate:"required,max=255"`
	Description *string `json:"description"`
	Status      string  `json:"status" validate:"required,oneof=pending in_progress completed"`
	Priority    string  `json:"priority" validate:"required,oneof=low medium high"`
	DueDate     *string `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
}

// UpdateTaskPayload defines a partial update; absent keys are left alone and
// description/due_date accept null to clear them.
type UpdateTaskPayload struct {
	Title       *string                 `json:"title"`
	Description models.Optional[string] `json:"description"`
	Status      *string                 `json:"status"`
	Priority    *string                 `json:"priority"`
	DueDate     models.Optional[string] `json:"due_date"`
}

// StatusPayload defines a single status change.
type StatusPayload struct {
	Status string `json:"status" validate:"required,oneof=pending in_progress completed"`
}

// BulkStatusPayload defines a status change over several tasks.
type BulkStatusPayload struct {
	TaskIDs []int64 `json:"task_ids" validate:"required,min=1,dive,gt=0"`
	Status  string  `json:"status" validate:"required,oneof=pending in_progress completed"`
}

// GetAll handles listing the caller's tasks one page at a time.
func (h *TaskHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	perPage, ok := intQuery(r, "per_page", defaultPerPage)
	if !ok || perPage < 1 {
		h.rs.Invalid(w, fieldError("per_page", "The per page field must be an integer of at least 1."))
		return
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	page, ok := intQuery(r, "page", 1)
	if !ok || page < 1 {
		h.rs.Invalid(w, fieldError("page", "The page field must be an integer of at least 1."))
		return
	}

	result, err := h.service.ListTasksPaginated(r.Context(), user, perPage, page)
	if err != nil {
		log.Error().Err(err).Int64("user_id", user.ID).Msg("Failed to list tasks")
		h.rs.Internal(w, err, "Failed to retrieve tasks")
		return
	}
	h.rs.Page(w, r, "Tasks retrieved successfully", result)
}

// Create handles task creation for the caller.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	var payload CreateTaskPayload
	errs, err := decode(r, &payload)
	if err != nil {
		h.rs.Fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if errs != nil {
		h.rs.Invalid(w, errs)
		return
	}

	in := models.NewTask{
		Title:       payload.Title,
		Description: payload.Description,
		Status:      models.Status(payload.Status),
		Priority:    models.Priority(payload.Priority),
	}
	if payload.DueDate != nil {
		d, err := models.ParseDate(*payload.DueDate)
		if err != nil {
			h.rs.Invalid(w, fieldError("due_date", "The due date field must match the format Y-m-d."))
			return
		}
		in.DueDate = &d
	}

	task, err := h.service.CreateTask(r.Context(), user, in)
	if err != nil {
		h.fail(w, err, user, 0, "Failed to create task")
		return
	}
	h.rs.OK(w, http.StatusCreated, "Task created successfully", task)
}

// Get handles retrieving one of the caller's tasks.
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	id, ok := taskID(r)
	if !ok {
		h.rs.Fail(w, http.StatusNotFound, "Task not found")
		return
	}

	task, err := h.service.GetTask(r.Context(), user, id)
	if err != nil {
		h.fail(w, err, user, id, "Failed to retrieve task")
		return
	}
	h.rs.OK(w, http.StatusOK, "", task)
}

// Update handles partial updates of the caller's task.
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	id, ok := taskID(r)
	if !ok {
		h.rs.Fail(w, http.StatusNotFound, "Task not found")
		return
	}

	var payload UpdateTaskPayload
	if _, err := decode(r, &payload); err != nil {
		h.rs.Fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	patch, errs := payload.patch()
	if errs != nil {
		h.rs.Invalid(w, errs)
		return
	}

	task, err := h.service.UpdateTask(r.Context(), user, id, patch)
	if err != nil {
		h.fail(w, err, user, id, "Failed to update task")
		return
	}
	h.rs.OK(w, http.StatusOK, "Task updated successfully", task)
}

// Delete handles deleting the caller's task.
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	id, ok := taskID(r)
	if !ok {
		h.rs.Fail(w, http.StatusNotFound, "Task not found")
		return
	}

	deleted, err := h.service.DeleteTask(r.Context(), user, id)
	if err != nil {
		h.fail(w, err, user, id, "Failed to delete task")
		return
	}
	if !deleted {
		h.rs.Fail(w, http.StatusNotFound, "Task not found")
		return
	}
	h.rs.OK(w, http.StatusOK, "Task deleted successfully", nil)
}

// Filter handles listing the caller's tasks by status and/or priority.
func (h *TaskHandler) Filter(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	var filter models.TaskFilter
	if v := r.URL.Query().Get("status"); v != "" {
		status := models.Status(v)
		if !status.Valid() {
			h.rs.Invalid(w, fieldError("status", "The selected status is invalid."))
			return
		}
		filter.Status = &status
	}
	if v := r.URL.Query().Get("priority"); v != "" {
		priority := models.Priority(v)
		if !priority.Valid() {
			h.rs.Invalid(w, fieldError("priority", "The selected priority is invalid."))
			return
		}
		filter.Priority = &priority
	}

	tasks, err := h.service.ListTasks(r.Context(), user, filter)
	if err != nil {
		h.fail(w, err, user, 0, "Failed to retrieve tasks")
		return
	}
	h.rs.OK(w, http.StatusOK, "Filtered tasks retrieved successfully", tasks)
}

// Upcoming handles listing unfinished tasks due within the next days.
func (h *TaskHandler) Upcoming(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	days, ok := intQuery(r, "days", services.DefaultUpcomingDays)
	if !ok || days < services.MinUpcomingDays || days > services.MaxUpcomingDays {
		h.rs.Invalid(w, fieldError("days", daysMessage))
		return
	}

	tasks, err := h.service.UpcomingTasks(r.Context(), user, days)
	if err != nil {
		h.fail(w, err, user, 0, "Failed to retrieve tasks")
		return
	}
	h.rs.OK(w, http.StatusOK, "Upcoming tasks retrieved successfully", tasks)
}

// Statistics handles the caller's per-status counts.
func (h *TaskHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	stats, err := h.service.Statistics(r.Context(), user)
	if err != nil {
		h.fail(w, err, user, 0, "Failed to retrieve statistics")
		return
	}
	h.rs.OK(w, http.StatusOK, "Task statistics retrieved successfully", stats)
}

// ChangeStatus handles a single status change.
func (h *TaskHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	id, ok := taskID(r)
	if !ok {
		h.rs.Fail(w, http.StatusNotFound, "Task not found")
		return
	}

	var payload StatusPayload
	errs, err := decode(r, &payload)
	if err != nil {
		h.rs.Fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if errs != nil {
		h.rs.Invalid(w, errs)
		return
	}

	task, err := h.service.ChangeStatus(r.Context(), user, id, models.Status(payload.Status))
	if err != nil {
		h.fail(w, err, user, id, "Failed to update task status")
		return
	}
	h.rs.OK(w, http.StatusOK, "Task status updated successfully", task)
}

// BulkStatus handles a status change across several of the caller's tasks.
func (h *TaskHandler) BulkStatus(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	var payload BulkStatusPayload
	errs, err := decode(r, &payload)
	if err != nil {
		h.rs.Fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if errs != nil {
		h.rs.Invalid(w, errs)
		return
	}

	count, err := h.service.BulkUpdateStatus(r.Context(), user, payload.TaskIDs, models.Status(payload.Status))
	if err != nil {
		h.fail(w, err, user, 0, "Failed to update tasks")
		return
	}
	h.rs.OK(w, http.StatusOK, fmt.Sprintf("Updated %d task(s) successfully", count), map[string]int64{"updated_count": count})
}

// fail maps service errors onto responses.
func (h *TaskHandler) fail(w http.ResponseWriter, err error, user models.User, id int64, message string) {
	switch {
	case errors.Is(err, services.ErrTaskNotFound):
		h.rs.Fail(w, http.StatusNotFound, "Task not found")
	case errors.Is(err, services.ErrInvalidStatus):
		h.rs.Invalid(w, fieldError("status", "The selected status is invalid."))
	case errors.Is(err, services.ErrInvalidPriority):
		h.rs.Invalid(w, fieldError("priority", "The selected priority is invalid."))
	case errors.Is(err, services.ErrInvalidTitle):
		h.rs.Invalid(w, fieldError("title", "The title field is required and must not be greater than 255 characters."))
	case errors.Is(err, services.ErrInvalidDays):
		h.rs.Invalid(w, fieldError("days", daysMessage))
	default:
		log.Error().Err(err).Int64("user_id", user.ID).Int64("task_id", id).Msg(message)
		h.rs.Internal(w, err, message)
	}
}

var daysMessage = fmt.Sprintf("The days field must be an integer between %d and %d.", services.MinUpcomingDays, services.MaxUpcomingDays)

// patch validates the payload and converts it into a TaskPatch.
func (p UpdateTaskPayload) patch() (models.TaskPatch, map[string][]string) {
	var (
		patch models.TaskPatch
		errs  = map[string][]string{}
	)
	if p.Title != nil {
		if *p.Title == "" || utf8.RuneCountInString(*p.Title) > services.MaxTitleLength {
			errs["title"] = append(errs["title"], "The title field must be a non-empty string of at most 255 characters.")
		}
		patch.Title = p.Title
	}
	patch.Description = p.Description
	if p.Status != nil {
		status := models.Status(*p.Status)
		if !status.Valid() {
			errs["status"] = append(errs["status"], "The selected status is invalid.")
		}
		patch.Status = &status
	}
	if p.Priority != nil {
		priority := models.Priority(*p.Priority)
		if !priority.Valid() {
			errs["priority"] = append(errs["priority"], "The selected priority is invalid.")
		}
		patch.Priority = &priority
	}
	if p.DueDate.Set {
		if !p.DueDate.Valid {
			patch.DueDate = models.Null[models.Date]()
		} else if d, err := models.ParseDate(p.DueDate.Value); err != nil {
			errs["due_date"] = append(errs["due_date"], "The due date field must match the format Y-m-d.")
		} else {
			patch.DueDate = models.Some(d)
		}
	}
	if len(errs) > 0 {
		return models.TaskPatch{}, errs
	}
	return patch, nil
}

func currentUser(r *http.Request) models.User {
	identity, _ := auth.IdentityFromContext(r.Context())
	return identity.User
}

func taskID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// intQuery reads an integer query parameter, returning fallback when absent.
func intQuery(r *http.Request, key string, fallback int) (int, bool) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback, true
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}
