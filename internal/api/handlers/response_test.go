package handlers

import (
	"crypto/tls"
	"net/http/httptest"
	"testing"

	"github.com/isdelr/task-manager-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheck_UsesJSONFieldNames(t *testing.T) {
	errs := check(&BulkStatusPayload{TaskIDs: []int64{3, 0}, Status: "later"})
	require.NotNil(t, errs)
	assert.Equal(t, []string{"The task ids.1 field must be greater than 0."}, errs["task_ids.1"])
	assert.Equal(t, []string{"The selected status is invalid."}, errs["status"])

	assert.Nil(t, check(&BulkStatusPayload{TaskIDs: []int64{1}, Status: "completed"}))
}

func TestCheck_PasswordConfirmation(t *testing.T) {
	valid := RegisterPayload{Name: "A", Email: "a@x.com", Password: "pw123456"}
	assert.Nil(t, check(&valid))

	valid.PasswordConfirmation = "pw123456"
	assert.Nil(t, check(&valid))

	valid.PasswordConfirmation = "other"
	assert.Contains(t, check(&valid), "password_confirmation")
}

func TestUpdateTaskPayload_Patch(t *testing.T) {
	title := "New"
	patch, errs := UpdateTaskPayload{
		Title:       &title,
		Description: models.Null[string](),
		DueDate:     models.Some("2025-01-31"),
	}.patch()
	require.Nil(t, errs)
	assert.Equal(t, "New", *patch.Title)
	assert.True(t, patch.Description.Set)
	assert.False(t, patch.Description.Valid)
	assert.Equal(t, "2025-01-31", patch.DueDate.Value.String())
	assert.Nil(t, patch.Status)

	bad := "x"
	_, errs = UpdateTaskPayload{Status: &bad, DueDate: models.Some("31-01-2025")}.patch()
	assert.Contains(t, errs, "status")
	assert.Contains(t, errs, "due_date")
}

func TestPageURL(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/tasks?per_page=5&foo=bar", nil)
	next := 3

	got := pageURL(r, &next, 5)
	require.NotNil(t, got)
	assert.Equal(t, "http://example.com/api/tasks?foo=bar&page=3&per_page=5", *got)
	assert.Nil(t, pageURL(r, nil, 5))

	r.TLS = &tls.ConnectionState{}
	assert.Equal(t, "https://example.com/api/tasks?foo=bar&page=3&per_page=5", *pageURL(r, &next, 5))
}
