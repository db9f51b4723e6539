package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/isdelr/task-manager-api/internal/models"
	"github.com/rs/zerolog/log"
)

// envelope is the body of every API response.
type envelope struct {
	Success    bool                `json:"success"`
	Message    string              `json:"message,omitempty"`
	Data       any                 `json:"data,omitempty"`
	Pagination *pagination         `json:"pagination,omitempty"`
	Errors     map[string][]string `json:"errors,omitempty"`
	Error      string              `json:"error,omitempty"`
}

type pagination struct {
	Total       int     `json:"total"`
	PerPage     int     `json:"per_page"`
	CurrentPage int     `json:"current_page"`
	LastPage    int     `json:"last_page"`
	NextPageURL *string `json:"next_page_url"`
	PrevPageURL *string `json:"prev_page_url"`
}

// Responder writes JSON envelopes. Internal error detail is only echoed when debug is set.
type Responder struct {
	debug bool
}

// NewResponder creates a new Responder.
func NewResponder(debug bool) *Responder {
	return &Responder{debug: debug}
}

func (rs *Responder) write(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// OK writes a successful response.
func (rs *Responder) OK(w http.ResponseWriter, status int, message string, data any) {
	rs.write(w, status, envelope{Success: true, Message: message, Data: data})
}

// Page writes one page of tasks with links to its neighbours.
func (rs *Responder) Page(w http.ResponseWriter, r *http.Request, message string, page models.Page[models.Task]) {
	rs.write(w, http.StatusOK, envelope{
		Success: true,
		Message: message,
		Data:    page.Items,
		Pagination: &pagination{
			Total:       page.Total,
			PerPage:     page.PerPage,
			CurrentPage: page.CurrentPage,
			LastPage:    page.LastPage,
			NextPageURL: pageURL(r, page.NextPage(), page.PerPage),
			PrevPageURL: pageURL(r, page.PrevPage(), page.PerPage),
		},
	})
}

// Fail writes an error response with a client-facing message.
func (rs *Responder) Fail(w http.ResponseWriter, status int, message string) {
	rs.write(w, status, envelope{Success: false, Message: message})
}

// Invalid writes a 422 response listing the failing fields.
func (rs *Responder) Invalid(w http.ResponseWriter, errs map[string][]string) {
	rs.write(w, http.StatusUnprocessableEntity, envelope{Success: false, Message: "Validation failed", Errors: errs})
}

// Internal logs err and writes a generic 500 response.
func (rs *Responder) Internal(w http.ResponseWriter, err error, message string) {
	body := envelope{Success: false, Message: message}
	if rs.debug {
		body.Error = err.Error()
	}
	rs.write(w, http.StatusInternalServerError, body)
}

func pageURL(r *http.Request, page *int, perPage int) *string {
	if page == nil {
		return nil
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	q := r.URL.Query()
	q.Set("page", strconv.Itoa(*page))
	q.Set("per_page", strconv.Itoa(perPage))
	u := url.URL{Scheme: scheme, Host: r.Host, Path: r.URL.Path, RawQuery: q.Encode()}
	s := u.String()
	return &s
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// errMalformedBody is returned by decode for bodies that are not a JSON object of the payload.
var errMalformedBody = errors.New("invalid request body")

// decode reads a JSON body into payload and validates it. On failure it
// returns either errMalformedBody or a validation error map.
func decode(r *http.Request, payload any) (map[string][]string, error) {
	if err := json.NewDecoder(r.Body).Decode(payload); err != nil {
		return nil, errMalformedBody
	}
	return check(payload), nil
}

// check runs struct validation and returns nil when payload is valid.
func check(payload any) map[string][]string {
	err := validate.Struct(payload)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string][]string{"body": {err.Error()}}
	}
	errs := make(map[string][]string, len(verrs))
	for _, fe := range verrs {
		field := fieldName(fe)
		errs[field] = append(errs[field], validationMessage(field, fe))
	}
	return errs
}

// fieldName turns task_ids[2] into task_ids.2.
func fieldName(fe validator.FieldError) string {
	field := fe.Field()
	if i := strings.IndexByte(field, '['); i >= 0 {
		return field[:i] + "." + strings.Trim(field[i:], "[]")
	}
	return field
}

func validationMessage(field string, fe validator.FieldError) string {
	label := strings.ReplaceAll(field, "_", " ")
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("The %s field is required.", label)
	case "email":
		return fmt.Sprintf("The %s field must be a valid email address.", label)
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("The %s field must have at least %s items.", label, fe.Param())
		}
		return fmt.Sprintf("The %s field must be at least %s characters.", label, fe.Param())
	case "max":
		return fmt.Sprintf("The %s field must not be greater than %s characters.", label, fe.Param())
	case "oneof":
		return fmt.Sprintf("The selected %s is invalid.", label)
	case "datetime":
		return fmt.Sprintf("The %s field must match the format %s.", label, fe.Param())
	case "eqfield":
		return fmt.Sprintf("The %s does not match.", label)
	case "gt":
		return fmt.Sprintf("The %s field must be greater than %s.", label, fe.Param())
	}
	return fmt.Sprintf("The %s field is invalid.", label)
}

// fieldError builds a single-field validation error map.
func fieldError(field, msg string) map[string][]string {
	return map[string][]string{field: {msg}}
}
