package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/isdelr/task-manager-api/internal/auth"
	"github.com/isdelr/task-manager-api/internal/models"
	"github.com/isdelr/task-manager-api/internal/services"
	"github.com/rs/zerolog/log"
)

// AuthHandler handles HTTP requests for registration and sessions.
type AuthHandler struct {
	service       services.AuthServiceProvider
	rs            *Responder
	secureCookies bool
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(service services.AuthServiceProvider, rs *Responder, secureCookies bool) *AuthHandler {
	return &AuthHandler{service: service, rs: rs, secureCookies: secureCookies}
}

// RegisterPayload defines the structure for registration requests.
type RegisterPayload struct {
	Name                 string `json:"name" validate:"required,max=255"`
	Email                string `json:"email" validate:"required,email,max=255"`
	Password             string `json:"password" validate:"required,min=8,max=72"`
	PasswordConfirmation string `json:"password_confirmation" validate:"omitempty,eqfield=Password"`
}

// LoginPayload defines the structure for login requests.
type LoginPayload struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type userSummary struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// Register handles new user registration.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var payload RegisterPayload
	errs, err := decode(r, &payload)
	if err != nil {
		h.rs.Fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if errs != nil {
		h.rs.Invalid(w, errs)
		return
	}

	user, err := h.service.Register(r.Context(), payload.Name, payload.Email, payload.Password)
	if err != nil {
		if errors.Is(err, services.ErrEmailTaken) {
			h.rs.Invalid(w, fieldError("email", "The email has already been taken."))
			return
		}
		log.Error().Err(err).Str("email", payload.Email).Msg("Failed to register user")
		h.rs.Fail(w, http.StatusBadRequest, "Registration failed")
		return
	}

	h.rs.OK(w, http.StatusCreated, "User registered successfully", userSummary{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
	})
}

// Login handles user authentication and token issuance.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload LoginPayload
	errs, err := decode(r, &payload)
	if err != nil {
		h.rs.Fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if errs != nil {
		h.rs.Invalid(w, errs)
		return
	}

	token, err := h.service.Login(r.Context(), payload.Email, payload.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			log.Warn().Str("email", payload.Email).Msg("Failed authentication attempt")
			h.rs.Fail(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		log.Error().Err(err).Str("email", payload.Email).Msg("Failed to log in")
		h.rs.Internal(w, err, "Login failed")
		return
	}

	h.setTokenCookie(w, token)
	h.rs.OK(w, http.StatusOK, "Login successful", token)
}

// Refresh rotates the presented token.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())

	token, err := h.service.Refresh(r.Context(), identity.Claims)
	if err != nil {
		log.Error().Err(err).Int64("user_id", identity.User.ID).Msg("Failed to refresh token")
		h.rs.Fail(w, http.StatusUnauthorized, "Token refresh failed")
		return
	}

	h.setTokenCookie(w, token)
	h.rs.OK(w, http.StatusOK, "Token refreshed successfully", token)
}

// Logout revokes the presented token.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())

	if err := h.service.Logout(r.Context(), identity.Claims); err != nil {
		log.Error().Err(err).Int64("user_id", identity.User.ID).Msg("Failed to log out")
		h.rs.Internal(w, err, "Logout failed")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.TokenCookie,
		Value:    "",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteStrictMode,
		Path:     "/",
	})
	h.rs.OK(w, http.StatusOK, "Logged out successfully", nil)
}

// Me retrieves the currently authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())

	user, err := h.service.GetUser(r.Context(), identity.User.ID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", identity.User.ID).Msg("User from token not found in DB")
		h.rs.Fail(w, http.StatusBadRequest, "Unable to fetch user")
		return
	}

	h.rs.OK(w, http.StatusOK, "", userSummary{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		CreatedAt: &user.CreatedAt,
	})
}

func (h *AuthHandler) setTokenCookie(w http.ResponseWriter, token models.TokenResponse) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.TokenCookie,
		Value:    token.AccessToken,
		Expires:  time.Now().Add(time.Duration(token.ExpiresIn) * time.Second),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteStrictMode,
		Path:     "/",
	})
}
