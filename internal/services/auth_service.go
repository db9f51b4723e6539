package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/isdelr/task-manager-api/internal/auth"
	"github.com/isdelr/task-manager-api/internal/models"
	"github.com/isdelr/task-manager-api/internal/repository"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidCredentials is returned for an unknown email and for a wrong password alike.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmailTaken is returned when registering an email that already has an account.
	ErrEmailTaken = errors.New("email has already been taken")
	// ErrUserNotFound is returned when the requested user does not exist.
	ErrUserNotFound = errors.New("user not found")
)

// AuthServiceProvider defines the interface for registration and the token lifecycle.
type AuthServiceProvider interface {
	auth.Authenticator
	Register(ctx context.Context, name, email, password string) (models.User, error)
	Login(ctx context.Context, email, password string) (models.TokenResponse, error)
	Refresh(ctx context.Context, claims *auth.Claims) (models.TokenResponse, error)
	Logout(ctx context.Context, claims *auth.Claims) error
	GetUser(ctx context.Context, id int64) (models.User, error)
}

// AuthService provides business logic for users and their access tokens.
type AuthService struct {
	users    repository.UserRepositoryProvider
	tokens   *auth.TokenManager
	denylist auth.Denylist
	cost     int

	dummyOnce sync.Once
	dummyHash []byte
}

// AuthOption customises an AuthService.
type AuthOption func(*AuthService)

// WithHashCost overrides the bcrypt cost used for new passwords.
func WithHashCost(cost int) AuthOption {
	return func(s *AuthService) { s.cost = cost }
}

// NewAuthService creates a new AuthService.
func NewAuthService(users repository.UserRepositoryProvider, tokens *auth.TokenManager, denylist auth.Denylist, opts ...AuthOption) *AuthService {
	s := &AuthService{
		users:    users,
		tokens:   tokens,
		denylist: denylist,
		cost:     bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NormalizeEmail trims and lowercases an address before storage or lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a new user, hashing their password.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (models.User, error) {
	email = NormalizeEmail(email)

	exists, err := s.users.EmailExists(ctx, email)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to check email: %w", err)
	}
	if exists {
		return models.User{}, ErrEmailTaken
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.users.Create(ctx, strings.TrimSpace(name), email, string(hashedPassword))
	if err != nil {
		// Lost a race with a concurrent registration.
		if errors.Is(err, repository.ErrDuplicate) {
			return models.User{}, ErrEmailTaken
		}
		return models.User{}, err
	}
	return user, nil
}

// Login verifies a user's credentials and issues an access token.
func (s *AuthService) Login(ctx context.Context, email, password string) (models.TokenResponse, error) {
	user, err := s.users.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Spend the same time as a real comparison.
			bcrypt.CompareHashAndPassword(s.dummy(), []byte(password))
			return models.TokenResponse{}, ErrInvalidCredentials
		}
		return models.TokenResponse{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return models.TokenResponse{}, ErrInvalidCredentials
	}
	return s.issue(user.ID)
}

// Refresh revokes the presented token and issues a replacement.
func (s *AuthService) Refresh(ctx context.Context, claims *auth.Claims) (models.TokenResponse, error) {
	userID, err := claims.UserID()
	if err != nil {
		return models.TokenResponse{}, err
	}
	if err := s.denylist.Revoke(ctx, claims.ID, userID, claims.ExpiresAtTime()); err != nil {
		return models.TokenResponse{}, err
	}
	return s.issue(userID)
}

// Logout revokes the presented token.
func (s *AuthService) Logout(ctx context.Context, claims *auth.Claims) error {
	userID, err := claims.UserID()
	if err != nil {
		return err
	}
	return s.denylist.Revoke(ctx, claims.ID, userID, claims.ExpiresAtTime())
}

// Authenticate verifies token and resolves the user it was issued to.
func (s *AuthService) Authenticate(ctx context.Context, token string) (auth.Identity, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return auth.Identity{}, err
	}

	revoked, err := s.denylist.IsRevoked(ctx, claims.ID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to check token denylist")
		return auth.Identity{}, fmt.Errorf("failed to check denylist: %w", err)
	}
	if revoked {
		return auth.Identity{}, auth.ErrTokenRevoked
	}

	userID, err := claims.UserID()
	if err != nil {
		return auth.Identity{}, err
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return auth.Identity{}, auth.ErrTokenInvalid
		}
		return auth.Identity{}, err
	}
	return auth.Identity{User: user, Claims: claims}, nil
}

// GetUser retrieves a single user by their ID.
func (s *AuthService) GetUser(ctx context.Context, id int64) (models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

func (s *AuthService) issue(userID int64) (models.TokenResponse, error) {
	token, _, err := s.tokens.Issue(userID)
	if err != nil {
		return models.TokenResponse{}, err
	}
	return models.TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.tokens.TTL().Seconds()),
	}, nil
}

func (s *AuthService) dummy() []byte {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), s.cost)
	})
	return s.dummyHash
}
