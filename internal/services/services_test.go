package services

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/isdelr/task-manager-api/internal/auth"
	"github.com/isdelr/task-manager-api/internal/database"
	"github.com/isdelr/task-manager-api/internal/models"
	"github.com/isdelr/task-manager-api/internal/repository"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type testEnv struct {
	db     *database.DB
	auth   *AuthService
	tasks  *TaskService
	events *EventService
	pub    *recordingPublisher
}

type recordingPublisher struct {
	mu     sync.Mutex
	events map[int64][]models.Event
}

func (p *recordingPublisher) Publish(userID int64, event models.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.events == nil {
		p.events = make(map[int64][]models.Event)
	}
	p.events[userID] = append(p.events[userID], event)
}

func (p *recordingPublisher) For(userID int64) []models.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.events[userID]
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.New(database.DriverSQLite, filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db))

	pub := &recordingPublisher{}
	events := NewEventService(repository.NewEventRepository(db), pub)
	tokens := auth.NewTokenManager("test-secret", time.Hour, "test-issuer")

	return &testEnv{
		db:     db,
		auth:   NewAuthService(repository.NewUserRepository(db), tokens, repository.NewRevokedTokenRepository(db), WithHashCost(bcrypt.MinCost)),
		tasks:  NewTaskService(repository.NewTaskRepository(db), events),
		events: events,
		pub:    pub,
	}
}

func (e *testEnv) register(t *testing.T, email string) models.User {
	t.Helper()
	user, err := e.auth.Register(context.Background(), "User", email, "pw123456")
	require.NoError(t, err)
	return user
}

func ptr[T any](v T) *T { return &v }

func mustDate(t *testing.T, s string) *models.Date {
	t.Helper()
	d, err := models.ParseDate(s)
	require.NoError(t, err)
	return &d
}
