package service

import (
	"context"
	"sync"
	"testing"

	"confide/internal/config"
	"confide/internal/events"
	"confide/internal/models"
	"confide/internal/repository"
	"confide/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// setupTestDB opens a fresh embedded store so service tests run against the
// real schema and triggers instead of mocks.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := store.Open(&config.Config{DBDriver: "sqlite", SQLiteDSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// recordingCheckpointer counts checkpoints so tests can assert writes persist.
type recordingCheckpointer struct {
	mu    sync.Mutex
	count int
}

func (r *recordingCheckpointer) Checkpoint(context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.count++
}

func (r *recordingCheckpointer) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// recordingAnnouncer captures emitted events for assertion.
type recordingAnnouncer struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordingAnnouncer) Emit(_ context.Context, e events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingAnnouncer) Events() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.Event(nil), r.events...)
}

func seedServiceUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	user := &models.User{Username: username, Email: username + "@example.com", PasswordHash: "x"}
	require.NoError(t, db.Create(user).Error)
	return user
}

func newTestUserService(db *gorm.DB, cp Checkpointer) *UserService {
	return NewUserService(repository.NewUserRepository(db), repository.NewFollowRepository(db), repository.NewNotificationRepository(db), cp)
}

func newTestPostService(db *gorm.DB, cp Checkpointer) *PostService {
	return NewPostService(
		repository.NewPostRepository(db),
		repository.NewCommentRepository(db),
		repository.NewNotificationRepository(db),
		cp,
	)
}

func newTestChatService(db *gorm.DB, cp Checkpointer, an Announcer) *ChatService {
	return NewChatService(repository.NewChatRepository(db), repository.NewUserRepository(db), cp, an)
}

func assertValidationError(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, models.IsCode(err, "VALIDATION_ERROR"), "expected validation error, got %v", err)
}
