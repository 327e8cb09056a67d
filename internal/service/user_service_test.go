package service

import (
	"context"
	"testing"

	"confide/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestCreateUserAndAuthenticate(t *testing.T) {
	db := setupTestDB(t)
	cp := &recordingCheckpointer{}
	svc := newTestUserService(db, cp)
	ctx := context.Background()

	user, err := svc.CreateUser(ctx, "alice", "Alice@Example.com", "supersecret")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.NotEqual(t, "supersecret", user.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("supersecret")))
	assert.Equal(t, 1, cp.Count())

	got, err := svc.Authenticate(ctx, "alice@example.com", "supersecret")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = svc.Authenticate(ctx, "alice@example.com", "wrong")
	require.Error(t, err)
	assert.True(t, models.IsCode(err, "UNAUTHORIZED"))
}

func TestCreateUserRejectsDuplicatesAndBadInput(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestUserService(db, nil)
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, "alice", "a@example.com", "supersecret")
	require.NoError(t, err)

	_, err = svc.CreateUser(ctx, "alice", "other@example.com", "supersecret")
	require.Error(t, err)
	assert.True(t, models.IsCode(err, "CONFLICT"))

	_, err = svc.CreateUser(ctx, "alice2", "a@example.com", "supersecret")
	require.Error(t, err)
	assert.True(t, models.IsCode(err, "CONFLICT"))

	_, err = svc.CreateUser(ctx, "", "b@example.com", "supersecret")
	assertValidationError(t, err)

	_, err = svc.CreateUser(ctx, "bob", "not-an-email", "supersecret")
	assertValidationError(t, err)

	_, err = svc.CreateUser(ctx, "bob", "b@example.com", "short")
	assertValidationError(t, err)
}

func TestUpdateProfileAndPassword(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestUserService(db, nil)
	ctx := context.Background()

	user, err := svc.CreateUser(ctx, "alice", "a@example.com", "supersecret")
	require.NoError(t, err)
	assert.False(t, user.ProfileSetup)

	updated, err := svc.UpdateProfile(ctx, user.ID, "Alice A.", "hello there", "")
	require.NoError(t, err)
	assert.True(t, updated.ProfileSetup)
	assert.Equal(t, "Alice A.", updated.FullName)

	err = svc.UpdatePassword(ctx, user.ID, "wrong", "newpassword1")
	require.Error(t, err)
	assert.True(t, models.IsCode(err, "UNAUTHORIZED"))

	require.NoError(t, svc.UpdatePassword(ctx, user.ID, "supersecret", "newpassword1"))
	_, err = svc.Authenticate(ctx, "a@example.com", "newpassword1")
	require.NoError(t, err)
}

func TestToggleFollowRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestUserService(db, nil)
	ctx := context.Background()

	alice := seedServiceUser(t, db, "alice")
	bob := seedServiceUser(t, db, "bob")

	_, err := svc.ToggleFollow(ctx, alice.ID, alice.ID)
	assertValidationError(t, err)

	following, err := svc.ToggleFollow(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, following)

	followers, _, err := svc.GetFollowCounts(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), followers)

	var notifs []models.Notification
	require.NoError(t, db.Where("recipient_id = ?", bob.ID).Find(&notifs).Error)
	require.Len(t, notifs, 1)
	assert.Equal(t, models.NotificationFollow, notifs[0].Type)
	assert.Equal(t, alice.ID, notifs[0].SenderID)

	following, err = svc.ToggleFollow(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, following)

	followers, _, err = svc.GetFollowCounts(ctx, bob.ID)
	require.NoError(t, err)
	assert.Zero(t, followers)
}

func TestOneTimeCodeLifecycle(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestUserService(db, nil)
	ctx := context.Background()

	code, err := svc.IssueOneTimeCode(ctx, "a@example.com")
	require.NoError(t, err)
	require.Len(t, code, 6)

	require.Error(t, svc.VerifyOneTimeCode(ctx, "a@example.com", "000000"))
	require.NoError(t, svc.VerifyOneTimeCode(ctx, "a@example.com", code))

	// Single use: the same code cannot be consumed twice.
	err = svc.VerifyOneTimeCode(ctx, "a@example.com", code)
	require.Error(t, err)
	assert.True(t, models.IsCode(err, "UNAUTHORIZED"))
}
