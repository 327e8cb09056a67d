package service

import (
	"context"
	"strings"
	"testing"

	"confide/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToggleLikeRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestPostService(db, nil)
	ctx := context.Background()

	alice := seedServiceUser(t, db, "alice")
	bob := seedServiceUser(t, db, "bob")
	post, err := svc.CreatePost(ctx, alice.ID, "caption", "")
	require.NoError(t, err)

	liked, err := svc.ToggleLike(ctx, bob.ID, post.ID)
	require.NoError(t, err)
	assert.True(t, liked)

	got, err := svc.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.LikesCount)

	// A second toggle restores the original state exactly.
	liked, err = svc.ToggleLike(ctx, bob.ID, post.ID)
	require.NoError(t, err)
	assert.False(t, liked)

	got, err = svc.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Zero(t, got.LikesCount)
}

func TestToggleLikeNotifiesAuthorOnce(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestPostService(db, nil)
	ctx := context.Background()

	alice := seedServiceUser(t, db, "alice")
	bob := seedServiceUser(t, db, "bob")
	post, err := svc.CreatePost(ctx, alice.ID, "caption", "")
	require.NoError(t, err)

	_, err = svc.ToggleLike(ctx, bob.ID, post.ID)
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&models.Notification{}).
		Where("recipient_id = ? AND type = ?", alice.ID, models.NotificationLike).
		Count(&count).Error)
	assert.Equal(t, int64(1), count)

	// Liking your own post stays silent.
	_, err = svc.ToggleLike(ctx, alice.ID, post.ID)
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.Notification{}).
		Where("recipient_id = ?", alice.ID).
		Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestToggleSavePost(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestPostService(db, nil)
	ctx := context.Background()

	alice := seedServiceUser(t, db, "alice")
	bob := seedServiceUser(t, db, "bob")
	post, err := svc.CreatePost(ctx, alice.ID, "keep this", "")
	require.NoError(t, err)

	saved, err := svc.ToggleSavePost(ctx, bob.ID, post.ID)
	require.NoError(t, err)
	assert.True(t, saved)

	list, err := svc.GetSavedPosts(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, post.ID, list[0].ID)

	saved, err = svc.ToggleSavePost(ctx, bob.ID, post.ID)
	require.NoError(t, err)
	assert.False(t, saved)

	list, err = svc.GetSavedPosts(ctx, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCreateCommentValidationAndNotification(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestPostService(db, nil)
	ctx := context.Background()

	alice := seedServiceUser(t, db, "alice")
	bob := seedServiceUser(t, db, "bob")
	post, err := svc.CreatePost(ctx, alice.ID, "caption", "")
	require.NoError(t, err)

	_, err = svc.CreateComment(ctx, bob.ID, post.ID, "  ")
	assertValidationError(t, err)

	_, err = svc.CreateComment(ctx, bob.ID, post.ID, strings.Repeat("x", maxCommentLength+1))
	assertValidationError(t, err)

	comment, err := svc.CreateComment(ctx, bob.ID, post.ID, "nice shot")
	require.NoError(t, err)
	require.NotZero(t, comment.ID)

	got, err := svc.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.CommentsCount)

	var count int64
	require.NoError(t, db.Model(&models.Notification{}).
		Where("recipient_id = ? AND type = ?", alice.ID, models.NotificationComment).
		Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestDeleteCommentPermissions(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestPostService(db, nil)
	ctx := context.Background()

	alice := seedServiceUser(t, db, "alice")
	bob := seedServiceUser(t, db, "bob")
	carol := seedServiceUser(t, db, "carol")
	post, err := svc.CreatePost(ctx, alice.ID, "caption", "")
	require.NoError(t, err)

	comment, err := svc.CreateComment(ctx, bob.ID, post.ID, "drive-by")
	require.NoError(t, err)

	// A third party may not delete.
	err = svc.DeleteComment(ctx, carol.ID, comment.ID)
	require.Error(t, err)
	assert.True(t, models.IsCode(err, "UNAUTHORIZED"))

	// The post's author may moderate comments on their post.
	require.NoError(t, svc.DeleteComment(ctx, alice.ID, comment.ID))

	got, err := svc.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Zero(t, got.CommentsCount)
}

func TestTogglePinOrdersUserPosts(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestPostService(db, nil)
	ctx := context.Background()

	alice := seedServiceUser(t, db, "alice")
	first, err := svc.CreatePost(ctx, alice.ID, "first", "")
	require.NoError(t, err)
	_, err = svc.CreatePost(ctx, alice.ID, "second", "")
	require.NoError(t, err)

	bob := seedServiceUser(t, db, "bob")
	_, err = svc.TogglePin(ctx, bob.ID, first.ID)
	require.Error(t, err)
	assert.True(t, models.IsCode(err, "UNAUTHORIZED"))

	pinned, err := svc.TogglePin(ctx, alice.ID, first.ID)
	require.NoError(t, err)
	assert.True(t, pinned)

	posts, err := svc.GetUserPosts(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "first", posts[0].Caption)
}

func TestCreatePostValidation(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestPostService(db, nil)
	ctx := context.Background()

	alice := seedServiceUser(t, db, "alice")

	_, err := svc.CreatePost(ctx, alice.ID, "", "")
	assertValidationError(t, err)

	_, err = svc.CreatePost(ctx, alice.ID, strings.Repeat("x", maxCaptionLength+1), "")
	assertValidationError(t, err)

	// Image-only posts are allowed.
	post, err := svc.CreatePost(ctx, alice.ID, "", "https://example.com/a.jpg")
	require.NoError(t, err)
	assert.NotZero(t, post.ID)
}
