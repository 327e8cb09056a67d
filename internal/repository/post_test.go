package repository

import (
	"context"
	"testing"

	"confide/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostRepositoryLikes(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	post := seedPost(t, db, alice.ID, "first")

	t.Run("CreateLikeReportsDuplicates", func(t *testing.T) {
		created, err := repo.CreateLike(ctx, &models.Like{UserID: bob.ID, PostID: post.ID})
		require.NoError(t, err)
		assert.True(t, created)

		// Same pair again is not an error, just not created.
		created, err = repo.CreateLike(ctx, &models.Like{UserID: bob.ID, PostID: post.ID})
		require.NoError(t, err)
		assert.False(t, created)
	})

	t.Run("DeleteLikeReportsPresence", func(t *testing.T) {
		deleted, err := repo.DeleteLike(ctx, bob.ID, post.ID)
		require.NoError(t, err)
		assert.True(t, deleted)

		deleted, err = repo.DeleteLike(ctx, bob.ID, post.ID)
		require.NoError(t, err)
		assert.False(t, deleted)
	})
}

func TestPostRepositoryListByUserPinnedFirst(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	alice := seedUser(t, db, "alice")
	seedPost(t, db, alice.ID, "oldest")
	pinned := seedPost(t, db, alice.ID, "pinned")
	seedPost(t, db, alice.ID, "newest")

	require.NoError(t, db.Model(&models.Post{}).Where("id = ?", pinned.ID).Update("pinned", true).Error)

	posts, err := repo.ListByUser(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, posts, 3)
	assert.Equal(t, "pinned", posts[0].Caption)
	assert.Equal(t, "newest", posts[1].Caption)
	assert.Equal(t, "oldest", posts[2].Caption)
}

func TestPostRepositorySavedPosts(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	p1 := seedPost(t, db, alice.ID, "one")
	p2 := seedPost(t, db, alice.ID, "two")

	for _, p := range []*models.Post{p1, p2} {
		created, err := repo.CreateSavedPost(ctx, &models.SavedPost{UserID: bob.ID, PostID: p.ID})
		require.NoError(t, err)
		require.True(t, created)
	}

	saved, err := repo.ListSavedByUser(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, saved, 2)

	deleted, err := repo.DeleteSavedPost(ctx, bob.ID, p1.ID)
	require.NoError(t, err)
	require.True(t, deleted)

	saved, err = repo.ListSavedByUser(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, p2.ID, saved[0].ID)
}

func TestFollowRepositoryToggleAndCounts(t *testing.T) {
	db := setupTestDB(t)
	repo := NewFollowRepository(db)
	ctx := context.Background()

	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	carol := seedUser(t, db, "carol")

	created, err := repo.Create(ctx, &models.Follow{FollowerID: alice.ID, FollowingID: bob.ID})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.Create(ctx, &models.Follow{FollowerID: alice.ID, FollowingID: bob.ID})
	require.NoError(t, err)
	assert.False(t, created)

	_, err = repo.Create(ctx, &models.Follow{FollowerID: carol.ID, FollowingID: bob.ID})
	require.NoError(t, err)

	followers, following, err := repo.Counts(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), followers)
	assert.Zero(t, following)

	list, err := repo.ListFollowers(ctx, bob.ID)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	deleted, err := repo.Delete(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	exists, err := repo.Exists(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, exists)
}
