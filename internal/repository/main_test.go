package repository

import (
	"testing"

	"confide/internal/config"
	"confide/internal/models"
	"confide/internal/store"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// setupTestDB opens a fresh embedded store with the full schema, triggers
// included, so repository tests exercise the same constraints production sees.
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

func seedUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	user := &models.User{Username: username, Email: username + "@example.com", PasswordHash: "x"}
	require.NoError(t, db.Create(user).Error)
	return user
}

func seedPost(t *testing.T, db *gorm.DB, userID uint, caption string) *models.Post {
	t.Helper()
	post := &models.Post{UserID: userID, Caption: caption}
	require.NoError(t, db.Create(post).Error)
	return post
}
