package repository

import (
	"context"
	"errors"

	"confide/internal/models"
	"confide/internal/store"

	"gorm.io/gorm"
)

// PostRepository defines the interface for post, like, and saved-post data operations.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	Update(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, id uint) error
	ListByUser(ctx context.Context, userID uint) ([]models.Post, error)
	ListFeed(ctx context.Context, limit, offset int) ([]models.Post, error)

	CreateLike(ctx context.Context, like *models.Like) (created bool, err error)
	DeleteLike(ctx context.Context, userID, postID uint) (deleted bool, err error)
	HasLike(ctx context.Context, userID, postID uint) (bool, error)

	CreateSavedPost(ctx context.Context, saved *models.SavedPost) (created bool, err error)
	DeleteSavedPost(ctx context.Context, userID, postID uint) (deleted bool, err error)
	ListSavedByUser(ctx context.Context, userID uint) ([]models.Post, error)
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository.
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	return r.db.WithContext(ctx).Create(post).Error
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	err := r.db.WithContext(ctx).First(&post, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	return r.db.WithContext(ctx).Save(post).Error
}

func (r *postRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Post{}, id).Error
}

// ListByUser returns a user's posts, pinned first, newest first within each group.
func (r *postRepository) ListByUser(ctx context.Context, userID uint) ([]models.Post, error) {
	var posts []models.Post
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("pinned DESC, created_at DESC, id DESC").
		Find(&posts).Error
	return posts, err
}

func (r *postRepository) ListFeed(ctx context.Context, limit, offset int) ([]models.Post, error) {
	var posts []models.Post
	err := r.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Limit(limit).Offset(offset).
		Find(&posts).Error
	return posts, err
}

// CreateLike inserts a like row. A duplicate (user, post) pair is reported as
// created=false rather than an error so toggles stay idempotent under races.
func (r *postRepository) CreateLike(ctx context.Context, like *models.Like) (bool, error) {
	err := r.db.WithContext(ctx).Create(like).Error
	if store.IsUniqueViolation(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *postRepository) DeleteLike(ctx context.Context, userID, postID uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Delete(&models.Like{})
	return res.RowsAffected > 0, res.Error
}

func (r *postRepository) HasLike(ctx context.Context, userID, postID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Like{}).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Count(&count).Error
	return count > 0, err
}

func (r *postRepository) CreateSavedPost(ctx context.Context, saved *models.SavedPost) (bool, error) {
	err := r.db.WithContext(ctx).Create(saved).Error
	if store.IsUniqueViolation(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *postRepository) DeleteSavedPost(ctx context.Context, userID, postID uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Delete(&models.SavedPost{})
	return res.RowsAffected > 0, res.Error
}

func (r *postRepository) ListSavedByUser(ctx context.Context, userID uint) ([]models.Post, error) {
	var posts []models.Post
	err := r.db.WithContext(ctx).
		Joins("JOIN saved_posts ON saved_posts.post_id = posts.id").
		Where("saved_posts.user_id = ?", userID).
		Order("saved_posts.created_at DESC").
		Find(&posts).Error
	return posts, err
}
