package service

import (
	"context"
	"fmt"
	"strings"

	"confide/internal/middleware"
	"confide/internal/models"
	"confide/internal/repository"
)

const (
	maxCaptionLength = 2200
	maxCommentLength = 1000
	defaultFeedLimit = 50
)

// PostService handles posts, likes, comments, saves, and pinning.
type PostService struct {
	posts         repository.PostRepository
	comments      repository.CommentRepository
	notifications repository.NotificationRepository
	checkpoints   Checkpointer
}

// NewPostService creates a new post service.
func NewPostService(posts repository.PostRepository, comments repository.CommentRepository, notifications repository.NotificationRepository, cp Checkpointer) *PostService {
	if cp == nil {
		cp = noopCheckpointer{}
	}
	return &PostService{posts: posts, comments: comments, notifications: notifications, checkpoints: cp}
}

// CreatePost creates a post for the user.
func (s *PostService) CreatePost(ctx context.Context, userID uint, caption, imageURL string) (*models.Post, error) {
	caption = strings.TrimSpace(caption)
	if caption == "" && imageURL == "" {
		return nil, models.NewValidationError("post needs a caption or an image")
	}
	if len(caption) > maxCaptionLength {
		return nil, models.NewValidationError(fmt.Sprintf("caption must be at most %d characters", maxCaptionLength))
	}
	post := &models.Post{UserID: userID, Caption: caption, ImageURL: imageURL}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, models.NewInternalError(err)
	}
	s.checkpoints.Checkpoint(ctx)
	return post, nil
}

// GetPost fetches a post or returns a not-found error.
func (s *PostService) GetPost(ctx context.Context, id uint) (*models.Post, error) {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if post == nil {
		return nil, models.NewNotFoundError("post", id)
	}
	return post, nil
}

// EditCaption replaces a post's caption. Only the author may edit.
func (s *PostService) EditCaption(ctx context.Context, userID, postID uint, caption string) (*models.Post, error) {
	caption = strings.TrimSpace(caption)
	if len(caption) > maxCaptionLength {
		return nil, models.NewValidationError(fmt.Sprintf("caption must be at most %d characters", maxCaptionLength))
	}
	post, err := s.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.UserID != userID {
		return nil, models.NewUnauthorizedError("only the author can edit this post")
	}
	post.Caption = caption
	if err := s.posts.Update(ctx, post); err != nil {
		return nil, models.NewInternalError(err)
	}
	s.checkpoints.Checkpoint(ctx)
	return post, nil
}

// DeletePost removes a post. Only the author may delete.
func (s *PostService) DeletePost(ctx context.Context, userID, postID uint) error {
	post, err := s.GetPost(ctx, postID)
	if err != nil {
		return err
	}
	if post.UserID != userID {
		return models.NewUnauthorizedError("only the author can delete this post")
	}
	if err := s.posts.Delete(ctx, postID); err != nil {
		return models.NewInternalError(err)
	}
	s.checkpoints.Checkpoint(ctx)
	return nil
}

// TogglePin flips a post's pinned flag. Only the author may pin.
func (s *PostService) TogglePin(ctx context.Context, userID, postID uint) (bool, error) {
	post, err := s.GetPost(ctx, postID)
	if err != nil {
		return false, err
	}
	if post.UserID != userID {
		return false, models.NewUnauthorizedError("only the author can pin this post")
	}
	post.Pinned = !post.Pinned
	if err := s.posts.Update(ctx, post); err != nil {
		return false, models.NewInternalError(err)
	}
	s.checkpoints.Checkpoint(ctx)
	return post.Pinned, nil
}

// ToggleLike likes the post if not liked, unlikes otherwise. Returns whether
// the post is liked after the call. Repeating the call restores the prior
// state; the first like notifies the post's author.
func (s *PostService) ToggleLike(ctx context.Context, userID, postID uint) (bool, error) {
	post, err := s.GetPost(ctx, postID)
	if err != nil {
		return false, err
	}

	created, err := s.posts.CreateLike(ctx, &models.Like{UserID: userID, PostID: postID})
	if err != nil {
		return false, models.NewInternalError(err)
	}
	if !created {
		if _, err := s.posts.DeleteLike(ctx, userID, postID); err != nil {
			return false, models.NewInternalError(err)
		}
		s.checkpoints.Checkpoint(ctx)
		return false, nil
	}

	if post.UserID != userID {
		s.notify(ctx, userID, post.UserID, models.NotificationLike, &postID)
	}
	s.checkpoints.Checkpoint(ctx)
	return true, nil
}

// ToggleSavePost bookmarks the post if not saved, unsaves otherwise.
func (s *PostService) ToggleSavePost(ctx context.Context, userID, postID uint) (bool, error) {
	if _, err := s.GetPost(ctx, postID); err != nil {
		return false, err
	}
	created, err := s.posts.CreateSavedPost(ctx, &models.SavedPost{UserID: userID, PostID: postID})
	if err != nil {
		return false, models.NewInternalError(err)
	}
	if !created {
		if _, err := s.posts.DeleteSavedPost(ctx, userID, postID); err != nil {
			return false, models.NewInternalError(err)
		}
		s.checkpoints.Checkpoint(ctx)
		return false, nil
	}
	s.checkpoints.Checkpoint(ctx)
	return true, nil
}

// HasLiked reports whether the user currently likes the post.
func (s *PostService) HasLiked(ctx context.Context, userID, postID uint) (bool, error) {
	liked, err := s.posts.HasLike(ctx, userID, postID)
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return liked, nil
}

// CreateComment adds a comment and notifies the post's author.
func (s *PostService) CreateComment(ctx context.Context, userID, postID uint, content string) (*models.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, models.NewValidationError("comment content is required")
	}
	if len(content) > maxCommentLength {
		return nil, models.NewValidationError(fmt.Sprintf("comment must be at most %d characters", maxCommentLength))
	}
	post, err := s.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}

	comment := &models.Comment{UserID: userID, PostID: postID, Content: content}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, models.NewInternalError(err)
	}
	if post.UserID != userID {
		s.notify(ctx, userID, post.UserID, models.NotificationComment, &postID)
	}
	s.checkpoints.Checkpoint(ctx)
	return comment, nil
}

// DeleteComment removes a comment. The comment's author or the post's author may delete.
func (s *PostService) DeleteComment(ctx context.Context, userID, commentID uint) error {
	comment, err := s.comments.GetByID(ctx, commentID)
	if err != nil {
		return models.NewInternalError(err)
	}
	if comment == nil {
		return models.NewNotFoundError("comment", commentID)
	}
	if comment.UserID != userID {
		post, err := s.GetPost(ctx, comment.PostID)
		if err != nil {
			return err
		}
		if post.UserID != userID {
			return models.NewUnauthorizedError("not allowed to delete this comment")
		}
	}
	if err := s.comments.Delete(ctx, commentID); err != nil {
		return models.NewInternalError(err)
	}
	s.checkpoints.Checkpoint(ctx)
	return nil
}

// GetPostComments lists a post's comments oldest first.
func (s *PostService) GetPostComments(ctx context.Context, postID uint) ([]models.Comment, error) {
	if _, err := s.GetPost(ctx, postID); err != nil {
		return nil, err
	}
	comments, err := s.comments.ListByPost(ctx, postID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return comments, nil
}

// GetUserPosts lists a user's posts, pinned first.
func (s *PostService) GetUserPosts(ctx context.Context, userID uint) ([]models.Post, error) {
	posts, err := s.posts.ListByUser(ctx, userID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

// GetSavedPosts lists the user's bookmarked posts, most recently saved first.
func (s *PostService) GetSavedPosts(ctx context.Context, userID uint) ([]models.Post, error) {
	posts, err := s.posts.ListSavedByUser(ctx, userID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

// GetFeed lists recent posts across all users.
func (s *PostService) GetFeed(ctx context.Context, limit, offset int) ([]models.Post, error) {
	if limit <= 0 || limit > defaultFeedLimit {
		limit = defaultFeedLimit
	}
	if offset < 0 {
		offset = 0
	}
	posts, err := s.posts.ListFeed(ctx, limit, offset)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

// notify records a notification. Failures never fail the triggering operation.
func (s *PostService) notify(ctx context.Context, senderID, recipientID uint, kind string, postID *uint) {
	if s.notifications == nil {
		return
	}
	err := s.notifications.Create(ctx, &models.Notification{
		SenderID:    senderID,
		RecipientID: recipientID,
		Type:        kind,
		PostID:      postID,
	})
	if err != nil {
		middleware.Logger.WarnContext(ctx, "failed to record notification", "type", kind, "recipient_id", recipientID, "error", err)
	}
}
