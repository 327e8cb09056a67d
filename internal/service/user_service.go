package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"confide/internal/middleware"
	"confide/internal/models"
	"confide/internal/repository"

	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLength = 8
	maxUsernameLength = 30
	maxBioLength      = 500
	otpTTL            = 10 * time.Minute
)

// UserService handles account, profile, follow, and one-time-code operations.
type UserService struct {
	users         repository.UserRepository
	follows       repository.FollowRepository
	notifications repository.NotificationRepository
	checkpoints   Checkpointer
}

// NewUserService creates a new user service. A nil checkpointer disables
// persistence, which is what most tests want.
func NewUserService(users repository.UserRepository, follows repository.FollowRepository, notifications repository.NotificationRepository, cp Checkpointer) *UserService {
	if cp == nil {
		cp = noopCheckpointer{}
	}
	return &UserService{users: users, follows: follows, notifications: notifications, checkpoints: cp}
}

// CreateUser registers a new account with a bcrypt-hashed password.
func (s *UserService) CreateUser(ctx context.Context, username, email, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(strings.ToLower(email))
	if username == "" {
		return nil, models.NewValidationError("username is required")
	}
	if len(username) > maxUsernameLength {
		return nil, models.NewValidationError(fmt.Sprintf("username must be at most %d characters", maxUsernameLength))
	}
	if email == "" || !strings.Contains(email, "@") {
		return nil, models.NewValidationError("a valid email is required")
	}
	if len(password) < minPasswordLength {
		return nil, models.NewValidationError(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	if existing, err := s.users.GetByUsername(ctx, username); err != nil {
		return nil, models.NewInternalError(err)
	} else if existing != nil {
		return nil, models.NewConflictError("username is already taken")
	}
	if existing, err := s.users.GetByEmail(ctx, email); err != nil {
		return nil, models.NewInternalError(err)
	} else if existing != nil {
		return nil, models.NewConflictError("email is already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		Username:      username,
		Email:         email,
		PasswordHash:  string(hash),
		PasswordSetup: true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, models.NewInternalError(err)
	}
	s.checkpoints.Checkpoint(ctx)
	return user, nil
}

// Authenticate verifies credentials and returns the matching user.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if user == nil {
		return nil, models.NewUnauthorizedError("invalid email or password")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, models.NewUnauthorizedError("invalid email or password")
	}
	return user, nil
}

// GetUserByID fetches a user or returns a not-found error.
func (s *UserService) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if user == nil {
		return nil, models.NewNotFoundError("user", id)
	}
	return user, nil
}

// GetUserByUsername fetches a user by username or returns a not-found error.
func (s *UserService) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if user == nil {
		return nil, models.NewNotFoundError("user", username)
	}
	return user, nil
}

// GetUserByEmail fetches a user by email or returns a not-found error.
func (s *UserService) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if user == nil {
		return nil, models.NewNotFoundError("user", email)
	}
	return user, nil
}

// UpdateProfile applies profile fields and marks profile setup complete.
func (s *UserService) UpdateProfile(ctx context.Context, userID uint, fullName, bio, avatar string) (*models.User, error) {
	if len(bio) > maxBioLength {
		return nil, models.NewValidationError(fmt.Sprintf("bio must be at most %d characters", maxBioLength))
	}
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.FullName = strings.TrimSpace(fullName)
	user.Bio = strings.TrimSpace(bio)
	if avatar != "" {
		user.Avatar = avatar
	}
	user.ProfileSetup = true
	if err := s.users.Update(ctx, user); err != nil {
		return nil, models.NewInternalError(err)
	}
	s.checkpoints.Checkpoint(ctx)
	return user, nil
}

// UpdatePassword replaces the user's password after verifying the current one.
func (s *UserService) UpdatePassword(ctx context.Context, userID uint, current, next string) error {
	if len(next) < minPasswordLength {
		return models.NewValidationError(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)) != nil {
		return models.NewUnauthorizedError("current password is incorrect")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return models.NewInternalError(err)
	}
	user.PasswordHash = string(hash)
	user.PasswordSetup = true
	if err := s.users.Update(ctx, user); err != nil {
		return models.NewInternalError(err)
	}
	s.checkpoints.Checkpoint(ctx)
	return nil
}

// ToggleFollow follows the target if not followed, unfollows otherwise.
// Returns whether the caller now follows the target.
func (s *UserService) ToggleFollow(ctx context.Context, followerID, followingID uint) (bool, error) {
	if followerID == followingID {
		return false, models.NewValidationError("cannot follow yourself")
	}
	if _, err := s.GetUserByID(ctx, followingID); err != nil {
		return false, err
	}

	created, err := s.follows.Create(ctx, &models.Follow{FollowerID: followerID, FollowingID: followingID})
	if err != nil {
		return false, models.NewInternalError(err)
	}
	if !created {
		if _, err := s.follows.Delete(ctx, followerID, followingID); err != nil {
			return false, models.NewInternalError(err)
		}
		s.checkpoints.Checkpoint(ctx)
		return false, nil
	}
	if s.notifications != nil {
		err := s.notifications.Create(ctx, &models.Notification{
			SenderID:    followerID,
			RecipientID: followingID,
			Type:        models.NotificationFollow,
		})
		if err != nil {
			middleware.Logger.WarnContext(ctx, "failed to record notification", "type", models.NotificationFollow, "recipient_id", followingID, "error", err)
		}
	}
	s.checkpoints.Checkpoint(ctx)
	return true, nil
}

// IsFollowing reports whether follower follows following.
func (s *UserService) IsFollowing(ctx context.Context, followerID, followingID uint) (bool, error) {
	ok, err := s.follows.Exists(ctx, followerID, followingID)
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return ok, nil
}

// GetFollowers lists users following the given user.
func (s *UserService) GetFollowers(ctx context.Context, userID uint) ([]models.User, error) {
	users, err := s.follows.ListFollowers(ctx, userID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

// GetFollowing lists users the given user follows.
func (s *UserService) GetFollowing(ctx context.Context, userID uint) ([]models.User, error) {
	users, err := s.follows.ListFollowing(ctx, userID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

// GetFollowCounts returns follower and following totals for a user.
func (s *UserService) GetFollowCounts(ctx context.Context, userID uint) (followers, following int64, err error) {
	followers, following, err = s.follows.Counts(ctx, userID)
	if err != nil {
		return 0, 0, models.NewInternalError(err)
	}
	return followers, following, nil
}

// IssueOneTimeCode creates a fresh six-digit code for the email, valid for
// ten minutes. The code is returned to the caller for delivery.
func (s *UserService) IssueOneTimeCode(ctx context.Context, email string) (string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || !strings.Contains(email, "@") {
		return "", models.NewValidationError("a valid email is required")
	}
	code, err := generateNumericCode(6)
	if err != nil {
		return "", models.NewInternalError(err)
	}
	otp := &models.OneTimeCode{
		Email:     email,
		Code:      code,
		ExpiresAt: time.Now().Add(otpTTL),
	}
	if err := s.users.CreateOneTimeCode(ctx, otp); err != nil {
		return "", models.NewInternalError(err)
	}
	s.checkpoints.Checkpoint(ctx)
	middleware.Logger.InfoContext(ctx, "one-time code issued", "email", email, "expires_at", otp.ExpiresAt)
	return code, nil
}

// VerifyOneTimeCode consumes a matching, unexpired, unused code.
func (s *UserService) VerifyOneTimeCode(ctx context.Context, email, code string) error {
	email = strings.TrimSpace(strings.ToLower(email))
	otp, err := s.users.GetActiveOneTimeCode(ctx, email, code, time.Now())
	if err != nil {
		return models.NewInternalError(err)
	}
	if otp == nil {
		return models.NewUnauthorizedError("invalid or expired code")
	}
	if err := s.users.MarkOneTimeCodeUsed(ctx, otp.ID); err != nil {
		return models.NewInternalError(err)
	}
	s.checkpoints.Checkpoint(ctx)
	return nil
}

func generateNumericCode(digits int) (string, error) {
	max := big.NewInt(1)
	for i := 0; i < digits; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", digits, n), nil
}
