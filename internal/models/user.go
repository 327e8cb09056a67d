// Package models contains data structures for the application's domain models.
package models

import "time"

// User represents an account in the Confide application.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"uniqueIndex;not null" json:"username"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"`
	FullName     string    `json:"full_name"`
	Bio          string    `json:"bio"`
	Avatar       string    `json:"avatar"`
	// Completion flags set once the corresponding onboarding step is done.
	ProfileSetup  bool      `json:"profile_setup"`
	PasswordSetup bool      `json:"password_setup"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// OneTimeCode is an email-scoped, time-boxed, single-use verification code.
type OneTimeCode struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Email     string    `gorm:"not null;index" json:"email"`
	Code      string    `gorm:"not null" json:"-"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	Used      bool      `json:"used"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for OneTimeCode.
func (OneTimeCode) TableName() string {
	return "otp_codes"
}
