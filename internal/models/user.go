// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Account is the identity-provider record behind a User. Credentials live here,
// profile data lives on User.
type Account struct {
	ID           string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email"`
	Name         string    `gorm:"not null" json:"name"`
	PasswordHash string    `gorm:"not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// BeforeCreate assigns a random ID when the caller did not supply one.
func (a *Account) BeforeCreate(_ *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// Session is an issued login session. The token is a signed JWT whose jti is the session ID.
type Session struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	AccountID string    `gorm:"not null;index" json:"account_id"`
	Token     string    `gorm:"-" json:"token,omitempty"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// User is the profile document paired with an Account.
type User struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	AccountID string    `gorm:"uniqueIndex;not null" json:"account_id"`
	Email     string    `gorm:"not null" json:"email"`
	Name      string    `gorm:"not null" json:"name"`
	Username  string    `gorm:"uniqueIndex;not null" json:"username"`
	ImageURL  string    `json:"image_url"`
	ImageID   string    `json:"image_id"`
	Bio       string    `gorm:"type:text" json:"bio"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate assigns a random ID when the caller did not supply one.
func (u *User) BeforeCreate(_ *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// DocumentID implements Document.
func (u User) DocumentID() string { return u.ID }
