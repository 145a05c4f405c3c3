package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Save bookmarks a post for a user. One live record per (user, post).
type Save struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID    string    `gorm:"not null;uniqueIndex:idx_save_user_post" json:"user_id"`
	PostID    string    `gorm:"not null;uniqueIndex:idx_save_user_post;index" json:"post_id"`
	Post      *Post     `gorm:"foreignKey:PostID" json:"post,omitempty"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// BeforeCreate assigns a random ID when the caller did not supply one.
func (s *Save) BeforeCreate(_ *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// DocumentID implements Document.
func (s Save) DocumentID() string { return s.ID }

// Follow links a follower to the user they follow. One live record per pair.
type Follow struct {
	ID         string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	FollowerID string    `gorm:"not null;uniqueIndex:idx_follow_pair" json:"follower_id"`
	FollowedID string    `gorm:"not null;uniqueIndex:idx_follow_pair;index" json:"followed_id"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}

// BeforeCreate assigns a random ID when the caller did not supply one.
func (f *Follow) BeforeCreate(_ *gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	return nil
}

// DocumentID implements Document.
func (f Follow) DocumentID() string { return f.ID }
