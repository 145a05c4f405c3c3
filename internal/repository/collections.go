package repository

import (
	"snapgram/internal/cache"
	"snapgram/internal/models"

	"gorm.io/gorm"
)

// Attribute names shared by the collections.
const (
	AttrID        = "$id"
	AttrCreatedAt = "$createdAt"
	AttrUpdatedAt = "$updatedAt"
)

// UserRepository stores user profile documents.
type UserRepository = Store[models.User]

// PostRepository stores posts. Reads preload the creator profile.
type PostRepository = Store[models.Post]

// SaveRepository stores saved-post records. Reads preload the saved post.
type SaveRepository = Store[models.Save]

// FollowRepository stores follow records.
type FollowRepository = Store[models.Follow]

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB, c *cache.Cache) UserRepository {
	return newCollection[models.User](db, c, collectionSpec{
		resource: "User",
		table:    "users",
		columns: map[string]string{
			AttrID:        "id",
			AttrCreatedAt: "created_at",
			AttrUpdatedAt: "updated_at",
			"accountId":   "account_id",
			"email":       "email",
			"name":        "name",
			"username":    "username",
			"imageUrl":    "image_url",
			"imageId":     "image_id",
			"bio":         "bio",
		},
		readOnly: map[string]bool{AttrID: true, AttrCreatedAt: true, AttrUpdatedAt: true, "accountId": true},
		cacheKey: cache.UserKey,
		cacheTTL: cache.UserTTL,
	})
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB, c *cache.Cache) PostRepository {
	return newCollection[models.Post](db, c, collectionSpec{
		resource: "Post",
		table:    "posts",
		columns: map[string]string{
			AttrID:        "id",
			AttrCreatedAt: "created_at",
			AttrUpdatedAt: "updated_at",
			"creator":     "creator_id",
			"caption":     "caption",
			"imageUrl":    "image_url",
			"imageId":     "image_id",
			"location":    "location",
			"tags":        "tags",
			"likes":       "likes",
		},
		readOnly: map[string]bool{AttrID: true, AttrCreatedAt: true, AttrUpdatedAt: true, "creator": true},
		preload:  []string{"Creator"},
		cacheKey: cache.PostKey,
		cacheTTL: cache.PostTTL,
	})
}

// NewSaveRepository creates a new save repository
func NewSaveRepository(db *gorm.DB) SaveRepository {
	return newCollection[models.Save](db, nil, collectionSpec{
		resource: "Save",
		table:    "saves",
		columns: map[string]string{
			AttrID:        "id",
			AttrCreatedAt: "created_at",
			"user":        "user_id",
			"post":        "post_id",
		},
		readOnly: map[string]bool{AttrID: true, AttrCreatedAt: true},
		preload:  []string{"Post", "Post.Creator"},
	})
}

// NewFollowRepository creates a new follow repository
func NewFollowRepository(db *gorm.DB) FollowRepository {
	return newCollection[models.Follow](db, nil, collectionSpec{
		resource: "Follow",
		table:    "follows",
		columns: map[string]string{
			AttrID:        "id",
			AttrCreatedAt: "created_at",
			"follower":    "follower_id",
			"followed":    "followed_id",
		},
		readOnly: map[string]bool{AttrID: true, AttrCreatedAt: true},
	})
}
