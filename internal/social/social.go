// Package social holds the follow, save and like toggles shown next to posts
// and profiles. Each toggle keeps the membership it last observed, picks
// create or delete from it, and only changes that state after the platform
// call succeeds.
//
// Two toggles for the same pair that run concurrently both start from the
// same local state. For saves and follows the document store's unique index
// turns the second create into a CONFLICT; likes are last-writer-wins.
package social

import (
	"context"
	"sync"

	"snapgram/internal/models"
	"snapgram/internal/observability"
	"snapgram/internal/query"
)

// SaveActions is the part of the gateway a SaveToggle needs.
type SaveActions interface {
	SavePost(ctx context.Context, userID, postID string) (*models.Save, error)
	DeleteSavedPost(ctx context.Context, saveID string) error
}

// FollowActions is the part of the gateway a FollowToggle needs.
type FollowActions interface {
	FollowUser(ctx context.Context, userID, followedID string) (*models.Follow, error)
	DeleteFollowUser(ctx context.Context, followID string) error
}

// LikeActions is the part of the gateway a LikeToggle needs.
type LikeActions interface {
	LikePost(ctx context.Context, postID string, likes []string) (*models.Post, error)
}

var log = observability.NewOperationLogger("social")

// SaveRecordFor returns the id of the save for postID, or "".
func SaveRecordFor(saves []models.Save, postID string) string {
	for _, s := range saves {
		if s.PostID == postID {
			return s.ID
		}
	}
	return ""
}

// FollowRecordFor returns the id of the follow of followedID, or "".
func FollowRecordFor(follows []models.Follow, followedID string) string {
	for _, f := range follows {
		if f.FollowedID == followedID {
			return f.ID
		}
	}
	return ""
}

func invalidate(c *query.Client, entities ...string) {
	if c != nil {
		c.Invalidate(entities...)
	}
}

// SaveToggle bookmarks or un-bookmarks one post for one user.
type SaveToggle struct {
	api    SaveActions
	client *query.Client
	userID string
	postID string

	mu       sync.Mutex
	recordID string
}

// NewSaveToggle starts from recordID, the existing save id or "".
func NewSaveToggle(api SaveActions, client *query.Client, userID, postID, recordID string) *SaveToggle {
	return &SaveToggle{api: api, client: client, userID: userID, postID: postID, recordID: recordID}
}

// Saved reports the local state.
func (t *SaveToggle) Saved() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.recordID != ""
}

// RecordID returns the save id, or "".
func (t *SaveToggle) RecordID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.recordID
}

// Toggle flips the save and returns the new state.
func (t *SaveToggle) Toggle(ctx context.Context) (bool, error) {
	t.mu.Lock()
	recordID := t.recordID
	t.mu.Unlock()

	fields := map[string]interface{}{"user_id": t.userID, "post_id": t.postID}
	if recordID != "" {
		if err := t.api.DeleteSavedPost(ctx, recordID); err != nil {
			log.LogError(ctx, "unsave_post", models.CodeOf(err), err, fields)
			return true, err
		}
		t.mu.Lock()
		t.recordID = ""
		t.mu.Unlock()
		invalidate(t.client, "posts", "saves", "users")
		return false, nil
	}

	save, err := t.api.SavePost(ctx, t.userID, t.postID)
	if err != nil {
		log.LogError(ctx, "save_post", models.CodeOf(err), err, fields)
		return false, err
	}
	t.mu.Lock()
	t.recordID = save.ID
	t.mu.Unlock()
	invalidate(t.client, "posts", "saves", "users")
	return true, nil
}

// FollowToggle follows or unfollows one user.
type FollowToggle struct {
	api        FollowActions
	client     *query.Client
	userID     string
	followedID string

	mu       sync.Mutex
	recordID string
}

// NewFollowToggle starts from recordID, the existing follow id or "".
func NewFollowToggle(api FollowActions, client *query.Client, userID, followedID, recordID string) *FollowToggle {
	return &FollowToggle{api: api, client: client, userID: userID, followedID: followedID, recordID: recordID}
}

func (t *FollowToggle) Following() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.recordID != ""
}

// Toggle flips the follow and returns the new state.
func (t *FollowToggle) Toggle(ctx context.Context) (bool, error) {
	t.mu.Lock()
	recordID := t.recordID
	t.mu.Unlock()

	fields := map[string]interface{}{"user_id": t.userID, "followed_id": t.followedID}
	if recordID != "" {
		if err := t.api.DeleteFollowUser(ctx, recordID); err != nil {
			log.LogError(ctx, "unfollow_user", models.CodeOf(err), err, fields)
			return true, err
		}
		t.mu.Lock()
		t.recordID = ""
		t.mu.Unlock()
		invalidate(t.client, "follows", "users")
		return false, nil
	}

	follow, err := t.api.FollowUser(ctx, t.userID, t.followedID)
	if err != nil {
		log.LogError(ctx, "follow_user", models.CodeOf(err), err, fields)
		return false, err
	}
	t.mu.Lock()
	t.recordID = follow.ID
	t.mu.Unlock()
	invalidate(t.client, "follows", "users")
	return true, nil
}

// LikeToggle adds or removes one user from a post's like list.
type LikeToggle struct {
	api    LikeActions
	client *query.Client
	userID string
	postID string

	mu    sync.Mutex
	likes []string
}

// NewLikeToggle starts from the post's current like list.
func NewLikeToggle(api LikeActions, client *query.Client, userID, postID string, likes []string) *LikeToggle {
	return &LikeToggle{api: api, client: client, userID: userID, postID: postID, likes: append([]string(nil), likes...)}
}

func (t *LikeToggle) Liked() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return models.StringList(t.likes).Contains(t.userID)
}

func (t *LikeToggle) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.likes)
}

// Toggle sends the full like list with the user added or removed and adopts
// the list the platform returns.
func (t *LikeToggle) Toggle(ctx context.Context) (bool, error) {
	t.mu.Lock()
	next := make([]string, 0, len(t.likes)+1)
	liked := false
	for _, id := range t.likes {
		if id == t.userID {
			liked = true
			continue
		}
		next = append(next, id)
	}
	if !liked {
		next = append(next, t.userID)
	}
	t.mu.Unlock()

	post, err := t.api.LikePost(ctx, t.postID, next)
	if err != nil {
		log.LogError(ctx, "like_post", models.CodeOf(err), err, map[string]interface{}{"user_id": t.userID, "post_id": t.postID})
		return liked, err
	}
	t.mu.Lock()
	t.likes = append([]string(nil), post.Likes...)
	t.mu.Unlock()
	invalidate(t.client, "posts", "users")
	return !liked, nil
}
