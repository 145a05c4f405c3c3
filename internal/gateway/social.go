package gateway

import (
	"context"

	"snapgram/internal/events"
	"snapgram/internal/models"
	"snapgram/internal/repository"
)

// SavePost bookmarks a post for a user.
func (g *Gateway) SavePost(ctx context.Context, userID, postID string) (*models.Save, error) {
	return call(ctx, g, "save_post", map[string]interface{}{"user_id": userID, "post_id": postID}, func(ctx context.Context) (*models.Save, error) {
		if err := required(map[string]string{"userId": userID, "postId": postID}); err != nil {
			return nil, err
		}
		save := &models.Save{UserID: userID, PostID: postID}
		if err := g.p.Saves.Create(ctx, save); err != nil {
			return nil, err
		}
		g.publish(ctx, events.SaveCreated, "saves", save.ID, userID)
		return save, nil
	})
}

// DeleteSavedPost removes a bookmark by its record id.
func (g *Gateway) DeleteSavedPost(ctx context.Context, saveID string) error {
	return exec(ctx, g, "delete_saved_post", map[string]interface{}{"save_id": saveID}, func(ctx context.Context) error {
		if err := required(map[string]string{"saveId": saveID}); err != nil {
			return err
		}
		if err := g.p.Saves.Delete(ctx, saveID); err != nil {
			return err
		}
		g.publish(ctx, events.SaveDeleted, "saves", saveID, "")
		return nil
	})
}

// GetSavedPosts lists a user's bookmarks with their posts, newest first.
func (g *Gateway) GetSavedPosts(ctx context.Context, userID string) (*models.DocumentList[models.Save], error) {
	return call(ctx, g, "get_saved_posts", map[string]interface{}{"user_id": userID}, func(ctx context.Context) (*models.DocumentList[models.Save], error) {
		if err := required(map[string]string{"userId": userID}); err != nil {
			return nil, err
		}
		return g.p.Saves.List(ctx, repository.Equal("user", userID), repository.OrderDesc(repository.AttrCreatedAt))
	})
}

// FindSaveRecord lists the save of postID by userID, if any.
func (g *Gateway) FindSaveRecord(ctx context.Context, userID, postID string) (*models.DocumentList[models.Save], error) {
	return call(ctx, g, "find_save_record", map[string]interface{}{"user_id": userID, "post_id": postID}, func(ctx context.Context) (*models.DocumentList[models.Save], error) {
		if err := required(map[string]string{"userId": userID, "postId": postID}); err != nil {
			return nil, err
		}
		return g.p.Saves.List(ctx, repository.Equal("user", userID), repository.Equal("post", postID), repository.Limit(1))
	})
}

// GetSaveByID loads one save record.
func (g *Gateway) GetSaveByID(ctx context.Context, saveID string) (*models.Save, error) {
	return call(ctx, g, "get_save", map[string]interface{}{"save_id": saveID}, func(ctx context.Context) (*models.Save, error) {
		if err := required(map[string]string{"saveId": saveID}); err != nil {
			return nil, err
		}
		return g.p.Saves.Get(ctx, saveID)
	})
}

// FollowUser records that userID follows followedID.
func (g *Gateway) FollowUser(ctx context.Context, userID, followedID string) (*models.Follow, error) {
	return call(ctx, g, "follow_user", map[string]interface{}{"user_id": userID, "followed_id": followedID}, func(ctx context.Context) (*models.Follow, error) {
		if err := required(map[string]string{"userId": userID, "followedId": followedID}); err != nil {
			return nil, err
		}
		if userID == followedID {
			return nil, models.NewValidationError("users cannot follow themselves")
		}
		follow := &models.Follow{FollowerID: userID, FollowedID: followedID}
		if err := g.p.Follows.Create(ctx, follow); err != nil {
			return nil, err
		}
		g.publish(ctx, events.FollowCreated, "follows", follow.ID, userID)
		return follow, nil
	})
}

// DeleteFollowUser removes a follow by its record id.
func (g *Gateway) DeleteFollowUser(ctx context.Context, followID string) error {
	return exec(ctx, g, "delete_follow_user", map[string]interface{}{"follow_id": followID}, func(ctx context.Context) error {
		if err := required(map[string]string{"followId": followID}); err != nil {
			return err
		}
		if err := g.p.Follows.Delete(ctx, followID); err != nil {
			return err
		}
		g.publish(ctx, events.FollowDeleted, "follows", followID, "")
		return nil
	})
}

// GetFollows lists the follow records where userID is the follower.
func (g *Gateway) GetFollows(ctx context.Context, userID string) (*models.DocumentList[models.Follow], error) {
	return call(ctx, g, "get_follows", map[string]interface{}{"user_id": userID}, func(ctx context.Context) (*models.DocumentList[models.Follow], error) {
		if err := required(map[string]string{"userId": userID}); err != nil {
			return nil, err
		}
		return g.p.Follows.List(ctx, repository.Equal("follower", userID), repository.OrderDesc(repository.AttrCreatedAt))
	})
}

// FindFollowRecord lists the follow of followedID by userID, if any.
func (g *Gateway) FindFollowRecord(ctx context.Context, userID, followedID string) (*models.DocumentList[models.Follow], error) {
	return call(ctx, g, "find_follow_record", map[string]interface{}{"user_id": userID, "followed_id": followedID}, func(ctx context.Context) (*models.DocumentList[models.Follow], error) {
		if err := required(map[string]string{"userId": userID, "followedId": followedID}); err != nil {
			return nil, err
		}
		return g.p.Follows.List(ctx, repository.Equal("follower", userID), repository.Equal("followed", followedID), repository.Limit(1))
	})
}

// GetFollowByID loads one follow record.
func (g *Gateway) GetFollowByID(ctx context.Context, followID string) (*models.Follow, error) {
	return call(ctx, g, "get_follow", map[string]interface{}{"follow_id": followID}, func(ctx context.Context) (*models.Follow, error) {
		if err := required(map[string]string{"followId": followID}); err != nil {
			return nil, err
		}
		return g.p.Follows.Get(ctx, followID)
	})
}
