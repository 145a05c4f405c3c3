package gateway

import (
	"context"

	"snapgram/internal/events"
	"snapgram/internal/models"
	"snapgram/internal/repository"
	"snapgram/internal/storage"
)

// UserUpdate is the edit-profile form. File is nil when the avatar is kept.
type UserUpdate struct {
	UserID   string
	Name     string
	Bio      string
	ImageID  string
	ImageURL string
	File     *storage.Upload
}

// GetUsers lists users, newest first. limit <= 0 uses the store default.
func (g *Gateway) GetUsers(ctx context.Context, limit int) (*models.DocumentList[models.User], error) {
	return call(ctx, g, "get_users", map[string]interface{}{"limit": limit}, func(ctx context.Context) (*models.DocumentList[models.User], error) {
		queries := []repository.Query{repository.OrderDesc(repository.AttrCreatedAt)}
		if limit > 0 {
			queries = append(queries, repository.Limit(limit))
		}
		return g.p.Users.List(ctx, queries...)
	})
}

// GetUserByID loads one profile.
func (g *Gateway) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	return call(ctx, g, "get_user_by_id", map[string]interface{}{"user_id": userID}, func(ctx context.Context) (*models.User, error) {
		if err := required(map[string]string{"userId": userID}); err != nil {
			return nil, err
		}
		return g.p.Users.Get(ctx, userID)
	})
}

// UpdateUser rewrites name and bio, optionally replacing the avatar. The old
// avatar is deleted only after the profile write succeeds.
func (g *Gateway) UpdateUser(ctx context.Context, in UserUpdate) (*models.User, error) {
	return call(ctx, g, "update_user", map[string]interface{}{"user_id": in.UserID}, func(ctx context.Context) (*models.User, error) {
		if err := required(map[string]string{"userId": in.UserID}); err != nil {
			return nil, err
		}

		fields := repository.Fields{"name": in.Name, "bio": in.Bio}
		if in.File == nil {
			if in.ImageURL != "" {
				fields["imageUrl"] = in.ImageURL
				fields["imageId"] = in.ImageID
			}
			user, err := g.p.Users.Update(ctx, in.UserID, fields)
			if err != nil {
				return nil, err
			}
			g.publish(ctx, events.UserUpdated, "users", user.ID, user.ID)
			return user, nil
		}

		w := g.beginFileWrite("update_user")
		if err := w.upload(ctx, *in.File); err != nil {
			return nil, err
		}
		fields["imageUrl"] = w.url
		fields["imageId"] = w.file.ID

		user, err := g.p.Users.Update(ctx, in.UserID, fields)
		if err != nil {
			return nil, w.fail(ctx, err)
		}
		w.commit()
		g.releasePrevious(ctx, "update_user", in.ImageID)

		g.publish(ctx, events.UserUpdated, "users", user.ID, user.ID)
		return user, nil
	})
}
