package gateway

import (
	"context"

	"snapgram/internal/events"
	"snapgram/internal/models"
	"snapgram/internal/observability"
	"snapgram/internal/repository"
	"snapgram/internal/storage"
)

// NewPost is the create-post form. Tags is a comma-separated list.
type NewPost struct {
	CreatorID string
	Caption   string
	Location  string
	Tags      string
	File      storage.Upload
}

// PostUpdate is the edit-post form. File is nil when the image is kept.
type PostUpdate struct {
	PostID   string
	Caption  string
	Location string
	Tags     string
	ImageID  string
	ImageURL string
	File     *storage.Upload
}

// CreatePost uploads the image and then writes the post. A failed write
// deletes the uploaded image.
func (g *Gateway) CreatePost(ctx context.Context, in NewPost) (*models.Post, error) {
	return call(ctx, g, "create_post", map[string]interface{}{"creator_id": in.CreatorID}, func(ctx context.Context) (*models.Post, error) {
		if err := required(map[string]string{"creator": in.CreatorID}); err != nil {
			return nil, err
		}

		w := g.beginFileWrite("create_post")
		if err := w.upload(ctx, in.File); err != nil {
			return nil, err
		}

		post := &models.Post{
			CreatorID: in.CreatorID,
			Caption:   in.Caption,
			Location:  in.Location,
			Tags:      models.ParseTags(in.Tags),
			Likes:     models.StringList{},
			ImageURL:  w.url,
			ImageID:   w.file.ID,
		}
		if err := g.p.Posts.Create(ctx, post); err != nil {
			return nil, w.fail(ctx, err)
		}
		w.commit()

		g.publish(ctx, events.PostCreated, "posts", post.ID, post.CreatorID)
		return post, nil
	})
}

// UpdatePost rewrites a post's caption, location and tags, optionally
// replacing its image. A replaced image is deleted after the write succeeds;
// a failed write deletes the new upload instead.
func (g *Gateway) UpdatePost(ctx context.Context, in PostUpdate) (*models.Post, error) {
	return call(ctx, g, "update_post", map[string]interface{}{"post_id": in.PostID}, func(ctx context.Context) (*models.Post, error) {
		if err := required(map[string]string{"postId": in.PostID}); err != nil {
			return nil, err
		}

		fields := repository.Fields{
			"caption":  in.Caption,
			"location": in.Location,
			"tags":     models.ParseTags(in.Tags),
		}
		if in.File == nil {
			if in.ImageID != "" {
				fields["imageId"] = in.ImageID
				fields["imageUrl"] = in.ImageURL
			}
			post, err := g.p.Posts.Update(ctx, in.PostID, fields)
			if err != nil {
				return nil, err
			}
			g.publish(ctx, events.PostUpdated, "posts", post.ID, post.CreatorID)
			return post, nil
		}

		w := g.beginFileWrite("update_post")
		if err := w.upload(ctx, *in.File); err != nil {
			return nil, err
		}
		fields["imageUrl"] = w.url
		fields["imageId"] = w.file.ID

		post, err := g.p.Posts.Update(ctx, in.PostID, fields)
		if err != nil {
			return nil, w.fail(ctx, err)
		}
		w.commit()
		g.releasePrevious(ctx, "update_post", in.ImageID)

		g.publish(ctx, events.PostUpdated, "posts", post.ID, post.CreatorID)
		return post, nil
	})
}

// DeletePost removes the post and then its image. The post is gone even if
// the image delete fails; the file is then reported as orphaned.
func (g *Gateway) DeletePost(ctx context.Context, postID, imageID string) error {
	return exec(ctx, g, "delete_post", map[string]interface{}{"post_id": postID, "image_id": imageID}, func(ctx context.Context) error {
		if err := required(map[string]string{"postId": postID, "imageId": imageID}); err != nil {
			return err
		}
		if err := g.p.Posts.Delete(ctx, postID); err != nil {
			return err
		}
		if err := g.p.Files.DeleteFile(ctx, imageID); err != nil {
			observability.CompensationOutcomes.WithLabelValues("delete_post", "orphaned").Inc()
			g.log.LogError(ctx, "delete_post.delete_file", models.CodeOf(err), err, map[string]interface{}{"file_id": imageID})
		}
		g.publish(ctx, events.PostDeleted, "posts", postID, "")
		return nil
	})
}

// GetRecentPosts returns the home feed: the most recent posts.
func (g *Gateway) GetRecentPosts(ctx context.Context) (*models.DocumentList[models.Post], error) {
	return call(ctx, g, "get_recent_posts", nil, func(ctx context.Context) (*models.DocumentList[models.Post], error) {
		return g.p.Posts.List(ctx, repository.OrderDesc(repository.AttrCreatedAt), repository.Limit(RecentPostsLimit))
	})
}

// GetInfinitePosts returns one feed page, newest first, after cursor.
func (g *Gateway) GetInfinitePosts(ctx context.Context, cursor string) (*models.DocumentList[models.Post], error) {
	return call(ctx, g, "get_infinite_posts", map[string]interface{}{"cursor": cursor}, func(ctx context.Context) (*models.DocumentList[models.Post], error) {
		queries := []repository.Query{repository.OrderDesc(repository.AttrCreatedAt), repository.Limit(g.p.PageSize)}
		if cursor != "" {
			queries = append(queries, repository.CursorAfter(cursor))
		}
		return g.p.Posts.List(ctx, queries...)
	})
}

// SearchPosts returns posts whose caption contains term.
func (g *Gateway) SearchPosts(ctx context.Context, term string) (*models.DocumentList[models.Post], error) {
	return call(ctx, g, "search_posts", map[string]interface{}{"term": term}, func(ctx context.Context) (*models.DocumentList[models.Post], error) {
		return g.p.Posts.List(ctx, repository.Search("caption", term))
	})
}

// GetPostByID loads one post with its creator.
func (g *Gateway) GetPostByID(ctx context.Context, postID string) (*models.Post, error) {
	return call(ctx, g, "get_post_by_id", map[string]interface{}{"post_id": postID}, func(ctx context.Context) (*models.Post, error) {
		if err := required(map[string]string{"postId": postID}); err != nil {
			return nil, err
		}
		return g.p.Posts.Get(ctx, postID)
	})
}

// GetUserPosts lists a user's posts, newest first.
func (g *Gateway) GetUserPosts(ctx context.Context, userID string) (*models.DocumentList[models.Post], error) {
	return call(ctx, g, "get_user_posts", map[string]interface{}{"user_id": userID}, func(ctx context.Context) (*models.DocumentList[models.Post], error) {
		if err := required(map[string]string{"userId": userID}); err != nil {
			return nil, err
		}
		return g.p.Posts.List(ctx, repository.Equal("creator", userID), repository.OrderDesc(repository.AttrCreatedAt))
	})
}

// LikePost replaces the post's like list.
func (g *Gateway) LikePost(ctx context.Context, postID string, likes []string) (*models.Post, error) {
	return call(ctx, g, "like_post", map[string]interface{}{"post_id": postID, "likes": len(likes)}, func(ctx context.Context) (*models.Post, error) {
		if err := required(map[string]string{"postId": postID}); err != nil {
			return nil, err
		}
		list := models.StringList(likes)
		if list == nil {
			list = models.StringList{}
		}
		post, err := g.p.Posts.Update(ctx, postID, repository.Fields{"likes": list})
		if err != nil {
			return nil, err
		}
		g.publish(ctx, events.PostLiked, "posts", post.ID, "")
		return post, nil
	})
}
