package server

import (
	"context"
	"strings"

	"snapgram/internal/gateway"
	"snapgram/internal/models"
	"snapgram/internal/query"
	"snapgram/internal/social"
	"snapgram/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// GetPosts handles GET /api/posts?cursor=
func (s *Server) GetPosts(c *fiber.Ctx) error {
	page, err := s.gw.GetInfinitePosts(c.UserContext(), c.Query("cursor"))
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(page)
}

// GetRecentPosts handles GET /api/posts/recent
func (s *Server) GetRecentPosts(c *fiber.Ctx) error {
	list, err := query.Fetch(c.UserContext(), s.queries, query.Key{"posts", "recent"}, s.gw.GetRecentPosts)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(list)
}

// SearchPosts handles GET /api/posts/search?q=
func (s *Server) SearchPosts(c *fiber.Ctx) error {
	term := strings.TrimSpace(c.Query("q"))
	if term == "" {
		return respond(c, models.NewFieldValidationError(map[string]string{"q": "q is required"}))
	}
	list, err := query.Fetch(c.UserContext(), s.queries, query.Key{"posts", "search", term}, func(ctx context.Context) (*models.DocumentList[models.Post], error) {
		return s.gw.SearchPosts(ctx, term)
	})
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(list)
}

// GetPost handles GET /api/posts/:id
func (s *Server) GetPost(c *fiber.Ctx) error {
	post, err := s.gw.GetPostByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(post)
}

func postForm(c *fiber.Ctx) (validation.Post, error) {
	form := validation.Post{
		Caption:  c.FormValue("caption"),
		Location: c.FormValue("location"),
		Tags:     c.FormValue("tags"),
	}
	return form, validation.Struct(form)
}

// CreatePost handles POST /api/posts (multipart: caption, location, tags, file)
func (s *Server) CreatePost(c *fiber.Ctx) error {
	form, err := postForm(c)
	if err != nil {
		return respond(c, err)
	}
	upload, closeFile, err := formUpload(c, "file")
	if err != nil {
		return respond(c, err)
	}
	defer closeFile()
	if upload == nil {
		return respond(c, models.NewFieldValidationError(map[string]string{"file": "file is required"}))
	}

	post, err := s.gw.CreatePost(c.UserContext(), gateway.NewPost{
		CreatorID: currentUser(c).ID,
		Caption:   form.Caption,
		Location:  form.Location,
		Tags:      form.Tags,
		File:      *upload,
	})
	if err != nil {
		return respond(c, err)
	}
	s.queries.Invalidate("posts")
	return c.Status(fiber.StatusCreated).JSON(post)
}

// UpdatePost handles PUT /api/posts/:id (multipart; file optional)
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	ctx := c.UserContext()
	existing, err := s.gw.GetPostByID(ctx, c.Params("id"))
	if err != nil {
		return respond(c, err)
	}
	if existing.CreatorID != currentUser(c).ID {
		return forbidden(c, "Only the creator can edit this post")
	}

	form, err := postForm(c)
	if err != nil {
		return respond(c, err)
	}
	upload, closeFile, err := formUpload(c, "file")
	if err != nil {
		return respond(c, err)
	}
	defer closeFile()

	post, err := s.gw.UpdatePost(ctx, gateway.PostUpdate{
		PostID:   existing.ID,
		Caption:  form.Caption,
		Location: form.Location,
		Tags:     form.Tags,
		ImageID:  existing.ImageID,
		ImageURL: existing.ImageURL,
		File:     upload,
	})
	if err != nil {
		return respond(c, err)
	}
	s.queries.Invalidate("posts")
	return c.JSON(post)
}

// DeletePost handles DELETE /api/posts/:id
func (s *Server) DeletePost(c *fiber.Ctx) error {
	ctx := c.UserContext()
	existing, err := s.gw.GetPostByID(ctx, c.Params("id"))
	if err != nil {
		return respond(c, err)
	}
	if existing.CreatorID != currentUser(c).ID {
		return forbidden(c, "Only the creator can delete this post")
	}
	if err := s.gw.DeletePost(ctx, existing.ID, existing.ImageID); err != nil {
		return respond(c, err)
	}
	s.queries.Invalidate("posts", "saves")
	return c.SendStatus(fiber.StatusNoContent)
}

// SetLikes handles PUT /api/posts/:id/like with {"likes": [...]}
func (s *Server) SetLikes(c *fiber.Ctx) error {
	var req struct {
		Likes []string `json:"likes"`
	}
	if err := c.BodyParser(&req); err != nil {
		return respond(c, models.NewValidationError("Invalid request body"))
	}
	post, err := s.gw.LikePost(c.UserContext(), c.Params("id"), req.Likes)
	if err != nil {
		return respond(c, err)
	}
	s.queries.Invalidate("posts")
	return c.JSON(post)
}

// ToggleLike handles POST /api/posts/:id/like, flipping the caller's like.
func (s *Server) ToggleLike(c *fiber.Ctx) error {
	ctx := c.UserContext()
	post, err := s.gw.GetPostByID(ctx, c.Params("id"))
	if err != nil {
		return respond(c, err)
	}
	toggle := social.NewLikeToggle(s.gw, s.queries, currentUser(c).ID, post.ID, post.Likes)
	liked, err := toggle.Toggle(ctx)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(fiber.Map{"liked": liked, "likes": toggle.Count()})
}

// ToggleSave handles PUT /api/posts/:id/save, flipping the caller's save.
func (s *Server) ToggleSave(c *fiber.Ctx) error {
	ctx := c.UserContext()
	user := currentUser(c)
	postID := c.Params("id")
	saves, err := s.gw.FindSaveRecord(ctx, user.ID, postID)
	if err != nil {
		return respond(c, err)
	}
	toggle := social.NewSaveToggle(s.gw, s.queries, user.ID, postID, social.SaveRecordFor(saves.Documents, postID))
	saved, err := toggle.Toggle(ctx)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(fiber.Map{"saved": saved, "save_id": toggle.RecordID()})
}
