package server

import (
	"snapgram/internal/gateway"
	"snapgram/internal/social"
	"snapgram/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// GetUsers handles GET /api/users?limit=
func (s *Server) GetUsers(c *fiber.Ctx) error {
	list, err := s.gw.GetUsers(c.UserContext(), parseLimit(c))
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(list)
}

// GetUser handles GET /api/users/:id
func (s *Server) GetUser(c *fiber.Ctx) error {
	user, err := s.gw.GetUserByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(user)
}

// GetUserPosts handles GET /api/users/:id/posts
func (s *Server) GetUserPosts(c *fiber.Ctx) error {
	list, err := s.gw.GetUserPosts(c.UserContext(), c.Params("id"))
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(list)
}

// UpdateUser handles PUT /api/users/:id (multipart: name, bio, file optional)
func (s *Server) UpdateUser(c *fiber.Ctx) error {
	me := currentUser(c)
	if c.Params("id") != me.ID {
		return forbidden(c, "You can only edit your own profile")
	}

	form := validation.Profile{
		Name:     c.FormValue("name", me.Name),
		Username: me.Username,
		Email:    me.Email,
		Bio:      c.FormValue("bio", me.Bio),
	}
	if err := validation.Struct(form); err != nil {
		return respond(c, err)
	}
	upload, closeFile, err := formUpload(c, "file")
	if err != nil {
		return respond(c, err)
	}
	defer closeFile()

	user, err := s.gw.UpdateUser(c.UserContext(), gateway.UserUpdate{
		UserID:   me.ID,
		Name:     form.Name,
		Bio:      form.Bio,
		ImageID:  me.ImageID,
		ImageURL: me.ImageURL,
		File:     upload,
	})
	if err != nil {
		return respond(c, err)
	}
	s.queries.Invalidate("users", "posts")
	return c.JSON(user)
}

// ToggleFollow handles PUT /api/users/:id/follow, flipping the caller's follow.
func (s *Server) ToggleFollow(c *fiber.Ctx) error {
	ctx := c.UserContext()
	me := currentUser(c)
	followedID := c.Params("id")
	follows, err := s.gw.FindFollowRecord(ctx, me.ID, followedID)
	if err != nil {
		return respond(c, err)
	}
	toggle := social.NewFollowToggle(s.gw, s.queries, me.ID, followedID, social.FollowRecordFor(follows.Documents, followedID))
	following, err := toggle.Toggle(ctx)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(fiber.Map{"following": following})
}
