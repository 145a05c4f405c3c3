package server

import (
	"snapgram/internal/models"

	"github.com/gofiber/fiber/v2"
)

// SavePost handles POST /api/saves with {"post_id": "..."}
func (s *Server) SavePost(c *fiber.Ctx) error {
	var req struct {
		PostID string `json:"post_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return respond(c, models.NewValidationError("Invalid request body"))
	}
	save, err := s.gw.SavePost(c.UserContext(), currentUser(c).ID, req.PostID)
	if err != nil {
		return respond(c, err)
	}
	s.queries.Invalidate("saves", "posts")
	return c.Status(fiber.StatusCreated).JSON(save)
}

// DeleteSavedPost handles DELETE /api/saves/:id
func (s *Server) DeleteSavedPost(c *fiber.Ctx) error {
	ctx := c.UserContext()
	save, err := s.gw.GetSaveByID(ctx, c.Params("id"))
	if err != nil {
		return respond(c, err)
	}
	if save.UserID != currentUser(c).ID {
		return forbidden(c, "Only the owner can remove a saved post")
	}
	if err := s.gw.DeleteSavedPost(ctx, save.ID); err != nil {
		return respond(c, err)
	}
	s.queries.Invalidate("saves", "posts")
	return c.SendStatus(fiber.StatusNoContent)
}

// GetUserSaves handles GET /api/users/:id/saves
func (s *Server) GetUserSaves(c *fiber.Ctx) error {
	if c.Params("id") != currentUser(c).ID {
		return forbidden(c, "Saved posts are private")
	}
	list, err := s.gw.GetSavedPosts(c.UserContext(), c.Params("id"))
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(list)
}

// FollowUser handles POST /api/follows with {"followed_id": "..."}
func (s *Server) FollowUser(c *fiber.Ctx) error {
	var req struct {
		FollowedID string `json:"followed_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return respond(c, models.NewValidationError("Invalid request body"))
	}
	follow, err := s.gw.FollowUser(c.UserContext(), currentUser(c).ID, req.FollowedID)
	if err != nil {
		return respond(c, err)
	}
	s.queries.Invalidate("follows", "users")
	return c.Status(fiber.StatusCreated).JSON(follow)
}

// DeleteFollow handles DELETE /api/follows/:id
func (s *Server) DeleteFollow(c *fiber.Ctx) error {
	ctx := c.UserContext()
	follow, err := s.gw.GetFollowByID(ctx, c.Params("id"))
	if err != nil {
		return respond(c, err)
	}
	if follow.FollowerID != currentUser(c).ID {
		return forbidden(c, "Only the follower can remove a follow")
	}
	if err := s.gw.DeleteFollowUser(ctx, follow.ID); err != nil {
		return respond(c, err)
	}
	s.queries.Invalidate("follows", "users")
	return c.SendStatus(fiber.StatusNoContent)
}

// GetUserFollows handles GET /api/users/:id/follows
func (s *Server) GetUserFollows(c *fiber.Ctx) error {
	list, err := s.gw.GetFollows(c.UserContext(), c.Params("id"))
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(list)
}
