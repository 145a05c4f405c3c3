package server

import (
	"net/url"
	"strings"

	"snapgram/internal/models"
	"snapgram/internal/storage"

	"github.com/gofiber/fiber/v2"
)

// GetFilePreview handles GET /api/files/:id/preview
func (s *Server) GetFilePreview(c *fiber.Ctx) error {
	q, err := url.ParseQuery(string(c.Request().URI().QueryString()))
	if err != nil {
		return respond(c, models.NewValidationError("invalid query string"))
	}
	opts, err := storage.ParsePreviewOptions(q)
	if err != nil {
		return respond(c, err)
	}
	body, contentType, err := s.gw.RenderFilePreview(c.UserContext(), c.Params("id"), opts)
	if err != nil {
		return respond(c, err)
	}
	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderCacheControl, "public, max-age=86400")
	return c.Send(body)
}

// GetInitialsAvatar handles GET /api/avatars/initials?name=&size=
func (s *Server) GetInitialsAvatar(c *fiber.Ctx) error {
	name := strings.TrimSpace(c.Query("name"))
	size := c.QueryInt("size", 100)
	if size <= 0 || size > 1000 {
		return respond(c, models.NewValidationError("size must be between 1 and 1000"))
	}
	c.Set(fiber.HeaderContentType, "image/svg+xml")
	c.Set(fiber.HeaderCacheControl, "public, max-age=86400")
	return c.Send(storage.RenderInitialsSVG(name, size))
}
