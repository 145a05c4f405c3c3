package server

import (
	"time"

	"snapgram/internal/gateway"
	"snapgram/internal/models"
	"snapgram/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// AuthResponse is returned by signup and login.
type AuthResponse struct {
	User      *models.User `json:"user"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// Signup handles POST /api/auth/signup
func (s *Server) Signup(c *fiber.Ctx) error {
	var req validation.Signup
	if err := c.BodyParser(&req); err != nil {
		return respond(c, models.NewValidationError("Invalid request body"))
	}
	if err := validation.Struct(req); err != nil {
		return respond(c, err)
	}

	ctx := c.UserContext()
	user, err := s.gw.CreateUserAccount(ctx, gateway.NewUser{
		Name:     req.Name,
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return respond(c, err)
	}
	s.queries.Invalidate("users")

	session, err := s.gw.SignInAccount(ctx, req.Email, req.Password)
	if err != nil {
		return respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(AuthResponse{User: user, Token: session.Token, ExpiresAt: session.ExpiresAt})
}

// Login handles POST /api/auth/login
func (s *Server) Login(c *fiber.Ctx) error {
	var req validation.Signin
	if err := c.BodyParser(&req); err != nil {
		return respond(c, models.NewValidationError("Invalid request body"))
	}
	if err := validation.Struct(req); err != nil {
		return respond(c, err)
	}

	ctx := c.UserContext()
	session, err := s.gw.SignInAccount(ctx, req.Email, req.Password)
	if err != nil {
		return respond(c, err)
	}
	user, err := s.gw.GetCurrentUser(ctx, session.Token)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(AuthResponse{User: user, Token: session.Token, ExpiresAt: session.ExpiresAt})
}

// Logout handles POST /api/auth/logout
func (s *Server) Logout(c *fiber.Ctx) error {
	token, _ := c.Locals(localToken).(string)
	if err := s.gw.SignOutAccount(c.UserContext(), token); err != nil {
		return respond(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Me handles GET /api/auth/me
func (s *Server) Me(c *fiber.Ctx) error {
	return c.JSON(currentUser(c))
}
