// Package server exposes the platform gateway over HTTP.
package server

import (
	"context"
	"sync"
	"time"

	"snapgram/internal/config"
	"snapgram/internal/gateway"
	"snapgram/internal/query"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

var (
	promOnce sync.Once
	prom     *fiberprometheus.FiberPrometheus
)

// metrics returns the process-wide HTTP metrics middleware. Its collectors
// live in the default registry, so it is created once.
func metrics() *fiberprometheus.FiberPrometheus {
	promOnce.Do(func() {
		prom = fiberprometheus.New("snapgram-api")
	})
	return prom
}

// Deps are the already-initialized collaborators a Server needs.
type Deps struct {
	Gateway *gateway.Gateway
	// Queries caches recent-post and search reads. Mutations made through
	// this server invalidate it.
	Queries *query.Client
	// DB and Redis are only pinged by the readiness check.
	DB    *gorm.DB
	Redis *redis.Client
}

// Server holds handler dependencies.
type Server struct {
	config         *config.Config
	gw             *gateway.Gateway
	queries        *query.Client
	db             *gorm.DB
	redis          *redis.Client
	promMiddleware *fiberprometheus.FiberPrometheus
}

// NewServer creates a server over deps.
func NewServer(cfg *config.Config, deps Deps) *Server {
	q := deps.Queries
	if q == nil {
		q = query.NewClient()
	}
	return &Server{
		config:         cfg,
		gw:             deps.Gateway,
		queries:        q,
		db:             deps.DB,
		redis:          deps.Redis,
		promMiddleware: metrics(),
	}
}

// NewApp builds a fiber app with middleware and routes installed.
func (s *Server) NewApp() *fiber.App {
	bodyLimit := 4 * 1024 * 1024
	if s.config.MaxUploadSizeMB > 0 {
		// multipart framing and form fields on top of the file
		bodyLimit = (s.config.MaxUploadSizeMB + 1) * 1024 * 1024
	}
	app := fiber.New(fiber.Config{
		AppName:   "Snapgram API",
		BodyLimit: bodyLimit,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(TracingMiddleware())
	app.Use(ContextMiddleware())
	if s.promMiddleware != nil {
		app.Use(s.promMiddleware.Middleware)
	}
	app.Use(helmet.New(helmet.Config{CrossOriginResourcePolicy: "cross-origin"}))
	app.Use(StructuredLogger())

	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: origins != "*",
		MaxAge:           86400,
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health", s.ReadinessCheck)
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api")

	// Public file routes; image URLs are embedded in <img> tags.
	api.Get("/files/:id/preview", s.GetFilePreview)
	api.Get("/avatars/initials", s.GetInitialsAvatar)

	auth := api.Group("/auth")
	auth.Post("/signup", s.Signup)
	auth.Post("/login", s.Login)
	auth.Post("/logout", s.AuthRequired(), s.Logout)
	auth.Get("/me", s.AuthRequired(), s.Me)

	protected := api.Group("", s.AuthRequired())

	posts := protected.Group("/posts")
	posts.Get("/", s.GetPosts)
	posts.Post("/", s.CreatePost)
	posts.Get("/recent", s.GetRecentPosts)
	posts.Get("/search", s.SearchPosts)
	// Define specific /:id/:resource routes BEFORE generic /:id route
	posts.Put("/:id/like", s.SetLikes)
	posts.Post("/:id/like", s.ToggleLike)
	posts.Put("/:id/save", s.ToggleSave)
	posts.Get("/:id", s.GetPost)
	posts.Put("/:id", s.UpdatePost)
	posts.Delete("/:id", s.DeletePost)

	saves := protected.Group("/saves")
	saves.Post("/", s.SavePost)
	saves.Delete("/:id", s.DeleteSavedPost)

	follows := protected.Group("/follows")
	follows.Post("/", s.FollowUser)
	follows.Delete("/:id", s.DeleteFollow)

	users := protected.Group("/users")
	users.Get("/", s.GetUsers)
	users.Get("/:id/posts", s.GetUserPosts)
	users.Get("/:id/saves", s.GetUserSaves)
	users.Get("/:id/follows", s.GetUserFollows)
	users.Put("/:id/follow", s.ToggleFollow)
	users.Get("/:id", s.GetUser)
	users.Put("/:id", s.UpdateUser)
}

// LivenessCheck reports that the process is serving.
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck pings the database and Redis.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "unavailable"
	if s.db != nil {
		dbStatus = "healthy"
		sqlDB, err := s.db.DB()
		if err != nil || sqlDB.PingContext(ctx) != nil {
			dbStatus = "unhealthy"
		}
	}

	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overall := "healthy"
	// Redis is a cache; only the database gates readiness.
	if dbStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overall = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overall,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}
