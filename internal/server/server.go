// Package server exposes the engine over HTTP and WebSocket. It is a thin
// surface: handlers parse input, call a service, and translate errors; all
// state and sync live in the engine.
package server

import (
	"confide/internal/config"
	"confide/internal/engine"
	"confide/internal/middleware"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

// Server holds the engine and route configuration.
type Server struct {
	config *config.Config
	engine *engine.Engine
	prom   *fiberprometheus.FiberPrometheus
}

// NewServer creates a server around an initialized engine.
func NewServer(cfg *config.Config, eng *engine.Engine) *Server {
	return &Server{
		config: cfg,
		engine: eng,
		prom:   fiberprometheus.New("confide-api"),
	}
}

// SetupMiddleware configures middleware for the Fiber app.
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.ContextMiddleware())

	s.prom.RegisterAt(app, "/metrics")
	app.Use(s.prom.Middleware)

	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection",
		AllowCredentials: true,
		MaxAge:           86400,
	}))
}

// SetupRoutes configures all routes for the application.
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/signup", s.Signup)
	auth.Post("/login", s.Login)
	auth.Post("/otp/request", s.RequestOTP)
	auth.Post("/otp/verify", s.VerifyOTP)

	protected := api.Group("", middleware.AuthRequired)

	users := protected.Group("/users")
	users.Get("/me", s.GetMyProfile)
	users.Put("/me", s.UpdateMyProfile)
	users.Put("/me/password", s.UpdateMyPassword)
	users.Get("/:id/posts", s.GetUserPosts)
	users.Get("/:id/followers", s.GetFollowers)
	users.Get("/:id/following", s.GetFollowing)
	users.Post("/:id/follow", s.ToggleFollow)
	users.Get("/:id", s.GetUserProfile)

	posts := protected.Group("/posts")
	posts.Get("/", s.GetFeed)
	posts.Post("/", s.CreatePost)
	posts.Get("/saved", s.GetSavedPosts)
	posts.Post("/:id/like", s.ToggleLike)
	posts.Post("/:id/save", s.ToggleSave)
	posts.Post("/:id/pin", s.TogglePin)
	posts.Get("/:id/comments", s.GetComments)
	posts.Post("/:id/comments", s.CreateComment)
	posts.Put("/:id", s.EditCaption)
	posts.Delete("/:id", s.DeletePost)
	posts.Get("/:id", s.GetPost)
	protected.Delete("/comments/:commentId", s.DeleteComment)

	chats := protected.Group("/conversations")
	chats.Get("/", s.GetConversations)
	chats.Post("/", s.StartConversation)
	chats.Get("/unread-count", s.GetUnreadCount)
	chats.Get("/:id/messages", s.GetMessages)
	chats.Post("/:id/messages", s.SendMessage)
	chats.Post("/:id/read", s.MarkRead)
	chats.Get("/:id", s.GetConversation)

	notifs := protected.Group("/notifications")
	notifs.Get("/", s.GetNotifications)
	notifs.Get("/unread-count", s.GetNotificationUnreadCount)
	notifs.Post("/read-all", s.MarkNotificationsRead)

	s.setupWebSocket(app)
}

// LivenessCheck handles GET /health/live.
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// ReadinessCheck handles GET /health/ready. Degraded mode is still ready;
// it just means persistence and cross-context sync are disabled.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	sqlDB, err := s.engine.DB().DB()
	if err != nil || sqlDB.PingContext(c.Context()) != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable"})
	}
	return c.JSON(fiber.Map{
		"status":   "ok",
		"degraded": s.engine.Degraded(),
	})
}
