package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/innotech/lms-api/internal/config"
	"github.com/innotech/lms-api/internal/handler"
	"github.com/innotech/lms-api/internal/middleware"
	"github.com/innotech/lms-api/internal/models"
	"github.com/innotech/lms-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AuthHandler       *handler.AuthHandler
	CourseHandler     *handler.CourseHandler
	AssignmentHandler *handler.AssignmentHandler
	SubmissionHandler *handler.SubmissionHandler
	DashboardHandler  *handler.DashboardHandler
	ActivityHandler   *handler.ActivityHandler
	JWTMiddleware     fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))
	api.Get("/metrics", observability.MetricsHandler())

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	if deps.AuthHandler != nil {
		// Credential endpoints get a tight per-IP budget.
		auth := api.Group("/auth", middleware.RateLimit("auth", 20, time.Minute))
		deps.AuthHandler.Register(auth)
		deps.AuthHandler.RegisterProtected(auth.Group("", jwtMiddleware))
	}

	if deps.CourseHandler != nil {
		courses := api.Group("/courses", jwtMiddleware)
		deps.CourseHandler.Register(courses)
	}

	if deps.AssignmentHandler != nil {
		assignments := api.Group("/assignments", jwtMiddleware)
		deps.AssignmentHandler.Register(assignments)
	}

	if deps.SubmissionHandler != nil {
		submissions := api.Group("/submissions", jwtMiddleware)
		deps.SubmissionHandler.Register(submissions)
	}

	if deps.DashboardHandler != nil {
		student := api.Group("/student", jwtMiddleware)
		deps.DashboardHandler.Register(student)
	}

	if deps.ActivityHandler != nil {
		admin := api.Group("/admin/activity", jwtMiddleware,
			middleware.RequireRole(models.RoleAdmin))
		deps.ActivityHandler.Register(admin)
	}
}
