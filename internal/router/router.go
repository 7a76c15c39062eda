package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/arka-edu/arka-api/internal/config"
	"github.com/arka-edu/arka-api/internal/handler"
	"github.com/arka-edu/arka-api/internal/middleware"
	"github.com/arka-edu/arka-api/internal/models"
	"github.com/arka-edu/arka-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	ProgressHandler  *handler.ProgressHandler
	QuizHandler      *handler.QuizHandler
	AnalyticsHandler *handler.AnalyticsHandler
	DashboardHandler *handler.DashboardHandler
	RosterHandler    *handler.RosterHandler
	JWTMiddleware    fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	// Common v1 group for health & headers
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	app.Get("/metrics", observability.MetricsHandler())

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	staffOnly := middleware.RequireRole(models.RoleTeacher, models.RoleAdmin)
	adminOnly := middleware.RequireRole(models.RoleAdmin)

	// Chapters: progress lifecycle, quiz authoring, per-chapter analytics
	if deps.ProgressHandler != nil {
		chapters := app.Group("/api/v1/chapters", jwtMiddleware)
		deps.ProgressHandler.Register(chapters)

		if deps.QuizHandler != nil {
			deps.QuizHandler.Register(chapters)
		}
		if deps.AnalyticsHandler != nil {
			deps.AnalyticsHandler.RegisterChapterRoutes(chapters)
		}
		if deps.RosterHandler != nil {
			deps.RosterHandler.RegisterChapterRoutes(chapters)
		}
	}

	// Classes: coverage, struggling students and reminder dispatch
	if deps.AnalyticsHandler != nil {
		classes := app.Group("/api/v1/classes", jwtMiddleware, staffOnly)
		deps.AnalyticsHandler.RegisterClassRoutes(classes)

		gradings := app.Group("/api/v1/gradings", jwtMiddleware, staffOnly)
		deps.AnalyticsHandler.RegisterGradingRoutes(gradings)
	}

	// Role dashboards
	if deps.DashboardHandler != nil {
		dashboard := app.Group("/api/v1/dashboard", jwtMiddleware)
		deps.DashboardHandler.Register(dashboard)
	}

	// Roster administration
	if deps.RosterHandler != nil {
		students := app.Group("/api/v1/students", jwtMiddleware, adminOnly)
		deps.RosterHandler.RegisterStudentRoutes(students)
	}
}
