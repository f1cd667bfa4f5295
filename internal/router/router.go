package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/lanex-quiz-api/internal/config"
	"github.com/noah-isme/lanex-quiz-api/internal/handler"
	"github.com/noah-isme/lanex-quiz-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	CheckHandler   *handler.CheckHandler
	LevelHandler   *handler.LevelHandler
	SeedHandler    *handler.SeedHandler
	HealthProbes   []handler.HealthProbe
	CheckRateLimit fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.HealthProbes...))

	if deps.CheckHandler != nil {
		var guards []fiber.Handler
		if deps.CheckRateLimit != nil {
			guards = append(guards, deps.CheckRateLimit)
		}
		// Test pages post to /api/check_test; the versioned path is an alias.
		deps.CheckHandler.Register(app.Group("/api"), guards...)
		deps.CheckHandler.Register(api, guards...)
	}

	if deps.LevelHandler != nil {
		deps.LevelHandler.Register(api.Group("/levels"))
	}

	if deps.SeedHandler != nil {
		deps.SeedHandler.Register(api.Group("/seed"))
	}
}
