package router

import (
	"github.com/gofiber/fiber/v3"
	recoverer "github.com/gofiber/fiber/v3/middleware/recover"

	"github.com/mathieu-neron/postrate/internal/handler"
	"github.com/mathieu-neron/postrate/internal/middleware"
)

// Handlers holds all handler instances needed by the router.
type Handlers struct {
	Vote     *handler.VoteHandler
	Post     *handler.PostHandler
	Health   *handler.HealthHandler
	Identity middleware.IdentityResolver
}

// Options tunes the middleware stack.
type Options struct {
	CORSOrigins   string
	VoteRateLimit int
	Metrics       bool
}

// Setup configures the middleware stack and all API routes on the given Fiber app.
func Setup(app *fiber.App, h *Handlers, opts Options) {
	if opts.VoteRateLimit <= 0 {
		opts.VoteRateLimit = 30
	}

	app.Use(recoverer.New())
	app.Use(middleware.NewRequestLogger())
	app.Use(middleware.NewCORS(opts.CORSOrigins))
	if opts.Metrics {
		app.Use(handler.MetricsMiddleware())
		app.Get("/metrics", handler.MetricsHandler())
	}

	app.Get("/health/live", h.Health.Live)
	app.Get("/health/ready", h.Health.Ready)

	api := app.Group("/api")
	posts := api.Group("/posts")

	posts.Get("/:postId/rating", middleware.NewReadRateLimiter().Handler(), h.Post.GetRating)
	posts.Post("/:postId/votes",
		middleware.NewVoteRateLimiter(opts.VoteRateLimit).Handler(),
		middleware.ResolveIdentity(h.Identity),
		h.Vote.Submit,
	)
}
