package router

import (
	"github.com/gofiber/fiber/v3"
	recoverer "github.com/gofiber/fiber/v3/middleware/recover"

	"github.com/ancient666-pro/askit-dark-feed/internal/handler"
	"github.com/ancient666-pro/askit-dark-feed/internal/middleware"
)

// Handlers holds all handler instances needed by the router.
type Handlers struct {
	Poll   *handler.PollHandler
	Vote   *handler.VoteHandler
	Boost  *handler.BoostHandler
	Device *handler.DeviceHandler
	Stats  *handler.StatsHandler
	Health *handler.HealthHandler
}

// Setup configures the middleware stack and all API routes on the given Fiber app.
func Setup(app *fiber.App, h *Handlers, corsOrigins string) {
	// Middleware stack (order matters)
	app.Use(recoverer.New())
	app.Use(middleware.NewRequestLogger())
	app.Use(middleware.NewCORS(corsOrigins))
	app.Use(handler.MetricsMiddleware())

	// Probes and metrics (before API group)
	app.Get("/health/live", h.Health.Live)
	app.Get("/health/ready", h.Health.Ready)
	app.Get("/metrics", handler.MetricsHandler())

	// API routes
	api := app.Group("/api")

	feedLimit := middleware.NewFeedRateLimiter().Handler()
	createLimit := middleware.NewCreatePollRateLimiter().Handler()
	voteLimit := middleware.NewVoteRateLimiter().Handler()
	orderLimit := middleware.NewOrderRateLimiter().Handler()
	statsLimit := middleware.NewStatsRateLimiter().Handler()

	// Poll routes. Register /trending before /:pollId so the static
	// segment wins.
	api.Get("/polls/trending", h.Poll.Trending, feedLimit)
	api.Get("/polls/:pollId", h.Poll.Get, feedLimit)
	api.Get("/polls", h.Poll.List, feedLimit)
	api.Post("/polls", h.Poll.Create, createLimit)

	// Vote routes
	api.Post("/votes", h.Vote.Submit, voteLimit)
	api.Get("/votes", h.Vote.GetVoted, feedLimit)

	// Device identity
	api.Post("/devices", h.Device.Mint, createLimit)

	// Payment bridge. Non-POST methods get 405 from Fiber's method
	// matcher; OPTIONS preflight is answered by the CORS middleware.
	api.Post("/create-order", h.Boost.CreateOrder, orderLimit)
	api.Post("/verify-payment", h.Boost.VerifyPayment, orderLimit)

	// Stats routes
	api.Get("/stats", h.Stats.GetStats, statsLimit)
}
