package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/ancient666-pro/askit-dark-feed/internal/repository"
)

const probeTimeout = 3 * time.Second

type HealthHandler struct {
	pool    *pgxpool.Pool
	rdb     *redis.Client
	stats   *repository.PaymentRepo
	startAt time.Time
}

func NewHealthHandler(pool *pgxpool.Pool, rdb *redis.Client, stats *repository.PaymentRepo) *HealthHandler {
	return &HealthHandler{
		pool:    pool,
		rdb:     rdb,
		stats:   stats,
		startAt: time.Now(),
	}
}

// probeResult is one dependency's slice of the readiness report.
type probeResult struct {
	Status    string `json:"status"`
	LatencyMs int64  `json:"latency_ms,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Live handles GET /health/live — liveness probe.
func (h *HealthHandler) Live(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// Ready handles GET /health/ready — readiness probe. The poll store is
// required; the cache is optional, so a down Redis only degrades the report.
func (h *HealthHandler) Ready(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), probeTimeout)
	defer cancel()

	db := h.probeStore(ctx)
	cache := h.probeCache(ctx)

	status := "healthy"
	if db.Status != "up" || cache.Status == "down" {
		status = "degraded"
	}

	resp := fiber.Map{
		"status": status,
		"checks": fiber.Map{
			"database": db,
			"cache":    cache,
		},
		"uptime_seconds": int(time.Since(h.startAt).Seconds()),
		"version":        "1.0.0",
	}

	// Poll counters ride along when the store answers; the probe itself
	// never fails on an aggregate query.
	if db.Status == "up" && h.stats != nil {
		if agg, err := h.stats.GetStats(ctx); err == nil {
			resp["polls"] = fiber.Map{
				"total":       agg.TotalPolls,
				"active_pins": agg.ActivePins,
			}
		}
	}

	code := fiber.StatusOK
	if status != "healthy" {
		code = fiber.StatusServiceUnavailable
	}
	return c.Status(code).JSON(resp)
}

func (h *HealthHandler) probeStore(ctx context.Context) probeResult {
	start := time.Now()
	err := h.pool.Ping(ctx)
	latency := time.Since(start).Milliseconds()

	if err != nil {
		return probeResult{Status: "down", LatencyMs: latency, Error: "connection failed"}
	}
	return probeResult{Status: "up", LatencyMs: latency}
}

func (h *HealthHandler) probeCache(ctx context.Context) probeResult {
	if h.rdb == nil {
		return probeResult{Status: "disabled"}
	}

	start := time.Now()
	err := h.rdb.Ping(ctx).Err()
	latency := time.Since(start).Milliseconds()

	if err != nil {
		return probeResult{Status: "down", LatencyMs: latency, Error: "connection failed"}
	}
	return probeResult{Status: "up", LatencyMs: latency}
}
