package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/redis/go-redis/v9"
)

const readyTimeout = 3 * time.Second

// Pinger is anything whose reachability can be probed.
type Pinger interface {
	Ping(ctx context.Context) error
}

type healthCheck struct {
	Status    string `json:"status"`
	LatencyMS int64  `json:"latency_ms,omitempty"`
	Error     string `json:"error,omitempty"`
}

type HealthHandler struct {
	store   Pinger
	rdb     *redis.Client
	version string
	startAt time.Time
}

func NewHealthHandler(store Pinger, rdb *redis.Client, version string) *HealthHandler {
	return &HealthHandler{
		store:   store,
		rdb:     rdb,
		version: version,
		startAt: time.Now(),
	}
}

// Live handles GET /health/live
func (h *HealthHandler) Live(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// Ready handles GET /health/ready. The vote store must answer; a disabled
// cache is fine but an unreachable one degrades readiness.
func (h *HealthHandler) Ready(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), readyTimeout)
	defer cancel()

	checks := map[string]healthCheck{
		"database": probe(ctx, h.store.Ping),
		"redis":    {Status: "disabled"},
	}
	if h.rdb != nil {
		checks["redis"] = probe(ctx, func(ctx context.Context) error { return h.rdb.Ping(ctx).Err() })
	}

	overall, status := "healthy", fiber.StatusOK
	if checks["database"].Status != "up" || checks["redis"].Status == "down" {
		overall, status = "degraded", fiber.StatusServiceUnavailable
	}

	return c.Status(status).JSON(fiber.Map{
		"status":         overall,
		"checks":         checks,
		"uptime_seconds": int(time.Since(h.startAt).Seconds()),
		"version":        h.version,
	})
}

func probe(ctx context.Context, ping func(context.Context) error) healthCheck {
	start := time.Now()
	err := ping(ctx)
	check := healthCheck{Status: "up", LatencyMS: time.Since(start).Milliseconds()}
	if err != nil {
		check.Status = "down"
		check.Error = "connection failed"
	}
	return check
}
