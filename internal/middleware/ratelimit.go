package middleware

import (
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v3"
)

const (
	readRequestsPerMinute = 100
	sweepInterval         = 5 * time.Minute
)

// RateLimitConfig sets the fixed-window budget of one limiter.
type RateLimitConfig struct {
	Max    int
	Window time.Duration
	KeyFn  func(c fiber.Ctx) string
	Clock  func() time.Time
}

type window struct {
	count int
	ends  time.Time
}

// RateLimiter throttles requests per key inside fixed windows. It is purely
// in-process; each replica keeps its own counters.
type RateLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
	cfg     RateLimitConfig
	stop    chan struct{}
	once    sync.Once
}

// NewRateLimiter starts a limiter and its background sweep of expired windows.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.KeyFn == nil {
		cfg.KeyFn = KeyByIP
	}
	rl := &RateLimiter{
		windows: make(map[string]*window),
		cfg:     cfg,
		stop:    make(chan struct{}),
	}
	go rl.sweep()
	return rl
}

// take counts one request for key and returns what is left in its window.
func (rl *RateLimiter) take(key string) (remaining int, resetAt time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.cfg.Clock()
	w, ok := rl.windows[key]
	if !ok || !now.Before(w.ends) {
		w = &window{ends: now.Add(rl.cfg.Window)}
		rl.windows[key] = w
	}
	w.count++
	return rl.cfg.Max - w.count, w.ends
}

// Allow counts one request for key and reports whether it fits the budget.
func (rl *RateLimiter) Allow(key string) bool {
	remaining, _ := rl.take(key)
	return remaining >= 0
}

// Handler enforces the limit and answers 429 RATE_LIMITED once a key runs out.
func (rl *RateLimiter) Handler() fiber.Handler {
	return func(c fiber.Ctx) error {
		remaining, resetAt := rl.take(rl.cfg.KeyFn(c))

		c.Set("X-RateLimit-Limit", strconv.Itoa(rl.cfg.Max))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(max(remaining, 0)))
		c.Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

		if remaining >= 0 {
			return c.Next()
		}
		retryAfter := int(resetAt.Sub(rl.cfg.Clock()).Seconds()) + 1
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(retryAfter))
		return ErrorResponse(c, fiber.StatusTooManyRequests, "RATE_LIMITED",
			"Too many requests. Try again in "+strconv.Itoa(retryAfter)+" seconds.")
	}
}

// Close stops the background sweep.
func (rl *RateLimiter) Close() {
	rl.once.Do(func() { close(rl.stop) })
}

func (rl *RateLimiter) sweep() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.mu.Lock()
			now := rl.cfg.Clock()
			for key, w := range rl.windows {
				if !now.Before(w.ends) {
					delete(rl.windows, key)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// KeyByIP keys requests by client IP.
func KeyByIP(c fiber.Ctx) string {
	return "ip:" + c.IP()
}

// KeyByCaller keys registered callers by a hash of their credential and
// everyone else by IP.
func KeyByCaller(c fiber.Ctx) string {
	if authz := c.Get(fiber.HeaderAuthorization); authz != "" {
		return "auth:" + shortHash(authz)
	}
	return KeyByIP(c)
}

// NewVoteRateLimiter allows max vote submissions per minute per caller.
func NewVoteRateLimiter(max int) *RateLimiter {
	return NewRateLimiter(RateLimitConfig{Max: max, Window: time.Minute, KeyFn: KeyByCaller})
}

// NewReadRateLimiter allows 100 rating reads per minute per IP.
func NewReadRateLimiter() *RateLimiter {
	return NewRateLimiter(RateLimitConfig{Max: readRequestsPerMinute, Window: time.Minute, KeyFn: KeyByIP})
}
