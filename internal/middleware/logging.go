package middleware

import (
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog"

	"github.com/mathieu-neron/postrate/pkg/hash"
)

// Logger is the process-wide logger. Services get it injected from main.
var Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

// InitLogger configures JSON output tagged with the service name. Unknown
// levels fall back to info.
func InitLogger(level, service string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.DurationFieldUnit = time.Millisecond
	zerolog.DurationFieldInteger = true

	Logger = zerolog.New(os.Stdout).With().Timestamp().Str("service", service).Logger()
}

// shortHash returns a 12 char prefix of the SHA256 of s, enough to
// correlate log lines without keeping the raw value.
func shortHash(s string) string {
	return hash.SHA256Hex(s)[:12]
}

// SanitizePath replaces post and user ids in a request path with
// placeholders, keeping logs and metric labels free of identifiers.
func SanitizePath(path string) string {
	segments := strings.Split(path, "/")
	for i := 1; i < len(segments); i++ {
		switch segments[i-1] {
		case "posts":
			segments[i] = ":postId"
		case "users":
			segments[i] = ":userId"
		}
	}
	return strings.Join(segments, "/")
}

func levelFor(status int) zerolog.Level {
	switch {
	case status >= fiber.StatusInternalServerError:
		return zerolog.ErrorLevel
	case status >= fiber.StatusBadRequest:
		return zerolog.WarnLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewRequestLogger writes one line per request. Raw IPs never reach the log.
func NewRequestLogger() fiber.Handler {
	return func(c fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		Logger.WithLevel(levelFor(status)).
			Str("method", c.Method()).
			Str("path", SanitizePath(c.Path())).
			Int("status", status).
			Dur("duration_ms", time.Since(start)).
			Str("ip_hash", shortHash(c.IP())).
			Bool("authenticated", c.Get(fiber.HeaderAuthorization) != "").
			Int("bytes_sent", len(c.Response().Body())).
			Msg("request")

		return err
	}
}
