package middleware

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v3"

	"github.com/mathieu-neron/postrate/internal/model"
)

const identityLocal = "identity"

// IdentityResolver resolves the caller of a request.
type IdentityResolver interface {
	Resolve(ctx context.Context, ip, authorization string) (model.Identity, error)
}

// ResolveIdentity resolves the caller once per request and stores it for
// handlers. Unusable credentials end the request with 401.
func ResolveIdentity(resolver IdentityResolver) fiber.Handler {
	return func(c fiber.Ctx) error {
		id, err := resolver.Resolve(c.Context(), c.IP(), c.Get(fiber.HeaderAuthorization))
		if errors.Is(err, model.ErrInvalidSession) {
			return ErrorResponse(c, fiber.StatusUnauthorized, "INVALID_SESSION", "Session is invalid or expired")
		}
		if err != nil {
			Logger.Error().Err(err).Msg("identity resolution failed")
			return ErrorResponse(c, fiber.StatusServiceUnavailable, "TRANSIENT_FAILURE", "Could not resolve caller, try again")
		}
		c.Locals(identityLocal, id)
		return c.Next()
	}
}

// IdentityFrom returns the identity stored by ResolveIdentity.
func IdentityFrom(c fiber.Ctx) (model.Identity, bool) {
	id, ok := c.Locals(identityLocal).(model.Identity)
	return id, ok && id != nil
}
