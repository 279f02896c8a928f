package handler

import (
	"errors"

	"github.com/gofiber/fiber/v3"

	"github.com/mathieu-neron/postrate/internal/middleware"
	"github.com/mathieu-neron/postrate/internal/model"
)

// writeError maps engine errors onto the API error envelope.
func writeError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, model.ErrValidation):
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", err.Error())
	case errors.Is(err, model.ErrSelfVote):
		return middleware.ErrorResponse(c, fiber.StatusForbidden, "SELF_VOTE", "You cannot vote on your own post")
	case errors.Is(err, model.ErrDuplicateVote):
		return middleware.ErrorResponse(c, fiber.StatusConflict, "DUPLICATE_VOTE", "You already voted on this post")
	case errors.Is(err, model.ErrDailyLimitExceeded):
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
			"error": fiber.Map{
				"code":    "DAILY_LIMIT",
				"message": "Daily vote limit reached for anonymous visitors",
				"hint":    "Sign in to keep voting",
			},
		})
	case errors.Is(err, model.ErrPostNotFound):
		return middleware.ErrorResponse(c, fiber.StatusNotFound, "NOT_FOUND", "Post not found")
	case errors.Is(err, model.ErrInvalidSession):
		return middleware.ErrorResponse(c, fiber.StatusUnauthorized, "INVALID_SESSION", "Session is invalid or expired")
	case errors.Is(err, model.ErrAggregateUpdate):
		return middleware.ErrorResponse(c, fiber.StatusServiceUnavailable, "TRANSIENT_FAILURE", "Vote could not be recorded, try again")
	default:
		middleware.Logger.Error().Err(err).Str("path", middleware.SanitizePath(c.Path())).Msg("request failed")
		return middleware.ErrorResponse(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "Failed to process request")
	}
}
