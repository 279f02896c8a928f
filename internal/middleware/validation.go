package middleware

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/mathieu-neron/postrate/internal/model"
)

// MaxPostIDLen matches posts.post_id VARCHAR(64).
const MaxPostIDLen = 64

var postIDRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ErrorResponse is a helper that returns a standard API error response.
func ErrorResponse(c fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    code,
			"message": message,
		},
	})
}

// ValidatePostID checks that a post ID is well-formed and within DB limits.
func ValidatePostID(id string) (string, string) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", "postId is required"
	}
	if len(id) > MaxPostIDLen {
		return "", fmt.Sprintf("postId must be at most %d characters", MaxPostIDLen)
	}
	if !postIDRe.MatchString(id) {
		return "", "postId contains invalid characters"
	}
	return id, ""
}

// ValidateRating checks the rating bounds.
func ValidateRating(rating int) string {
	if rating < model.MinRating || rating > model.MaxRating {
		return fmt.Sprintf("rating must be an integer between %d and %d", model.MinRating, model.MaxRating)
	}
	return ""
}

// ValidateVoteContext normalizes the optional vote context, defaulting to DIRECT.
func ValidateVoteContext(raw string) (model.VoteContext, string) {
	raw = strings.ToUpper(strings.TrimSpace(raw))
	if raw == "" {
		return model.VoteContextDirect, ""
	}
	vc := model.VoteContext(raw)
	if !vc.Valid() {
		return "", "context must be DIRECT or REFERRAL"
	}
	return vc, ""
}
