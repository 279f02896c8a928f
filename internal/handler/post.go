package handler

import (
	"github.com/gofiber/fiber/v3"

	"github.com/mathieu-neron/postrate/internal/middleware"
	"github.com/mathieu-neron/postrate/internal/service"
)

type PostHandler struct {
	svc *service.RatingService
}

func NewPostHandler(svc *service.RatingService) *PostHandler {
	return &PostHandler{svc: svc}
}

// GetRating handles GET /api/posts/:postId/rating
func (h *PostHandler) GetRating(c fiber.Ctx) error {
	postID, errMsg := middleware.ValidatePostID(c.Params("postId"))
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}

	resp, err := h.svc.GetRating(c.Context(), postID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(resp)
}
