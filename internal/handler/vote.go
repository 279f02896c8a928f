package handler

import (
	"github.com/gofiber/fiber/v3"

	"github.com/mathieu-neron/postrate/internal/middleware"
	"github.com/mathieu-neron/postrate/internal/model"
	"github.com/mathieu-neron/postrate/internal/service"
)

type VoteHandler struct {
	svc          *service.VoteService
	cookieName   string
	secureCookie bool
}

func NewVoteHandler(svc *service.VoteService, cookieName string, secureCookie bool) *VoteHandler {
	return &VoteHandler{svc: svc, cookieName: cookieName, secureCookie: secureCookie}
}

// Submit handles POST /api/posts/:postId/votes
func (h *VoteHandler) Submit(c fiber.Ctx) error {
	postID, errMsg := middleware.ValidatePostID(c.Params("postId"))
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}

	var req model.VoteRequest
	if err := c.Bind().JSON(&req); err != nil {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_BODY", "Invalid request body")
	}
	if errMsg := middleware.ValidateRating(req.Rating); errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}
	voteCtx, errMsg := middleware.ValidateVoteContext(req.Context)
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}

	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		return middleware.ErrorResponse(c, fiber.StatusUnauthorized, "INVALID_SESSION", "Caller could not be identified")
	}

	submit := service.SubmitRequest{
		Identity: identity,
		PostID:   postID,
		Rating:   req.Rating,
		Context:  string(voteCtx),
	}
	if _, anon := identity.(model.Anonymous); anon {
		submit.AnonToken = c.Cookies(h.cookieName)
	}

	res, err := h.svc.Submit(c.Context(), submit)
	if err != nil {
		return writeError(c, err)
	}

	if res.AnonToken != "" {
		c.Cookie(&fiber.Cookie{
			Name:     h.cookieName,
			Value:    res.AnonToken,
			Path:     "/",
			Expires:  res.AnonExpiresAt,
			HTTPOnly: true,
			Secure:   h.secureCookie,
			SameSite: fiber.CookieSameSiteLaxMode,
		})
	}

	return c.Status(fiber.StatusCreated).JSON(res.Response)
}
