package handler

import (
	"errors"

	"github.com/gofiber/fiber/v3"

	"github.com/ancient666-pro/askit-dark-feed/internal/middleware"
	"github.com/ancient666-pro/askit-dark-feed/internal/model"
	"github.com/ancient666-pro/askit-dark-feed/internal/service"
)

type VoteHandler struct {
	svc *service.PollService
}

func NewVoteHandler(svc *service.PollService) *VoteHandler {
	return &VoteHandler{svc: svc}
}

// Submit handles POST /api/votes
func (h *VoteHandler) Submit(c fiber.Ctx) error {
	var req model.VoteRequest
	if err := c.Bind().JSON(&req); err != nil {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_BODY", "Invalid request body")
	}

	// Validate pollId
	pollID, errMsg := middleware.ValidateID("pollId", req.PollID)
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}
	req.PollID = pollID

	// Validate optionId
	optionID, errMsg := middleware.ValidateID("optionId", req.OptionID)
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}
	req.OptionID = optionID

	// Validate deviceId
	deviceID, errMsg := middleware.ValidateDeviceID(req.DeviceID)
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}
	req.DeviceID = deviceID

	poll, err := h.svc.Vote(c.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAlreadyVoted):
			return middleware.ErrorResponse(c, fiber.StatusConflict, "ALREADY_VOTED", "This device has already voted on this poll")
		case errors.Is(err, service.ErrNotFound):
			return middleware.ErrorResponse(c, fiber.StatusNotFound, "NOT_FOUND", "Poll or option not found")
		case errors.Is(err, service.ErrPermissionDenied):
			return middleware.ErrorResponse(c, fiber.StatusForbidden, "PERMISSION_DENIED", "The store rejected the write")
		default:
			return middleware.ErrorResponse(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "Failed to submit vote")
		}
	}

	Metrics.VotesTotal.WithLabelValues(poll.Type).Inc()
	return c.JSON(model.VoteResponse{Success: true, Poll: poll})
}

// GetVoted handles GET /api/votes?pollId=X&deviceId=Y
func (h *VoteHandler) GetVoted(c fiber.Ctx) error {
	pollID, errMsg := middleware.ValidateID("pollId", fiber.Query[string](c, "pollId"))
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}

	deviceID, errMsg := middleware.ValidateDeviceID(fiber.Query[string](c, "deviceId"))
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}

	return c.JSON(h.svc.VotedOption(c.Context(), deviceID, pollID))
}
