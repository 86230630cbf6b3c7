package handler

import (
	"errors"

	"github.com/gofiber/fiber/v3"

	"github.com/ancient666-pro/askit-dark-feed/internal/middleware"
	"github.com/ancient666-pro/askit-dark-feed/internal/model"
	"github.com/ancient666-pro/askit-dark-feed/internal/service"
)

const defaultTrendingCount = 10

type PollHandler struct {
	svc   *service.PollService
	cache *service.CacheService
}

func NewPollHandler(svc *service.PollService, cache *service.CacheService) *PollHandler {
	return &PollHandler{svc: svc, cache: cache}
}

// List handles GET /api/polls
func (h *PollHandler) List(c fiber.Ctx) error {
	if cached, err := h.cache.GetFeed(c.Context()); err == nil && cached != nil {
		Metrics.CacheHits.Inc()
		c.Set("Content-Type", "application/json")
		return c.Send(cached)
	}
	Metrics.CacheMisses.Inc()

	polls, err := h.svc.ListFeed(c.Context())
	if err != nil {
		return middleware.ErrorResponse(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch polls")
	}

	_ = h.cache.SetFeed(c.Context(), polls)
	return c.JSON(polls)
}

// Get handles GET /api/polls/:pollId
func (h *PollHandler) Get(c fiber.Ctx) error {
	pollID, errMsg := middleware.ValidateID("pollId", c.Params("pollId"))
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}

	if cached, err := h.cache.GetPoll(c.Context(), pollID); err == nil && cached != nil {
		Metrics.CacheHits.Inc()
		c.Set("Content-Type", "application/json")
		return c.Send(cached)
	}
	Metrics.CacheMisses.Inc()

	poll, err := h.svc.Get(c.Context(), pollID)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return middleware.ErrorResponse(c, fiber.StatusNotFound, "NOT_FOUND", "Poll not found")
		}
		return middleware.ErrorResponse(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch poll")
	}

	_ = h.cache.SetPoll(c.Context(), pollID, poll)
	return c.JSON(poll)
}

// Create handles POST /api/polls
func (h *PollHandler) Create(c fiber.Ctx) error {
	var req model.CreatePollRequest
	if err := c.Bind().JSON(&req); err != nil {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_BODY", "Invalid request body")
	}

	// Validate question
	question, errMsg := middleware.ValidateQuestion(req.Question)
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "VALIDATION_ERROR", errMsg)
	}
	req.Question = question

	// Validate options. A binary poll may omit them; the service fills in
	// the fixed Yes/No pair.
	if req.Type != model.PollTypeBinary || len(req.Options) > 0 {
		options, errMsg := middleware.ValidateOptions(req.Options)
		if errMsg != "" {
			return middleware.ErrorResponse(c, fiber.StatusBadRequest, "VALIDATION_ERROR", errMsg)
		}
		req.Options = options
	}

	poll, err := h.svc.Create(c.Context(), req)
	if err != nil {
		var verr *service.ValidationError
		switch {
		case errors.As(err, &verr):
			return middleware.ErrorResponse(c, fiber.StatusBadRequest, "VALIDATION_ERROR", verr.Msg)
		case errors.Is(err, service.ErrPermissionDenied):
			return middleware.ErrorResponse(c, fiber.StatusForbidden, "PERMISSION_DENIED", "The store rejected the write")
		default:
			return middleware.ErrorResponse(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create poll")
		}
	}

	Metrics.PollsCreated.Inc()
	return c.Status(fiber.StatusCreated).JSON(poll)
}

// Trending handles GET /api/polls/trending?count=N
func (h *PollHandler) Trending(c fiber.Ctx) error {
	count := fiber.Query[int](c, "count", defaultTrendingCount)
	if count < 1 {
		count = defaultTrendingCount
	}

	polls, err := h.svc.Trending(c.Context(), count)
	if err != nil {
		return middleware.ErrorResponse(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch trending polls")
	}

	return c.JSON(polls)
}
