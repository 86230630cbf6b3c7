package handler

import (
	"github.com/gofiber/fiber/v3"

	"github.com/ancient666-pro/askit-dark-feed/internal/middleware"
	"github.com/ancient666-pro/askit-dark-feed/internal/repository"
)

type StatsHandler struct {
	repo *repository.PaymentRepo
}

func NewStatsHandler(repo *repository.PaymentRepo) *StatsHandler {
	return &StatsHandler{repo: repo}
}

// GetStats handles GET /api/stats
func (h *StatsHandler) GetStats(c fiber.Ctx) error {
	stats, err := h.repo.GetStats(c.Context())
	if err != nil {
		return middleware.ErrorResponse(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch statistics")
	}

	return c.JSON(stats)
}
