package handler

import (
	"context"

	"github.com/gofiber/fiber/v3"

	"github.com/ancient666-pro/askit-dark-feed/internal/middleware"
	"github.com/ancient666-pro/askit-dark-feed/internal/model"
	"github.com/ancient666-pro/askit-dark-feed/pkg/deviceid"
)

type DeviceHandler struct{}

func NewDeviceHandler() *DeviceHandler {
	return &DeviceHandler{}
}

// headerStore adapts the request/response headers to the deviceid store: the
// client presents its id in X-Device-ID and persists whatever the response
// carries. An invalid or absent header reads as empty, forcing a fresh mint.
type headerStore struct {
	c fiber.Ctx
}

func (s headerStore) Get(ctx context.Context, key string) (string, bool, error) {
	id, errMsg := middleware.ValidateDeviceID(s.c.Get("X-Device-ID"))
	if errMsg != "" {
		return "", false, nil
	}
	return id, true, nil
}

func (s headerStore) Set(ctx context.Context, key, value string) error {
	s.c.Set("X-Device-ID", value)
	return nil
}

// Mint handles POST /api/devices. A client that already holds an identifier
// gets it echoed back unchanged; anyone else gets a fresh one.
func (h *DeviceHandler) Mint(c fiber.Ctx) error {
	id, err := deviceid.NewManager(headerStore{c: c}).DeviceID(c.Context())
	if err != nil {
		return middleware.ErrorResponse(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "Failed to mint device id")
	}

	return c.Status(fiber.StatusCreated).JSON(model.DeviceResponse{
		DeviceID: id,
	})
}
