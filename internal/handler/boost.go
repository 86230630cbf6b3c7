package handler

import (
	"errors"

	"github.com/gofiber/fiber/v3"

	"github.com/ancient666-pro/askit-dark-feed/internal/middleware"
	"github.com/ancient666-pro/askit-dark-feed/internal/model"
	"github.com/ancient666-pro/askit-dark-feed/internal/payment"
	"github.com/ancient666-pro/askit-dark-feed/internal/service"
)

type BoostHandler struct {
	svc *service.BoostService
}

func NewBoostHandler(svc *service.BoostService) *BoostHandler {
	return &BoostHandler{svc: svc}
}

// CreateOrder handles POST /api/create-order
func (h *BoostHandler) CreateOrder(c fiber.Ctx) error {
	var req model.CreateOrderRequest
	if err := c.Bind().JSON(&req); err != nil {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_BODY", "Invalid request body")
	}

	pollID, errMsg := middleware.ValidateID("pollId", req.PollID)
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}

	resp, err := h.svc.CreateOrder(c.Context(), pollID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			return middleware.ErrorResponse(c, fiber.StatusNotFound, "NOT_FOUND", "Poll not found")
		case errors.Is(err, payment.ErrMissingCredentials):
			return middleware.ErrorResponse(c, fiber.StatusInternalServerError, "PAYMENT_NOT_CONFIGURED", "Payment credentials are not configured on the server")
		case errors.Is(err, service.ErrPermissionDenied):
			return middleware.ErrorResponse(c, fiber.StatusForbidden, "PERMISSION_DENIED", "The store rejected the write")
		default:
			return middleware.ErrorResponse(c, fiber.StatusInternalServerError, "PAYMENT_ERROR", "Failed to create payment order")
		}
	}

	Metrics.OrdersCreated.Inc()
	return c.JSON(resp)
}

// VerifyPayment handles POST /api/verify-payment
func (h *BoostHandler) VerifyPayment(c fiber.Ctx) error {
	var req model.VerifyPaymentRequest
	if err := c.Bind().JSON(&req); err != nil {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_BODY", "Invalid request body")
	}

	if req.OrderID == "" || req.PaymentID == "" || req.Signature == "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "MISSING_FIELDS", "razorpay_order_id, razorpay_payment_id, and razorpay_signature are required")
	}

	resp, err := h.svc.ConfirmPayment(c.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrVerificationFailed):
			return middleware.ErrorResponse(c, fiber.StatusBadRequest, "VERIFICATION_FAILED", "Payment signature verification failed")
		case errors.Is(err, service.ErrNotFound):
			return middleware.ErrorResponse(c, fiber.StatusNotFound, "NOT_FOUND", "Order not found")
		case errors.Is(err, payment.ErrMissingCredentials):
			return middleware.ErrorResponse(c, fiber.StatusInternalServerError, "PAYMENT_NOT_CONFIGURED", "Payment credentials are not configured on the server")
		case errors.Is(err, service.ErrPermissionDenied):
			return middleware.ErrorResponse(c, fiber.StatusForbidden, "PERMISSION_DENIED", "The store rejected the write")
		default:
			return middleware.ErrorResponse(c, fiber.StatusInternalServerError, "PAYMENT_ERROR", "Failed to verify payment")
		}
	}

	Metrics.BoostsCompleted.Inc()
	return c.JSON(resp)
}
