package model

import "time"

// Payment statuses. A payment row is created as pending when a boost order is
// requested and only ever moves to completed after signature verification.
// Rows are never deleted.
const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
)

// Payment represents one boost attempt against a poll.
type Payment struct {
	ID          string     `json:"id"`
	PollID      string     `json:"pollId"`
	OrderID     string     `json:"orderId"`
	PaymentID   string     `json:"paymentId,omitempty"`
	Amount      int        `json:"amount"`
	Currency    string     `json:"currency"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// CreateOrderRequest is the API request body for starting a boost.
type CreateOrderRequest struct {
	PollID string `json:"pollId"`
}

// CreateOrderResponse is the API response with the provider order details.
type CreateOrderResponse struct {
	OrderID  string `json:"orderId"`
	Amount   int    `json:"amount"`
	Currency string `json:"currency"`
}

// VerifyPaymentRequest carries the checkout completion fields. Field names
// match what the Razorpay checkout handler delivers.
type VerifyPaymentRequest struct {
	OrderID   string `json:"razorpay_order_id"`
	PaymentID string `json:"razorpay_payment_id"`
	Signature string `json:"razorpay_signature"`
}

// VerifyPaymentResponse is the API response after verification.
type VerifyPaymentResponse struct {
	Verified     bool       `json:"verified"`
	OrderID      string     `json:"orderId"`
	PaymentID    string     `json:"paymentId"`
	PinExpiresAt *time.Time `json:"pinExpiresAt,omitempty"`
}
