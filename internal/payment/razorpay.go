// Package payment talks to the Razorpay order API and verifies checkout
// signatures. The key secret never leaves this trusted boundary; clients only
// ever see the publishable key.
package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// BoostAmountPaise is the fixed boost fee: ₹10.00 in paise.
const BoostAmountPaise = 1000

// BoostCurrency is the settlement currency for boost orders.
const BoostCurrency = "INR"

const requestTimeout = 10 * time.Second

// ErrMissingCredentials is returned when the Razorpay key pair is not
// configured. Surfaced to callers as a fatal configuration error, never
// silently swallowed.
var ErrMissingCredentials = errors.New("missing razorpay credentials")

// ServerError carries a non-2xx response from the provider, body included.
type ServerError struct {
	Status int
	Body   string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("razorpay: status %d: %s", e.Status, e.Body)
}

// Order is the provider's order record as returned on creation.
type Order struct {
	OrderID  string
	Amount   int
	Currency string
	Receipt  string
}

// Client is the HTTP client for the order-creation endpoint.
type Client struct {
	keyID     string
	keySecret string
	baseURL   string
	http      *http.Client
}

func NewClient(keyID, keySecret, baseURL string) *Client {
	return &Client{
		keyID:     keyID,
		keySecret: keySecret,
		baseURL:   baseURL,
		http:      &http.Client{Timeout: requestTimeout},
	}
}

// Configured reports whether both halves of the key pair are present.
func (c *Client) Configured() bool {
	return c.keyID != "" && c.keySecret != ""
}

type orderRequest struct {
	Amount   int               `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

type orderResponse struct {
	ID       string `json:"id"`
	Amount   int    `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// CreateOrder creates a boost order for a poll at the fixed fee. Non-2xx
// responses surface the remote error body.
func (c *Client) CreateOrder(ctx context.Context, pollID string) (*Order, error) {
	if !c.Configured() {
		return nil, ErrMissingCredentials
	}

	body, err := json.Marshal(orderRequest{
		Amount:   BoostAmountPaise,
		Currency: BoostCurrency,
		Receipt:  fmt.Sprintf("poll_boost_%s_%d", pollID, time.Now().UnixMilli()),
		Notes:    map[string]string{"pollId": pollID},
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.keyID, c.keySecret)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("razorpay: create order: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ServerError{Status: resp.StatusCode, Body: string(respBody)}
	}

	var or orderResponse
	if err := json.Unmarshal(respBody, &or); err != nil {
		return nil, fmt.Errorf("razorpay: decode order response: %w", err)
	}

	return &Order{
		OrderID:  or.ID,
		Amount:   or.Amount,
		Currency: or.Currency,
		Receipt:  or.Receipt,
	}, nil
}

// VerifySignature checks a checkout completion against the key secret.
func (c *Client) VerifySignature(orderID, paymentID, signature string) (bool, error) {
	if c.keySecret == "" {
		return false, ErrMissingCredentials
	}
	return VerifySignature(c.keySecret, orderID, paymentID, signature), nil
}

// VerifySignature recomputes HMAC-SHA256 over "orderID|paymentID" with the
// given secret and compares it to the supplied hex signature. True only on an
// exact match.
func VerifySignature(secret, orderID, paymentID, signature string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
