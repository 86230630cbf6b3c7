package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ancient666-pro/askit-dark-feed/internal/model"
	"github.com/ancient666-pro/askit-dark-feed/internal/payment"
)

// PinStore is the pinning side of the poll store boundary.
type PinStore interface {
	FindByID(ctx context.Context, pollID string) (*model.Poll, error)
	SetPinned(ctx context.Context, pollID string) (*time.Time, error)
}

// PaymentStore records boost attempts and their completion.
type PaymentStore interface {
	CreatePending(ctx context.Context, pollID, orderID string, amount int, currency string) (*model.Payment, error)
	FindByOrderID(ctx context.Context, orderID string) (*model.Payment, error)
	Complete(ctx context.Context, orderID, paymentID string) (*model.Payment, error)
}

// Bridge is the payment provider boundary.
type Bridge interface {
	Configured() bool
	CreateOrder(ctx context.Context, pollID string) (*payment.Order, error)
	VerifySignature(orderID, paymentID, signature string) (bool, error)
}

// BoostService drives the pin lifecycle: Unpinned, Pending once an order
// exists, Pinned after signature verification, back to Unpinned on lazy
// expiry. The Pending state lives in the payments table, never on the poll
// document, so an abandoned checkout leaves the poll untouched.
type BoostService struct {
	polls    PinStore
	payments PaymentStore
	bridge   Bridge
	cache    *CacheService
}

func NewBoostService(polls PinStore, payments PaymentStore, bridge Bridge, cache *CacheService) *BoostService {
	return &BoostService{polls: polls, payments: payments, bridge: bridge, cache: cache}
}

// CreateOrder starts a boost: verifies the poll exists, requests a provider
// order, and records the attempt as pending.
func (s *BoostService) CreateOrder(ctx context.Context, pollID string) (*model.CreateOrderResponse, error) {
	if _, err := s.polls.FindByID(ctx, pollID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	order, err := s.bridge.CreateOrder(ctx, pollID)
	if err != nil {
		return nil, err
	}

	if _, err := s.payments.CreatePending(ctx, pollID, order.OrderID, order.Amount, order.Currency); err != nil {
		return nil, storeWriteErr(err)
	}

	return &model.CreateOrderResponse{
		OrderID:  order.OrderID,
		Amount:   order.Amount,
		Currency: order.Currency,
	}, nil
}

// ConfirmPayment completes the Pending to Pinned transition. The signature is
// checked before any state changes; on mismatch nothing is mutated and the
// user must restart the boost flow, no automatic retries.
func (s *BoostService) ConfirmPayment(ctx context.Context, req model.VerifyPaymentRequest) (*model.VerifyPaymentResponse, error) {
	ok, err := s.bridge.VerifySignature(req.OrderID, req.PaymentID, req.Signature)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrVerificationFailed
	}

	pay, err := s.payments.FindByOrderID(ctx, req.OrderID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if _, err := s.payments.Complete(ctx, req.OrderID, req.PaymentID); err != nil {
		return nil, storeWriteErr(err)
	}

	// Expiry is assigned by the store at commit time, one hour out.
	expiresAt, err := s.polls.SetPinned(ctx, pay.PollID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, storeWriteErr(err)
	}

	if s.cache != nil {
		if err := s.cache.InvalidatePoll(ctx, pay.PollID); err != nil {
			log.Printf("cache: invalidate poll error: %v", err)
		}
		if err := s.cache.InvalidateFeed(ctx); err != nil {
			log.Printf("cache: invalidate feed error: %v", err)
		}
	}

	return &model.VerifyPaymentResponse{
		Verified:     true,
		OrderID:      req.OrderID,
		PaymentID:    req.PaymentID,
		PinExpiresAt: expiresAt,
	}, nil
}
