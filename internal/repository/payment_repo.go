package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ancient666-pro/askit-dark-feed/internal/model"
)

type PaymentRepo struct {
	pool *pgxpool.Pool
}

func NewPaymentRepo(pool *pgxpool.Pool) *PaymentRepo {
	return &PaymentRepo{pool: pool}
}

// CreatePending records a boost attempt in the pending state. One row per
// attempt; rows are never deleted.
func (r *PaymentRepo) CreatePending(ctx context.Context, pollID, orderID string, amount int, currency string) (*model.Payment, error) {
	p := model.Payment{
		ID:       uuid.NewString(),
		PollID:   pollID,
		OrderID:  orderID,
		Amount:   amount,
		Currency: currency,
		Status:   model.PaymentStatusPending,
	}

	err := r.pool.QueryRow(ctx, `
		INSERT INTO payments (id, poll_id, order_id, amount, currency)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`,
		p.ID, p.PollID, p.OrderID, p.Amount, p.Currency).Scan(&p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// FindByOrderID returns the payment row for a provider order id.
func (r *PaymentRepo) FindByOrderID(ctx context.Context, orderID string) (*model.Payment, error) {
	var p model.Payment
	err := r.pool.QueryRow(ctx, `
		SELECT id, poll_id, order_id, COALESCE(payment_id, ''), amount, currency, status, created_at, completed_at
		FROM payments
		WHERE order_id = $1`,
		orderID).Scan(
		&p.ID, &p.PollID, &p.OrderID, &p.PaymentID, &p.Amount, &p.Currency,
		&p.Status, &p.CreatedAt, &p.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Complete moves a pending payment to completed, stamping the provider
// payment id and the completion time. Calling it again on an already
// completed row is a no-op on status.
func (r *PaymentRepo) Complete(ctx context.Context, orderID, paymentID string) (*model.Payment, error) {
	var p model.Payment
	err := r.pool.QueryRow(ctx, `
		UPDATE payments
		SET status = $2, payment_id = $3, completed_at = COALESCE(completed_at, NOW())
		WHERE order_id = $1
		RETURNING id, poll_id, order_id, COALESCE(payment_id, ''), amount, currency, status, created_at, completed_at`,
		orderID, model.PaymentStatusCompleted, paymentID).Scan(
		&p.ID, &p.PollID, &p.OrderID, &p.PaymentID, &p.Amount, &p.Currency,
		&p.Status, &p.CreatedAt, &p.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetStats returns aggregate counters across polls, votes, and boosts.
func (r *PaymentRepo) GetStats(ctx context.Context) (*model.StatsResponse, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM polls) AS total_polls,
			(SELECT COALESCE(SUM(total_votes), 0) FROM polls) AS total_votes,
			(SELECT COUNT(*) FROM polls WHERE is_pinned AND pin_expires_at > NOW()) AS active_pins,
			(SELECT COUNT(*) FROM payments WHERE status = 'completed') AS completed_boosts,
			(SELECT COUNT(*) FROM vote_events WHERE created_at > NOW() - INTERVAL '24 hours') AS votes_24h`

	var stats model.StatsResponse
	err := r.pool.QueryRow(ctx, query).Scan(
		&stats.TotalPolls, &stats.TotalVotes, &stats.ActivePins,
		&stats.CompletedBoosts, &stats.Votes24h,
	)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}
