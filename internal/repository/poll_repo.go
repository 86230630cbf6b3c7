package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ancient666-pro/askit-dark-feed/internal/model"
)

type PollRepo struct {
	pool *pgxpool.Pool
}

func NewPollRepo(pool *pgxpool.Pool) *PollRepo {
	return &PollRepo{pool: pool}
}

// List returns all polls with their options, newest first. Pin ordering and
// trending order are applied by the service layer on top of this base order.
func (r *PollRepo) List(ctx context.Context) ([]model.Poll, error) {
	query := `
		SELECT id, question, type, total_votes, trend_score, is_pinned, pin_expires_at, created_at
		FROM polls
		ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var polls []model.Poll
	var ids []string
	for rows.Next() {
		var p model.Poll
		err := rows.Scan(
			&p.ID, &p.Question, &p.Type, &p.TotalVotes, &p.TrendScore,
			&p.IsPinned, &p.PinExpiresAt, &p.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		polls = append(polls, p)
		ids = append(ids, p.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(polls) == 0 {
		return polls, nil
	}

	byPoll, err := r.optionsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range polls {
		polls[i].Options = byPoll[polls[i].ID]
	}
	return polls, nil
}

// FindByID returns a single poll with its options.
func (r *PollRepo) FindByID(ctx context.Context, pollID string) (*model.Poll, error) {
	query := `
		SELECT id, question, type, total_votes, trend_score, is_pinned, pin_expires_at, created_at
		FROM polls
		WHERE id = $1`

	var p model.Poll
	err := r.pool.QueryRow(ctx, query, pollID).Scan(
		&p.ID, &p.Question, &p.Type, &p.TotalVotes, &p.TrendScore,
		&p.IsPinned, &p.PinExpiresAt, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	byPoll, err := r.optionsFor(ctx, []string{p.ID})
	if err != nil {
		return nil, err
	}
	p.Options = byPoll[p.ID]
	return &p, nil
}

func (r *PollRepo) optionsFor(ctx context.Context, pollIDs []string) (map[string][]model.PollOption, error) {
	query := `
		SELECT poll_id, id, text, votes
		FROM poll_options
		WHERE poll_id = ANY($1)
		ORDER BY poll_id, position`

	rows, err := r.pool.Query(ctx, query, pollIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byPoll := make(map[string][]model.PollOption, len(pollIDs))
	for rows.Next() {
		var pollID string
		var o model.PollOption
		if err := rows.Scan(&pollID, &o.ID, &o.Text, &o.Votes); err != nil {
			return nil, err
		}
		byPoll[pollID] = append(byPoll[pollID], o)
	}
	return byPoll, rows.Err()
}

// Create inserts a poll and its options, assigning the store id and the
// server timestamp. Option ids must already be set by the caller.
func (r *PollRepo) Create(ctx context.Context, question, pollType string, options []model.PollOption) (*model.Poll, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	p := model.Poll{
		ID:       uuid.NewString(),
		Question: question,
		Type:     pollType,
		Options:  options,
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO polls (id, question, type) VALUES ($1, $2, $3)
		RETURNING created_at`,
		p.ID, p.Question, p.Type).Scan(&p.CreatedAt)
	if err != nil {
		return nil, err
	}

	for i, o := range options {
		_, err = tx.Exec(ctx, `
			INSERT INTO poll_options (id, poll_id, text, votes, position)
			VALUES ($1, $2, $3, $4, $5)`,
			o.ID, p.ID, o.Text, o.Votes, i)
		if err != nil {
			return nil, err
		}
		p.TotalVotes += o.Votes
	}

	if p.TotalVotes > 0 {
		_, err = tx.Exec(ctx, `UPDATE polls SET total_votes = $1 WHERE id = $2`, p.TotalVotes, p.ID)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &p, nil
}

// CastVote atomically increments the chosen option's count and the poll's
// total. The increment is a single-row UPDATE at the store, never a
// read-modify-write of the whole document, so concurrent voters cannot lose
// updates. Returns pgx.ErrNoRows when the poll or option is unknown.
func (r *PollRepo) CastVote(ctx context.Context, pollID, optionID, deviceID string) (*model.Poll, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE poll_options SET votes = votes + 1
		WHERE poll_id = $1 AND id = $2`,
		pollID, optionID)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, pgx.ErrNoRows
	}

	_, err = tx.Exec(ctx, `
		UPDATE polls SET total_votes = total_votes + 1 WHERE id = $1`, pollID)
	if err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO vote_events (poll_id, option_id, device_id)
		VALUES ($1, $2, $3)`,
		pollID, optionID, deviceID)
	if err != nil {
		return nil, err
	}

	// Wake the trend worker for this poll.
	_, err = tx.Exec(ctx, `SELECT pg_notify('vote_changes', $1)`, pollID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return r.FindByID(ctx, pollID)
}

// SetPinned pins a poll with a server-assigned expiry one hour out. The
// expiry is computed at the store so every client observes the same clock.
func (r *PollRepo) SetPinned(ctx context.Context, pollID string) (*time.Time, error) {
	var expiresAt time.Time
	err := r.pool.QueryRow(ctx, `
		UPDATE polls
		SET is_pinned = TRUE, pin_expires_at = NOW() + INTERVAL '1 hour'
		WHERE id = $1
		RETURNING pin_expires_at`,
		pollID).Scan(&expiresAt)
	if err != nil {
		return nil, err
	}
	return &expiresAt, nil
}

// ClearExpiredPins demotes every poll whose pin has lapsed. Idempotent: a
// poll already unpinned is untouched, and concurrent calls race harmlessly.
func (r *PollRepo) ClearExpiredPins(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE polls
		SET is_pinned = FALSE, pin_expires_at = NULL
		WHERE is_pinned AND pin_expires_at <= NOW()`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// UpdateTrendScore persists a recalculated trend score for one poll.
func (r *PollRepo) UpdateTrendScore(ctx context.Context, pollID string, score float64) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE polls SET trend_score = $1 WHERE id = $2`, score, pollID)
	return err
}

// seedLockID keys the advisory lock serializing sample seeding.
const seedLockID = 794211

// SeedSamples inserts the fixed sample polls when the store is empty. Under
// READ COMMITTED two concurrent transactions can both read COUNT(*) = 0, so
// an advisory transaction lock serializes the count check with the inserts;
// the lock releases at commit or rollback.
func (r *PollRepo) SeedSamples(ctx context.Context, samples []model.Poll) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, seedLockID); err != nil {
		return err
	}

	var count int64
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM polls`).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	for _, p := range samples {
		_, err = tx.Exec(ctx, `
			INSERT INTO polls (id, question, type, total_votes, created_at)
			VALUES ($1, $2, $3, $4, $5)`,
			p.ID, p.Question, p.Type, p.TotalVotes, p.CreatedAt)
		if err != nil {
			return err
		}
		for i, o := range p.Options {
			_, err = tx.Exec(ctx, `
				INSERT INTO poll_options (id, poll_id, text, votes, position)
				VALUES ($1, $2, $3, $4, $5)`,
				o.ID, p.ID, o.Text, o.Votes, i)
			if err != nil {
				return err
			}
		}
	}

	return tx.Commit(ctx)
}
