// Package ledger implements the device-scoped vote ledger: at most one
// recorded option per poll per device. The backing store is an injectable
// key-value interface so the same logic runs against Redis in production and
// an in-memory map in tests.
package ledger

import (
	"context"
	"fmt"
	"log"
)

// KV is the persistence boundary for the ledger. Get reports ok=false when
// the key is absent. Set must not be called for a key that already exists;
// the ledger enforces that above this interface.
type KV interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
}

// Ledger gates duplicate votes per device. It is a best-effort deterrent:
// losing the backing store silently permits re-voting, which is accepted.
type Ledger struct {
	kv KV
}

func New(kv KV) *Ledger {
	return &Ledger{kv: kv}
}

func voteKey(deviceID, pollID string) string {
	return fmt.Sprintf("vote:%s:%s", deviceID, pollID)
}

// HasVoted reports whether the device already voted on the poll. Store
// failures degrade to "not voted" rather than failing the request.
func (l *Ledger) HasVoted(ctx context.Context, deviceID, pollID string) bool {
	_, ok, err := l.kv.Get(ctx, voteKey(deviceID, pollID))
	if err != nil {
		log.Printf("ledger: read error, treating as not voted: %v", err)
		return false
	}
	return ok
}

// VotedOption returns the option the device chose, if any.
func (l *Ledger) VotedOption(ctx context.Context, deviceID, pollID string) (string, bool) {
	v, ok, err := l.kv.Get(ctx, voteKey(deviceID, pollID))
	if err != nil {
		log.Printf("ledger: read error, treating as not voted: %v", err)
		return "", false
	}
	return v, ok
}

// RecordVote writes the device's choice. An existing entry is never
// overwritten, so rapid repeated calls keep the first recorded option.
func (l *Ledger) RecordVote(ctx context.Context, deviceID, pollID, optionID string) error {
	key := voteKey(deviceID, pollID)
	if _, ok, err := l.kv.Get(ctx, key); err != nil {
		return err
	} else if ok {
		return nil
	}
	return l.kv.Set(ctx, key, optionID)
}
