package service

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// Sentinel errors handlers map onto the API error taxonomy.
var (
	ErrNotFound           = errors.New("not found")
	ErrAlreadyVoted       = errors.New("already voted on this poll")
	ErrVerificationFailed = errors.New("payment signature verification failed")
	ErrPermissionDenied   = errors.New("store rejected the write")
)

// ValidationError carries a user-facing message for a rejected request.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

func validationErr(msg string) error {
	return &ValidationError{Msg: msg}
}

// storeWriteErr maps a document-store write rejection (SQLSTATE 42501,
// insufficient_privilege) to its sentinel; other errors pass through.
func storeWriteErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "42501" {
		return ErrPermissionDenied
	}
	return err
}
