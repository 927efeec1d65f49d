package repositories

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Database is the subset of pgxpool.Pool the repositories use. Satisfied by
// *pgxpool.Pool and by pgxmock in tests.
type Database interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Sentinel errors for normal negative outcomes. Callers treat these as
// structured results, not faults.
var (
	ErrNoActiveSubscription        = errors.New("no active subscription")
	ErrQuotaExhausted              = errors.New("monthly quota exhausted")
	ErrDuplicateActiveSubscription = errors.New("user already has an active subscription")
	ErrDuplicatePlanName           = errors.New("a plan with that name already exists")
	ErrNotFound                    = errors.New("not found")
)

// IsUniqueViolation reports whether err is a Postgres unique constraint
// rejection (the store refusing a structurally invalid write).
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// IsCheckViolation reports whether err is a Postgres check constraint
// rejection.
func IsCheckViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23514"
}

// IsForeignKeyViolation reports whether err is a Postgres referential
// integrity rejection.
func IsForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
