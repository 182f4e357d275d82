package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jason-s-yu/fittogether/internal/common"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// wrapErr maps driver errors onto the common sentinels. A foreign key
// violation means a referenced row is gone. Other server-side errors are
// passed through wrapped; anything that
// never reached the server counts as the store being unavailable.
func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, common.ErrNotFound)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == uniqueViolation {
			return fmt.Errorf("%s: %w: %s", op, common.ErrConflict, pgErr.ConstraintName)
		}
		if pgErr.Code == foreignKeyViolation {
			return fmt.Errorf("%s: %w: %s", op, common.ErrNotFound, pgErr.ConstraintName)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, common.ErrUnavailable, err)
}
