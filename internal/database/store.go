package database

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/fittogether/internal/partner"
)

// querier is the part of the API shared by *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// Store is the Postgres implementation of the user directory, the partner
// request store and the post repository.
type Store struct {
	pool *pgxpool.Pool
	db   querier
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, db: pool}
}

// WithinTx runs fn against a Store bound to a single transaction. Nested
// calls reuse the outer transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(tx partner.Store) error) error {
	if s.pool == nil {
		return fn(s)
	}
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		return fn(&Store{db: tx})
	})
}
