package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jason-s-yu/fittogether/internal/partner"
)

func nullableUUID(id uuid.UUID) any {
	if id == uuid.Nil {
		return nil
	}
	return id
}

// InsertEvents appends evs to the partner_events log with a single COPY.
func (s *Store) InsertEvents(ctx context.Context, evs []partner.Event) error {
	if len(evs) == 0 {
		return nil
	}
	_, err := s.db.CopyFrom(ctx,
		pgx.Identifier{"partner_events"},
		[]string{"type", "request_id", "actor_id", "other_id", "occurred_at"},
		pgx.CopyFromSlice(len(evs), func(i int) ([]any, error) {
			ev := evs[i]
			return []any{string(ev.Type), nullableUUID(ev.RequestID), ev.From, nullableUUID(ev.To), ev.At}, nil
		}),
	)
	return wrapErr("insert partner events", err)
}
