package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jason-s-yu/fittogether/internal/models"
)

const requestColumns = `id, from_user_id, to_user_id, status, created_at, updated_at`

func scanRequest(row pgx.Row) (*models.PartnerRequest, error) {
	var r models.PartnerRequest
	if err := row.Scan(&r.ID, &r.From, &r.To, &r.Status, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

// InsertRequest stores a new request. The partial unique index on pending
// (from_user_id, to_user_id) turns a concurrent duplicate into common.ErrConflict.
func (s *Store) InsertRequest(ctx context.Context, req *models.PartnerRequest) error {
	q := `
		INSERT INTO partner_requests (id, from_user_id, to_user_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.db.Exec(ctx, q, req.ID, req.From, req.To, req.Status, req.CreatedAt, req.UpdatedAt)
	return wrapErr("insert partner request", err)
}

func (s *Store) GetRequest(ctx context.Context, id uuid.UUID) (*models.PartnerRequest, error) {
	q := `SELECT ` + requestColumns + ` FROM partner_requests WHERE id=$1`
	r, err := scanRequest(s.db.QueryRow(ctx, q, id))
	if err != nil {
		return nil, wrapErr("get partner request", err)
	}
	return r, nil
}

func (s *Store) FindPendingRequest(ctx context.Context, from, to uuid.UUID) (*models.PartnerRequest, error) {
	q := `
		SELECT ` + requestColumns + `
		FROM partner_requests
		WHERE from_user_id=$1 AND to_user_id=$2 AND status='pending'
	`
	r, err := scanRequest(s.db.QueryRow(ctx, q, from, to))
	if err != nil {
		return nil, wrapErr("find pending request", err)
	}
	return r, nil
}

// TransitionRequest only touches the row while its status is still `from`,
// so of two racing responders exactly one sees applied=true.
func (s *Store) TransitionRequest(ctx context.Context, id uuid.UUID, from, to models.RequestStatus) (bool, error) {
	q := `
		UPDATE partner_requests
		SET status=$3, updated_at=NOW()
		WHERE id=$1 AND status=$2
	`
	ct, err := s.db.Exec(ctx, q, id, from, to)
	if err != nil {
		return false, wrapErr("transition partner request", err)
	}
	return ct.RowsAffected() == 1, nil
}

func (s *Store) listRequests(ctx context.Context, op, q string, userID uuid.UUID) ([]models.PartnerRequest, error) {
	rows, err := s.db.Query(ctx, q, userID)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	defer rows.Close()

	reqs := []models.PartnerRequest{}
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, wrapErr(op, err)
		}
		reqs = append(reqs, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(op, err)
	}
	return reqs, nil
}

func (s *Store) ListPendingTo(ctx context.Context, userID uuid.UUID) ([]models.PartnerRequest, error) {
	q := `
		SELECT ` + requestColumns + `
		FROM partner_requests
		WHERE to_user_id=$1 AND status='pending'
		ORDER BY created_at DESC
	`
	return s.listRequests(ctx, "list incoming requests", q, userID)
}

func (s *Store) ListPendingFrom(ctx context.Context, userID uuid.UUID) ([]models.PartnerRequest, error) {
	q := `
		SELECT ` + requestColumns + `
		FROM partner_requests
		WHERE from_user_id=$1 AND status='pending'
		ORDER BY created_at DESC
	`
	return s.listRequests(ctx, "list outgoing requests", q, userID)
}

func (s *Store) DeleteRequestsByUser(ctx context.Context, userID uuid.UUID) error {
	_, err := s.db.Exec(ctx, `DELETE FROM partner_requests WHERE from_user_id=$1 OR to_user_id=$1`, userID)
	return wrapErr("delete partner requests", err)
}
