package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jason-s-yu/fittogether/internal/common"
	"github.com/jason-s-yu/fittogether/internal/models"
)

const userColumns = `id, name, email, password, avatar_url, bio, location, level, is_admin, partners::text[], created_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var (
		u        models.User
		partners []string
	)
	err := row.Scan(
		&u.ID, &u.Name, &u.Email, &u.Password,
		&u.AvatarURL, &u.Bio, &u.Location, &u.Level,
		&u.IsAdmin, &partners, &u.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.Partners = make([]uuid.UUID, 0, len(partners))
	for _, p := range partners {
		id, err := uuid.Parse(p)
		if err != nil {
			return nil, fmt.Errorf("bad partner id %q: %w", p, err)
		}
		u.Partners = append(u.Partners, id)
	}
	return &u, nil
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

// CreateUser inserts a new account. user.Password must already be hashed.
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	q := `INSERT INTO users (id, name, email, password, avatar_url, bio, location, level, is_admin, created_at)
	      VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := s.db.Exec(ctx, q,
		user.ID, user.Name, user.Email, user.Password,
		user.AvatarURL, user.Bio, user.Location, user.Level,
		user.IsAdmin, user.CreatedAt,
	)
	return wrapErr("insert user", err)
}

func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE id=$1`
	u, err := scanUser(s.db.QueryRow(ctx, q, id))
	if err != nil {
		return nil, wrapErr("get user", err)
	}
	return u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE lower(email)=lower($1)`
	u, err := scanUser(s.db.QueryRow(ctx, q, email))
	if err != nil {
		return nil, wrapErr("get user by email", err)
	}
	return u, nil
}

func (s *Store) UpdateAvatar(ctx context.Context, id uuid.UUID, url string) error {
	ct, err := s.db.Exec(ctx, `UPDATE users SET avatar_url=$1 WHERE id=$2`, url, id)
	if err != nil {
		return wrapErr("update avatar", err)
	}
	if ct.RowsAffected() == 0 {
		return common.ErrNotFound
	}
	return nil
}

// GetProfiles returns profiles in the order of ids; unknown ids are skipped.
func (s *Store) GetProfiles(ctx context.Context, ids []uuid.UUID) ([]models.PublicProfile, error) {
	q := `
		SELECT u.id, u.name, u.avatar_url
		FROM unnest($1::text[]) WITH ORDINALITY AS want(id, ord)
		JOIN users u ON u.id = want.id::uuid
		ORDER BY want.ord
	`
	rows, err := s.db.Query(ctx, q, uuidStrings(ids))
	if err != nil {
		return nil, wrapErr("get profiles", err)
	}
	defer rows.Close()

	profiles := make([]models.PublicProfile, 0, len(ids))
	for rows.Next() {
		var p models.PublicProfile
		if err := rows.Scan(&p.ID, &p.Name, &p.AvatarURL); err != nil {
			return nil, wrapErr("scan profile", err)
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("get profiles", err)
	}
	return profiles, nil
}

// AddPartner appends partnerID to the user's set unless it is already there.
func (s *Store) AddPartner(ctx context.Context, userID, partnerID uuid.UUID) error {
	q := `
		UPDATE users
		SET partners = CASE WHEN $2 = ANY(partners) THEN partners ELSE array_append(partners, $2) END
		WHERE id = $1 AND EXISTS (SELECT 1 FROM users WHERE id = $2 FOR SHARE)
	`
	ct, err := s.db.Exec(ctx, q, userID, partnerID)
	if err != nil {
		return wrapErr("add partner", err)
	}
	if ct.RowsAffected() == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (s *Store) RemovePartner(ctx context.Context, userID, partnerID uuid.UUID) error {
	_, err := s.db.Exec(ctx, `UPDATE users SET partners = array_remove(partners, $2) WHERE id = $1`, userID, partnerID)
	return wrapErr("remove partner", err)
}

func (s *Store) PullPartnerEverywhere(ctx context.Context, partnerID uuid.UUID) error {
	q := `UPDATE users SET partners = array_remove(partners, $1) WHERE partners @> ARRAY[$1::uuid]`
	_, err := s.db.Exec(ctx, q, partnerID)
	return wrapErr("pull partner", err)
}

// DeleteUser deletes the row, then pulls the id from partner sets once more
// in a fresh statement so links added by an accept that committed while the
// delete waited on its row lock are removed too.
func (s *Store) DeleteUser(ctx context.Context, id uuid.UUID) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM users WHERE id=$1`, id); err != nil {
		return wrapErr("delete user", err)
	}
	return s.PullPartnerEverywhere(ctx, id)
}
