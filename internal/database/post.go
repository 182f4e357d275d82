package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jason-s-yu/fittogether/internal/common"
	"github.com/jason-s-yu/fittogether/internal/models"
)

func (s *Store) CreatePost(ctx context.Context, p *models.Post) error {
	q := `INSERT INTO posts (id, author_id, image_url, description, created_at) VALUES ($1, $2, $3, $4, $5)`
	_, err := s.db.Exec(ctx, q, p.ID, p.AuthorID, p.ImageURL, p.Description, p.CreatedAt)
	return wrapErr("insert post", err)
}

func (s *Store) GetPost(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	var p models.Post
	q := `SELECT id, author_id, image_url, description, created_at FROM posts WHERE id=$1`
	err := s.db.QueryRow(ctx, q, id).Scan(&p.ID, &p.AuthorID, &p.ImageURL, &p.Description, &p.CreatedAt)
	if err != nil {
		return nil, wrapErr("get post", err)
	}
	return &p, nil
}

func (s *Store) ListPostsByAuthor(ctx context.Context, authorID uuid.UUID) ([]models.Post, error) {
	q := `
		SELECT id, author_id, image_url, description, created_at
		FROM posts
		WHERE author_id=$1
		ORDER BY created_at DESC
	`
	rows, err := s.db.Query(ctx, q, authorID)
	if err != nil {
		return nil, wrapErr("list posts", err)
	}
	defer rows.Close()

	posts := []models.Post{}
	for rows.Next() {
		var p models.Post
		if err := rows.Scan(&p.ID, &p.AuthorID, &p.ImageURL, &p.Description, &p.CreatedAt); err != nil {
			return nil, wrapErr("scan post", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("list posts", err)
	}
	return posts, nil
}

func (s *Store) DeletePost(ctx context.Context, id uuid.UUID) error {
	ct, err := s.db.Exec(ctx, `DELETE FROM posts WHERE id=$1`, id)
	if err != nil {
		return wrapErr("delete post", err)
	}
	if ct.RowsAffected() == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (s *Store) DeletePostsByAuthor(ctx context.Context, authorID uuid.UUID) error {
	_, err := s.db.Exec(ctx, `DELETE FROM posts WHERE author_id=$1`, authorID)
	return wrapErr("delete posts", err)
}
