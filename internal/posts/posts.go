// Package posts manages the photo posts users publish on their profile.
package posts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/fittogether/internal/common"
	"github.com/jason-s-yu/fittogether/internal/models"
	"github.com/jason-s-yu/fittogether/internal/storage"
	"github.com/jason-s-yu/fittogether/internal/validation"
	"github.com/sirupsen/logrus"
)

type Store interface {
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	CreatePost(ctx context.Context, p *models.Post) error
	GetPost(ctx context.Context, id uuid.UUID) (*models.Post, error)
	ListPostsByAuthor(ctx context.Context, authorID uuid.UUID) ([]models.Post, error)
	DeletePost(ctx context.Context, id uuid.UUID) error
	DeletePostsByAuthor(ctx context.Context, authorID uuid.UUID) error
}

type NewPost struct {
	Description string `json:"description" validate:"required,max=2200"`
}

type Service struct {
	store  Store
	images storage.Storage
	logger *logrus.Logger
}

func NewService(store Store, images storage.Storage, logger *logrus.Logger) *Service {
	return &Service{store: store, images: images, logger: logger}
}

// Create uploads image and publishes it under authorID.
func (s *Service) Create(ctx context.Context, authorID uuid.UUID, in NewPost, image io.Reader) (*models.Post, error) {
	in.Description = strings.TrimSpace(in.Description)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if _, err := s.store.GetUser(ctx, authorID); err != nil {
		return nil, fmt.Errorf("failed to get author %v: %w", authorID, err)
	}

	contentType, ext, body, err := storage.SniffImage(image)
	if err != nil {
		return nil, err
	}
	url, err := s.images.Put(ctx, storage.NewKey("posts", ext), body, contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to upload post image: %w", err)
	}

	p := &models.Post{
		ID:          uuid.New(),
		AuthorID:    authorID,
		ImageURL:    url,
		Description: in.Description,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.store.CreatePost(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	s.logger.WithFields(logrus.Fields{"post": p.ID, "author": authorID}).Info("post created")
	return p, nil
}

// ListByAuthor returns the author's posts, newest first.
func (s *Service) ListByAuthor(ctx context.Context, authorID uuid.UUID) ([]models.Post, error) {
	if _, err := s.store.GetUser(ctx, authorID); err != nil {
		return nil, fmt.Errorf("failed to get author %v: %w", authorID, err)
	}
	posts, err := s.store.ListPostsByAuthor(ctx, authorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	return posts, nil
}

// Delete removes a post. Only its author or an admin may do so.
func (s *Service) Delete(ctx context.Context, actorID, postID uuid.UUID) error {
	p, err := s.store.GetPost(ctx, postID)
	if err != nil {
		return fmt.Errorf("failed to get post %v: %w", postID, err)
	}
	if p.AuthorID != actorID {
		actor, err := s.store.GetUser(ctx, actorID)
		if err != nil && !errors.Is(err, common.ErrNotFound) {
			return fmt.Errorf("failed to get user %v: %w", actorID, err)
		}
		if actor == nil || !actor.IsAdmin {
			return common.ErrForbidden
		}
	}

	if err := s.store.DeletePost(ctx, postID); err != nil {
		return fmt.Errorf("failed to delete post %v: %w", postID, err)
	}
	s.logger.WithFields(logrus.Fields{"post": postID, "actor": actorID}).Info("post deleted")
	return nil
}

// DeleteByAuthor removes every post by authorID. The uploaded images are kept.
func (s *Service) DeleteByAuthor(ctx context.Context, authorID uuid.UUID) error {
	if err := s.store.DeletePostsByAuthor(ctx, authorID); err != nil {
		return fmt.Errorf("failed to delete posts by %v: %w", authorID, err)
	}
	return nil
}
