// Package accounts handles registration, login, profile pictures and account
// deletion. Partner bookkeeping on deletion is delegated to the partner engine.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/fittogether/internal/auth"
	"github.com/jason-s-yu/fittogether/internal/common"
	"github.com/jason-s-yu/fittogether/internal/models"
	"github.com/jason-s-yu/fittogether/internal/storage"
	"github.com/jason-s-yu/fittogether/internal/validation"
	"github.com/sirupsen/logrus"
)

var (
	// ErrEmailTaken is returned when registering an email that already has an account.
	ErrEmailTaken = errors.New("email already registered")

	// ErrInvalidCredentials covers both unknown emails and wrong passwords.
	ErrInvalidCredentials = errors.New("invalid email or password")
)

type Store interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateAvatar(ctx context.Context, id uuid.UUID, url string) error
}

// PostRemover deletes everything a user has published.
type PostRemover interface {
	DeleteByAuthor(ctx context.Context, authorID uuid.UUID) error
}

// UserRemover removes the account along with its partner data.
type UserRemover interface {
	RemoveUser(ctx context.Context, userID uuid.UUID) error
}

type TokenIssuer interface {
	CreateJWT(userID uuid.UUID) (string, error)
}

// Registration is the sign-up payload.
type Registration struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Level    string `json:"level" validate:"required"`
	Location string `json:"location" validate:"required"`
	Bio      string `json:"bio" validate:"max=1024"`
}

type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type Service struct {
	store   Store
	posts   PostRemover
	remover UserRemover
	tokens  TokenIssuer
	images  storage.Storage
	logger  *logrus.Logger
}

func NewService(store Store, posts PostRemover, remover UserRemover, tokens TokenIssuer, images storage.Storage, logger *logrus.Logger) *Service {
	return &Service{
		store:   store,
		posts:   posts,
		remover: remover,
		tokens:  tokens,
		images:  images,
		logger:  logger,
	}
}

// Register creates an account with a hashed password and the default avatar.
func (s *Service) Register(ctx context.Context, reg Registration) (*models.User, error) {
	reg.Email = strings.TrimSpace(strings.ToLower(reg.Email))
	reg.Name = strings.TrimSpace(reg.Name)
	if err := validation.Struct(reg); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(reg.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	u := &models.User{
		ID:        uuid.New(),
		Name:      reg.Name,
		Email:     reg.Email,
		Password:  hash,
		AvatarURL: models.DefaultAvatarURL,
		Bio:       reg.Bio,
		Location:  reg.Location,
		Level:     reg.Level,
		Partners:  []uuid.UUID{},
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		if errors.Is(err, common.ErrConflict) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.WithField("user", u.ID).Info("user registered")
	return u, nil
}

// Login checks the credentials and returns a session token.
func (s *Service) Login(ctx context.Context, c Credentials) (string, *models.User, error) {
	c.Email = strings.TrimSpace(strings.ToLower(c.Email))
	if err := validation.Struct(c); err != nil {
		return "", nil, err
	}

	u, err := s.store.GetUserByEmail(ctx, c.Email)
	if errors.Is(err, common.ErrNotFound) {
		return "", nil, ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, fmt.Errorf("failed to load user: %w", err)
	}

	ok, err := auth.VerifyPassword(c.Password, u.Password)
	if err != nil {
		return "", nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !ok {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.tokens.CreateJWT(u.ID)
	if err != nil {
		return "", nil, fmt.Errorf("failed to create token: %w", err)
	}
	return token, u, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get user %v: %w", id, err)
	}
	return u, nil
}

// UploadAvatar stores a new profile picture for userID. Only the owner may
// change it.
func (s *Service) UploadAvatar(ctx context.Context, actorID, userID uuid.UUID, image io.Reader) (*models.User, error) {
	if actorID != userID {
		return nil, common.ErrForbidden
	}
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return nil, fmt.Errorf("failed to get user %v: %w", userID, err)
	}

	contentType, ext, body, err := storage.SniffImage(image)
	if err != nil {
		return nil, err
	}
	url, err := s.images.Put(ctx, storage.NewKey("avatars", ext), body, contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to upload avatar: %w", err)
	}
	if err := s.store.UpdateAvatar(ctx, userID, url); err != nil {
		return nil, fmt.Errorf("failed to update avatar: %w", err)
	}

	s.logger.WithFields(logrus.Fields{"user": userID, "url": url}).Info("avatar updated")
	return s.Get(ctx, userID)
}

// Delete removes userID's posts and then the account itself. The actor must
// be the user or an admin.
func (s *Service) Delete(ctx context.Context, actorID, userID uuid.UUID) error {
	if actorID != userID {
		actor, err := s.store.GetUser(ctx, actorID)
		if err != nil && !errors.Is(err, common.ErrNotFound) {
			return fmt.Errorf("failed to get user %v: %w", actorID, err)
		}
		if actor == nil || !actor.IsAdmin {
			return common.ErrForbidden
		}
	}
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return fmt.Errorf("failed to get user %v: %w", userID, err)
	}

	if err := s.posts.DeleteByAuthor(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete posts: %w", err)
	}
	if err := s.remover.RemoveUser(ctx, userID); err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{"user": userID, "actor": actorID}).Info("account deleted")
	return nil
}
