package partner

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jason-s-yu/fittogether/internal/common"
	"github.com/jason-s-yu/fittogether/internal/models"
)

// UserDirectory is the account side of the store. Every mutation must be
// idempotent so an interrupted engine operation can be retried.
type UserDirectory interface {
	// GetUser returns common.ErrNotFound when the user does not exist.
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	// GetProfiles resolves ids to public profiles, silently skipping unknown ids.
	GetProfiles(ctx context.Context, ids []uuid.UUID) ([]models.PublicProfile, error)
	// AddPartner adds partnerID to userID's set with set semantics. Returns
	// common.ErrNotFound if either user is missing.
	AddPartner(ctx context.Context, userID, partnerID uuid.UUID) error
	// RemovePartner drops partnerID from userID's set. Missing entries are not an error.
	RemovePartner(ctx context.Context, userID, partnerID uuid.UUID) error
	// PullPartnerEverywhere drops partnerID from every user's set.
	PullPartnerEverywhere(ctx context.Context, partnerID uuid.UUID) error
	// DeleteUser removes the account record. Deleting a missing user is not an error.
	DeleteUser(ctx context.Context, id uuid.UUID) error
}

// RequestStore persists partner requests.
type RequestStore interface {
	// InsertRequest returns common.ErrConflict when a pending request for the
	// same ordered pair already exists.
	InsertRequest(ctx context.Context, req *models.PartnerRequest) error
	GetRequest(ctx context.Context, id uuid.UUID) (*models.PartnerRequest, error)
	// FindPendingRequest returns common.ErrNotFound when there is none.
	FindPendingRequest(ctx context.Context, from, to uuid.UUID) (*models.PartnerRequest, error)
	// TransitionRequest sets the status to `to` only while it is still `from`
	// and reports whether the update was applied.
	TransitionRequest(ctx context.Context, id uuid.UUID, from, to models.RequestStatus) (bool, error)
	// ListPendingTo and ListPendingFrom return pending requests newest first.
	ListPendingTo(ctx context.Context, userID uuid.UUID) ([]models.PartnerRequest, error)
	ListPendingFrom(ctx context.Context, userID uuid.UUID) ([]models.PartnerRequest, error)
	// DeleteRequestsByUser removes every request where userID is either party.
	DeleteRequestsByUser(ctx context.Context, userID uuid.UUID) error
}

// Store is everything the engine needs from persistence.
type Store interface {
	UserDirectory
	RequestStore
}

// Transactor is implemented by stores that can run several mutations atomically.
// fn's error must be returned unchanged.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(tx Store) error) error
}

// classify turns a store failure into an engine error. Anything that is not
// a known sentinel counts as the store being unavailable.
func classify(op string, err error, notFoundMsg string) error {
	var e *Error
	switch {
	case errors.As(err, &e):
		return err
	case errors.Is(err, common.ErrNotFound):
		return &Error{Kind: NotFound, Op: op, Msg: notFoundMsg}
	case errors.Is(err, common.ErrConflict):
		return &Error{Kind: DuplicatePending, Op: op, Err: err}
	}
	return &Error{Kind: StoreUnavailable, Op: op, Err: err}
}
