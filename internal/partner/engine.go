// Package partner implements the partner request workflow: submitting,
// accepting and rejecting requests while keeping the partner relation
// symmetric across both user records.
package partner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/fittogether/internal/common"
	"github.com/jason-s-yu/fittogether/internal/models"
	"github.com/sirupsen/logrus"
)

// Decision is the recipient's answer to a pending request.
type Decision string

const (
	Accept Decision = "accept"
	Reject Decision = "reject"
)

func (d Decision) status() (models.RequestStatus, bool) {
	switch d {
	case Accept:
		return models.StatusAccepted, true
	case Reject:
		return models.StatusRejected, true
	}
	return "", false
}

// Engine enforces the request lifecycle. It holds no state of its own
// beyond the injected store, so one Engine serves all requests.
type Engine struct {
	store    Store
	logger   *logrus.Logger
	notifier Notifier
	now      func() time.Time
}

type Option func(*Engine)

// WithNotifier registers n to receive events after successful mutations.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// WithClock overrides time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func NewEngine(store Store, logger *logrus.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// run executes fn inside a transaction when the store supports one.
func (e *Engine) run(ctx context.Context, op string, fn func(s Store) error) error {
	tx, ok := e.store.(Transactor)
	if !ok {
		return fn(e.store)
	}
	if err := tx.WithinTx(ctx, fn); err != nil {
		return classify(op, err, "")
	}
	return nil
}

func (e *Engine) emit(ctx context.Context, ev Event) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.Notify(ctx, ev); err != nil {
		e.logger.WithFields(logrus.Fields{
			"event": ev.Type,
			"from":  ev.From,
			"to":    ev.To,
		}).Warnf("failed to deliver partner event: %v", err)
	}
}

// SubmitRequest creates a pending request from fromID to toID.
//
// A pending request in the opposite direction does not block this one; both
// stay open and each recipient answers independently.
func (e *Engine) SubmitRequest(ctx context.Context, fromID, toID uuid.UUID) (*models.PartnerRequest, error) {
	const op = "partner.SubmitRequest"

	if fromID == uuid.Nil || toID == uuid.Nil {
		return nil, newError(op, InvalidArgument, "user ids are required")
	}
	if fromID == toID {
		return nil, newError(op, InvalidArgument, "cannot send a partner request to yourself")
	}

	from, err := e.store.GetUser(ctx, fromID)
	if err != nil {
		return nil, classify(op, err, fmt.Sprintf("user %v", fromID))
	}
	to, err := e.store.GetUser(ctx, toID)
	if err != nil {
		return nil, classify(op, err, fmt.Sprintf("user %v", toID))
	}
	if from.HasPartner(toID) && to.HasPartner(fromID) {
		return nil, newError(op, AlreadyPartners, "")
	}

	if _, err := e.store.FindPendingRequest(ctx, fromID, toID); err == nil {
		return nil, newError(op, DuplicatePending, "")
	} else if !errors.Is(err, common.ErrNotFound) {
		return nil, classify(op, err, "")
	}

	id, err := uuid.NewRandom()
	if err != nil {
		return nil, fmt.Errorf("failed to generate request id: %w", err)
	}
	now := e.now().UTC()
	req := &models.PartnerRequest{
		ID:        id,
		From:      fromID,
		To:        toID,
		Status:    models.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	// the unique index on pending (from, to) catches submits racing past the check above
	if err := e.store.InsertRequest(ctx, req); err != nil {
		return nil, classify(op, err, "user no longer exists")
	}

	e.logger.WithFields(logrus.Fields{
		"request_id": req.ID,
		"from":       fromID,
		"to":         toID,
	}).Info("partner request submitted")
	e.emit(ctx, Event{Type: EventRequestCreated, RequestID: req.ID, From: fromID, To: toID, At: now})
	return req, nil
}

// RespondToRequest applies the recipient's decision to a pending request.
// Accepting links both users in the same unit of work as the status change.
// Accepting a request that is already accepted re-applies the links and
// succeeds, which lets callers resume after a partial failure.
func (e *Engine) RespondToRequest(ctx context.Context, requestID, responderID uuid.UUID, decision Decision) (*models.PartnerRequest, error) {
	const op = "partner.RespondToRequest"

	target, ok := decision.status()
	if !ok {
		return nil, newError(op, InvalidArgument, fmt.Sprintf("unknown decision %q", decision))
	}
	if requestID == uuid.Nil || responderID == uuid.Nil {
		return nil, newError(op, InvalidArgument, "request id and responder id are required")
	}

	var (
		result  *models.PartnerRequest
		applied bool
	)
	err := e.run(ctx, op, func(s Store) error {
		req, err := s.GetRequest(ctx, requestID)
		if err != nil {
			return classify(op, err, fmt.Sprintf("request %v", requestID))
		}
		if req.To != responderID {
			return newError(op, Forbidden, "only the recipient may respond to a partner request")
		}

		if req.Status == models.StatusPending {
			applied, err = s.TransitionRequest(ctx, requestID, models.StatusPending, target)
			if err != nil {
				return classify(op, err, "")
			}
			if applied {
				req.Status = target
				req.UpdatedAt = e.now().UTC()
			} else if req, err = s.GetRequest(ctx, requestID); err != nil {
				// somebody else moved it first
				return classify(op, err, fmt.Sprintf("request %v", requestID))
			}
		}

		if !applied && !(decision == Accept && req.Status == models.StatusAccepted) {
			return newError(op, InvalidState, fmt.Sprintf("request is %s", req.Status))
		}

		if target == models.StatusAccepted {
			if err := s.AddPartner(ctx, req.From, req.To); err != nil {
				return classify(op, err, "user no longer exists")
			}
			if err := s.AddPartner(ctx, req.To, req.From); err != nil {
				return classify(op, err, "user no longer exists")
			}
		}
		result = req
		return nil
	})
	if err != nil {
		return nil, err
	}

	fields := logrus.Fields{
		"request_id": result.ID,
		"from":       result.From,
		"to":         result.To,
		"status":     result.Status,
	}
	if !applied {
		e.logger.WithFields(fields).Debug("partner request already accepted, links re-applied")
		return result, nil
	}
	e.logger.WithFields(fields).Info("partner request answered")

	evType := EventRequestRejected
	if result.Status == models.StatusAccepted {
		evType = EventRequestAccepted
	}
	e.emit(ctx, Event{Type: evType, RequestID: result.ID, From: result.To, To: result.From, At: result.UpdatedAt})
	return result, nil
}

// ListPartners returns the public profiles of the user's partners.
func (e *Engine) ListPartners(ctx context.Context, userID uuid.UUID) ([]models.PublicProfile, error) {
	const op = "partner.ListPartners"

	u, err := e.store.GetUser(ctx, userID)
	if err != nil {
		return nil, classify(op, err, fmt.Sprintf("user %v", userID))
	}
	if len(u.Partners) == 0 {
		return []models.PublicProfile{}, nil
	}
	profiles, err := e.store.GetProfiles(ctx, u.Partners)
	if err != nil {
		return nil, classify(op, err, "")
	}
	return profiles, nil
}

// ListIncomingRequests returns pending requests addressed to userID, newest
// first, each carrying the requester's profile.
func (e *Engine) ListIncomingRequests(ctx context.Context, userID uuid.UUID) ([]models.RequestWithProfile, error) {
	const op = "partner.ListIncomingRequests"

	if _, err := e.store.GetUser(ctx, userID); err != nil {
		return nil, classify(op, err, fmt.Sprintf("user %v", userID))
	}
	reqs, err := e.store.ListPendingTo(ctx, userID)
	if err != nil {
		return nil, classify(op, err, "")
	}
	return e.withProfiles(ctx, op, reqs, func(r models.PartnerRequest) uuid.UUID { return r.From })
}

// ListOutgoingRequests returns pending requests sent by userID, newest first,
// each carrying the recipient's profile.
func (e *Engine) ListOutgoingRequests(ctx context.Context, userID uuid.UUID) ([]models.RequestWithProfile, error) {
	const op = "partner.ListOutgoingRequests"

	if _, err := e.store.GetUser(ctx, userID); err != nil {
		return nil, classify(op, err, fmt.Sprintf("user %v", userID))
	}
	reqs, err := e.store.ListPendingFrom(ctx, userID)
	if err != nil {
		return nil, classify(op, err, "")
	}
	return e.withProfiles(ctx, op, reqs, func(r models.PartnerRequest) uuid.UUID { return r.To })
}

func (e *Engine) withProfiles(ctx context.Context, op string, reqs []models.PartnerRequest, other func(models.PartnerRequest) uuid.UUID) ([]models.RequestWithProfile, error) {
	out := make([]models.RequestWithProfile, 0, len(reqs))
	if len(reqs) == 0 {
		return out, nil
	}

	ids := make([]uuid.UUID, 0, len(reqs))
	for _, r := range reqs {
		ids = append(ids, other(r))
	}
	profiles, err := e.store.GetProfiles(ctx, ids)
	if err != nil {
		return nil, classify(op, err, "")
	}
	byID := make(map[uuid.UUID]models.PublicProfile, len(profiles))
	for _, p := range profiles {
		byID[p.ID] = p
	}

	for _, r := range reqs {
		p, ok := byID[other(r)]
		if !ok {
			continue
		}
		out = append(out, models.RequestWithProfile{PartnerRequest: r, User: p})
	}
	return out, nil
}

// RemovePartner ends the partnership between userID and partnerID on both
// sides. Removing someone who is not a partner is a no-op.
func (e *Engine) RemovePartner(ctx context.Context, userID, partnerID uuid.UUID) error {
	const op = "partner.RemovePartner"

	if userID == uuid.Nil || partnerID == uuid.Nil || userID == partnerID {
		return newError(op, InvalidArgument, "two distinct user ids are required")
	}
	if _, err := e.store.GetUser(ctx, userID); err != nil {
		return classify(op, err, fmt.Sprintf("user %v", userID))
	}

	err := e.run(ctx, op, func(s Store) error {
		if err := s.RemovePartner(ctx, userID, partnerID); err != nil {
			return classify(op, err, "")
		}
		if err := s.RemovePartner(ctx, partnerID, userID); err != nil {
			return classify(op, err, "")
		}
		return nil
	})
	if err != nil {
		return err
	}

	e.logger.WithFields(logrus.Fields{"user": userID, "partner": partnerID}).Info("partnership removed")
	e.emit(ctx, Event{Type: EventPartnerRemoved, From: userID, To: partnerID, At: e.now().UTC()})
	return nil
}

// RemoveUser deletes the account and every reference to it: requests first,
// then partner sets, then the record itself. Each step is idempotent, so a
// retry after an interruption finishes the job.
func (e *Engine) RemoveUser(ctx context.Context, userID uuid.UUID) error {
	const op = "partner.RemoveUser"

	if userID == uuid.Nil {
		return newError(op, InvalidArgument, "user id is required")
	}
	if _, err := e.store.GetUser(ctx, userID); err != nil {
		return classify(op, err, fmt.Sprintf("user %v", userID))
	}

	err := e.run(ctx, op, func(s Store) error {
		if err := s.DeleteRequestsByUser(ctx, userID); err != nil {
			return classify(op, err, "")
		}
		if err := s.PullPartnerEverywhere(ctx, userID); err != nil {
			return classify(op, err, "")
		}
		if err := s.DeleteUser(ctx, userID); err != nil {
			return classify(op, err, "")
		}
		return nil
	})
	if err != nil {
		return err
	}

	e.logger.WithField("user", userID).Info("user removed")
	e.emit(ctx, Event{Type: EventUserRemoved, From: userID, At: e.now().UTC()})
	return nil
}
