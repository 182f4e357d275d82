package partner

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventRequestCreated  EventType = "partner_request.created"
	EventRequestAccepted EventType = "partner_request.accepted"
	EventRequestRejected EventType = "partner_request.rejected"
	EventPartnerRemoved  EventType = "partner.removed"
	EventUserRemoved     EventType = "user.removed"
)

// Event describes a committed change. From is the acting user, To the other
// party; for EventUserRemoved only From is set.
type Event struct {
	Type      EventType `json:"type"`
	RequestID uuid.UUID `json:"request_id"`
	From      uuid.UUID `json:"from"`
	To        uuid.UUID `json:"to"`
	At        time.Time `json:"at"`
}

// Notifier receives events after the store has committed them. Delivery
// failures are logged by the engine and never fail the operation.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, ev Event) error

func (f NotifierFunc) Notify(ctx context.Context, ev Event) error { return f(ctx, ev) }
