package models

import (
	"time"

	"github.com/google/uuid"
)

type RequestStatus string

const (
	StatusPending  RequestStatus = "pending"
	StatusAccepted RequestStatus = "accepted"
	StatusRejected RequestStatus = "rejected"
)

// Terminal reports whether no further transition is allowed out of s.
func (s RequestStatus) Terminal() bool {
	return s == StatusAccepted || s == StatusRejected
}

// Valid reports whether s is one of the known statuses.
func (s RequestStatus) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusRejected:
		return true
	}
	return false
}

// PartnerRequest is a directed proposal from one user to another to become partners.
type PartnerRequest struct {
	ID        uuid.UUID     `json:"id"`
	From      uuid.UUID     `json:"from"`
	To        uuid.UUID     `json:"to"`
	Status    RequestStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// RequestWithProfile pairs a request with the profile of the other party
// (the requester for incoming listings, the recipient for outgoing ones).
type RequestWithProfile struct {
	PartnerRequest
	User PublicProfile `json:"user"`
}
