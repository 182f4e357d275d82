// internal/handlers/partner.go
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/fittogether/internal/models"
	"github.com/jason-s-yu/fittogether/internal/partner"
	"github.com/sirupsen/logrus"
)

type submitRequestPayload struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type submitRequestResponse struct {
	RequestID uuid.UUID `json:"requestId"`
	CreatedAt time.Time `json:"createdAt"`
}

type respondPayload struct {
	Decision partner.Decision `json:"decision"`
}

type respondResponse struct {
	Status models.RequestStatus `json:"status"`
}

// SubmitPartnerRequestHandler handles POST /partner-requests.
//
// Request payload: { "from": "uuid", "to": "uuid" }
// "from" may be omitted; when present it must be the authenticated user.
func SubmitPartnerRequestHandler(logger *logrus.Logger, engine *partner.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor := actingUser(r)

		var req submitRequestPayload
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeMessage(w, http.StatusBadRequest, "invalid payload")
			return
		}
		to, err := uuid.Parse(req.To)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "invalid to")
			return
		}
		from := actor
		if req.From != "" {
			if from, err = uuid.Parse(req.From); err != nil {
				writeMessage(w, http.StatusBadRequest, "invalid from")
				return
			}
		}
		if from != actor {
			writeMessage(w, http.StatusForbidden, "cannot send a partner request on behalf of another user")
			return
		}

		pr, err := engine.SubmitRequest(r.Context(), from, to)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, submitRequestResponse{RequestID: pr.ID, CreatedAt: pr.CreatedAt})
	}
}

// RespondPartnerRequestHandler handles PUT /partner-requests/{id}.
//
// Request payload: { "decision": "accept" | "reject" }
func RespondPartnerRequestHandler(logger *logrus.Logger, engine *partner.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID, ok := pathUUID(r, "id")
		if !ok {
			writeMessage(w, http.StatusBadRequest, "invalid request id")
			return
		}

		var req respondPayload
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeMessage(w, http.StatusBadRequest, "invalid payload")
			return
		}

		pr, err := engine.RespondToRequest(r.Context(), requestID, actingUser(r), req.Decision)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, respondResponse{Status: pr.Status})
	}
}

// ListPartnersHandler handles GET /users/{id}/partners.
func ListPartnersHandler(logger *logrus.Logger, engine *partner.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := pathUUID(r, "id")
		if !ok {
			writeMessage(w, http.StatusBadRequest, "invalid user id")
			return
		}
		partners, err := engine.ListPartners(r.Context(), userID)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, partners)
	}
}

// ListIncomingRequestsHandler handles GET /users/{id}/partner-requests.
// Users only see their own inbox.
func ListIncomingRequestsHandler(logger *logrus.Logger, engine *partner.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := ownPath(w, r)
		if !ok {
			return
		}
		reqs, err := engine.ListIncomingRequests(r.Context(), userID)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, reqs)
	}
}

// ListOutgoingRequestsHandler handles GET /users/{id}/partner-requests/outgoing.
func ListOutgoingRequestsHandler(logger *logrus.Logger, engine *partner.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := ownPath(w, r)
		if !ok {
			return
		}
		reqs, err := engine.ListOutgoingRequests(r.Context(), userID)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, reqs)
	}
}

// RemovePartnerHandler handles DELETE /users/{id}/partners/{partnerId}.
func RemovePartnerHandler(logger *logrus.Logger, engine *partner.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := ownPath(w, r)
		if !ok {
			return
		}
		partnerID, ok := pathUUID(r, "partnerId")
		if !ok {
			writeMessage(w, http.StatusBadRequest, "invalid partner id")
			return
		}
		if err := engine.RemovePartner(r.Context(), userID, partnerID); err != nil {
			writeError(w, logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// ownPath parses {id} and requires it to be the authenticated user.
func ownPath(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, ok := pathUUID(r, "id")
	if !ok {
		writeMessage(w, http.StatusBadRequest, "invalid user id")
		return uuid.Nil, false
	}
	if userID != actingUser(r) {
		writeMessage(w, http.StatusForbidden, "forbidden")
		return uuid.Nil, false
	}
	return userID, true
}
