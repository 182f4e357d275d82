package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jason-s-yu/fittogether/internal/accounts"
	"github.com/jason-s-yu/fittogether/internal/common"
	"github.com/jason-s-yu/fittogether/internal/middleware"
	"github.com/jason-s-yu/fittogether/internal/partner"
	"github.com/jason-s-yu/fittogether/internal/storage"
	"github.com/jason-s-yu/fittogether/internal/validation"
	"github.com/sirupsen/logrus"
)

// maxUploadSize caps multipart bodies for avatars and posts.
const maxUploadSize = 10 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

var partnerStatus = map[partner.Kind]int{
	partner.InvalidArgument:  http.StatusBadRequest,
	partner.NotFound:         http.StatusNotFound,
	partner.Forbidden:        http.StatusForbidden,
	partner.InvalidState:     http.StatusConflict,
	partner.AlreadyPartners:  http.StatusConflict,
	partner.DuplicatePending: http.StatusConflict,
	partner.StoreUnavailable: http.StatusServiceUnavailable,
}

// statusFor maps service errors to an HTTP status and a client-safe message.
func statusFor(err error) (int, string) {
	if kind := partner.KindOf(err); kind != partner.KindUnknown {
		var perr *partner.Error
		errors.As(err, &perr)
		msg := kind.String()
		if perr.Msg != "" {
			msg += ": " + perr.Msg
		}
		return partnerStatus[kind], msg
	}

	var verr *validation.Error
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, verr.Error()
	case errors.Is(err, validation.ErrInvalid):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, storage.ErrUnsupportedFormat):
		return http.StatusBadRequest, storage.ErrUnsupportedFormat.Error()
	case errors.Is(err, accounts.ErrInvalidCredentials):
		return http.StatusUnauthorized, accounts.ErrInvalidCredentials.Error()
	case errors.Is(err, accounts.ErrEmailTaken):
		return http.StatusConflict, accounts.ErrEmailTaken.Error()
	case errors.Is(err, common.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, common.ErrUnavailable):
		return http.StatusServiceUnavailable, "service unavailable"
	}
	return http.StatusInternalServerError, "internal server error"
}

func writeError(w http.ResponseWriter, logger *logrus.Logger, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.WithError(err).Error("request failed")
	}
	writeMessage(w, status, msg)
}

// pathUUID parses the named chi URL parameter.
func pathUUID(r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	return id, err == nil
}

// actingUser returns the authenticated user. RequireUser guarantees it exists
// on protected routes.
func actingUser(r *http.Request) uuid.UUID {
	id, _ := middleware.UserID(r.Context())
	return id
}
