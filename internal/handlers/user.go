// internal/handlers/user.go
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/jason-s-yu/fittogether/internal/accounts"
	"github.com/jason-s-yu/fittogether/internal/middleware"
	"github.com/sirupsen/logrus"
)

// CreateUserHandler handles POST /users.
func CreateUserHandler(logger *logrus.Logger, svc *accounts.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req accounts.Registration
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeMessage(w, http.StatusBadRequest, "invalid payload")
			return
		}
		u, err := svc.Register(r.Context(), req)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, u)
	}
}

// LoginHandler handles POST /users/login. The token is returned in the body
// and also set as the auth_token cookie.
func LoginHandler(logger *logrus.Logger, svc *accounts.Service, ttl time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req accounts.Credentials
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeMessage(w, http.StatusBadRequest, "invalid payload")
			return
		}
		token, u, err := svc.Login(r.Context(), req)
		if err != nil {
			writeError(w, logger, err)
			return
		}

		cookie := &http.Cookie{
			Name:     middleware.TokenCookie,
			Value:    token,
			HttpOnly: true,
			Path:     "/",
			SameSite: http.SameSiteLaxMode,
		}
		if ttl > 0 {
			cookie.MaxAge = int(ttl.Seconds())
		}
		http.SetCookie(w, cookie)
		writeJSON(w, http.StatusOK, map[string]any{"token": token, "user": u})
	}
}

// GetUserHandler handles GET /users/{id}. Only the owner sees the full record.
func GetUserHandler(logger *logrus.Logger, svc *accounts.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathUUID(r, "id")
		if !ok {
			writeMessage(w, http.StatusBadRequest, "invalid user id")
			return
		}
		u, err := svc.Get(r.Context(), id)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		if actingUser(r) != id {
			writeJSON(w, http.StatusOK, u.Public())
			return
		}
		writeJSON(w, http.StatusOK, u)
	}
}

// DeleteUserHandler handles DELETE /users/{id}.
func DeleteUserHandler(logger *logrus.Logger, svc *accounts.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathUUID(r, "id")
		if !ok {
			writeMessage(w, http.StatusBadRequest, "invalid user id")
			return
		}
		if err := svc.Delete(r.Context(), actingUser(r), id); err != nil {
			writeError(w, logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// UploadAvatarHandler handles PUT /users/{id}/avatar with a multipart "image" field.
func UploadAvatarHandler(logger *logrus.Logger, svc *accounts.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathUUID(r, "id")
		if !ok {
			writeMessage(w, http.StatusBadRequest, "invalid user id")
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
		file, _, err := r.FormFile("image")
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "missing image")
			return
		}
		defer file.Close()

		u, err := svc.UploadAvatar(r.Context(), actingUser(r), id, file)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, u)
	}
}
