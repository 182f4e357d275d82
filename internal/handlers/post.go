// internal/handlers/post.go
package handlers

import (
	"net/http"

	"github.com/jason-s-yu/fittogether/internal/posts"
	"github.com/sirupsen/logrus"
)

// CreatePostHandler handles POST /posts with multipart fields "image" and "description".
func CreatePostHandler(logger *logrus.Logger, svc *posts.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
		file, _, err := r.FormFile("image")
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "missing image")
			return
		}
		defer file.Close()

		p, err := svc.Create(r.Context(), actingUser(r), posts.NewPost{Description: r.FormValue("description")}, file)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, p)
	}
}

// ListPostsHandler handles GET /users/{id}/posts.
func ListPostsHandler(logger *logrus.Logger, svc *posts.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathUUID(r, "id")
		if !ok {
			writeMessage(w, http.StatusBadRequest, "invalid user id")
			return
		}
		list, err := svc.ListByAuthor(r.Context(), id)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// DeletePostHandler handles DELETE /posts/{id}.
func DeletePostHandler(logger *logrus.Logger, svc *posts.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathUUID(r, "id")
		if !ok {
			writeMessage(w, http.StatusBadRequest, "invalid post id")
			return
		}
		if err := svc.Delete(r.Context(), actingUser(r), id); err != nil {
			writeError(w, logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
