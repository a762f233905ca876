package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/vncsmyrnk/taskboard/internal/core/domain"
)

// uuidParam parses a chi URL parameter, writing a 400 on failure.
func uuidParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeErr(w, http.StatusBadRequest, domain.CodeValidation, "Invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

func requireUser(w http.ResponseWriter, r *http.Request, errs errorWriter) (uuid.UUID, bool) {
	id, ok := UserIDFromContext(r.Context())
	if !ok {
		errs.write(w, r, domain.ErrAuthFailed)
		return uuid.Nil, false
	}
	return id, true
}
