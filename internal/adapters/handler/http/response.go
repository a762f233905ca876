package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/vncsmyrnk/taskboard/internal/core/domain"
)

type errorBody struct {
	Message string        `json:"message"`
	Code    string        `json:"code,omitempty"`
	Details []fieldDetail `json:"details,omitempty"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

const internalErrorMessage = "An internal server error occurred. Please try again later."

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, errCode, message string) {
	writeJSON(w, code, errorResponse{Error: errorBody{Message: message, Code: errCode}})
}

func statusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindUnauthorized:
		return http.StatusUnauthorized
	case domain.KindForbidden:
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

// errorWriter renders service errors. Business errors keep their message and code;
// anything else is logged and hidden unless exposeInternal is set.
type errorWriter struct {
	log            zerolog.Logger
	exposeInternal bool
}

func (e errorWriter) write(w http.ResponseWriter, r *http.Request, err error) {
	var de *domain.Error
	if errors.As(err, &de) {
		writeErr(w, statusFor(de.Kind), de.Code, de.Message)
		return
	}

	e.log.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("request failed")

	message := internalErrorMessage
	if e.exposeInternal {
		message = err.Error()
	}
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: errorBody{Message: message}})
}
