package httpx

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/estorehq/estore/internal/domain"
)

// ErrorResponse is the uniform error payload: a machine-readable kind plus a
// human-readable message.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{Error: code, Message: msg})
}

// respondError maps the domain error taxonomy onto HTTP status codes.
// Unclassified errors surface as opaque 500s; their details go to the log,
// not to the client.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	kind := domain.KindOf(err)
	status, ok := kindStatus[kind]
	if !ok || kind == domain.KindInternal {
		slog.ErrorContext(r.Context(), "request failed", "error", err)
		writeError(w, http.StatusInternalServerError, string(domain.KindInternal), "internal error")
		return
	}

	msg := err.Error()
	var de *domain.Error
	if errors.As(err, &de) {
		msg = de.Message
	}
	writeError(w, status, string(kind), msg)
}

var kindStatus = map[domain.Kind]int{
	domain.KindInvalid:           http.StatusBadRequest,
	domain.KindNotFound:          http.StatusNotFound,
	domain.KindUnauthorized:      http.StatusUnauthorized,
	domain.KindForbidden:         http.StatusForbidden,
	domain.KindInsufficientStock: http.StatusConflict,
	domain.KindConflict:          http.StatusConflict,
	domain.KindInternal:          http.StatusInternalServerError,
}
