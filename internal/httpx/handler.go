// Package httpx is the HTTP boundary: routing, request decoding and
// validation, and mapping domain results onto JSON responses.
package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/estorehq/estore/internal/accounts"
	"github.com/estorehq/estore/internal/catalog"
	"github.com/estorehq/estore/internal/orders"
)

// Handler holds the services behind the API surface.
type Handler struct {
	accounts *accounts.Service
	catalog  *catalog.Service
	orders   *orders.Service
	validate *validator.Validate
}

func NewHandler(a *accounts.Service, c *catalog.Service, o *orders.Service) *Handler {
	return &Handler{
		accounts: a,
		catalog:  c,
		orders:   o,
		validate: validator.New(),
	}
}

// decode unmarshals and validates the request body into v. On failure it
// writes the 400 response itself and returns false.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return false
	}
	if err := h.validate.Struct(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", validationMessage(err))
		return false
	}
	return true
}

// validationMessage flattens validator errors into one readable line.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "invalid request body"
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fe.Field()+" failed "+fe.Tag()+" validation")
	}
	return strings.Join(msgs, "; ")
}
