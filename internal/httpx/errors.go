package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ariefcatur/go-order-core.git/internal/orders"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errBody struct {
	Error     string `json:"error"`
	ProductID string `json:"product_id,omitempty"`
	Requested int    `json:"requested,omitempty"`
	Available int    `json:"available,omitempty"`
	From      string `json:"from,omitempty"`
	To        string `json:"to,omitempty"`
}

// writeErr maps the domain taxonomy onto status codes. Anything outside the
// taxonomy is an operational failure and stays opaque to the client.
func writeErr(w http.ResponseWriter, err error) {
	body := errBody{Error: err.Error()}

	var ise *orders.InsufficientStockError
	var ite *orders.InvalidTransitionError
	switch {
	case errors.As(err, &ise):
		body.ProductID = ise.ProductID
		body.Requested = ise.Requested
		body.Available = ise.Available
		writeJSON(w, http.StatusConflict, body)
	case errors.As(err, &ite):
		body.From = string(ite.From)
		body.To = string(ite.To)
		writeJSON(w, http.StatusConflict, body)
	case errors.Is(err, orders.ErrValidation):
		writeJSON(w, http.StatusBadRequest, body)
	case errors.Is(err, orders.ErrNotFound):
		writeJSON(w, http.StatusNotFound, body)
	case errors.Is(err, orders.ErrUnauthorized):
		writeJSON(w, http.StatusForbidden, body)
	case errors.Is(err, orders.ErrInvalidTransition):
		writeJSON(w, http.StatusConflict, body)
	case errors.Is(err, orders.ErrBusy):
		w.Header().Set("Retry-After", "1")
		writeJSON(w, http.StatusServiceUnavailable, body)
	default:
		writeJSON(w, http.StatusInternalServerError, errBody{Error: "internal error"})
	}
}
