package pipeline

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/corray333/backend-labs/shop/internal/service/errs"
)

var errRouteNotFound = errors.New("route not found")

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	Code      int       `json:"code"`
	Timestamp time.Time `json:"timestamp"`
	Path      string    `json:"path"`
}

// StatusOf maps service errors onto HTTP status codes.
func StatusOf(err error) int {
	switch {
	case errors.Is(err, errs.ErrNotFound), errors.Is(err, errRouteNotFound):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, errs.ErrInvalidTransition):
		return http.StatusUnprocessableEntity
	case errors.Is(err, errs.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, errs.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, errs.ErrUnauthenticated):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func (d *Dispatcher) writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	if status == http.StatusNoContent {
		w.WriteHeader(status)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		d.log.ErrorContext(r.Context(), "Error sending response", "path", r.URL.Path, "error", err)
	}
}

func (d *Dispatcher) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusOf(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		d.log.ErrorContext(r.Context(), "Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		message = http.StatusText(status)
	}

	d.writeJSON(w, r, status, ErrorResponse{
		Success:   false,
		Message:   message,
		Code:      status,
		Timestamp: time.Now().UTC(),
		Path:      r.URL.Path,
	})
}
