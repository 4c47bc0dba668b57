package respond

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/corray333/backend-labs/kitchen/internal/service/models/kitchenstatus"
	"github.com/corray333/backend-labs/kitchen/internal/service/models/order"
	"github.com/corray333/backend-labs/kitchen/internal/service/models/timing"
	"github.com/corray333/backend-labs/kitchen/internal/service/services/auditsvc"
	"github.com/corray333/backend-labs/kitchen/internal/service/services/ordersvc"
)

// StatusOf maps domain errors to HTTP status codes.
func StatusOf(err error) int {
	switch {
	case errors.Is(err, kitchenstatus.ErrInvalidStatus),
		errors.Is(err, kitchenstatus.ErrInvalidTransition),
		errors.Is(err, ordersvc.ErrUnknownPreset),
		errors.Is(err, ordersvc.ErrMissingOrderID),
		errors.Is(err, auditsvc.ErrMalformedEvent):
		return http.StatusBadRequest
	case errors.Is(err, order.ErrNotFound), errors.Is(err, timing.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, timing.ErrNotInWarning):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Error logs err and writes it with the mapped status. Internal errors are not echoed.
func Error(w http.ResponseWriter, r *http.Request, err error, msg string) {
	status := StatusOf(err)
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), msg, "error", err)
		http.Error(w, http.StatusText(status), status)

		return
	}

	slog.WarnContext(r.Context(), msg, "error", err)
	http.Error(w, err.Error(), status)
}

// BadRequest writes a 400 for undecodable or invalid input.
func BadRequest(w http.ResponseWriter, r *http.Request, err error, msg string) {
	slog.WarnContext(r.Context(), msg, "error", err)
	http.Error(w, err.Error(), http.StatusBadRequest)
}

// JSON writes v with status.
func JSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.ErrorContext(r.Context(), "Error sending response", "error", err)
	}
}
