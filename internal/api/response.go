package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/erazemk/shramba/internal/inventory"
	"github.com/erazemk/shramba/internal/store"
)

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("encoding response", "error", err)
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}

// engineError maps an inventory engine error to a response.
func engineError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr *inventory.ValidationError
		cerr *inventory.CollisionError
		rerr *inventory.RemoteOperationError
		serr *inventory.SubscriptionError
	)

	switch {
	case errors.As(err, &verr):
		jsonResponse(w, http.StatusBadRequest, map[string]string{"error": verr.Message, "field": verr.Field})
	case errors.As(err, &cerr):
		jsonError(w, http.StatusConflict, cerr.Error())
	case errors.Is(err, inventory.ErrItemNotFound):
		jsonError(w, http.StatusNotFound, "item not found")
	case errors.Is(err, inventory.ErrNotSignedIn):
		jsonError(w, http.StatusUnauthorized, "not signed in")
	case errors.Is(err, store.ErrBlobExists):
		jsonError(w, http.StatusConflict, "an image with that name was just uploaded, try again")
	case errors.As(err, &rerr):
		slog.Error("backend operation failed", "op", rerr.Op, "path", r.URL.Path, "error", rerr.Err)
		jsonError(w, http.StatusBadGateway, rerr.Op+" failed")
	case errors.As(err, &serr):
		slog.Error("inventory subscription unavailable", "error", serr.Err)
		jsonError(w, http.StatusServiceUnavailable, "inventory subscription unavailable")
	default:
		slog.Error("request failed", "path", r.URL.Path, "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
	}
}
