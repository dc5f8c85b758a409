package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/erazemk/shramba/internal/backend"
)

// BlobsHandler serves stored item images.
type BlobsHandler struct {
	Blobs *backend.Blobs
}

// Get handles GET /api/blobs/{key...}. Images of other groups are reported
// as missing.
func (h *BlobsHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	if claims == nil {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	obj, err := h.Blobs.Open(r.Context(), r.PathValue("key"))
	if errors.Is(err, backend.ErrNotFound) {
		jsonError(w, http.StatusNotFound, "no image")
		return
	}
	if err != nil {
		slog.Error("reading image", "key", r.PathValue("key"), "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get image")
		return
	}
	if obj.GroupID != claims.GroupID {
		jsonError(w, http.StatusNotFound, "no image")
		return
	}

	w.Header().Set("Content-Type", obj.ContentType)
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.Write(obj.Data)
}
