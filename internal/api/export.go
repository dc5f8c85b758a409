package api

import (
	"log/slog"
	"net/http"

	"github.com/erazemk/shramba/internal/export"
	"github.com/erazemk/shramba/internal/inventory"
)

// ExportHandler serves CSV and PDF downloads of the inventory.
type ExportHandler struct {
	Engines *inventory.Registry
}

// Get handles GET /api/export?format=csv|pdf&scope=all|filtered&q=.
func (h *ExportHandler) Get(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	format, err := export.ParseFormat(query.Get("format"))
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	scope, err := export.ParseScope(query.Get("scope"))
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	e, ok := sessionEngine(w, r, h.Engines)
	if !ok {
		return
	}

	items := e.Items()
	if scope == export.ScopeFiltered {
		items = e.View(query.Get("q"))
	}

	w.Header().Set("Content-Type", export.ContentType(format))
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.FileName(format, scope)+`"`)
	if err := export.Write(w, format, items); err != nil {
		slog.Error("writing export", "group", e.GroupID(), "format", format, "error", err)
	}
}
