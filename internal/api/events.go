package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/erazemk/shramba/internal/backend"
	"github.com/erazemk/shramba/internal/inventory"
)

// heartbeatInterval keeps idle event streams open through proxies.
const heartbeatInterval = 25 * time.Second

// EventsHandler streams live snapshots as server-sent events.
type EventsHandler struct {
	Collection *backend.Collection
	Heartbeat  time.Duration
}

// Stream handles GET /api/items/events. Each snapshot of the caller's group
// is sent as a "snapshot" event holding the items filtered by q. A failed
// feed ends the stream with an "error" event.
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	if claims == nil {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	rc := http.NewResponseController(w)
	// The stream outlives the server's write timeout.
	if err := rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		slog.Warn("clearing write deadline", "error", err)
	}

	watcher, err := h.Collection.Watch(r.Context(), claims.GroupID)
	if err != nil {
		slog.Error("opening event stream", "group", claims.GroupID, "error", err)
		jsonError(w, http.StatusServiceUnavailable, "inventory subscription unavailable")
		return
	}
	defer watcher.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		slog.Error("event stream not supported", "error", err)
		return
	}

	interval := h.Heartbeat
	if interval <= 0 {
		interval = heartbeatInterval
	}
	heartbeat := time.NewTicker(interval)
	defer heartbeat.Stop()

	term := r.URL.Query().Get("q")
	for {
		select {
		case snap, ok := <-watcher.Snapshots():
			if !ok {
				if err := watcher.Err(); err != nil {
					slog.Error("event stream feed failed", "group", claims.GroupID, "error", err)
					writeEvent(w, "error", map[string]string{"error": "inventory subscription failed"})
					rc.Flush()
				}
				return
			}
			if err := writeEvent(w, "snapshot", inventory.Filter(snap.Items, term)); err != nil {
				return
			}
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}

func writeEvent(w http.ResponseWriter, event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encoding %s event: %w", event, err)
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload)
	return err
}
