package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/chessarena/platform/internal/bus"
	"github.com/chessarena/platform/internal/domain"
)

// StreamHandler serves the per-match SSE feed.
type StreamHandler struct {
	broker    *bus.Broker
	snapshots *bus.SnapshotStore
}

// NewStreamHandler creates a new StreamHandler.
func NewStreamHandler(broker *bus.Broker, snapshots *bus.SnapshotStore) *StreamHandler {
	return &StreamHandler{broker: broker, snapshots: snapshots}
}

// Stream handles GET /matches/{matchID}/stream. A late joiner first receives
// the current snapshot, then live bus events until the match ends or the
// client disconnects.
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	matchID, err := matchIDParam(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "stream unsupported", http.StatusInternalServerError)
		return
	}

	// Subscribe before reading the snapshot so no move falls in the gap.
	events, cancel := h.broker.Subscribe(matchID)
	defer cancel()

	if snap, ok := h.snapshots.Get(matchID); ok {
		writeEvent(w, "snapshot", snap)
		flusher.Flush()
	}

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-events:
			if !ok {
				// Topic closed; the match is over.
				return
			}
			writeEvent(w, string(evt.Type), evt)
			flusher.Flush()
			if evt.Type == domain.EventMatchEnded || evt.Type == domain.EventMatchError {
				return
			}
		}
	}
}

func writeEvent(w http.ResponseWriter, event string, data interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload)
}
