package ingest

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/xid"

	"github.com/cleanscribe/cleanscribe/pkg/events"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// EventStream provides local event subscriptions for the live feed.
type EventStream interface {
	Subscribe(id string, bufSize int) <-chan events.Envelope
	Unsubscribe(id string)
}

// SetEventStream installs the source for the live feed. Without one, the
// live endpoint responds 503.
func (h *Handler) SetEventStream(stream EventStream) {
	h.stream = stream
}

// Live handles GET /api/v1/recordings/{id}/live
//
// Upgrades to a WebSocket and forwards the recording's event envelopes until
// the client disconnects.
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if h.stream == nil {
		writeError(w, http.StatusServiceUnavailable, "live feed not available")
		return
	}
	if _, err := h.store.GetRecording(r.Context(), id); err != nil {
		writeError(w, http.StatusNotFound, "recording not found")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.WarnContext(r.Context(), "websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer conn.Close()

	subID := "live-" + xid.New().String()
	ch := h.stream.Subscribe(subID, 64)
	defer h.stream.Unsubscribe(subID)

	// Reads only surface client disconnects; incoming messages are ignored.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case env, ok := <-ch:
			if !ok {
				return
			}
			if env.RecordingID != id {
				continue
			}
			if err := conn.WriteJSON(env); err != nil {
				return
			}
		}
	}
}
