package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"salvadanaio/internal/log"
	"salvadanaio/internal/notify"
)

const heartbeatInterval = 30 * time.Second

// handleEvents streams outcomes as server-sent events until the client
// disconnects or the server shuts down.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		InternalServerError("Streaming not supported").Write(w)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	id, events, unsubscribe := s.hub.Subscribe()
	defer unsubscribe()

	logger := log.FromContext(r.Context())
	logger.InfoContext(r.Context(), "Event stream opened", "subscriber_id", id)
	defer logger.InfoContext(r.Context(), "Event stream closed", "subscriber_id", id)

	connected := notify.Event{
		Type:      notify.EventConnected,
		Timestamp: time.Now().UTC(),
		Data:      map[string]string{"subscriberId": id.String()},
	}
	if err := writeSSE(w, connected); err != nil {
		return
	}
	flusher.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-s.done:
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := writeSSE(w, ev); err != nil {
				logger.WarnContext(r.Context(), "Failed to write event", log.FieldError, err)
				return
			}
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, ev notify.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
	return err
}
