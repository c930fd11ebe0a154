package sbmcp

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/leeb003/supabase-mcp/internal/hub"
)

// maxPublishBytes bounds the POST /publish request body.
const maxPublishBytes = 1 << 20

// EventsRouter returns the HTTP surface of the broadcast hub:
//
//	GET  /stream  — Server-Sent Events stream of broadcast messages; each
//	               frame carries the hub sequence number as its event id so
//	               clients can detect message loss.
//	POST /publish — broadcast a JSON payload to all connected subscribers.
func (s *SupabaseMcp) EventsRouter() chi.Router {
	r := chi.NewRouter()
	r.Get("/stream", s.handleEventStream)
	r.Post("/publish", s.handleEventPublish)
	return r
}

func (s *SupabaseMcp) handleEventStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	sub := s.hub.Subscribe(s.config.Events.SubscriberBuffer)
	if sub == nil {
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	}
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	// Confirms the subscription before the first broadcast arrives.
	fmt.Fprint(w, "event: ready\ndata: {}\n\n")
	flusher.Flush()

	s.logger.Info().Int("subscribers", s.hub.Len()).Msg("event stream client connected")
	defer s.logger.Info().Msg("event stream client disconnected")

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-sub.Messages():
			if !ok {
				// Dropped by the hub for falling behind, or hub closed.
				return
			}
			writeSSEFrame(w, msg)
			flusher.Flush()
		}
	}
}

// writeSSEFrame emits one event frame. Payloads are opaque and may contain
// newlines, which terminate a data field in the SSE wire format, so each
// payload line becomes its own data field; clients reassemble them joined
// with a newline.
func writeSSEFrame(w io.Writer, msg hub.Message) {
	fmt.Fprintf(w, "id: %d\n", msg.Seq)
	for _, line := range strings.Split(string(msg.Payload), "\n") {
		fmt.Fprintf(w, "data: %s\n", line)
	}
	fmt.Fprint(w, "\n")
}

func (s *SupabaseMcp) handleEventPublish(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxPublishBytes))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	if !json.Valid(body) {
		http.Error(w, "body must be valid JSON", http.StatusBadRequest)
		return
	}

	seq := s.hub.Publish(body)
	if seq == 0 {
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"status": "sent", "seq": seq})
}

// HealthHandler reports process liveness, server version, and uptime.
func (s *SupabaseMcp) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"status":  "healthy",
			"version": Version,
			"uptime":  s.Uptime().String(),
		})
	}
}
