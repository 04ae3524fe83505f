package api

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// SSEEvent represents a Server-Sent Event.
type SSEEvent struct {
	// Event type: "update"/"variant" for progress, "done" when the stream
	// is complete, "error" for failures.
	Event string

	// Data is JSON-encoded into the event's data line.
	Data any
}

// sseHeaders prepares the response for Server-Sent Events and returns the
// flusher, or an error response if the writer cannot stream.
func sseHeaders(w http.ResponseWriter) (http.Flusher, bool) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // disable nginx buffering

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return nil, false
	}
	return flusher, true
}

// writeSSE writes one event and flushes it to the client.
func writeSSE(w http.ResponseWriter, flusher http.Flusher, event SSEEvent) {
	payload, err := json.Marshal(event.Data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Event, payload)
	flusher.Flush()
}
