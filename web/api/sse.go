package api

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// sseHandler streams runner events to the browser as server-sent events
func (s *Server) sseHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("Access-Control-Allow-Origin", "*")

		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "Streaming not supported", http.StatusInternalServerError)
			return
		}

		client, cancel := s.hub.Subscribe()

		// Cleanup on disconnect
		notify := r.Context().Done()
		go func() {
			<-notify
			cancel()
		}()

		for event := range client {
			data, _ := json.Marshal(event)
			fmt.Fprintf(w, "event: %s\n", event.Type)
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}
