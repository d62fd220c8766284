package api

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsHandler streams runner events over a WebSocket, one JSON message per
// event. Used by `automaker watch` and any UI that prefers a socket over SSE.
func (s *Server) wsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("websocket upgrade: %v", err)
			return
		}
		defer conn.Close()

		client, cancel := s.hub.Subscribe()
		defer cancel()

		// Drain reads so close frames and pings are processed
		go func() {
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					cancel()
					return
				}
			}
		}()

		for event := range client {
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		}
	}
}
