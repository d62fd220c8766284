package api

import (
	"encoding/json"
	"net/http"

	"github.com/automaker/automaker/internal/events"
	"github.com/automaker/automaker/internal/worktree"
	"github.com/automaker/automaker/internal/worktreestore"
)

// Store is the server's view of worktree metadata persistence
type Store interface {
	List(opts worktreestore.ListOptions) ([]worktreestore.WorktreeRecord, error)
	Delete(projectPath, branch string) error
}

// Server is the HTTP API server
type Server struct {
	store     Store
	worktrees *worktree.Manager
	hub       *events.Hub
	addr      string
	mux       *http.ServeMux
}

// NewServer creates a new API server. Events published to hub are fanned
// out to the SSE and WebSocket feeds.
func NewServer(store Store, worktrees *worktree.Manager, hub *events.Hub, addr string) *Server {
	s := &Server{
		store:     store,
		worktrees: worktrees,
		hub:       hub,
		addr:      addr,
		mux:       http.NewServeMux(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/status", s.statusHandler())
	s.mux.HandleFunc("/api/worktrees", s.worktreesHandler())
	s.mux.HandleFunc("/api/events", s.sseHandler())
	s.mux.HandleFunc("/api/ws", s.wsHandler())
}

// Start starts the HTTP server
func (s *Server) Start() error {
	go s.hub.Run()
	return http.ListenAndServe(s.addr, s.mux)
}

// Handler exposes the mux for tests
func (s *Server) Handler() http.Handler {
	return s.mux
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
