package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/automaker/automaker/internal/domain"
	"github.com/automaker/automaker/internal/worktreestore"
)

// WorktreeResponse is the API response for a worktree metadata record
type WorktreeResponse struct {
	ProjectPath      string          `json:"project_path"`
	Branch           string          `json:"branch"`
	CreatedAt        string          `json:"created_at"`
	InitScriptRan    bool            `json:"init_script_ran"`
	InitScriptStatus string          `json:"init_script_status,omitempty"`
	InitScriptError  string          `json:"init_script_error,omitempty"`
	PR               json.RawMessage `json:"pr,omitempty"`
}

// StatusResponse is the API response for overall status
type StatusResponse struct {
	Total   int `json:"total"`
	Running int `json:"running"`
	Success int `json:"success"`
	Failed  int `json:"failed"`
}

// CreateWorktreeRequest is the payload for POST /api/worktrees
type CreateWorktreeRequest struct {
	ProjectPath string `json:"project_path"`
	Branch      string `json:"branch"`
}

func recordToResponse(rec worktreestore.WorktreeRecord) WorktreeResponse {
	return WorktreeResponse{
		ProjectPath:      rec.ProjectPath,
		Branch:           rec.Metadata.Branch,
		CreatedAt:        rec.Metadata.CreatedAt.Format(time.RFC3339),
		InitScriptRan:    rec.Metadata.InitScriptRan,
		InitScriptStatus: string(rec.Metadata.InitScriptStatus),
		InitScriptError:  rec.Metadata.InitScriptError,
		PR:               rec.Metadata.PR,
	}
}

func (s *Server) statusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		records, err := s.store.List(worktreestore.ListOptions{})
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		resp := StatusResponse{Total: len(records)}
		for _, rec := range records {
			switch rec.Metadata.InitScriptStatus {
			case domain.InitScriptRunning:
				resp.Running++
			case domain.InitScriptSuccess:
				resp.Success++
			case domain.InitScriptFailed:
				resp.Failed++
			}
		}

		writeJSON(w, resp)
	}
}

func (s *Server) worktreesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			s.listWorktrees(w, r)
		case http.MethodPost:
			s.createWorktree(w, r)
		case http.MethodDelete:
			s.deleteWorktree(w, r)
		default:
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	}
}

func (s *Server) listWorktrees(w http.ResponseWriter, r *http.Request) {
	opts := worktreestore.ListOptions{
		ProjectPath: r.URL.Query().Get("project"),
		Status:      domain.InitScriptStatus(r.URL.Query().Get("status")),
	}

	records, err := s.store.List(opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := make([]WorktreeResponse, 0, len(records))
	for _, rec := range records {
		resp = append(resp, recordToResponse(rec))
	}
	writeJSON(w, resp)
}

// createWorktree creates the git worktree and kicks off the init script.
// The response does not wait for the script: its outcome arrives on the
// event feed and in the metadata record.
func (s *Server) createWorktree(w http.ResponseWriter, r *http.Request) {
	var req CreateWorktreeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ProjectPath == "" || req.Branch == "" {
		writeError(w, http.StatusBadRequest, "project_path and branch are required")
		return
	}

	wtPath, err := s.worktrees.Create(req.ProjectPath, req.Branch)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, map[string]string{
		"worktree_path": wtPath,
		"branch":        req.Branch,
	})
}

func (s *Server) deleteWorktree(w http.ResponseWriter, r *http.Request) {
	projectPath := r.URL.Query().Get("project")
	wtPath := r.URL.Query().Get("path")
	branch := r.URL.Query().Get("branch")
	if projectPath == "" || wtPath == "" {
		writeError(w, http.StatusBadRequest, "project and path are required")
		return
	}

	if err := s.worktrees.Remove(projectPath, wtPath); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if branch != "" {
		if err := s.store.Delete(projectPath, branch); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	writeJSON(w, map[string]string{"status": "removed"})
}
