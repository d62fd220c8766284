package domain

import (
	"encoding/json"
	"time"
)

// InitScriptStatus represents the lifecycle state of a worktree init script run
type InitScriptStatus string

const (
	// InitScriptNone means no run was ever attempted (the zero value)
	InitScriptNone    InitScriptStatus = ""
	InitScriptRunning InitScriptStatus = "running"
	InitScriptSuccess InitScriptStatus = "success"
	InitScriptFailed  InitScriptStatus = "failed"
)

// Terminal returns true for states the runner will never leave again
func (s InitScriptStatus) Terminal() bool {
	return s == InitScriptSuccess || s == InitScriptFailed
}

// WorktreeMetadata is the persisted record for one (project, branch) pair.
//
// The init-script runner owns the InitScript* fields. PR is an opaque blob
// written by other parts of the application; every writer must carry it
// forward unchanged (read-modify-write, never a blind overwrite).
type WorktreeMetadata struct {
	Branch           string           `json:"branch"`
	CreatedAt        time.Time        `json:"createdAt"`
	InitScriptRan    bool             `json:"initScriptRan"`
	InitScriptStatus InitScriptStatus `json:"initScriptStatus,omitempty"`
	InitScriptError  string           `json:"initScriptError,omitempty"`
	PR               json.RawMessage  `json:"pr,omitempty"`
}

// OutputStream identifies which stream an output chunk came from
type OutputStream string

const (
	StreamStdout OutputStream = "stdout"
	StreamStderr OutputStream = "stderr"
)
