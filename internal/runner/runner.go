// Package runner executes a project's worktree init script exactly once per
// branch, streaming its output to observers and recording the outcome.
//
// The script lives at <project>/.automaker/worktree-init.sh by convention.
// Absence of the script is the common case and a silent no-op. A recorded
// terminal outcome (success or failure) is permanent: the script never runs
// a second time for the same (project, branch), no matter how often Run is
// invoked.
package runner

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/automaker/automaker/internal/domain"
	"github.com/automaker/automaker/internal/events"
	"github.com/automaker/automaker/internal/platform"
	"github.com/automaker/automaker/internal/shell"
)

// ScriptDir is the per-project directory holding automaker files
const ScriptDir = ".automaker"

// ScriptName is the fixed init script filename. The path is a convention,
// not a parameter.
const ScriptName = "worktree-init.sh"

// ScriptPath returns the init script path for a project
func ScriptPath(projectPath string) string {
	return filepath.Join(projectPath, ScriptDir, ScriptName)
}

// MetadataStore is the runner's view of the persistence layer.
// Get returns (nil, nil) when no record exists; Put overwrites the full
// record, so the runner merges in fields it does not own before writing.
type MetadataStore interface {
	Get(projectPath, branch string) (*domain.WorktreeMetadata, error)
	Put(projectPath string, meta *domain.WorktreeMetadata) error
}

// Runner owns the process lifecycle for init script runs
type Runner struct {
	store    MetadataStore
	notifier events.Notifier
	resolver *shell.Resolver
	platform platform.Platform

	// Serializes the idempotency check and running-write per (project, branch)
	mu    sync.Mutex
	gates map[string]*sync.Mutex

	// Signals completion of background streaming, for tests and shutdown
	wg sync.WaitGroup
}

// New creates a Runner. Events go to notifier; platform decides how the
// shell is resolved and whether the script file exists.
func New(store MetadataStore, notifier events.Notifier, p platform.Platform) *Runner {
	if notifier == nil {
		notifier = events.NoopNotifier{}
	}
	return &Runner{
		store:    store,
		notifier: notifier,
		resolver: shell.NewResolver(p),
		platform: p,
		gates:    make(map[string]*sync.Mutex),
	}
}

// invocation is the ephemeral per-call state. It lives until the spawned
// process exits or errors and is never persisted.
type invocation struct {
	runID        string
	projectPath  string
	worktreePath string
	branch       string
	cmd          *exec.Cmd
}

// Run executes the init script for a freshly created worktree. It returns
// once the process is spawned, or earlier when an early-exit condition is
// hit. All failures are absorbed: the outcome is communicated exclusively
// through the metadata store and the published events.
func (r *Runner) Run(projectPath, worktreePath, branch string) {
	scriptPath := ScriptPath(projectPath)
	if !r.platform.FileExists(scriptPath) {
		// No script is the common case, not an error
		return
	}

	gate := r.gate(projectPath, branch)
	gate.Lock()
	defer gate.Unlock()

	meta, err := r.store.Get(projectPath, branch)
	if err != nil {
		log.Printf("Warning: reading metadata for %s@%s: %v", branch, projectPath, err)
		meta = nil
	}
	if meta != nil && meta.InitScriptRan {
		log.Printf("Init script already ran for %s@%s, skipping", branch, projectPath)
		return
	}

	inv := &invocation{
		runID:        uuid.NewString(),
		projectPath:  projectPath,
		worktreePath: worktreePath,
		branch:       branch,
	}

	shellInv, ok := r.resolver.Resolve()
	if !ok {
		// Pre-flight failure: recorded permanently, never retried
		r.finish(inv, meta, domain.InitScriptFailed, r.resolver.MissingShellMessage(), nil)
		return
	}

	now := time.Now()
	running := merge(meta, branch, now)
	running.InitScriptRan = false
	running.InitScriptStatus = domain.InitScriptRunning
	running.InitScriptError = ""
	if err := r.store.Put(projectPath, running); err != nil {
		log.Printf("Warning: writing running metadata for %s@%s: %v", branch, projectPath, err)
	}

	r.publish(events.Event{
		Type:  events.TypeInitStarted,
		RunID: inv.runID,
		Data: events.InitStarted{
			ProjectPath:  projectPath,
			WorktreePath: worktreePath,
			Branch:       branch,
		},
	})

	args := append(append([]string{}, shellInv.Args...), scriptPath)
	cmd := exec.Command(shellInv.Executable, args...)
	// The script runs in the context of the new worktree, not the project
	cmd.Dir = worktreePath
	cmd.Env = append(os.Environ(),
		"AUTOMAKER_PROJECT_PATH="+projectPath,
		"AUTOMAKER_WORKTREE_PATH="+worktreePath,
		"AUTOMAKER_BRANCH="+branch,
		// Colorized tool output survives non-interactive execution
		"FORCE_COLOR=1",
		"CLICOLOR_FORCE=1",
		"npm_config_color=always",
		// Git must never stall waiting for credentials
		"GIT_TERMINAL_PROMPT=0",
	)
	inv.cmd = cmd

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		r.failSpawn(inv, err)
		return
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		r.failSpawn(inv, err)
		return
	}

	if err := cmd.Start(); err != nil {
		r.failSpawn(inv, err)
		return
	}

	r.wg.Add(1)
	go r.stream(inv, stdout, stderr)
}

// Wait blocks until all in-flight script runs have completed
func (r *Runner) Wait() {
	r.wg.Wait()
}

// failSpawn records a terminal failure for an error raised before or at
// spawn, after the running record was already written.
func (r *Runner) failSpawn(inv *invocation, spawnErr error) {
	current, err := r.store.Get(inv.projectPath, inv.branch)
	if err != nil {
		log.Printf("Warning: re-reading metadata for %s@%s: %v", inv.branch, inv.projectPath, err)
		current = nil
	}
	r.finish(inv, current, domain.InitScriptFailed, spawnErr.Error(), nil)
}

// stream drains both output pipes, waits for the process, and records the
// terminal outcome. Once spawned, the script runs to natural completion:
// there is no caller-initiated abort and no duration limit.
func (r *Runner) stream(inv *invocation, stdout, stderr io.Reader) {
	defer r.wg.Done()

	var g errgroup.Group
	g.Go(func() error { return r.pump(inv, stdout, domain.StreamStdout) })
	g.Go(func() error { return r.pump(inv, stderr, domain.StreamStderr) })
	// Drain pending output before Wait closes the pipes and before the
	// completion event goes out
	g.Wait()

	err := inv.cmd.Wait()

	// Re-read so a concurrent update to unrelated fields is not clobbered
	current, getErr := r.store.Get(inv.projectPath, inv.branch)
	if getErr != nil {
		log.Printf("Warning: re-reading metadata for %s@%s: %v", inv.branch, inv.projectPath, getErr)
		current = nil
	}

	if err == nil {
		r.finish(inv, current, domain.InitScriptSuccess, "", nil)
		return
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code := exitErr.ExitCode()
		r.finish(inv, current, domain.InitScriptFailed, fmt.Sprintf("Exit code: %d", code), &code)
		return
	}

	// Runtime error distinct from a non-zero exit (executable vanished,
	// permission denied, I/O failure)
	r.finish(inv, current, domain.InitScriptFailed, err.Error(), nil)
}

// pump reads raw chunks from one stream and publishes each immediately,
// unbuffered, preserving arrival order within the stream.
func (r *Runner) pump(inv *invocation, src io.Reader, stream domain.OutputStream) error {
	buf := make([]byte, 32*1024)
	for {
		n, err := src.Read(buf)
		if n > 0 {
			r.publish(events.Event{
				Type:  events.TypeInitOutput,
				RunID: inv.runID,
				Data: events.InitOutput{
					ProjectPath: inv.projectPath,
					Branch:      inv.branch,
					Stream:      stream,
					Content:     string(buf[:n]),
				},
			})
		}
		if err != nil {
			return nil // EOF or closed pipe ends the stream
		}
	}
}

// finish writes the terminal metadata record and publishes the completion
// event. Exactly one terminal write happens per invocation, always after
// the process has ended (or before spawn, for pre-flight failures).
func (r *Runner) finish(inv *invocation, current *domain.WorktreeMetadata, status domain.InitScriptStatus, errMsg string, exitCode *int) {
	meta := merge(current, inv.branch, time.Now())
	meta.InitScriptRan = true
	meta.InitScriptStatus = status
	meta.InitScriptError = errMsg

	if err := r.store.Put(inv.projectPath, meta); err != nil {
		log.Printf("Warning: writing terminal metadata for %s@%s: %v", inv.branch, inv.projectPath, err)
	}

	r.publish(events.Event{
		Type:  events.TypeInitCompleted,
		RunID: inv.runID,
		Data: events.InitCompleted{
			ProjectPath:  inv.projectPath,
			WorktreePath: inv.worktreePath,
			Branch:       inv.branch,
			Success:      status == domain.InitScriptSuccess,
			ExitCode:     exitCode,
			Error:        errMsg,
		},
	})
}

// merge builds a record for (branch) on top of an existing one, carrying
// forward CreatedAt and the opaque PR blob the runner does not own.
func merge(current *domain.WorktreeMetadata, branch string, now time.Time) *domain.WorktreeMetadata {
	meta := &domain.WorktreeMetadata{
		Branch:    branch,
		CreatedAt: now,
	}
	if current != nil {
		if !current.CreatedAt.IsZero() {
			meta.CreatedAt = current.CreatedAt
		}
		meta.PR = current.PR
	}
	return meta
}

func (r *Runner) publish(e events.Event) {
	if err := r.notifier.Publish(e); err != nil {
		log.Printf("Warning: publishing %s event: %v", e.Type, err)
	}
}

func (r *Runner) gate(projectPath, branch string) *sync.Mutex {
	key := projectPath + "\x00" + branch
	r.mu.Lock()
	defer r.mu.Unlock()
	gate, ok := r.gates[key]
	if !ok {
		gate = &sync.Mutex{}
		r.gates[key] = gate
	}
	return gate
}
