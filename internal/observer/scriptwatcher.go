// Package observer watches project .automaker directories so the UI can
// reflect whether an init script exists without polling.
package observer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/automaker/automaker/internal/runner"
)

// ScriptChangeCallback is called when a project's init script appears,
// changes, or disappears
type ScriptChangeCallback func(projectPath string, present bool)

// ScriptWatcher monitors projects for changes to their init script
type ScriptWatcher struct {
	watcher  *fsnotify.Watcher
	callback ScriptChangeCallback
	debounce time.Duration

	// Track watched projects
	projects map[string]struct{}

	// Debounce state - projects with pending changes
	pending map[string]struct{}
	timer   *time.Timer
	mu      sync.Mutex

	cancel context.CancelFunc
}

// NewScriptWatcher creates a new watcher for project init scripts
func NewScriptWatcher(callback ScriptChangeCallback) (*ScriptWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &ScriptWatcher{
		watcher:  watcher,
		callback: callback,
		debounce: 500 * time.Millisecond, // Editors fire several events per save
		projects: make(map[string]struct{}),
		pending:  make(map[string]struct{}),
	}, nil
}

// AddProject starts watching a project's .automaker directory
func (sw *ScriptWatcher) AddProject(projectPath string) error {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	if _, exists := sw.projects[projectPath]; exists {
		return nil // Already watching
	}

	dir := filepath.Join(projectPath, runner.ScriptDir)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		// Watch the project root instead so we notice the directory appearing
		dir = projectPath
	}

	if err := sw.watcher.Add(dir); err != nil {
		return err
	}

	sw.projects[projectPath] = struct{}{}
	return nil
}

// RemoveProject stops watching a project
func (sw *ScriptWatcher) RemoveProject(projectPath string) {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	if _, exists := sw.projects[projectPath]; !exists {
		return
	}

	sw.watcher.Remove(filepath.Join(projectPath, runner.ScriptDir))
	sw.watcher.Remove(projectPath)

	delete(sw.projects, projectPath)
	delete(sw.pending, projectPath)
}

// Start begins watching for file changes
func (sw *ScriptWatcher) Start(ctx context.Context) {
	ctx, sw.cancel = context.WithCancel(ctx)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-sw.watcher.Events:
				if !ok {
					return
				}
				sw.handleEvent(event)
			case _, ok := <-sw.watcher.Errors:
				if !ok {
					return
				}
				// Keep watching after transient errors
			}
		}
	}()
}

// Stop stops watching for file changes
func (sw *ScriptWatcher) Stop() {
	if sw.cancel != nil {
		sw.cancel()
	}
	sw.watcher.Close()
}

func (sw *ScriptWatcher) handleEvent(event fsnotify.Event) {
	// Only the init script itself or its directory matters
	base := filepath.Base(event.Name)
	if base != runner.ScriptName && base != runner.ScriptDir {
		return
	}

	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	sw.mu.Lock()
	defer sw.mu.Unlock()

	projectPath := sw.findProject(event.Name)
	if projectPath == "" {
		return // Not in a watched project
	}

	sw.pending[projectPath] = struct{}{}

	if sw.timer != nil {
		sw.timer.Stop()
	}
	sw.timer = time.AfterFunc(sw.debounce, sw.flush)
}

// findProject returns the watched project that contains the given path
func (sw *ScriptWatcher) findProject(path string) string {
	for p := range sw.projects {
		if strings.HasPrefix(path, p) {
			return p
		}
	}
	return ""
}

func (sw *ScriptWatcher) flush() {
	sw.mu.Lock()
	pending := sw.pending
	sw.pending = make(map[string]struct{})
	sw.mu.Unlock()

	if sw.callback == nil {
		return
	}

	for projectPath := range pending {
		_, err := os.Stat(runner.ScriptPath(projectPath))
		sw.callback(projectPath, err == nil)
	}
}

// SetDebounce sets the debounce duration for batching file changes
func (sw *ScriptWatcher) SetDebounce(d time.Duration) {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	sw.debounce = d
}
