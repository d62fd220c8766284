// Package worktree creates and removes git worktrees for feature branches.
//
// Creating a worktree is the workflow that triggers the init-script runner.
// The workflow proceeds regardless of the script outcome: a failed init
// script does not invalidate the worktree.
package worktree

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// InitTrigger is called with the new worktree after a successful create.
// The runner satisfies this; it returns before the script finishes.
type InitTrigger interface {
	Run(projectPath, worktreePath, branch string)
}

// Manager handles git worktree operations for any registered project
type Manager struct {
	worktreeDir string
	trigger     InitTrigger
}

// NewManager creates a Manager placing worktrees under worktreeDir
func NewManager(worktreeDir string, trigger InitTrigger) *Manager {
	return &Manager{worktreeDir: worktreeDir, trigger: trigger}
}

// Create creates a new worktree for branch off projectPath and hands it to
// the init trigger. If the branch already exists it is cleaned up first.
func (m *Manager) Create(projectPath, branch string) (string, error) {
	if err := os.MkdirAll(m.worktreeDir, 0755); err != nil {
		return "", fmt.Errorf("creating worktree dir: %w", err)
	}

	if err := m.cleanupExistingBranch(projectPath, branch); err != nil {
		return "", fmt.Errorf("cleaning up existing branch: %w", err)
	}

	dirName := fmt.Sprintf("%s-%s-%s",
		filepath.Base(projectPath), sanitize(branch), randomSuffix())
	wtPath := filepath.Join(m.worktreeDir, dirName)

	// Fetch latest from origin first (if remote exists)
	fetchCmd := exec.Command("git", "fetch", "origin", "main")
	fetchCmd.Dir = projectPath
	fetchCmd.Run() // Ignore error - remote might not exist

	// Branch off origin/main when available, else the local HEAD
	baseBranch := "origin/main"
	checkCmd := exec.Command("git", "rev-parse", "--verify", "origin/main")
	checkCmd.Dir = projectPath
	if checkCmd.Run() != nil {
		baseBranch = "HEAD"
	}

	cmd := exec.Command("git", "worktree", "add", "-b", branch, wtPath, baseBranch)
	cmd.Dir = projectPath
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("git worktree add: %s: %w", out, err)
	}

	if m.trigger != nil {
		m.trigger.Run(projectPath, wtPath, branch)
	}

	return wtPath, nil
}

// cleanupExistingBranch removes any existing worktree and branch for the given branch name
func (m *Manager) cleanupExistingBranch(projectPath, branch string) error {
	// Prune any stale worktree entries first
	cmd := exec.Command("git", "worktree", "prune")
	cmd.Dir = projectPath
	cmd.Run()

	// Check if there's a worktree using this branch
	cmd = exec.Command("git", "worktree", "list", "--porcelain")
	cmd.Dir = projectPath
	out, _ := cmd.Output()

	lines := strings.Split(string(out), "\n")
	for i, line := range lines {
		if strings.HasPrefix(line, "worktree ") {
			wtPath := strings.TrimPrefix(line, "worktree ")
			// The branch line follows within the worktree's stanza
			for j := i + 1; j < len(lines) && j < i+4; j++ {
				if strings.TrimSpace(lines[j]) == "branch refs/heads/"+branch {
					rmCmd := exec.Command("git", "worktree", "remove", "--force", wtPath)
					rmCmd.Dir = projectPath
					rmCmd.Run() // Ignore error
					break
				}
			}
		}
	}

	// Always try to delete the branch, even if no worktree was found.
	// This handles orphan branches from previous runs.
	cmd = exec.Command("git", "branch", "-D", branch)
	cmd.Dir = projectPath
	cmd.Run() // Ignore error - branch might not exist

	return nil
}

// Remove removes a worktree and deletes its branch
func (m *Manager) Remove(projectPath, wtPath string) error {
	// Get branch name before removing
	cmd := exec.Command("git", "rev-parse", "--abbrev-ref", "HEAD")
	cmd.Dir = wtPath
	branchOut, _ := cmd.Output()
	branch := strings.TrimSpace(string(branchOut))

	cmd = exec.Command("git", "worktree", "remove", "--force", wtPath)
	cmd.Dir = projectPath
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("git worktree remove: %s: %w", out, err)
	}

	if branch != "" && branch != "HEAD" {
		cmd = exec.Command("git", "branch", "-D", branch)
		cmd.Dir = projectPath
		cmd.Run() // Ignore error if branch doesn't exist
	}

	return nil
}

// List returns the worktree paths of projectPath that live under worktreeDir
func (m *Manager) List(projectPath string) ([]string, error) {
	cmd := exec.Command("git", "worktree", "list", "--porcelain")
	cmd.Dir = projectPath
	out, err := cmd.Output()
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, line := range strings.Split(string(out), "\n") {
		if strings.HasPrefix(line, "worktree ") {
			path := strings.TrimPrefix(line, "worktree ")
			if strings.HasPrefix(path, m.worktreeDir) {
				paths = append(paths, path)
			}
		}
	}

	return paths, nil
}

// sanitize turns a branch name into a filesystem-safe directory fragment
func sanitize(branch string) string {
	return strings.ReplaceAll(branch, "/", "-")
}

func randomSuffix() string {
	b := make([]byte, 3)
	rand.Read(b)
	return hex.EncodeToString(b)
}
