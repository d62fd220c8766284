// Package shell resolves a Bash-compatible interpreter for running worktree
// init scripts.
//
// Init scripts must behave identically across platforms, and cmd.exe is not
// POSIX-compatible, so on Windows a Bash port (Git for Windows, scoop) is
// required rather than the native shell.
package shell

import (
	"path/filepath"

	"github.com/automaker/automaker/internal/platform"
)

// Invocation describes how to start the resolved shell
type Invocation struct {
	Executable string
	Args       []string
}

// Resolver finds a usable shell on the current platform
type Resolver struct {
	platform platform.Platform
}

// NewResolver creates a resolver backed by the given platform probe
func NewResolver(p platform.Platform) *Resolver {
	return &Resolver{platform: p}
}

// Resolve returns the shell to use and true, or ok=false when no usable
// shell exists. Callers must treat ok=false as terminal, not retryable.
func (r *Resolver) Resolve() (Invocation, bool) {
	if r.platform.OS() == "windows" {
		return r.resolveWindows()
	}
	return r.resolvePOSIX()
}

// resolveWindows probes the standard Git for Windows install locations,
// the per-user installer location, and the scoop package path, in order.
func (r *Resolver) resolveWindows() (Invocation, bool) {
	var candidates []string

	candidates = append(candidates,
		`C:\Program Files\Git\bin\bash.exe`,
		`C:\Program Files (x86)\Git\bin\bash.exe`,
	)
	if localAppData := r.platform.Getenv("LOCALAPPDATA"); localAppData != "" {
		candidates = append(candidates,
			filepath.Join(localAppData, "Programs", "Git", "bin", "bash.exe"))
	}
	if userProfile := r.platform.Getenv("USERPROFILE"); userProfile != "" {
		candidates = append(candidates,
			filepath.Join(userProfile, "scoop", "apps", "git", "current", "bin", "bash.exe"))
	}

	for _, path := range candidates {
		if r.platform.FileExists(path) {
			return Invocation{Executable: path}, true
		}
	}
	return Invocation{}, false
}

func (r *Resolver) resolvePOSIX() (Invocation, bool) {
	for _, path := range []string{"/bin/bash", "/bin/sh"} {
		if r.platform.FileExists(path) {
			return Invocation{Executable: path}, true
		}
	}
	return Invocation{}, false
}

// MissingShellMessage returns the diagnostic recorded when no shell resolves
func (r *Resolver) MissingShellMessage() string {
	if r.platform.OS() == "windows" {
		return "No bash found. Install Git for Windows to run worktree init scripts."
	}
	return "No shell found at /bin/bash or /bin/sh."
}
