// Package platform abstracts the host operating system checks the shell
// resolver depends on, so resolution logic is testable without touching
// the real filesystem.
package platform

import (
	"os"
	"runtime"
)

// Platform answers the environment questions the resolver asks
type Platform interface {
	// OS returns the runtime GOOS value ("windows", "linux", "darwin", ...)
	OS() string
	// FileExists reports whether a regular file exists at path
	FileExists(path string) bool
	// Getenv returns the value of an environment variable, or ""
	Getenv(key string) string
}

// Host is the real operating system
type Host struct{}

func (Host) OS() string { return runtime.GOOS }

func (Host) FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func (Host) Getenv(key string) string { return os.Getenv(key) }
