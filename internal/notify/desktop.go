package notify

import (
	"os/exec"
	"runtime"
)

// DesktopNotifier sends desktop notifications
type DesktopNotifier struct {
	enabled bool
}

// NewDesktopNotifier creates a new desktop notifier
func NewDesktopNotifier(enabled bool) *DesktopNotifier {
	return &DesktopNotifier{enabled: enabled}
}

// Send sends a desktop notification
func (d *DesktopNotifier) Send(n Notification) error {
	if !d.enabled {
		return nil
	}

	switch runtime.GOOS {
	case "darwin":
		return d.sendMacOS(n)
	case "linux":
		return d.sendLinux(n)
	default:
		// Windows has no universal CLI notifier; the event feed covers it
		return nil
	}
}

func (d *DesktopNotifier) sendMacOS(n Notification) error {
	script := `display notification "` + n.Message + `" with title "` + n.Title + `"`
	cmd := exec.Command("osascript", "-e", script)
	return cmd.Run()
}

func (d *DesktopNotifier) sendLinux(n Notification) error {
	cmd := exec.Command("notify-send", n.Title, n.Message)
	return cmd.Run()
}
