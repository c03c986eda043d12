package actions

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"
)

// runner executes an external command. Tests replace it.
type runner func(ctx context.Context, name string, args ...string) error

func runCommand(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s error: %w - output: %s", name, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// SystemBrowser opens URLs in the default browser of the host OS.
type SystemBrowser struct {
	goos string
	run  runner
}

// NewSystemBrowser creates a browser for the current OS.
func NewSystemBrowser() *SystemBrowser {
	return &SystemBrowser{goos: runtime.GOOS, run: runCommand}
}

// Open launches the platform URL handler.
func (b *SystemBrowser) Open(ctx context.Context, url string) error {
	switch b.goos {
	case "darwin":
		return b.run(ctx, "open", url)
	case "linux", "freebsd", "openbsd":
		return b.run(ctx, "xdg-open", url)
	case "windows":
		return b.run(ctx, "rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("cannot open browser on %s", b.goos)
	}
}

// CommandDesktop drives the desktop through common command-line tools:
// screencapture on macOS, gnome-screenshot and xdotool on Linux.
type CommandDesktop struct {
	goos string
	run  runner

	// TabCloseDelay gives the user time to focus the browser (default 2s).
	TabCloseDelay time.Duration
}

// NewCommandDesktop creates a desktop driver for the current OS.
func NewCommandDesktop() *CommandDesktop {
	return &CommandDesktop{goos: runtime.GOOS, run: runCommand, TabCloseDelay: 2 * time.Second}
}

// Screenshot saves the screen to path.
func (d *CommandDesktop) Screenshot(ctx context.Context, path string) error {
	switch d.goos {
	case "darwin":
		return d.run(ctx, "screencapture", "-x", path)
	case "linux":
		return d.run(ctx, "gnome-screenshot", "-f", path)
	default:
		return fmt.Errorf("screenshots are not supported on %s", d.goos)
	}
}

// CloseTab waits TabCloseDelay, then sends the close-tab shortcut to the
// focused window.
func (d *CommandDesktop) CloseTab(ctx context.Context) error {
	if err := sleep(ctx, d.TabCloseDelay); err != nil {
		return err
	}
	switch d.goos {
	case "darwin":
		return d.run(ctx, "osascript", "-e", `tell application "System Events" to keystroke "w" using command down`)
	case "linux":
		return d.run(ctx, "xdotool", "key", "ctrl+w")
	default:
		return fmt.Errorf("closing tabs is not supported on %s", d.goos)
	}
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
