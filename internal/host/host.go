// Package host provides the OS services the extension channels reach:
// opening URLs, revealing files, running shell commands and the wall clock.
package host

import (
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"
)

// Starter launches a command without waiting for it.
type Starter func(name string, args ...string) error

// Services implements the bridge's host collaborators for the current OS.
type Services struct {
	goos  string
	start Starter
	log   *slog.Logger
	now   func() time.Time
}

func New(log *slog.Logger) *Services {
	if log == nil {
		log = slog.Default()
	}
	s := &Services{goos: runtime.GOOS, log: log, now: time.Now}
	s.start = s.startProcess
	return s
}

// NewWith builds Services for goos with a custom starter and clock.
func NewWith(goos string, start Starter, now func() time.Time) *Services {
	if now == nil {
		now = time.Now
	}
	return &Services{goos: goos, start: start, log: slog.Default(), now: now}
}

func (s *Services) startProcess(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", name, err)
	}
	// Reap in the background; a tick must never wait on the child.
	go func() {
		if err := cmd.Wait(); err != nil {
			s.log.Debug("host command exited", "cmd", name, "err", err)
		}
	}()
	return nil
}

// Now returns the host wall clock.
func (s *Services) Now() time.Time { return s.now() }

// OpenURL opens url in the default browser.
func (s *Services) OpenURL(url string) error {
	switch s.goos {
	case "windows":
		return s.start("rundll32", "url.dll,FileProtocolHandler", url)
	case "darwin":
		return s.start("open", url)
	}
	return s.start("xdg-open", url)
}

// RevealPath shows path in the host file browser.
func (s *Services) RevealPath(path string) error {
	switch s.goos {
	case "windows":
		return s.start("explorer", "/select,"+filepath.FromSlash(path))
	case "darwin":
		return s.start("open", "-R", path)
	}
	// xdg-open cannot select a file; open its directory instead.
	return s.start("xdg-open", filepath.Dir(path))
}

// Execute runs command through the host shell.
func (s *Services) Execute(command string) error {
	if s.goos == "windows" {
		return s.start("cmd", "/C", command)
	}
	return s.start("sh", "-c", command)
}
