// Package clipboard copies revision content to the system clipboard via the
// platform's native utility.
package clipboard

import (
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// ClipboardError reports that no clipboard utility is available.
type ClipboardError struct {
	OS      string
	Message string
}

func (e *ClipboardError) Error() string {
	return e.Message
}

// NewClipboardError creates a ClipboardError with installation hints.
func NewClipboardError() *ClipboardError {
	var msg string
	switch runtime.GOOS {
	case "linux":
		msg = "no clipboard utility found. Install xclip, xsel, or wl-clipboard"
	case "darwin":
		msg = "pbcopy not available"
	case "windows":
		msg = "clip command not available"
	default:
		msg = fmt.Sprintf("clipboard not supported on %s", runtime.GOOS)
	}
	return &ClipboardError{OS: runtime.GOOS, Message: msg}
}

// Copy copies text to the system clipboard.
func Copy(text string) error {
	switch runtime.GOOS {
	case "darwin":
		return pipeTo(text, "pbcopy")
	case "linux":
		return copyLinux(text)
	case "windows":
		return pipeTo(text, "cmd", "/c", "clip")
	default:
		return NewClipboardError()
	}
}

// copyLinux tries xclip, xsel, then wl-copy.
func copyLinux(text string) error {
	candidates := [][]string{
		{"xclip", "-selection", "clipboard"},
		{"xsel", "--clipboard", "--input"},
		{"wl-copy"},
	}

	var lastErr error
	for _, args := range candidates {
		if !commandAvailable(args[0]) {
			continue
		}
		if err := pipeTo(text, args[0], args[1:]...); err != nil {
			lastErr = fmt.Errorf("%s failed: %w", args[0], err)
			continue
		}
		return nil
	}

	if lastErr != nil {
		return lastErr
	}
	return NewClipboardError()
}

// CopyWithFallback copies and returns a user-facing status message.
func CopyWithFallback(text string) (string, error) {
	if err := Copy(text); err != nil {
		var clipErr *ClipboardError
		if errors.As(err, &clipErr) {
			return "", err
		}
		return "", fmt.Errorf("failed to copy to clipboard: %w", err)
	}
	return "Copied to clipboard!", nil
}

func pipeTo(text string, name string, args ...string) error {
	cmd := exec.Command(name, args...)
	cmd.Stdin = strings.NewReader(text)
	return cmd.Run()
}

func commandAvailable(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
