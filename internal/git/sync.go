// Package git mirrors the store directory into a git repository so prompt
// history can be shared and backed up. Everything here is best effort: a
// missing git binary or an uninitialized repository disables sync without
// failing store operations.
package git

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/dpshade/promptdiff/internal/errors"
)

// Sync handles automatic git synchronization of a store directory.
type Sync struct {
	baseDir string
	enabled bool
}

// NewSync creates a sync handle for the given store directory. Sync stays
// disabled until Initialize finds a usable repository.
func NewSync(baseDir string) *Sync {
	return &Sync{baseDir: baseDir}
}

// IsEnabled reports whether commits will actually happen.
func (g *Sync) IsEnabled() bool {
	return g.enabled && g.isInitialized()
}

// Enable turns sync on (user preference).
func (g *Sync) Enable() {
	g.enabled = true
}

// Disable turns sync off (user preference).
func (g *Sync) Disable() {
	g.enabled = false
}

// Initialize enables sync when the store directory is a git repository.
// Absence of a repository is not an error, just unavailability.
func (g *Sync) Initialize() error {
	g.enabled = g.isInitialized()
	return nil
}

// SetupRepository initializes a repository in the store directory and wires
// an optional remote. repoURL may be empty for a local-only repository.
func (g *Sync) SetupRepository(repoURL string) error {
	if !g.isInitialized() {
		if err := g.run("init"); err != nil {
			return errors.GitError("init", err)
		}
	}

	if repoURL != "" {
		if g.hasRemote() {
			if err := g.run("remote", "set-url", "origin", repoURL); err != nil {
				return errors.GitError("remote set-url", err)
			}
		} else {
			if err := g.run("remote", "add", "origin", repoURL); err != nil {
				return errors.GitError("remote add", err)
			}
		}
	}

	if !g.hasCommits() {
		if err := g.run("add", "-A"); err != nil {
			return errors.GitError("add", err)
		}
		if err := g.run("commit", "-m", "Initialize prompt store"); err != nil {
			if !strings.Contains(err.Error(), "nothing to commit") {
				return errors.GitError("commit", err)
			}
		}
	}

	g.enabled = true
	return nil
}

// SyncChanges stages and commits everything under the store directory. When
// a remote is configured it also pushes; push failure keeps the local commit
// and is reported as a warning, not an error.
func (g *Sync) SyncChanges(message string) error {
	if !g.IsEnabled() {
		return nil
	}

	if err := g.run("add", "-A"); err != nil {
		return errors.GitError("add", err)
	}

	dirty, err := g.hasStagedChanges()
	if err != nil {
		return errors.GitError("diff", err)
	}
	if !dirty {
		return nil
	}

	msg := fmt.Sprintf("%s - %s", message, time.Now().Format("2006-01-02 15:04:05"))
	if err := g.run("commit", "-m", msg); err != nil {
		return errors.GitError("commit", err)
	}

	if g.hasRemote() {
		if err := g.run("push"); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: committed locally but push failed: %v\n", err)
		}
	}

	return nil
}

// PullChanges fetches and merges remote changes. A missing remote is a
// no-op.
func (g *Sync) PullChanges() error {
	if !g.IsEnabled() || !g.hasRemote() {
		return nil
	}
	if err := g.run("pull", "--ff-only", "origin", g.currentBranch()); err != nil {
		return errors.GitError("pull", err)
	}
	return nil
}

// Status returns a one-line summary of the repository state.
func (g *Sync) Status() (string, error) {
	if !g.isInitialized() {
		return "Git not initialized", nil
	}
	if !g.enabled {
		return "Git sync disabled", nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", "status", "--porcelain", "--branch")
	cmd.Dir = g.baseDir
	output, err := cmd.Output()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "Git status timeout", nil
		}
		return "Git status unknown", errors.GitError("status", err)
	}

	lines := strings.Split(string(output), "\n")
	if len(lines) > 0 {
		if strings.Contains(lines[0], "[ahead") {
			return "Changes need to be pushed", nil
		}
		if strings.Contains(lines[0], "[behind") {
			return "Remote has new changes", nil
		}
	}
	if len(lines) > 1 && lines[1] != "" {
		return "Uncommitted changes", nil
	}
	return "In sync", nil
}

func (g *Sync) isInitialized() bool {
	_, err := os.Stat(filepath.Join(g.baseDir, ".git"))
	return err == nil
}

func (g *Sync) hasRemote() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", "remote", "-v")
	cmd.Dir = g.baseDir
	output, err := cmd.Output()
	if err != nil {
		return false
	}
	return len(strings.TrimSpace(string(output))) > 0
}

func (g *Sync) hasCommits() bool {
	cmd := exec.Command("git", "rev-list", "-n", "1", "--all")
	cmd.Dir = g.baseDir
	output, err := cmd.Output()
	if err != nil {
		return false
	}
	return len(strings.TrimSpace(string(output))) > 0
}

// hasStagedChanges uses diff --cached --quiet, whose exit code 1 means
// staged differences exist.
func (g *Sync) hasStagedChanges() (bool, error) {
	cmd := exec.Command("git", "diff", "--cached", "--quiet")
	cmd.Dir = g.baseDir
	err := cmd.Run()
	if err != nil {
		if exitError, ok := err.(*exec.ExitError); ok && exitError.ExitCode() == 1 {
			return true, nil
		}
		return false, err
	}
	return false, nil
}

func (g *Sync) currentBranch() string {
	cmd := exec.Command("git", "branch", "--show-current")
	cmd.Dir = g.baseDir
	output, err := cmd.Output()
	if err != nil {
		return "master"
	}
	branch := strings.TrimSpace(string(output))
	if branch == "" {
		return "master"
	}
	return branch
}

func (g *Sync) run(args ...string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = g.baseDir

	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("git %s timed out", strings.Join(args, " "))
		}
		return fmt.Errorf("git %s failed: %s", strings.Join(args, " "), strings.TrimSpace(string(output)))
	}
	return nil
}
