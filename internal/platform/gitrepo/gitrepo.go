// Package gitrepo prepares a local working copy of the GitOps repository.
package gitrepo

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
)

// Checkout clones or refreshes a single git repository working copy ahead of
// an update run.
type Checkout struct {
	repoURL   string
	localPath string
	branch    string
	logger    *slog.Logger
}

// New creates a Checkout. No I/O is performed; call Ensure.
func New(repoURL, localPath, branch string, logger *slog.Logger) *Checkout {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	return &Checkout{
		repoURL:   repoURL,
		localPath: localPath,
		branch:    branch,
		logger:    logger,
	}
}

// Path returns the local filesystem path of the working copy.
func (c *Checkout) Path() string {
	return c.localPath
}

// Ensure clones the repository if the working copy does not exist yet, or
// pulls the latest changes if it does, and returns the local path.
func (c *Checkout) Ensure(ctx context.Context) (string, error) {
	gitDir := filepath.Join(c.localPath, ".git")

	if _, err := os.Stat(gitDir); err == nil {
		c.logger.Info("working copy exists, pulling latest", "path", c.localPath)
		if err := c.pull(ctx); err != nil {
			return "", err
		}
		return c.localPath, nil
	}

	c.logger.Info("cloning repository", "repoURL", c.repoURL, "branch", c.branch)
	args := []string{"clone", "--depth=1"}
	if c.branch != "" {
		args = append(args, "--branch", c.branch)
	}
	args = append(args, c.repoURL, c.localPath)
	//nolint:gosec // G204: repoURL is from trusted config, not user input
	cmd := exec.CommandContext(ctx, "git", args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("git clone failed: %w\noutput: %s", err, output)
	}
	return c.localPath, nil
}

// pull fast-forwards the working copy to the remote head.
func (c *Checkout) pull(ctx context.Context) error {
	//nolint:gosec // G204: localPath is from trusted config, not user input
	cmd := exec.CommandContext(ctx, "git", "-C", c.localPath, "pull", "--ff-only")
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("git pull failed: %w\noutput: %s", err, output)
	}
	return nil
}
