package reconstruct

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/quantmind-br/gitripper/internal/git"
	"github.com/quantmind-br/gitripper/internal/utils"
)

// GitCheckout reconstructs a work tree by running git checkout
type GitCheckout struct {
	runner git.Runner
	logger *utils.Logger
}

// NewGitCheckout creates the external git backend
func NewGitCheckout(runner git.Runner, logger *utils.Logger) *GitCheckout {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &GitCheckout{runner: runner, logger: logger}
}

// Name returns the backend name
func (g *GitCheckout) Name() string {
	return "git"
}

// CheckoutArgs returns the argv used for one repository root
func CheckoutArgs(gitDir string) []string {
	return []string{
		"-c", "core.fsmonitor=false",
		"-c", "core.hooksPath=" + os.DevNull,
		"--git-dir", gitDir,
		"--work-tree", filepath.Dir(gitDir),
		"checkout", "--", ".",
	}
}

// Reconstruct checks out the tracked files of gitDir into its parent
func (g *GitCheckout) Reconstruct(ctx context.Context, gitDir string) error {
	_, stderr, err := g.runner.Run(ctx, CheckoutArgs(gitDir)...)
	msg := strings.TrimSpace(string(stderr))
	if err != nil {
		if msg != "" {
			return fmt.Errorf("git checkout: %w: %s", err, msg)
		}
		return fmt.Errorf("git checkout: %w", err)
	}
	if msg != "" {
		g.logger.Warn().Str("git_dir", gitDir).Str("stderr", msg).Msg("git checkout reported problems")
	}
	return nil
}
