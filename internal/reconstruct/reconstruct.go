// Package reconstruct materializes working trees from fetched .git
// directories once the crawl has drained.
package reconstruct

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/quantmind-br/gitripper/internal/config"
	"github.com/quantmind-br/gitripper/internal/domain"
	"github.com/quantmind-br/gitripper/internal/git"
	"github.com/quantmind-br/gitripper/internal/utils"
)

// Outcome is the result of reconstructing one repository root
type Outcome struct {
	GitDir   string
	Backend  string
	Err      error
	Duration time.Duration
}

// NewBackend selects a reconstruction backend. The git backend falls back
// to go-git when the binary is not available.
func NewBackend(name string, runner git.Runner, logger *utils.Logger) (domain.Reconstructor, error) {
	switch name {
	case "", config.BackendGit:
		if runner != nil && runner.Available() {
			return NewGitCheckout(runner, logger), nil
		}
		if logger != nil {
			logger.Warn().Msg("git binary not found, using go-git checkout")
		}
		return NewGoGitCheckout(logger), nil
	case config.BackendGoGit:
		return NewGoGitCheckout(logger), nil
	default:
		return nil, fmt.Errorf("unknown reconstruct backend %q", name)
	}
}

// IsGitDir reports whether path looks like fetched git metadata
func IsGitDir(path string) bool {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return false
	}
	return utils.FileExists(filepath.Join(path, "HEAD")) || utils.FileExists(filepath.Join(path, "index"))
}

// Runner reconstructs many roots independently
type Runner struct {
	backend domain.Reconstructor
	workers int
	logger  *utils.Logger
}

// NewRunner creates a runner using backend for every root
func NewRunner(backend domain.Reconstructor, workers int, logger *utils.Logger) *Runner {
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &Runner{backend: backend, workers: workers, logger: logger.WithComponent("reconstruct")}
}

// Run reconstructs every root. A failure is recorded in that root's Outcome
// and never stops the others.
func (r *Runner) Run(ctx context.Context, gitDirs []string) []Outcome {
	outcomes := make([]Outcome, len(gitDirs))
	for i, dir := range gitDirs {
		outcomes[i] = Outcome{GitDir: dir, Backend: r.backend.Name()}
	}

	positions := make([]int, len(gitDirs))
	for i := range positions {
		positions[i] = i
	}

	errs := utils.ParallelForEach(ctx, positions, r.workers, func(ctx context.Context, i int) error {
		start := time.Now()
		err := r.reconstruct(ctx, gitDirs[i])
		outcomes[i].Duration = time.Since(start)
		return err
	})

	for i, err := range errs {
		outcomes[i].Err = err
		if err != nil {
			r.logger.Error().Err(err).Str("git_dir", gitDirs[i]).Str("backend", r.backend.Name()).Msg("Reconstruction failed")
			continue
		}
		r.logger.Info().Str("git_dir", gitDirs[i]).Dur("took", outcomes[i].Duration).Msg("Reconstructed work tree")
	}
	return outcomes
}

func (r *Runner) reconstruct(ctx context.Context, gitDir string) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic during reconstruction: %v", p)
		}
	}()

	if !IsGitDir(gitDir) {
		return fmt.Errorf("%s: not a git directory", gitDir)
	}
	if n, err := SanitizeConfig(gitDir); err != nil {
		return fmt.Errorf("sanitize config: %w", err)
	} else if n > 0 {
		r.logger.Warn().Str("git_dir", gitDir).Int("options", n).Msg("Disabled unsafe config options")
	}
	return r.backend.Reconstruct(ctx, gitDir)
}
