package reconstruct

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/format/index"

	"github.com/quantmind-br/gitripper/internal/domain"
	"github.com/quantmind-br/gitripper/internal/utils"
)

// ErrIncomplete reports that some index entries had no retrievable object
var ErrIncomplete = errors.New("checkout incomplete")

// GoGitCheckout reconstructs a work tree in-process from the index and the
// object store, without an external binary. Entries whose objects are
// missing are skipped so the rest of the tree is still written.
type GoGitCheckout struct {
	logger *utils.Logger
}

// NewGoGitCheckout creates the in-process backend
func NewGoGitCheckout(logger *utils.Logger) *GoGitCheckout {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &GoGitCheckout{logger: logger}
}

// Name returns the backend name
func (g *GoGitCheckout) Name() string {
	return "go-git"
}

// Reconstruct writes every staged file of gitDir into its parent
func (g *GoGitCheckout) Reconstruct(ctx context.Context, gitDir string) error {
	workTree := filepath.Dir(gitDir)
	repo, err := gogit.PlainOpen(workTree)
	if err != nil {
		return fmt.Errorf("open repository: %w", err)
	}

	idx, err := repo.Storer.Index()
	if err != nil {
		return fmt.Errorf("read index: %w", err)
	}

	missing := 0
	for _, entry := range idx.Entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if entry.Mode == filemode.Submodule || entry.Stage != 0 {
			continue
		}
		if err := g.writeEntry(repo, workTree, entry); err != nil {
			if errors.Is(err, domain.ErrUnsafePath) {
				g.logger.Warn().Str("path", entry.Name).Msg("Skipping entry outside work tree")
				continue
			}
			missing++
			g.logger.Debug().Err(err).Str("path", entry.Name).Msg("Entry not restored")
		}
	}

	if missing > 0 {
		return fmt.Errorf("%w: %d of %d entries", ErrIncomplete, missing, len(idx.Entries))
	}
	return nil
}

func (g *GoGitCheckout) writeEntry(repo *gogit.Repository, workTree string, entry *index.Entry) error {
	dest := filepath.Join(workTree, filepath.FromSlash(entry.Name))
	gitDir := filepath.Join(workTree, ".git")
	if !utils.IsWithin(workTree, dest) || dest == workTree || utils.IsWithin(gitDir, dest) {
		return domain.ErrUnsafePath
	}

	blob, err := repo.BlobObject(entry.Hash)
	if err != nil {
		return err
	}
	r, err := blob.Reader()
	if err != nil {
		return err
	}
	defer r.Close()

	if err := utils.EnsureDir(dest); err != nil {
		return err
	}

	// symlinks are written as plain files holding the target path
	perm := os.FileMode(0644)
	if entry.Mode == filemode.Executable {
		perm = 0755
	}
	f, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
