package testutil

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"
)

// CommitFiles creates a repository holding one commit of files and returns
// its work tree root
func CommitFiles(t *testing.T, files map[string]string) string {
	t.Helper()

	dir := TempDir(t)
	repo, err := gogit.PlainInit(dir, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)

	WriteFiles(t, dir, files)
	for name := range files {
		_, err := wt.Add(name)
		require.NoError(t, err)
	}
	_, err = wt.Commit("initial", &gogit.CommitOptions{
		Author: &object.Signature{Name: "Dev", Email: "dev@example.org", When: time.Unix(1700000000, 0)},
	})
	require.NoError(t, err)
	return dir
}

// DumpGitDir returns every file below root/.git keyed by its slash-separated
// path relative to .git
func DumpGitDir(t *testing.T, root string) map[string][]byte {
	t.Helper()

	gitDir := filepath.Join(root, ".git")
	files := map[string][]byte{}
	err := filepath.WalkDir(gitDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(gitDir, path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		files[filepath.ToSlash(rel)] = data
		return nil
	})
	require.NoError(t, err)
	return files
}

// ExposedRepo commits files and returns the resulting .git contents
func ExposedRepo(t *testing.T, files map[string]string) map[string][]byte {
	t.Helper()
	return DumpGitDir(t, CommitFiles(t, files))
}
