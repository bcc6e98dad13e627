package git

import (
	"context"
	"os/exec"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantmind-br/gitripper/internal/domain"
)

func TestNewRunner(t *testing.T) {
	assert.Equal(t, "git", NewRunner("").Binary())
	assert.Equal(t, "/opt/git/bin/git", NewRunner("/opt/git/bin/git").Binary())
}

func TestExecRunner_Missing(t *testing.T) {
	r := NewRunner("definitely-not-a-git-binary-xyz")
	assert.False(t, r.Available())

	_, _, err := r.Run(context.Background(), "--version")
	assert.ErrorIs(t, err, domain.ErrGitNotFound)
}

func TestExecRunner_Version(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}

	r := NewRunner("git")
	require.True(t, r.Available())

	v, err := r.Version(context.Background())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(v, "git version"))
}

func TestExecRunner_CapturesStderr(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}

	_, stderr, err := NewRunner("git").Run(context.Background(), "--git-dir", t.TempDir(), "rev-parse", "HEAD")
	assert.Error(t, err)
	assert.NotEmpty(t, stderr)
}
