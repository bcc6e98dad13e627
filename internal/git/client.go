package git

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"

	"github.com/quantmind-br/gitripper/internal/domain"
)

// ExecRunner implements Runner with os/exec. Arguments are passed as argv,
// never through a shell.
type ExecRunner struct {
	binary string
}

// NewRunner creates a runner for the given git binary name or path
func NewRunner(binary string) *ExecRunner {
	if binary == "" {
		binary = "git"
	}
	return &ExecRunner{binary: binary}
}

// Binary returns the configured binary
func (r *ExecRunner) Binary() string {
	return r.binary
}

// Available reports whether the binary resolves on PATH
func (r *ExecRunner) Available() bool {
	_, err := exec.LookPath(r.binary)
	return err == nil
}

// Run executes git and captures its output
func (r *ExecRunner) Run(ctx context.Context, args ...string) ([]byte, []byte, error) {
	path, err := exec.LookPath(r.binary)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", domain.ErrGitNotFound, err)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.Env = append(cmd.Environ(), "GIT_TERMINAL_PROMPT=0", "GIT_CONFIG_NOSYSTEM=1")

	err = cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// Version returns the output of git --version
func (r *ExecRunner) Version(ctx context.Context) (string, error) {
	out, _, err := r.Run(ctx, "--version")
	if err != nil {
		return "", err
	}
	return string(bytes.TrimSpace(out)), nil
}
