package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockGitRunner mocks the git.Runner interface
type MockGitRunner struct {
	mock.Mock
}

// Run mocks a git invocation
func (m *MockGitRunner) Run(ctx context.Context, args ...string) ([]byte, []byte, error) {
	call := m.Called(ctx, args)
	var stdout, stderr []byte
	if v := call.Get(0); v != nil {
		stdout = v.([]byte)
	}
	if v := call.Get(1); v != nil {
		stderr = v.([]byte)
	}
	return stdout, stderr, call.Error(2)
}

// Available mocks the binary lookup
func (m *MockGitRunner) Available() bool {
	return m.Called().Bool(0)
}
