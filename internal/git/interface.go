package git

import "context"

// Runner executes the external git binary
type Runner interface {
	// Run invokes git with args and returns captured stdout and stderr
	Run(ctx context.Context, args ...string) (stdout, stderr []byte, err error)
	// Available reports whether the binary can be found
	Available() bool
}
