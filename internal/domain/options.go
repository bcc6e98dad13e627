package domain

// CommonOptions contains run-wide switches shared by the orchestrator and the crawl session.
type CommonOptions struct {
	Verbose    bool
	Force      bool
	Progress   bool
	NoCheckout bool
}

// DefaultCommonOptions returns CommonOptions with default values.
func DefaultCommonOptions() CommonOptions {
	return CommonOptions{}
}
