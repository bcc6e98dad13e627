package domain

// FetchStatus classifies the outcome of one download attempt
type FetchStatus int

const (
	// FetchFailed means the artifact could not be stored locally
	FetchFailed FetchStatus = iota
	// FetchDownloaded means the artifact was fetched from the network
	FetchDownloaded
	// FetchSkipped means the artifact already existed on disk
	FetchSkipped
)

// String returns the status name
func (s FetchStatus) String() string {
	switch s {
	case FetchDownloaded:
		return "downloaded"
	case FetchSkipped:
		return "skipped"
	default:
		return "failed"
	}
}

// FetchResult is the explicit per-item outcome of a download
type FetchResult struct {
	URL    string
	Path   string
	Status FetchStatus
	Bytes  int64
	Err    error
}

// OK reports whether the artifact is available on disk for discovery
func (r FetchResult) OK() bool {
	return r.Status == FetchDownloaded || r.Status == FetchSkipped
}

// Artifact identifies one file beneath a target's .git/ root
type Artifact struct {
	// URL is the fully resolved artifact URL (the dedup key)
	URL string

	// BaseURL is URL truncated right after the literal ".git/" segment
	BaseURL string

	// Path is URL relative to BaseURL, e.g. "objects/info/packs"
	Path string

	// LocalPath is where the artifact is stored under the output root
	LocalPath string
}
