package domain

import "context"

// Downloader fetches one artifact URL to a local path
type Downloader interface {
	// Download stores url at dest and reports the outcome as a value
	Download(ctx context.Context, url, dest string) FetchResult
	// Close releases resources
	Close() error
}

// Inflater decompresses zlib streams
type Inflater interface {
	// Inflate returns the decompressed form of data
	Inflate(ctx context.Context, data []byte) ([]byte, error)
}

// Enqueuer accepts newly discovered artifact URLs
type Enqueuer interface {
	// Enqueue schedules url for processing
	Enqueue(url string)
}

// Reconstructor materializes a working tree from a fetched .git directory
type Reconstructor interface {
	// Name returns the backend name
	Name() string
	// Reconstruct checks out the work tree rooted at the parent of gitDir
	Reconstruct(ctx context.Context, gitDir string) error
}
