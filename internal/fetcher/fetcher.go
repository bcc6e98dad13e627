package fetcher

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"os"

	"github.com/quantmind-br/gitripper/internal/domain"
	"github.com/quantmind-br/gitripper/internal/utils"
)

// partSuffix marks a download that has not completed yet
const partSuffix = ".part"

// Options controls download behavior
type Options struct {
	// Overwrite re-downloads artifacts that already exist on disk
	Overwrite bool

	// RejectHTML treats a text/html response as a failed download
	RejectHTML bool
}

// Fetcher downloads git artifacts to disk. It implements domain.Downloader.
type Fetcher struct {
	client *Client
	opts   Options
	logger *utils.Logger
}

// New creates a Fetcher around a dedicated client
func New(client *Client, opts Options, logger *utils.Logger) *Fetcher {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &Fetcher{
		client: client,
		opts:   opts,
		logger: logger.WithComponent("fetcher"),
	}
}

// NewFactory returns a constructor that builds one Fetcher with its own
// client per call, for handing to each crawl worker
func NewFactory(clientOpts ClientOptions, opts Options, logger *utils.Logger) func() (domain.Downloader, error) {
	return func() (domain.Downloader, error) {
		client, err := NewClient(clientOpts)
		if err != nil {
			return nil, err
		}
		return New(client, opts, logger), nil
	}
}

// Download stores url at dest. An existing dest is kept without a request
// unless Overwrite is set. Failures never leave a partial file behind.
func (f *Fetcher) Download(ctx context.Context, url, dest string) domain.FetchResult {
	result := domain.FetchResult{URL: url, Path: dest}

	if !f.opts.Overwrite && utils.FileExists(dest) {
		result.Status = domain.FetchSkipped
		return result
	}

	n, err := f.fetch(ctx, url, dest)
	if err != nil {
		result.Status = domain.FetchFailed
		result.Err = err
		return result
	}

	f.logger.Debug().Str("url", url).Int64("bytes", n).Msg("Downloaded")
	result.Status = domain.FetchDownloaded
	result.Bytes = n
	return result
}

func (f *Fetcher) fetch(ctx context.Context, url, dest string) (int64, error) {
	resp, err := f.client.Get(ctx, url)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	body := io.Reader(resp.Body)
	if f.opts.RejectHTML && isHTML(resp.Header.Get("Content-Type")) {
		return 0, rejectHTML(url, resp.StatusCode, body)
	}

	if err := utils.EnsureDir(dest); err != nil {
		return 0, fmt.Errorf("failed to create directory: %w", err)
	}

	part := dest + partSuffix
	file, err := os.Create(part)
	if err != nil {
		return 0, fmt.Errorf("failed to create file: %w", err)
	}

	n, copyErr := io.Copy(file, body)
	closeErr := file.Close()
	if copyErr == nil {
		copyErr = closeErr
	}
	if copyErr != nil {
		_ = utils.RemoveQuietly(part)
		return 0, domain.NewFetchError(url, resp.StatusCode, fmt.Errorf("failed to write body: %w", copyErr))
	}

	if err := os.Rename(part, dest); err != nil {
		_ = utils.RemoveQuietly(part)
		return 0, fmt.Errorf("failed to finalize download: %w", err)
	}
	return n, nil
}

// rejectHTML classifies an HTML answer to a git artifact request
func rejectHTML(url string, status int, body io.Reader) error {
	var sniff bytes.Buffer
	_, _ = io.Copy(&sniff, io.LimitReader(body, listingSniffLimit))
	if IsDirectoryListing(&sniff) {
		return domain.NewFetchError(url, status, domain.ErrDirectoryListing)
	}
	return domain.NewFetchError(url, status, domain.ErrHTMLResponse)
}

func isHTML(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}

// Close releases the underlying client
func (f *Fetcher) Close() error {
	return f.client.Close()
}
