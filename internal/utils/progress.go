package utils

import (
	"io"

	"github.com/schollz/progressbar/v3"
)

// Standard progress bar descriptions
const (
	DescCrawling       = "Crawling"
	DescReconstructing = "Reconstructing"
)

// NewProgressBar creates a consistently styled progress bar.
//
// A negative total renders an indeterminate spinner, which is what the crawl
// uses since the discovery graph has no known size up front.
func NewProgressBar(total int, description string, out io.Writer) *progressbar.ProgressBar {
	opts := []progressbar.Option{
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWriter(out),
		progressbar.OptionClearOnFinish(),
	}

	if total < 0 {
		opts = append(opts,
			progressbar.OptionSpinnerType(14),
			progressbar.OptionSetRenderBlankState(true),
		)
	} else {
		opts = append(opts, progressbar.OptionShowIts())
	}

	return progressbar.NewOptions(total, opts...)
}
