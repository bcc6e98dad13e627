package fetcher

import (
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// listingSniffLimit bounds how much of an HTML body is inspected
const listingSniffLimit = 64 << 10

var listingTitlePrefixes = []string{
	"index of",
	"directory listing for",
	"listing of",
}

// IsDirectoryListing reports whether an HTML body looks like a web server
// auto-index page (Apache, nginx, python http.server and friends) rather than
// a soft-404 or application page.
func IsDirectoryListing(r io.Reader) bool {
	doc, err := goquery.NewDocumentFromReader(io.LimitReader(r, listingSniffLimit))
	if err != nil {
		return false
	}

	for _, sel := range []string{"title", "h1"} {
		text := strings.ToLower(strings.TrimSpace(doc.Find(sel).First().Text()))
		for _, prefix := range listingTitlePrefixes {
			if strings.HasPrefix(text, prefix) {
				return true
			}
		}
	}

	parent := doc.Find(`a[href="../"], a[href=".."]`).Length()
	return parent > 0 && doc.Find("a[href]").Length() > 1
}
