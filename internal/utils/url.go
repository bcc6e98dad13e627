package utils

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/quantmind-br/gitripper/internal/domain"
)

// GitDirSuffix is the path segment every base URL ends with
const GitDirSuffix = "/.git/"

// NormalizeGitURL maps an arbitrary origin string to a canonical base URL
// of the form scheme://host[:port]/path/.git/
func NormalizeGitURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: empty target", domain.ErrInvalidURL)
	}

	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidURL, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: missing host in %q", domain.ErrInvalidURL, raw)
	}
	if !IsHTTPURL(raw) {
		return "", fmt.Errorf("%w: unsupported scheme %q", domain.ErrInvalidURL, u.Scheme)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.RawQuery = ""
	u.Fragment = ""
	u.RawPath = ""

	p := strings.TrimRight(u.Path, "/")
	p = strings.TrimSuffix(p, "/.git")
	u.Path = p + GitDirSuffix

	return u.String(), nil
}

// GitBaseURL truncates an artifact URL right after its first /.git/ segment
func GitBaseURL(artifactURL string) (string, error) {
	idx := strings.Index(artifactURL, GitDirSuffix)
	if idx < 0 {
		return "", fmt.Errorf("%w: %s", domain.ErrOutsideGitDir, artifactURL)
	}
	return artifactURL[:idx+len(GitDirSuffix)], nil
}

// RelativePath returns the base URL of an artifact together with the
// artifact's path relative to that base
func RelativePath(artifactURL string) (base, rel string, err error) {
	base, err = GitBaseURL(artifactURL)
	if err != nil {
		return "", "", err
	}
	rel = strings.TrimPrefix(artifactURL, base)
	if i := strings.IndexAny(rel, "?#"); i >= 0 {
		rel = rel[:i]
	}
	if unescaped, uerr := url.PathUnescape(rel); uerr == nil {
		rel = unescaped
	}
	return base, rel, nil
}

// ResolveArtifact resolves a discovered relative path against a base .git/ URL.
// References that would escape the base are rejected.
func ResolveArtifact(baseURL, rel string) (string, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidURL, err)
	}
	if rel == "" || strings.HasPrefix(rel, "/") {
		return "", fmt.Errorf("%w: %q", domain.ErrOutsideGitDir, rel)
	}

	resolved := base.ResolveReference(&url.URL{Path: rel}).String()
	root := base.String()
	if resolved == root || !strings.HasPrefix(resolved, root) {
		return "", fmt.Errorf("%w: %q", domain.ErrOutsideGitDir, rel)
	}
	return resolved, nil
}

// ObjectPath returns the loose-object path for a 40-hex object id
func ObjectPath(hex string) string {
	return "objects/" + hex[:2] + "/" + hex[2:]
}

// IsHTTPURL checks if a URL uses an http or https scheme
func IsHTTPURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}
