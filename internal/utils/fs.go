package utils

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/quantmind-br/gitripper/internal/domain"
)

// LocalPath maps an artifact URL to <root>/<host>/<url-path>. The URL path is
// percent-decoded and the result must stay inside root.
func LocalPath(root, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidURL, err)
	}

	host := u.Host
	if host == "" || strings.ContainsAny(host, `/\`) || host == "." || host == ".." {
		return "", fmt.Errorf("%w: host %q", domain.ErrUnsafePath, host)
	}
	if strings.ContainsRune(u.Path, 0) {
		return "", fmt.Errorf("%w: NUL in path", domain.ErrUnsafePath)
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}

	hostRoot := filepath.Join(absRoot, host)
	dest := filepath.Join(hostRoot, filepath.FromSlash(u.Path))
	if !IsWithin(absRoot, hostRoot) || !IsWithin(hostRoot, dest) || dest == hostRoot {
		return "", fmt.Errorf("%w: %s", domain.ErrUnsafePath, rawURL)
	}
	return dest, nil
}

// IsWithin reports whether target is root or lies beneath it
func IsWithin(root, target string) bool {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// FileExists reports whether path exists and is a regular file
func FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}

// EnsureDir ensures the parent directory of path exists
func EnsureDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0755)
}

// RemoveQuietly deletes path, ignoring a missing file
func RemoveQuietly(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// ExpandPath expands ~ to the user's home directory
func ExpandPath(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
}
