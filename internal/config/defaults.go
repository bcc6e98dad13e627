package config

import (
	"os"
	"path/filepath"
	"time"
)

// Reconstruction backends
const (
	BackendGit   = "git"
	BackendGoGit = "go-git"
)

// Default values
const (
	// Output defaults
	DefaultOutputDir = "output"

	// Concurrency defaults
	DefaultWorkers = 10
	DefaultTimeout = 10 * time.Second

	// HTTP defaults
	DefaultUserAgent  = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"
	DefaultRejectHTML = true
	DefaultMaxRetries = 2
	DefaultInsecure   = true

	// Crawl defaults
	DefaultMaxObjectSize = "64MB"

	// Reconstruction defaults
	DefaultReconstruct = true
	DefaultBackend     = BackendGit
	DefaultGitBinary   = "git"

	// Logging defaults
	DefaultLogLevel  = "info"
	DefaultLogFormat = "pretty"
)

// DefaultBranches are seeded for every target in addition to branches found in config
var DefaultBranches = []string{"master", "main", "develop"}

// ConfigDir returns the config directory path
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".gitripper"
	}
	return filepath.Join(home, ".gitripper")
}

// ConfigFilePath returns the config file path
func ConfigFilePath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Output: OutputConfig{
			Directory: DefaultOutputDir,
		},
		Concurrency: ConcurrencyConfig{
			Workers: DefaultWorkers,
			Timeout: DefaultTimeout,
		},
		HTTP: HTTPConfig{
			UserAgent:          DefaultUserAgent,
			RejectHTML:         DefaultRejectHTML,
			MaxRetries:         DefaultMaxRetries,
			InsecureSkipVerify: DefaultInsecure,
		},
		Crawl: CrawlConfig{
			Branches:      append([]string(nil), DefaultBranches...),
			MaxObjectSize: DefaultMaxObjectSize,
		},
		Reconstruct: ReconstructConfig{
			Enabled:   DefaultReconstruct,
			Backend:   DefaultBackend,
			GitBinary: DefaultGitBinary,
		},
		Logging: LoggingConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
