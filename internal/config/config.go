package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/quantmind-br/gitripper/internal/domain"
)

// Config represents the application configuration
type Config struct {
	Output      OutputConfig      `mapstructure:"output" yaml:"output"`
	Concurrency ConcurrencyConfig `mapstructure:"concurrency" yaml:"concurrency"`
	HTTP        HTTPConfig        `mapstructure:"http" yaml:"http"`
	Crawl       CrawlConfig       `mapstructure:"crawl" yaml:"crawl"`
	Reconstruct ReconstructConfig `mapstructure:"reconstruct" yaml:"reconstruct"`
	Logging     LoggingConfig     `mapstructure:"logging" yaml:"logging"`
}

// OutputConfig contains output-related settings
type OutputConfig struct {
	Directory string `mapstructure:"directory" yaml:"directory"`
	Overwrite bool   `mapstructure:"overwrite" yaml:"overwrite"`
	Progress  bool   `mapstructure:"progress" yaml:"progress"`
}

// ConcurrencyConfig contains concurrency settings
type ConcurrencyConfig struct {
	Workers        int           `mapstructure:"workers" yaml:"workers"`
	Timeout        time.Duration `mapstructure:"timeout" yaml:"timeout"`
	InflateWorkers int           `mapstructure:"inflate_workers" yaml:"inflate_workers"`
}

// HTTPConfig contains request settings shared by every worker client
type HTTPConfig struct {
	UserAgent          string   `mapstructure:"user_agent" yaml:"user_agent"`
	Headers            []string `mapstructure:"headers" yaml:"headers"`
	RejectHTML         bool     `mapstructure:"reject_html" yaml:"reject_html"`
	MaxRetries         int      `mapstructure:"max_retries" yaml:"max_retries"`
	InsecureSkipVerify bool     `mapstructure:"insecure_skip_verify" yaml:"insecure_skip_verify"`
	Proxy              string   `mapstructure:"proxy" yaml:"proxy"`
}

// CrawlConfig contains discovery settings
type CrawlConfig struct {
	Branches      []string `mapstructure:"branches" yaml:"branches"`
	MaxObjectSize string   `mapstructure:"max_object_size" yaml:"max_object_size"`
}

// ReconstructConfig contains working-tree checkout settings
type ReconstructConfig struct {
	Enabled   bool   `mapstructure:"enabled" yaml:"enabled"`
	Backend   string `mapstructure:"backend" yaml:"backend"`
	GitBinary string `mapstructure:"git_binary" yaml:"git_binary"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Output.Directory == "" {
		c.Output.Directory = DefaultOutputDir
	}
	if c.Concurrency.Workers < 1 {
		c.Concurrency.Workers = DefaultWorkers
	}
	if c.Concurrency.Timeout <= 0 {
		c.Concurrency.Timeout = DefaultTimeout
	}
	if c.Concurrency.InflateWorkers < 0 {
		c.Concurrency.InflateWorkers = 0
	}
	if c.HTTP.MaxRetries < 0 {
		c.HTTP.MaxRetries = 0
	}
	if c.HTTP.UserAgent == "" {
		c.HTTP.UserAgent = DefaultUserAgent
	}
	if _, err := ParseHeaders(c.HTTP.Headers); err != nil {
		return err
	}
	if len(c.Crawl.Branches) == 0 {
		c.Crawl.Branches = append([]string(nil), DefaultBranches...)
	}
	if c.Crawl.MaxObjectSize == "" {
		c.Crawl.MaxObjectSize = DefaultMaxObjectSize
	} else if _, err := ParseSize(c.Crawl.MaxObjectSize); err != nil {
		return fmt.Errorf("invalid crawl.max_object_size: %w", err)
	}
	switch c.Reconstruct.Backend {
	case "":
		c.Reconstruct.Backend = DefaultBackend
	case BackendGit, BackendGoGit:
	default:
		return domain.NewValidationError("reconstruct.backend",
			fmt.Sprintf("unknown backend %q (use %q or %q)", c.Reconstruct.Backend, BackendGit, BackendGoGit))
	}
	if c.Reconstruct.GitBinary == "" {
		c.Reconstruct.GitBinary = DefaultGitBinary
	}
	return nil
}

// CheckOutputDir fails when the output path exists and is not a directory
func (c *Config) CheckOutputDir() error {
	info, err := os.Stat(c.Output.Directory)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("stat output directory: %w", err)
	}
	if !info.IsDir() {
		return domain.NewValidationError("output.directory",
			fmt.Sprintf("%s exists and is not a directory", c.Output.Directory))
	}
	return nil
}

// MaxObjectBytes returns the parsed inflate cap
func (c *Config) MaxObjectBytes() int64 {
	n, err := ParseSize(c.Crawl.MaxObjectSize)
	if err != nil || n <= 0 {
		n, _ = ParseSize(DefaultMaxObjectSize)
	}
	return n
}

// ParseHeaders converts "name:value" pairs into a header map.
// Whitespace around the name and value is trimmed; the value may itself contain colons.
func ParseHeaders(pairs []string) (map[string]string, error) {
	headers := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, domain.NewValidationError("http.headers",
				fmt.Sprintf("expected name:value, got %q", pair))
		}
		headers[name] = strings.TrimSpace(value)
	}
	return headers, nil
}

func ParseSize(s string) (int64, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return 0, fmt.Errorf("empty size string")
	}

	var multiplier int64 = 1
	if strings.HasSuffix(s, "GB") {
		multiplier = 1024 * 1024 * 1024
		s = strings.TrimSuffix(s, "GB")
	} else if strings.HasSuffix(s, "MB") {
		multiplier = 1024 * 1024
		s = strings.TrimSuffix(s, "MB")
	} else if strings.HasSuffix(s, "KB") {
		multiplier = 1024
		s = strings.TrimSuffix(s, "KB")
	}

	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("no numeric value in size string")
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid numeric value: %w", err)
	}

	if n < 0 {
		return 0, fmt.Errorf("negative size not allowed")
	}

	return n * multiplier, nil
}
