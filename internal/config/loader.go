package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Load loads configuration from file, environment, and defaults
// Uses the global viper instance to access CLI flag bindings
func Load() (*Config, error) {
	cfg, err := load(viper.GetViper())
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadWithViper loads configuration into a fresh viper instance and returns it
func LoadWithViper() (*Config, *viper.Viper, error) {
	v := viper.New()
	cfg, err := load(v)
	if err != nil {
		return nil, nil, err
	}
	return cfg, v, nil
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	// An explicit --config file wins over the search path
	if v.ConfigFileUsed() == "" {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(ConfigDir())
		v.AddConfigPath(".")
	}

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	// Environment variables (GITRIPPER_*)
	v.SetEnvPrefix("GITRIPPER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults sets default values in viper
func setDefaults(v *viper.Viper) {
	// Output defaults
	v.SetDefault("output.directory", DefaultOutputDir)
	v.SetDefault("output.overwrite", false)
	v.SetDefault("output.progress", false)

	// Concurrency defaults
	v.SetDefault("concurrency.workers", DefaultWorkers)
	v.SetDefault("concurrency.timeout", DefaultTimeout)
	v.SetDefault("concurrency.inflate_workers", 0)

	// HTTP defaults
	v.SetDefault("http.user_agent", DefaultUserAgent)
	v.SetDefault("http.headers", []string{})
	v.SetDefault("http.reject_html", DefaultRejectHTML)
	v.SetDefault("http.max_retries", DefaultMaxRetries)
	v.SetDefault("http.insecure_skip_verify", DefaultInsecure)
	v.SetDefault("http.proxy", "")

	// Crawl defaults
	v.SetDefault("crawl.branches", DefaultBranches)
	v.SetDefault("crawl.max_object_size", DefaultMaxObjectSize)

	// Reconstruction defaults
	v.SetDefault("reconstruct.enabled", DefaultReconstruct)
	v.SetDefault("reconstruct.backend", DefaultBackend)
	v.SetDefault("reconstruct.git_binary", DefaultGitBinary)

	// Logging defaults
	v.SetDefault("logging.level", DefaultLogLevel)
	v.SetDefault("logging.format", DefaultLogFormat)
}

// EnsureConfigDir creates the config directory if it doesn't exist
func EnsureConfigDir() error {
	return os.MkdirAll(ConfigDir(), 0755)
}
