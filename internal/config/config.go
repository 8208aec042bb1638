package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tradecraft/storefront-cli/internal/auth"
)

// Config holds all configuration for the CLI.
type Config struct {
	// Backend
	APIURL      string        `mapstructure:"api-url"`
	HTTPTimeout time.Duration `mapstructure:"timeout"`

	// Session
	CredentialsFile string `mapstructure:"credentials-file"`
	Language        string `mapstructure:"language"`

	// Export
	Workers   int    `mapstructure:"workers"`
	OutputDir string `mapstructure:"output"`
	PageSize  int    `mapstructure:"page-size"`
	Gzip      bool   `mapstructure:"gzip"`

	// Backoff
	BackoffInitial time.Duration `mapstructure:"backoff-initial"`
	BackoffMax     time.Duration `mapstructure:"backoff-max"`

	// Retry settings (export layer only; single calls never retry)
	MaxRetries int `mapstructure:"max-retries"`

	// Logging
	Verbose bool   `mapstructure:"verbose"`
	LogFile string `mapstructure:"log-file"`
}

// BackoffConfig holds exponential backoff settings
type BackoffConfig struct {
	InitialInterval     time.Duration
	MaxInterval         time.Duration
	Multiplier          float64
	RandomizationFactor float64
}

// DefaultBackoffConfig returns sensible default backoff settings
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		InitialInterval:     time.Second,
		MaxInterval:         60 * time.Second,
		Multiplier:          2.0,
		RandomizationFactor: 0.5,
	}
}

// SetupFlags configures persistent CLI flags on the root command and
// binds them to viper along with TRADECRAFT_* environment variables.
func SetupFlags(cmd *cobra.Command) {
	// Backend flags
	cmd.PersistentFlags().String("api-url", "http://localhost:8080", "Backend base URL (or set TRADECRAFT_API_URL)")
	cmd.PersistentFlags().Duration("timeout", 30*time.Second, "HTTP request timeout")

	// Session flags
	cmd.PersistentFlags().String("credentials-file", "", "Credentials file path (default ~/.tradecraft/credentials.json)")
	cmd.PersistentFlags().String("language", "", "Accept-Language tag sent with every request (e.g. zh-CN, en, id)")

	// Export flags
	cmd.PersistentFlags().IntP("workers", "w", 4, "Number of parallel export workers")
	cmd.PersistentFlags().StringP("output", "o", "./export", "Output directory for JSONL files")
	cmd.PersistentFlags().Int("page-size", 50, "Items per API page during export (1-100)")
	cmd.PersistentFlags().Bool("gzip", false, "Compress export files with gzip")

	// Backoff flags
	cmd.PersistentFlags().Duration("backoff-initial", time.Second, "Initial backoff interval after a rate limit")
	cmd.PersistentFlags().Duration("backoff-max", 60*time.Second, "Maximum backoff interval")

	// Retry settings
	cmd.PersistentFlags().Int("max-retries", 5, "Maximum retries per export request")

	// Logging flags
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().String("log-file", "", "Write log messages to this file")

	// Bind flags to viper
	viper.BindPFlags(cmd.PersistentFlags())

	// Bind environment variables
	viper.SetEnvPrefix("TRADECRAFT")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// Load loads configuration from flags and environment, and validates it.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.CredentialsFile == "" {
		path, err := auth.DefaultStorePath()
		if err != nil {
			return nil, err
		}
		cfg.CredentialsFile = path
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that all required configuration is present and valid.
func (c *Config) Validate() error {
	if c.APIURL == "" {
		return fmt.Errorf("api-url is required")
	}
	if !strings.HasPrefix(c.APIURL, "http://") && !strings.HasPrefix(c.APIURL, "https://") {
		return fmt.Errorf("api-url must start with http:// or https://")
	}
	c.APIURL = strings.TrimRight(c.APIURL, "/")

	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1")
	}
	if c.PageSize < 1 || c.PageSize > 100 {
		return fmt.Errorf("page-size must be between 1 and 100")
	}
	if c.MaxRetries < 1 {
		return fmt.Errorf("max-retries must be at least 1")
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	return nil
}

// GetBackoffConfig returns backoff configuration from the config
func (c *Config) GetBackoffConfig() BackoffConfig {
	cfg := DefaultBackoffConfig()
	if c.BackoffInitial > 0 {
		cfg.InitialInterval = c.BackoffInitial
	}
	if c.BackoffMax > 0 {
		cfg.MaxInterval = c.BackoffMax
	}
	return cfg
}
