// Package config loads pipeline configuration from environment variables
// and an optional YAML file. Every credential-like value is optional:
// absence degrades the pipeline to credential-free providers, it never
// fails the load.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds everything the acquisition pipeline needs.
type Config struct {
	// ChannelHandle is the human-readable channel reference, e.g.
	// "@Abdijaliil".
	ChannelHandle string `mapstructure:"channel_handle"`

	// ChannelName is the display name used for provenance when a provider
	// payload does not carry one.
	ChannelName string `mapstructure:"channel_name"`

	// ChannelID is an optional pre-known stable identifier. When set,
	// identifier resolution is skipped entirely.
	ChannelID string `mapstructure:"channel_id"`

	// APIKey is the optional structured-API credential. Without it the
	// pipeline starts at the syndication-feed provider.
	APIKey string `mapstructure:"api_key"`

	// SummaryAPIKey is the optional credential for the text-summary
	// collaborator.
	SummaryAPIKey string `mapstructure:"summary_api_key"`

	// MaxResults bounds total accumulated records per fetch across all
	// pagination.
	MaxResults int `mapstructure:"max_results"`

	// FetchTimeout bounds one whole fetchChannelVideos call.
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`

	// APITimeout bounds the structured-API step of one fetch.
	APITimeout time.Duration `mapstructure:"api_timeout"`

	// FeedTimeout bounds one syndication-feed step of one fetch.
	FeedTimeout time.Duration `mapstructure:"feed_timeout"`

	// ResolveTimeout bounds identifier resolution inside a fetch so it
	// never stalls the overall call.
	ResolveTimeout time.Duration `mapstructure:"resolve_timeout"`
}

// Default values. Relative ordering matters more than the exact numbers:
// per-relay timeout < per-step timeout < overall fetch timeout.
const (
	defaultHandle      = "@Abdijaliil"
	defaultChannelName = "Abdijaliil"
	defaultMaxResults  = 50

	defaultFetchTimeout   = 30 * time.Second
	defaultAPITimeout     = 12 * time.Second
	defaultFeedTimeout    = 20 * time.Second
	defaultResolveTimeout = 3 * time.Second
)

// Load reads configuration from DHAGEYSO_* environment variables and, when
// configFile is non-empty, a YAML file. File values are overridden by the
// environment.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("dhageyso")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("channel_handle", defaultHandle)
	v.SetDefault("channel_name", defaultChannelName)
	// Optional keys need a registered default for AutomaticEnv to reach
	// them through Unmarshal.
	v.SetDefault("channel_id", "")
	v.SetDefault("api_key", "")
	v.SetDefault("summary_api_key", "")
	v.SetDefault("max_results", defaultMaxResults)
	v.SetDefault("fetch_timeout", defaultFetchTimeout)
	v.SetDefault("api_timeout", defaultAPITimeout)
	v.SetDefault("feed_timeout", defaultFeedTimeout)
	v.SetDefault("resolve_timeout", defaultResolveTimeout)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.ChannelHandle == "" {
		return fmt.Errorf("channel_handle cannot be empty")
	}

	if c.ChannelID != "" && !strings.HasPrefix(c.ChannelID, "UC") {
		return fmt.Errorf("channel_id %q does not look like a stable identifier (expected UC prefix)", c.ChannelID)
	}

	if c.MaxResults < 1 {
		return fmt.Errorf("max_results must be at least 1")
	}

	if c.FetchTimeout <= 0 {
		return fmt.Errorf("fetch_timeout must be positive")
	}

	if c.ResolveTimeout <= 0 || c.APITimeout <= 0 || c.FeedTimeout <= 0 {
		return fmt.Errorf("step timeouts must be positive")
	}

	if c.ResolveTimeout >= c.FetchTimeout {
		return fmt.Errorf("resolve_timeout must be shorter than fetch_timeout")
	}

	return nil
}

// HasCredential reports whether the structured-API provider can run.
func (c *Config) HasCredential() bool {
	return c.APIKey != ""
}
