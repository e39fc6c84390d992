// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/sitemirror/internal/mirror"
)

// Mirror backends accepted in mirror.backend.
const (
	BackendLocal  = "local"
	BackendGCS    = "gcs"
	BackendMemory = "memory"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Auth    AuthConfig    `mapstructure:"auth"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Mirror  MirrorConfig  `mapstructure:"mirror"`
	PubSub  PubSubConfig  `mapstructure:"pubsub"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// HTTPConfig bounds inbound request handling.
type HTTPConfig struct {
	RequestTimeoutSeconds int   `mapstructure:"request_timeout_seconds"`
	MaxBodyBytes          int64 `mapstructure:"max_body_bytes"`
}

// MirrorConfig selects where mirrored content goes and which assets are in scope.
type MirrorConfig struct {
	Root    string `mapstructure:"root"`
	Backend string `mapstructure:"backend"`
	Bucket  string `mapstructure:"bucket"`

	mirror.FilterConfig `mapstructure:",squash"`
}

// PubSubConfig holds where discovered asset batches are published.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// Enabled reports whether both project and topic are set.
func (p PubSubConfig) Enabled() bool {
	return p.ProjectID != "" && p.TopicName != ""
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
	// Level overrides the default level (debug in development, info otherwise).
	Level string `mapstructure:"level"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SITEMIRROR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	filter := mirror.DefaultFilterConfig()
	v.SetDefault("server.port", 3000)
	v.SetDefault("http.request_timeout_seconds", 60)
	v.SetDefault("http.max_body_bytes", 32<<20)
	v.SetDefault("mirror.root", ".")
	v.SetDefault("mirror.backend", BackendLocal)
	v.SetDefault("mirror.asset_host_substrings", filter.AssetHostSubstrings)
	v.SetDefault("mirror.excluded_urls", filter.ExcludedURLs)
	v.SetDefault("mirror.page_sections", filter.PageSections)
	v.SetDefault("logging.development", true)

	// Zero defaults register the keys so AutomaticEnv can override them.
	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.api_key", "")
	v.SetDefault("mirror.bucket", "")
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic_name", "")
	v.SetDefault("logging.level", "")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.HTTP.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("http.request_timeout_seconds must be > 0")
	}
	if c.HTTP.MaxBodyBytes <= 0 {
		return fmt.Errorf("http.max_body_bytes must be > 0")
	}
	switch c.Mirror.Backend {
	case BackendLocal:
		if strings.TrimSpace(c.Mirror.Root) == "" {
			return fmt.Errorf("mirror.root must be set for the local backend")
		}
	case BackendGCS:
		if c.Mirror.Bucket == "" {
			return fmt.Errorf("mirror.bucket must be set for the gcs backend")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("mirror.backend must be one of local, gcs, memory; got %q", c.Mirror.Backend)
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	if (c.PubSub.ProjectID == "") != (c.PubSub.TopicName == "") {
		return fmt.Errorf("pubsub.project_id and pubsub.topic_name must be set together")
	}
	return nil
}

// RequestTimeout converts the request timeout into a duration.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.HTTP.RequestTimeoutSeconds) * time.Second
}
