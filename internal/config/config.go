// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	DB        DBConfig        `mapstructure:"db"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Publisher PublisherConfig `mapstructure:"publisher"`
	Analyzers AnalyzersConfig `mapstructure:"analyzers"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// DBConfig controls access to the relational database.
type DBConfig struct {
	Provider string `mapstructure:"provider"`
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// StorageConfig selects and parameterizes the blob store.
type StorageConfig struct {
	Provider  string `mapstructure:"provider"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	LocalDir  string `mapstructure:"local_dir"`
}

// PublisherConfig holds metadata for completion-event notifications.
type PublisherConfig struct {
	Provider  string `mapstructure:"provider"`
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// AnalyzersConfig groups the four analyzer endpoints.
type AnalyzersConfig struct {
	AxeCore     EndpointConfig `mapstructure:"axecore"`
	PageSpeed   EndpointConfig `mapstructure:"pagespeed"`
	NuValidator EndpointConfig `mapstructure:"nuvalidator"`
	LLM         EndpointConfig `mapstructure:"llm"`
}

// EndpointConfig parameterizes one analyzer client. APIKey is only used by
// endpoints that require one (PageSpeed).
type EndpointConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	APIKey         string `mapstructure:"api_key"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// Timeout converts the configured seconds into a duration.
func (e EndpointConfig) Timeout() time.Duration {
	return time.Duration(e.TimeoutSeconds) * time.Second
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PAGELENS")
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
	v.SetDefault("server.port", 8080)
	v.SetDefault("logging.development", true)
	v.SetDefault("db.provider", "memory")
	v.SetDefault("db.max_conns", 8)
	v.SetDefault("db.min_conns", 1)
	v.SetDefault("storage.provider", "memory")
	v.SetDefault("publisher.provider", "memory")
	v.SetDefault("publisher.topic", "analysis-completed")
	v.SetDefault("analyzers.axecore.timeout_seconds", 20)
	v.SetDefault("analyzers.pagespeed.timeout_seconds", 20)
	v.SetDefault("analyzers.nuvalidator.timeout_seconds", 20)
	v.SetDefault("analyzers.llm.timeout_seconds", 60)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	switch c.DB.Provider {
	case "postgres":
		if c.DB.DSN == "" {
			return fmt.Errorf("db.dsn must be set when db.provider is postgres")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown db.provider %q", c.DB.Provider)
	}
	switch c.Storage.Provider {
	case "gcs":
		if c.Storage.GCSBucket == "" {
			return fmt.Errorf("storage.gcs_bucket must be set when storage.provider is gcs")
		}
	case "local":
		if c.Storage.LocalDir == "" {
			return fmt.Errorf("storage.local_dir must be set when storage.provider is local")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown storage.provider %q", c.Storage.Provider)
	}
	switch c.Publisher.Provider {
	case "pubsub":
		if c.Publisher.ProjectID == "" {
			return fmt.Errorf("publisher.project_id must be set when publisher.provider is pubsub")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown publisher.provider %q", c.Publisher.Provider)
	}
	for _, ep := range []struct {
		name string
		cfg  EndpointConfig
	}{
		{"analyzers.axecore", c.Analyzers.AxeCore},
		{"analyzers.pagespeed", c.Analyzers.PageSpeed},
		{"analyzers.nuvalidator", c.Analyzers.NuValidator},
		{"analyzers.llm", c.Analyzers.LLM},
	} {
		if ep.cfg.BaseURL == "" {
			return fmt.Errorf("%s.base_url is required", ep.name)
		}
		if ep.cfg.TimeoutSeconds <= 0 {
			return fmt.Errorf("%s.timeout_seconds must be > 0", ep.name)
		}
	}
	return nil
}
