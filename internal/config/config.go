// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/stridewatch/stridewatch/internal/artifacts"
	"github.com/stridewatch/stridewatch/internal/extract"
	"github.com/stridewatch/stridewatch/internal/probe"
	"github.com/stridewatch/stridewatch/internal/publish"
	"github.com/stridewatch/stridewatch/internal/store"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig      `mapstructure:"server"`
	Crawl     CrawlConfig       `mapstructure:"crawl"`
	Scroll    ScrollConfig      `mapstructure:"scroll"`
	Browser   BrowserConfig     `mapstructure:"browser"`
	Selectors extract.Selectors `mapstructure:"selectors"`
	Probe     probe.Config      `mapstructure:"probe"`
	Database  store.Config      `mapstructure:"database"`
	Artifacts artifacts.Config  `mapstructure:"artifacts"`
	PubSub    publish.Config    `mapstructure:"pubsub"`
	Logging   LoggingConfig     `mapstructure:"logging"`
}

// ServerConfig controls the read API server.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// CrawlConfig governs the crawl run.
type CrawlConfig struct {
	ListingURL      string        `mapstructure:"listing_url"`
	MaxConcurrent   int           `mapstructure:"max_concurrent"`
	ProductLimit    int           `mapstructure:"product_limit"`
	PageSettle      time.Duration `mapstructure:"page_settle"`
	SizeGridTimeout time.Duration `mapstructure:"size_grid_timeout"`
}

// ScrollConfig bounds the listing lazy-load loop.
type ScrollConfig struct {
	MaxAttempts   int           `mapstructure:"max_attempts"`
	IdleThreshold int           `mapstructure:"idle_threshold"`
	SettleEvery   int           `mapstructure:"settle_every"`
	ScrollDelay   time.Duration `mapstructure:"scroll_delay"`
	SettleDelay   time.Duration `mapstructure:"settle_delay"`
	CardCeiling   int           `mapstructure:"card_ceiling"`
}

// BrowserConfig configures headless Chrome.
type BrowserConfig struct {
	UserAgent         string        `mapstructure:"user_agent"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout"`
	ViewportWidth     int64         `mapstructure:"viewport_width"`
	ViewportHeight    int64         `mapstructure:"viewport_height"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("STRIDEWATCH")
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

	// Selector overrides are all-or-nothing: a config file that sets none of
	// them gets the stock selector set.
	if len(cfg.Selectors.ProductCards) == 0 {
		cfg.Selectors = extract.DefaultSelectors()
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("crawl.max_concurrent", 3)
	v.SetDefault("crawl.product_limit", 0)
	v.SetDefault("crawl.page_settle", "2s")
	v.SetDefault("crawl.size_grid_timeout", "30s")
	v.SetDefault("scroll.max_attempts", 200)
	v.SetDefault("scroll.idle_threshold", 5)
	v.SetDefault("scroll.settle_every", 20)
	v.SetDefault("scroll.scroll_delay", "1s")
	v.SetDefault("scroll.settle_delay", "3s")
	v.SetDefault("scroll.card_ceiling", 0)
	v.SetDefault("browser.user_agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	v.SetDefault("browser.navigation_timeout", "60s")
	v.SetDefault("browser.viewport_width", 1920)
	v.SetDefault("browser.viewport_height", 1080)
	v.SetDefault("probe.timeout", "15s")
	v.SetDefault("database.batch_size", 500)
	v.SetDefault("artifacts.backend", "local")
	v.SetDefault("artifacts.base_dir", "data/artifacts")
	v.SetDefault("pubsub.enabled", false)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Crawl.ListingURL == "" {
		return fmt.Errorf("crawl.listing_url is required")
	}
	if c.Crawl.MaxConcurrent <= 0 {
		return fmt.Errorf("crawl.max_concurrent must be > 0")
	}
	if c.Scroll.MaxAttempts <= 0 {
		return fmt.Errorf("scroll.max_attempts must be > 0")
	}
	switch c.Artifacts.Backend {
	case "local", "none":
	case "gcs":
		if c.Artifacts.Bucket == "" {
			return fmt.Errorf("artifacts.bucket must be set when backend is gcs")
		}
	default:
		return fmt.Errorf("artifacts.backend must be one of local, gcs, none")
	}
	if c.PubSub.Enabled {
		if c.PubSub.Project == "" || c.PubSub.Topic == "" {
			return fmt.Errorf("pubsub.project and pubsub.topic must be set when pubsub is enabled")
		}
	}
	return nil
}
