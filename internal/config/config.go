package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Sources  SourcesConfig  `yaml:"sources"`
	Chart    ChartConfig    `yaml:"chart"`
	Releases ReleasesConfig `yaml:"releases"`
	Site     SiteConfig     `yaml:"site"`
	Notify   NotifyConfig   `yaml:"notify"`
	Server   ServerConfig   `yaml:"server"`
}

// DatabaseConfig configures SQLite storage.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// ScheduleConfig configures ingest and chart rebuild intervals.
type ScheduleConfig struct {
	IngestInterval string `yaml:"ingest_interval"`
	ChartInterval  string `yaml:"chart_interval"`
}

// ParseIngestInterval returns the ingest interval as time.Duration.
func (s ScheduleConfig) ParseIngestInterval() time.Duration {
	d, err := time.ParseDuration(s.IngestInterval)
	if err != nil {
		return 15 * time.Minute
	}
	return d
}

// ParseChartInterval returns the chart rebuild interval as time.Duration.
func (s ScheduleConfig) ParseChartInterval() time.Duration {
	d, err := time.ParseDuration(s.ChartInterval)
	if err != nil {
		return 30 * time.Minute
	}
	return d
}

// SourcesConfig holds configuration for all ingest sources.
type SourcesConfig struct {
	Relays     []RelayItem      `yaml:"relays"`
	Feeds      []FeedItem       `yaml:"feeds"`
	Window     string           `yaml:"window"`
	Moderation ModerationConfig `yaml:"moderation"`
}

// ParseWindow returns how far back each relay fetch reaches.
func (s SourcesConfig) ParseWindow() time.Duration {
	d, err := time.ParseDuration(s.Window)
	if err != nil {
		return 24 * time.Hour
	}
	return d
}

// RelayItem is a single relay endpoint entry.
type RelayItem struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// FeedItem is a single podcast feed import entry.
type FeedItem struct {
	Name     string `yaml:"name"`
	URL      string `yaml:"url"`
	ArtistID string `yaml:"artist_id"`
}

// ModerationConfig lists events dropped at ingest time.
type ModerationConfig struct {
	BlockedArtists []string `yaml:"blocked_artists"`
	BlockedIDs     []string `yaml:"blocked_ids"`
	MutedKeywords  []string `yaml:"muted_keywords"`
}

// ChartConfig configures trending chart computation.
type ChartConfig struct {
	SatsWeight    float64  `yaml:"sats_weight"`
	ZapWeight     float64  `yaml:"zap_weight"`
	RecencyWeight float64  `yaml:"recency_weight"`
	MaxPerArtist  int      `yaml:"max_per_artist"`
	Size          int      `yaml:"size"`
	ExcludeIDs    []string `yaml:"exclude_ids"`
}

// ReleasesConfig configures the two release views.
type ReleasesConfig struct {
	RecentLimit int `yaml:"recent_limit"`
	AllLimit    int `yaml:"all_limit"`
}

// SiteConfig describes the published feed surface.
type SiteConfig struct {
	Title       string `yaml:"title"`
	Link        string `yaml:"link"`
	Description string `yaml:"description"`
}

// NotifyConfig configures notification destinations.
type NotifyConfig struct {
	Webhook WebhookConfig `yaml:"webhook"`
}

// WebhookConfig for chart-entry webhook notifications.
type WebhookConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Secret  string `yaml:"secret"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Path: "./zapwave.db"},
		Schedule: ScheduleConfig{
			IngestInterval: "15m",
			ChartInterval:  "30m",
		},
		Sources: SourcesConfig{
			Window: "24h",
		},
		Chart: ChartConfig{
			SatsWeight:    0.6,
			ZapWeight:     0.25,
			RecencyWeight: 0.15,
			MaxPerArtist:  2,
			Size:          50,
		},
		Releases: ReleasesConfig{
			RecentLimit: 10,
			AllLimit:    50,
		},
		Site: SiteConfig{
			Title:       "zapwave",
			Link:        "http://localhost:8080",
			Description: "value-for-value music releases",
		},
		Notify: NotifyConfig{},
		Server: ServerConfig{Port: 8080},
	}
}

// Load reads configuration from a YAML file and applies env var overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// applyEnvOverrides overrides config values with environment variables.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ZAPWAVE_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("ZAPWAVE_SITE_LINK"); v != "" {
		cfg.Site.Link = v
	}
	if v := os.Getenv("ZAPWAVE_WEBHOOK_URL"); v != "" {
		cfg.Notify.Webhook.URL = v
		cfg.Notify.Webhook.Enabled = true
	}
	if v := os.Getenv("ZAPWAVE_WEBHOOK_SECRET"); v != "" {
		cfg.Notify.Webhook.Secret = v
	}
}
