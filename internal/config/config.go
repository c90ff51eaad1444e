// ABOUTME: Configuration loading and parsing for mate-gateway
// ABOUTME: Supports YAML or TOML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Feature flag names understood by the gateway.
const (
	FeatureDigitalHuman = "digital_human"
	FeatureCameraSearch = "camera_search"
)

// Announcement levels.
const (
	LevelInfo     = "info"
	LevelWarning  = "warning"
	LevelCritical = "critical"
)

// Config represents the complete mate-gateway configuration
type Config struct {
	Server       ServerConfig       `yaml:"server" toml:"server"`
	Tailscale    TailscaleConfig    `yaml:"tailscale" toml:"tailscale"`
	Backend      BackendConfig      `yaml:"backend" toml:"backend"`
	Fallback     FallbackConfig     `yaml:"fallback" toml:"fallback"`
	Presenter    PresenterConfig    `yaml:"presenter" toml:"presenter"`
	Features     map[string]bool    `yaml:"features" toml:"features"`
	Announcement AnnouncementConfig `yaml:"announcement" toml:"announcement"`
	Transcript   TranscriptConfig   `yaml:"transcript" toml:"transcript"`
	Dedupe       DedupeConfig       `yaml:"dedupe" toml:"dedupe"`
	Logging      LoggingConfig      `yaml:"logging" toml:"logging"`
	Metrics      MetricsConfig      `yaml:"metrics" toml:"metrics"`

	// LoadedAt records when the configuration was read.
	LoadedAt time.Time `yaml:"-" toml:"-"`
}

// ServerConfig holds server address configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr" toml:"http_addr"`
	// GRPCAddr serves the gRPC health service. Empty disables it unless tailscale is on.
	GRPCAddr string `yaml:"grpc_addr" toml:"grpc_addr"`
}

// TailscaleConfig holds Tailscale tsnet configuration
type TailscaleConfig struct {
	Enabled   bool   `yaml:"enabled" toml:"enabled"`
	Hostname  string `yaml:"hostname" toml:"hostname"`
	AuthKey   string `yaml:"auth_key" toml:"auth_key"`
	StateDir  string `yaml:"state_dir" toml:"state_dir"`
	Ephemeral bool   `yaml:"ephemeral" toml:"ephemeral"`
	HTTPS     bool   `yaml:"https" toml:"https"`   // Serve HTTPS on :443 with tailscale certs
	Funnel    bool   `yaml:"funnel" toml:"funnel"` // Enable public Funnel (implies HTTPS)
}

// BackendConfig describes the remote AI backend. An empty BaseURL means every
// request is answered by the local fallback.
type BackendConfig struct {
	BaseURL   string        `yaml:"base_url" toml:"base_url"`
	Timeout   time.Duration `yaml:"-" toml:"-"`
	RateLimit float64       `yaml:"rate_limit" toml:"rate_limit"` // requests per second; 0 disables
	Burst     int           `yaml:"burst" toml:"burst"`

	TimeoutRaw string `yaml:"timeout" toml:"timeout"`
}

// FallbackConfig holds the simulated latency applied to fallback answers
type FallbackConfig struct {
	ChatLatency   time.Duration `yaml:"-" toml:"-"`
	ImageLatency  time.Duration `yaml:"-" toml:"-"`
	SpeechLatency time.Duration `yaml:"-" toml:"-"`

	// Raw string values for unmarshaling
	ChatLatencyRaw   string `yaml:"chat_latency" toml:"chat_latency"`
	ImageLatencyRaw  string `yaml:"image_latency" toml:"image_latency"`
	SpeechLatencyRaw string `yaml:"speech_latency" toml:"speech_latency"`
}

// PresenterConfig holds digital-human presenter settings
type PresenterConfig struct {
	AvatarID       string        `yaml:"avatar_id" toml:"avatar_id"`
	StreamURL      string        `yaml:"stream_url" toml:"stream_url"`
	SetupDelay     time.Duration `yaml:"-" toml:"-"`
	SpeechDuration time.Duration `yaml:"-" toml:"-"`

	SetupDelayRaw     string `yaml:"setup_delay" toml:"setup_delay"`
	SpeechDurationRaw string `yaml:"speech_duration" toml:"speech_duration"`
}

// AnnouncementConfig is the banner shown to clients
type AnnouncementConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled" json:"enabled"`
	Title   string `yaml:"title" toml:"title" json:"title"`
	Message string `yaml:"message" toml:"message" json:"message"`
	Level   string `yaml:"level" toml:"level" json:"level"`
}

// TranscriptConfig holds transcript journal settings
type TranscriptConfig struct {
	// JournalPath is the SQLite file mirroring the transcript. Empty keeps it in memory.
	JournalPath string `yaml:"journal_path" toml:"journal_path"`
}

// DedupeConfig controls idempotency-key replay
type DedupeConfig struct {
	TTL        time.Duration `yaml:"-" toml:"-"`
	MaxEntries int           `yaml:"max_entries" toml:"max_entries"`

	TTLRaw string `yaml:"ttl" toml:"ttl"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"` // "text" (default) or "json"
}

// MetricsConfig holds metrics endpoint configuration
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	Path    string `yaml:"path" toml:"path"`
}

// Default returns a configuration that runs fully offline on localhost.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPAddr: "127.0.0.1:8080",
		},
		Backend: BackendConfig{
			TimeoutRaw: "15s",
			Burst:      1,
		},
		Fallback: FallbackConfig{
			ChatLatencyRaw:   "800ms",
			ImageLatencyRaw:  "1200ms",
			SpeechLatencyRaw: "1200ms",
		},
		Presenter: PresenterConfig{
			AvatarID:          "mate-alpha",
			SetupDelayRaw:     "800ms",
			SpeechDurationRaw: "3500ms",
		},
		Features: map[string]bool{
			FeatureDigitalHuman: true,
			FeatureCameraSearch: true,
		},
		Announcement: AnnouncementConfig{
			Level: LevelInfo,
		},
		Dedupe: DedupeConfig{
			TTLRaw:     "10m",
			MaxEntries: 1000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Resolved returns Default with durations parsed, ready to use without a file.
func Resolved() *Config {
	cfg := Default()
	if err := parseDurations(cfg); err != nil {
		panic(fmt.Sprintf("default config durations: %v", err))
	}
	cfg.LoadedAt = time.Now()
	return cfg
}

// DefaultPath returns the path to the gateway config file.
// Priority: MATE_CONFIG env var > XDG_CONFIG_HOME/mate/gateway.yaml > ~/.config/mate/gateway.yaml
func DefaultPath() string {
	if envPath := os.Getenv("MATE_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "gateway.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "mate", "gateway.yaml")
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Values missing from the file keep their defaults. Files ending in .toml are
// decoded as TOML, everything else as YAML. Environment variables in the format
// ${VAR_NAME} are expanded and duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := expandEnvVars(string(data))

	cfg := Default()
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(expanded, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	cfg.LoadedAt = time.Now()
	return cfg, nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// FeatureFlag returns the named flag, or fallback when it is not configured.
func (c *Config) FeatureFlag(name string, fallback bool) bool {
	v, ok := c.Features[name]
	if !ok {
		return fallback
	}
	return v
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	// The HTTP address is required unless Tailscale is enabled
	if !c.Tailscale.Enabled && c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required (or enable tailscale)")
	}

	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		return fmt.Errorf("tailscale.hostname is required when tailscale is enabled")
	}

	if c.Backend.BaseURL != "" {
		u, err := url.Parse(c.Backend.BaseURL)
		if err != nil {
			return fmt.Errorf("backend.base_url is not a valid URL: %w", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("backend.base_url must use http or https, got %q", u.Scheme)
		}
		if u.Host == "" {
			return fmt.Errorf("backend.base_url must include a host")
		}
	}

	if c.Backend.RateLimit < 0 {
		return fmt.Errorf("backend.rate_limit must not be negative")
	}
	if c.Backend.RateLimit > 0 && c.Backend.Burst < 1 {
		return fmt.Errorf("backend.burst must be at least 1 when rate_limit is set")
	}

	durations := []struct {
		name  string
		value time.Duration
	}{
		{"backend.timeout", c.Backend.Timeout},
		{"fallback.chat_latency", c.Fallback.ChatLatency},
		{"fallback.image_latency", c.Fallback.ImageLatency},
		{"fallback.speech_latency", c.Fallback.SpeechLatency},
		{"presenter.setup_delay", c.Presenter.SetupDelay},
		{"presenter.speech_duration", c.Presenter.SpeechDuration},
		{"dedupe.ttl", c.Dedupe.TTL},
	}
	for _, d := range durations {
		if d.value < 0 {
			return fmt.Errorf("%s must not be negative", d.name)
		}
	}

	if c.Dedupe.MaxEntries < 0 {
		return fmt.Errorf("dedupe.max_entries must not be negative")
	}

	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format must be \"text\" or \"json\", got %q", c.Logging.Format)
	}

	switch c.Announcement.Level {
	case "", LevelInfo, LevelWarning, LevelCritical:
	default:
		return fmt.Errorf("announcement.level must be info, warning, or critical, got %q", c.Announcement.Level)
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with /")
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	fields := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"backend.timeout", cfg.Backend.TimeoutRaw, &cfg.Backend.Timeout},
		{"fallback.chat_latency", cfg.Fallback.ChatLatencyRaw, &cfg.Fallback.ChatLatency},
		{"fallback.image_latency", cfg.Fallback.ImageLatencyRaw, &cfg.Fallback.ImageLatency},
		{"fallback.speech_latency", cfg.Fallback.SpeechLatencyRaw, &cfg.Fallback.SpeechLatency},
		{"presenter.setup_delay", cfg.Presenter.SetupDelayRaw, &cfg.Presenter.SetupDelay},
		{"presenter.speech_duration", cfg.Presenter.SpeechDurationRaw, &cfg.Presenter.SpeechDuration},
		{"dedupe.ttl", cfg.Dedupe.TTLRaw, &cfg.Dedupe.TTL},
	}

	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		d, err := time.ParseDuration(f.raw)
		if err != nil {
			return fmt.Errorf("parsing %s %q: %w", f.name, f.raw, err)
		}
		*f.dst = d
	}

	return nil
}
