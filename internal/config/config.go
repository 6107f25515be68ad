package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/eugenenazirov/shipping-cost/internal/geo"
	"github.com/eugenenazirov/shipping-cost/internal/storage"
)

const (
	defaultPort           = "8080"
	defaultRateLimitRPS   = 25.0
	defaultRateLimitBurst = 50
	defaultEnvFile        = ".env"

	// Nominatim's public usage policy allows one request per second.
	defaultGeocoderRPS = 1.0
)

// Config aggregates runtime configuration resolved from multiple sources.
// Precedence: CLI flags > YAML config > Environment variables (.env included) > Defaults
type Config struct {
	Port                 string        `yaml:"port"`
	ShutdownGracePeriod  time.Duration `yaml:"shutdown_grace_period"`
	ReadHeaderTimeout    time.Duration `yaml:"read_header_timeout"`
	WriteTimeout         time.Duration `yaml:"write_timeout"`
	IdleTimeout          time.Duration `yaml:"idle_timeout"`
	EnableRequestLogging bool          `yaml:"enable_request_logging"`
	RateLimitRPS         float64       `yaml:"-"`
	RateLimitBurst       int           `yaml:"-"`

	GeocoderURL     string        `yaml:"-"`
	GeocoderRPS     float64       `yaml:"-"`
	RouterURL       string        `yaml:"-"`
	UserAgent       string        `yaml:"-"`
	HTTPTimeout     time.Duration `yaml:"-"`
	CacheMaxEntries int           `yaml:"-"`
}

// yamlConfig represents the YAML configuration file structure.
type yamlConfig struct {
	Port                 string        `yaml:"port"`
	ShutdownGracePeriod  string        `yaml:"shutdown_grace_period"`
	ReadHeaderTimeout    string        `yaml:"read_header_timeout"`
	WriteTimeout         string        `yaml:"write_timeout"`
	IdleTimeout          string        `yaml:"idle_timeout"`
	EnableRequestLogging *bool         `yaml:"enable_request_logging"`
	RateLimit            yamlRateLimit `yaml:"rate_limit"`
	Geocoder             yamlUpstream  `yaml:"geocoder"`
	Router               yamlUpstream  `yaml:"router"`
	HTTP                 yamlHTTP      `yaml:"http"`
	Cache                yamlCache     `yaml:"cache"`
}

// yamlRateLimit represents the rate limit section in YAML.
type yamlRateLimit struct {
	RPS   *float64 `yaml:"rps"`
	Burst *int     `yaml:"burst"`
}

type yamlUpstream struct {
	BaseURL string   `yaml:"base_url"`
	RPS     *float64 `yaml:"rps"`
}

type yamlHTTP struct {
	UserAgent string `yaml:"user_agent"`
	Timeout   string `yaml:"timeout"`
}

type yamlCache struct {
	MaxEntries int `yaml:"max_entries"`
}

// CLIOverrides holds command-line flag overrides.
type CLIOverrides struct {
	ConfigFile     string
	EnvFile        string
	Port           *string
	RateLimitRPS   *float64
	RateLimitBurst *int
	GeocoderURL    *string
	RouterURL      *string
}

// Load extracts configuration from multiple sources with precedence:
// CLI flags > YAML config > Environment variables > Defaults
func Load(overrides *CLIOverrides) (Config, error) {
	cfg := defaultConfig()

	envFile := ""
	if overrides != nil {
		envFile = overrides.EnvFile
	}
	if err := loadEnvFile(envFile); err != nil {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}

	// Apply environment variables
	applyEnvConfig(&cfg)

	// Apply YAML file if specified (overrides env)
	if overrides != nil && overrides.ConfigFile != "" {
		yamlCfg, err := loadFromFile(overrides.ConfigFile)
		if err != nil {
			return Config{}, fmt.Errorf("load YAML config: %w", err)
		}
		applyYAMLConfig(&cfg, yamlCfg)
	}

	// Apply CLI overrides (highest precedence)
	if overrides != nil {
		applyCLIOverrides(&cfg, overrides)
	}

	// Validate final configuration
	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// defaultConfig returns a Config with default values.
func defaultConfig() Config {
	return Config{
		Port:                 defaultPort,
		ShutdownGracePeriod:  10 * time.Second,
		ReadHeaderTimeout:    5 * time.Second,
		WriteTimeout:         30 * time.Second,
		IdleTimeout:          60 * time.Second,
		EnableRequestLogging: true,
		RateLimitRPS:         defaultRateLimitRPS,
		RateLimitBurst:       defaultRateLimitBurst,
		GeocoderURL:          geo.DefaultNominatimURL,
		GeocoderRPS:          defaultGeocoderRPS,
		RouterURL:            geo.DefaultOSRMURL,
		UserAgent:            geo.DefaultUserAgent,
		HTTPTimeout:          10 * time.Second,
		CacheMaxEntries:      storage.DefaultMaxEntries,
	}
}

// loadEnvFile seeds the process environment from a dotenv file. Variables already set win.
// A missing default file is not an error; a missing explicit file is.
func loadEnvFile(path string) error {
	explicit := path != ""
	if !explicit {
		path = defaultEnvFile
	}
	if err := godotenv.Load(path); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	return nil
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(path string) (*yamlConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	return &yamlCfg, nil
}

// applyYAMLConfig applies YAML configuration to the Config struct.
func applyYAMLConfig(cfg *Config, yamlCfg *yamlConfig) {
	if yamlCfg.Port != "" {
		cfg.Port = yamlCfg.Port
	}

	setDuration(&cfg.ShutdownGracePeriod, yamlCfg.ShutdownGracePeriod)
	setDuration(&cfg.ReadHeaderTimeout, yamlCfg.ReadHeaderTimeout)
	setDuration(&cfg.WriteTimeout, yamlCfg.WriteTimeout)
	setDuration(&cfg.IdleTimeout, yamlCfg.IdleTimeout)
	setDuration(&cfg.HTTPTimeout, yamlCfg.HTTP.Timeout)

	if yamlCfg.EnableRequestLogging != nil {
		cfg.EnableRequestLogging = *yamlCfg.EnableRequestLogging
	}

	if yamlCfg.RateLimit.RPS != nil && *yamlCfg.RateLimit.RPS >= 0 {
		cfg.RateLimitRPS = *yamlCfg.RateLimit.RPS
	}

	if yamlCfg.RateLimit.Burst != nil && *yamlCfg.RateLimit.Burst >= 0 {
		cfg.RateLimitBurst = *yamlCfg.RateLimit.Burst
	}

	if yamlCfg.Geocoder.BaseURL != "" {
		cfg.GeocoderURL = yamlCfg.Geocoder.BaseURL
	}

	if yamlCfg.Geocoder.RPS != nil && *yamlCfg.Geocoder.RPS >= 0 {
		cfg.GeocoderRPS = *yamlCfg.Geocoder.RPS
	}

	if yamlCfg.Router.BaseURL != "" {
		cfg.RouterURL = yamlCfg.Router.BaseURL
	}

	if ua := strings.TrimSpace(yamlCfg.HTTP.UserAgent); ua != "" {
		cfg.UserAgent = ua
	}

	if yamlCfg.Cache.MaxEntries > 0 {
		cfg.CacheMaxEntries = yamlCfg.Cache.MaxEntries
	}
}

// applyEnvConfig applies environment variable configuration.
func applyEnvConfig(cfg *Config) {
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		cfg.Port = port
	}

	if rps := strings.TrimSpace(os.Getenv("RATE_LIMIT_RPS")); rps != "" {
		if value, err := strconv.ParseFloat(rps, 64); err == nil && value >= 0 {
			cfg.RateLimitRPS = value
		}
	}

	if burst := strings.TrimSpace(os.Getenv("RATE_LIMIT_BURST")); burst != "" {
		if value, err := strconv.Atoi(burst); err == nil && value >= 0 {
			cfg.RateLimitBurst = value
		}
	}

	if u := strings.TrimSpace(os.Getenv("GEOCODER_URL")); u != "" {
		cfg.GeocoderURL = u
	}

	if rps := strings.TrimSpace(os.Getenv("GEOCODER_RPS")); rps != "" {
		if value, err := strconv.ParseFloat(rps, 64); err == nil && value >= 0 {
			cfg.GeocoderRPS = value
		}
	}

	if u := strings.TrimSpace(os.Getenv("ROUTER_URL")); u != "" {
		cfg.RouterURL = u
	}

	if ua := strings.TrimSpace(os.Getenv("HTTP_USER_AGENT")); ua != "" {
		cfg.UserAgent = ua
	}

	setDuration(&cfg.HTTPTimeout, strings.TrimSpace(os.Getenv("HTTP_TIMEOUT")))

	if n := strings.TrimSpace(os.Getenv("CACHE_MAX_ENTRIES")); n != "" {
		if value, err := strconv.Atoi(n); err == nil && value > 0 {
			cfg.CacheMaxEntries = value
		}
	}
}

// applyCLIOverrides applies command-line flag overrides.
func applyCLIOverrides(cfg *Config, overrides *CLIOverrides) {
	if overrides.Port != nil && *overrides.Port != "" {
		cfg.Port = *overrides.Port
	}

	if overrides.RateLimitRPS != nil && *overrides.RateLimitRPS >= 0 {
		cfg.RateLimitRPS = *overrides.RateLimitRPS
	}

	if overrides.RateLimitBurst != nil && *overrides.RateLimitBurst >= 0 {
		cfg.RateLimitBurst = *overrides.RateLimitBurst
	}

	if overrides.GeocoderURL != nil && *overrides.GeocoderURL != "" {
		cfg.GeocoderURL = *overrides.GeocoderURL
	}

	if overrides.RouterURL != nil && *overrides.RouterURL != "" {
		cfg.RouterURL = *overrides.RouterURL
	}
}

// validateConfig validates the final configuration.
func validateConfig(cfg Config) error {
	if cfg.RateLimitRPS < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must be >= 0")
	}
	if cfg.RateLimitBurst < 0 {
		return fmt.Errorf("RATE_LIMIT_BURST must be >= 0")
	}
	if cfg.GeocoderRPS < 0 {
		return fmt.Errorf("GEOCODER_RPS must be >= 0")
	}
	if cfg.HTTPTimeout <= 0 {
		return fmt.Errorf("HTTP timeout must be positive")
	}
	if cfg.GeocoderURL == "" || cfg.RouterURL == "" {
		return fmt.Errorf("geocoder and router URLs cannot be empty")
	}
	return nil
}

func setDuration(dst *time.Duration, raw string) {
	if raw == "" {
		return
	}
	if d, err := time.ParseDuration(raw); err == nil {
		*dst = d
	}
}
