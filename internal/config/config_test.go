package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/eugenenazirov/shipping-cost/internal/geo"
)

func clearEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		// Setenv registers the restore; Unsetenv lets dotenv files populate the key.
		t.Setenv(key, "")
		if err := os.Unsetenv(key); err != nil {
			t.Fatalf("unset %s: %v", key, err)
		}
	}
}

var configEnvKeys = []string{
	"PORT", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "GEOCODER_URL", "GEOCODER_RPS",
	"ROUTER_URL", "HTTP_USER_AGENT", "HTTP_TIMEOUT", "CACHE_MAX_ENTRIES",
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t, configEnvKeys...)

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Port != defaultPort {
		t.Fatalf("expected default port %s, got %s", defaultPort, cfg.Port)
	}
	if cfg.ShutdownGracePeriod != 10*time.Second {
		t.Fatalf("unexpected shutdown grace period: %s", cfg.ShutdownGracePeriod)
	}
	if cfg.GeocoderURL != geo.DefaultNominatimURL || cfg.RouterURL != geo.DefaultOSRMURL {
		t.Fatalf("unexpected upstream defaults: %s %s", cfg.GeocoderURL, cfg.RouterURL)
	}
	if cfg.GeocoderRPS != defaultGeocoderRPS {
		t.Fatalf("unexpected geocoder rps: %v", cfg.GeocoderRPS)
	}
}

func TestLoadEnvironment(t *testing.T) {
	clearEnv(t, configEnvKeys...)
	t.Setenv("PORT", "9000")
	t.Setenv("ROUTER_URL", "http://osrm.local:5000")
	t.Setenv("HTTP_TIMEOUT", "3s")
	t.Setenv("CACHE_MAX_ENTRIES", "42")
	t.Setenv("RATE_LIMIT_RPS", "not-a-number")

	cfg, err := Load(&CLIOverrides{})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Port != "9000" {
		t.Fatalf("expected overridden port, got %s", cfg.Port)
	}
	if cfg.RouterURL != "http://osrm.local:5000" {
		t.Fatalf("unexpected router url %s", cfg.RouterURL)
	}
	if cfg.HTTPTimeout != 3*time.Second {
		t.Fatalf("unexpected http timeout %s", cfg.HTTPTimeout)
	}
	if cfg.CacheMaxEntries != 42 {
		t.Fatalf("unexpected cache size %d", cfg.CacheMaxEntries)
	}
	if cfg.RateLimitRPS != defaultRateLimitRPS {
		t.Fatalf("expected invalid rps to be ignored, got %v", cfg.RateLimitRPS)
	}
}

func TestLoadPrecedence(t *testing.T) {
	clearEnv(t, configEnvKeys...)
	t.Setenv("PORT", "7000")
	t.Setenv("GEOCODER_URL", "http://env-geocoder")

	yamlPath := writeFile(t, "config.yaml", `
port: "7100"
enable_request_logging: false
rate_limit:
  rps: 0
  burst: 5
geocoder:
  base_url: http://yaml-geocoder
  rps: 0
router:
  base_url: http://yaml-router
http:
  user_agent: yaml-agent
  timeout: 2s
cache:
  max_entries: 7
`)

	port := "7200"
	cfg, err := Load(&CLIOverrides{ConfigFile: yamlPath, Port: &port})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Port != "7200" {
		t.Fatalf("expected CLI port to win, got %s", cfg.Port)
	}
	if cfg.GeocoderURL != "http://yaml-geocoder" {
		t.Fatalf("expected YAML geocoder to win over env, got %s", cfg.GeocoderURL)
	}
	if cfg.RouterURL != "http://yaml-router" || cfg.UserAgent != "yaml-agent" {
		t.Fatalf("unexpected YAML upstream settings: %+v", cfg)
	}
	if cfg.EnableRequestLogging {
		t.Fatalf("expected request logging disabled by YAML")
	}
	if cfg.RateLimitRPS != 0 || cfg.RateLimitBurst != 5 || cfg.GeocoderRPS != 0 {
		t.Fatalf("unexpected rate limits: %v %d %v", cfg.RateLimitRPS, cfg.RateLimitBurst, cfg.GeocoderRPS)
	}
	if cfg.HTTPTimeout != 2*time.Second || cfg.CacheMaxEntries != 7 {
		t.Fatalf("unexpected http/cache settings: %s %d", cfg.HTTPTimeout, cfg.CacheMaxEntries)
	}
}

func TestLoadEnvFile(t *testing.T) {
	clearEnv(t, configEnvKeys...)
	t.Setenv("PORT", "6000")

	envPath := writeFile(t, "test.env", "PORT=6100\nROUTER_URL=http://dotenv-router\n")

	cfg, err := Load(&CLIOverrides{EnvFile: envPath})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Port != "6000" {
		t.Fatalf("expected process env to win over dotenv, got %s", cfg.Port)
	}
	if cfg.RouterURL != "http://dotenv-router" {
		t.Fatalf("expected dotenv router url, got %s", cfg.RouterURL)
	}
}

func TestLoadErrors(t *testing.T) {
	clearEnv(t, configEnvKeys...)

	t.Run("missing explicit env file", func(t *testing.T) {
		if _, err := Load(&CLIOverrides{EnvFile: filepath.Join(t.TempDir(), "missing.env")}); err == nil {
			t.Fatalf("expected error for missing env file")
		}
	})

	t.Run("missing YAML file", func(t *testing.T) {
		if _, err := Load(&CLIOverrides{ConfigFile: filepath.Join(t.TempDir(), "missing.yaml")}); err == nil {
			t.Fatalf("expected error for missing YAML file")
		}
	})

	t.Run("invalid YAML", func(t *testing.T) {
		path := writeFile(t, "bad.yaml", "port: [unterminated")
		if _, err := Load(&CLIOverrides{ConfigFile: path}); err == nil {
			t.Fatalf("expected error for invalid YAML")
		}
	})
}

func TestValidateConfig(t *testing.T) {
	cfg := defaultConfig()
	if err := validateConfig(cfg); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}

	cfg.HTTPTimeout = 0
	if err := validateConfig(cfg); err == nil {
		t.Fatalf("expected error for zero http timeout")
	}

	cfg = defaultConfig()
	cfg.RouterURL = ""
	if err := validateConfig(cfg); err == nil {
		t.Fatalf("expected error for empty router url")
	}
}
