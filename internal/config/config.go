// Package config loads service configuration from defaults, a YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/bissquit/problem-dashboard/internal/domain"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every environment variable read by Load.
// Nested keys are separated by a double underscore: DASHBOARD_SOURCE__KIND.
const EnvPrefix = "DASHBOARD_"

// Source kinds.
const (
	SourceKindDynatrace = "dynatrace"
	SourceKindMock      = "mock"
)

// Config is the root service configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Log       LogConfig       `koanf:"log"`
	CORS      CORSConfig      `koanf:"cors"`
	Source    SourceConfig    `koanf:"source"`
	Dashboard DashboardConfig `koanf:"dashboard"`
	Insights  InsightsConfig  `koanf:"insights"`
}

// ServerConfig configures the HTTP listeners.
type ServerConfig struct {
	Host              string        `koanf:"host"`
	Port              string        `koanf:"port" validate:"required,numeric"`
	MetricsPort       string        `koanf:"metrics_port" validate:"required,numeric,nefield=Port"`
	ReadTimeout       time.Duration `koanf:"read_timeout" validate:"gt=0s"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout" validate:"gt=0s"`
	WriteTimeout      time.Duration `koanf:"write_timeout" validate:"gt=0s"`
	IdleTimeout       time.Duration `koanf:"idle_timeout" validate:"gt=0s"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
	Format string `koanf:"format" validate:"oneof=text json"`
}

// CORSConfig lists origins allowed to call the API from a browser.
type CORSConfig struct {
	AllowedOrigins []string `koanf:"allowed_origins"`
}

// SourceConfig selects the problem source.
type SourceConfig struct {
	Kind      string          `koanf:"kind" validate:"oneof=dynatrace mock"`
	Dynatrace DynatraceConfig `koanf:"dynatrace"`
}

// DynatraceConfig configures the Dynatrace problems client.
type DynatraceConfig struct {
	BaseURL        string        `koanf:"base_url" validate:"omitempty,url"`
	APIToken       string        `koanf:"api_token"`
	Timeout        time.Duration `koanf:"timeout" validate:"gt=0s"`
	PageSize       int           `koanf:"page_size" validate:"gte=1,lte=500"`
	RateLimit      float64       `koanf:"rate_limit" validate:"gt=0"`
	RateBurst      int           `koanf:"rate_burst" validate:"gte=1"`
	MaxAttempts    int           `koanf:"max_attempts" validate:"gte=1,lte=10"`
	InitialBackoff time.Duration `koanf:"initial_backoff" validate:"gt=0s"`
	MaxBackoff     time.Duration `koanf:"max_backoff" validate:"gtefield=InitialBackoff"`
}

// DashboardConfig configures the problem store.
type DashboardConfig struct {
	From            string        `koanf:"from" validate:"required"`
	To              string        `koanf:"to" validate:"required"`
	AutoRefresh     bool          `koanf:"auto_refresh"`
	RefreshInterval time.Duration `koanf:"refresh_interval" validate:"gte=1s"`
	FetchOnStart    bool          `koanf:"fetch_on_start"`
}

// InsightsConfig configures the insight analyzer.
type InsightsConfig struct {
	Latency time.Duration `koanf:"latency" validate:"gte=0s,lte=1m"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              "8080",
			MetricsPort:       "9090",
			ReadTimeout:       15 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{},
		},
		Source: SourceConfig{
			Kind: SourceKindMock,
			Dynatrace: DynatraceConfig{
				Timeout:        30 * time.Second,
				PageSize:       100,
				RateLimit:      5,
				RateBurst:      5,
				MaxAttempts:    3,
				InitialBackoff: 500 * time.Millisecond,
				MaxBackoff:     10 * time.Second,
			},
		},
		Dashboard: DashboardConfig{
			From:            domain.DefaultTimeRangeFrom,
			To:              domain.DefaultTimeRangeTo,
			AutoRefresh:     false,
			RefreshInterval: 5 * time.Minute,
			FetchOnStart:    true,
		},
	}
}

// Load builds the configuration. Later sources override earlier ones:
// defaults, the YAML file at path, then DASHBOARD_* environment variables.
// An empty path skips the file. Variables from envFile are exported first if it exists.
func Load(path, envFile string) (*Config, error) {
	if err := loadEnvFile(envFile); err != nil {
		return nil, err
	}

	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// envKey maps DASHBOARD_SOURCE__DYNATRACE__API_TOKEN to source.dynatrace.api_token.
// Comma-separated values of list keys are split.
func envKey(name, value string) (string, any) {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(name, EnvPrefix)), "__", ".")

	if key == "cors.allowed_origins" {
		origins := make([]string, 0)
		for _, o := range strings.Split(value, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		return key, origins
	}

	return key, value
}

func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	// Variables already present in the environment win.
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// Validate checks field constraints and cross-field rules.
func (c *Config) Validate() error {
	v := validator.New()
	v.RegisterStructValidation(validateSource, SourceConfig{})

	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// validateSource requires Dynatrace credentials when Dynatrace is the selected source.
func validateSource(sl validator.StructLevel) {
	src := sl.Current().Interface().(SourceConfig)
	if src.Kind != SourceKindDynatrace {
		return
	}
	if src.Dynatrace.BaseURL == "" {
		sl.ReportError(src.Dynatrace.BaseURL, "Dynatrace.BaseURL", "BaseURL", "required_if", "dynatrace")
	}
	if src.Dynatrace.APIToken == "" {
		sl.ReportError(src.Dynatrace.APIToken, "Dynatrace.APIToken", "APIToken", "required_if", "dynatrace")
	}
}
