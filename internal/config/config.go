package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	ModeDevelopment = "development"
	ModeProduction  = "production"
)

type Config struct {
	APIBaseURL string `env:"VHT_API_BASE_URL"`
	Mode       string `env:"VHT_MODE" envDefault:"production"`
	PageOrigin string `env:"VHT_PAGE_ORIGIN" envDefault:"http://localhost:5174"`

	RequestTimeout  time.Duration `env:"VHT_REQUEST_TIMEOUT" envDefault:"30s"`
	WithCredentials bool          `env:"VHT_WITH_CREDENTIALS" envDefault:"false"`

	Mock             bool          `env:"VHT_MOCK" envDefault:"false"`
	MockProcessDelay time.Duration `env:"VHT_MOCK_PROCESS_DELAY" envDefault:"1s"`
	MockSaveDelay    time.Duration `env:"VHT_MOCK_SAVE_DELAY" envDefault:"500ms"`
	MockFixture      string        `env:"VHT_MOCK_FIXTURE"`
	MockAddr         string        `env:"VHT_MOCK_ADDR" envDefault:":8081"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Overrides holds CLI flag values that take priority over env vars.
type Overrides struct {
	EnvFile    string
	APIBaseURL string
	Mode       string
	Mock       *bool
	LogLevel   string
}

// Load reads configuration from .env file, environment variables, and CLI overrides.
// Priority: CLI flags > environment variables > .env file > struct defaults.
// The result is treated as immutable after startup.
func Load(overrides Overrides) (*Config, error) {
	envFile := overrides.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		_ = godotenv.Load(envFile)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	if overrides.APIBaseURL != "" {
		cfg.APIBaseURL = overrides.APIBaseURL
	}
	if overrides.Mode != "" {
		cfg.Mode = overrides.Mode
	}
	if overrides.Mock != nil {
		cfg.Mock = *overrides.Mock
	}
	if overrides.LogLevel != "" {
		cfg.LogLevel = overrides.LogLevel
	}

	cfg.Mode = strings.ToLower(strings.TrimSpace(cfg.Mode))
	switch cfg.Mode {
	case ModeDevelopment, ModeProduction:
	case "dev":
		cfg.Mode = ModeDevelopment
	case "prod":
		cfg.Mode = ModeProduction
	default:
		return nil, fmt.Errorf("invalid VHT_MODE %q: want development or production", cfg.Mode)
	}
	if cfg.RequestTimeout <= 0 {
		return nil, fmt.Errorf("invalid VHT_REQUEST_TIMEOUT %s: must be > 0", cfg.RequestTimeout)
	}

	return cfg, nil
}

// Development reports whether this is a development build.
func (c *Config) Development() bool { return c.Mode == ModeDevelopment }

// MockActive reports whether the fixture backend should replace the network.
func (c *Config) MockActive() bool { return c.Development() || c.Mock }
