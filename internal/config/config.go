package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"stockadvisor/internal/validation"
	"stockadvisor/pkg/advisor"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the advisor clients.
type Config struct {
	API     API     `yaml:"api"`
	Lookup  Lookup  `yaml:"lookup"`
	Logging Logging `yaml:"logging"`
	Metrics Metrics `yaml:"metrics"`
	Storage Storage `yaml:"storage"`
}

// API locates the recommendation service.
type API struct {
	BaseURL     string        `yaml:"base_url" validate:"required,url"`
	AnalyzePath string        `yaml:"analyze_path" validate:"required"`
	Timeout     time.Duration `yaml:"timeout"` // zero: requests never time out
}

// Lookup holds defaults for the single-ticker form.
type Lookup struct {
	Exchange string `yaml:"exchange" validate:"oneof=NSE BSE"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=json text"`
	File   string `yaml:"file"`
}

// Metrics configures the optional Prometheus listener.
type Metrics struct {
	Addr string `yaml:"addr"`
}

// Storage locates on-disk snapshots. An empty DataDir disables them.
type Storage struct {
	DataDir string `yaml:"data_dir"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		API: API{
			BaseURL:     advisor.DefaultBaseURL,
			AnalyzePath: advisor.DefaultAnalyzePath,
		},
		Lookup:  Lookup{Exchange: string(advisor.NSE)},
		Logging: Logging{Level: "info", Format: "json"},
	}
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load builds the configuration from defaults, the optional YAML file at
// path, a .env file in the working directory, and environment variables,
// in increasing order of precedence. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, err
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing %s: %w", path, err)
			}
		}
	}

	// .env is optional; values already in the environment win.
	_ = godotenv.Load()

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	normalize(cfg)

	if err := validation.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// normalize folds case-insensitive settings to the form validation expects.
func normalize(cfg *Config) {
	cfg.Logging.Level = strings.ToLower(strings.TrimSpace(cfg.Logging.Level))
	cfg.Logging.Format = strings.ToLower(strings.TrimSpace(cfg.Logging.Format))
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("API_BASE"); v != "" {
		cfg.API.BaseURL = v
	}
	if v := os.Getenv("ADVISOR_ANALYZE_PATH"); v != "" {
		cfg.API.AnalyzePath = v
	}
	if v := os.Getenv("ADVISOR_API_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("ADVISOR_API_TIMEOUT: %w", err)
		}
		cfg.API.Timeout = d
	}

	if v := os.Getenv("ADVISOR_EXCHANGE"); v != "" {
		cfg.Lookup.Exchange = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("LOG_FILE"); v != "" {
		cfg.Logging.File = v
	}

	if v := os.Getenv("METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
	}

	if v := os.Getenv("ADVISOR_DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	return nil
}

// ClientOptions translates the API section into advisor client options.
func (c *Config) ClientOptions() []advisor.Option {
	return []advisor.Option{
		advisor.WithTimeout(c.API.Timeout),
		advisor.WithAnalyzePath(c.API.AnalyzePath),
	}
}
