package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"lifecyclecli/internal/agenttype"
	apperrors "lifecyclecli/internal/errors"
)

// EnvPrefix namespaces every environment variable, e.g. LCS_SERVER_PORT.
const EnvPrefix = "LCS"

// ConfigFileEnv names the variable that points at the YAML file.
const ConfigFileEnv = "LCS_CONFIG_FILE"

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig     `yaml:"server" envconfig:"SERVER"`
	Logging   LoggingConfig    `yaml:"logging" envconfig:"LOGGING"`
	Telemetry TelemetryConfig  `yaml:"telemetry" envconfig:"TELEMETRY"`
	Model     agenttype.Params `yaml:"model" envconfig:"MODEL"`
	Analysis  AnalysisConfig   `yaml:"analysis" envconfig:"ANALYSIS"`
	Paths     PathsConfig      `yaml:"paths" envconfig:"PATHS"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int             `yaml:"port" envconfig:"PORT" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration   `yaml:"read_timeout" envconfig:"READ_TIMEOUT" validate:"gt=0"`
	WriteTimeout    time.Duration   `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" validate:"gt=0"`
	IdleTimeout     time.Duration   `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	MaxHeaderBytes  int             `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES"`
	ShutdownTimeout time.Duration   `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" validate:"gt=0"`
	RequestTimeout  time.Duration   `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT" validate:"gt=0"`
	MaxBodyBytes    int64           `yaml:"max_body_bytes" envconfig:"MAX_BODY_BYTES" validate:"gt=0"`
	RateLimit       RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" validate:"gte=0"`
	Burst   int     `yaml:"burst" envconfig:"BURST" validate:"gte=0"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn warning error"`
	Output   string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=stdout file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// TelemetryConfig selects the trace exporter and toggles metrics.
type TelemetryConfig struct {
	ServiceName    string `yaml:"service_name" envconfig:"SERVICE_NAME" validate:"required"`
	TracesExporter string `yaml:"traces_exporter" envconfig:"TRACES_EXPORTER" validate:"oneof=stdout none"`
	MetricsEnabled bool   `yaml:"metrics_enabled" envconfig:"METRICS_ENABLED"`
}

// AnalysisConfig controls how a collation is built and reported.
type AnalysisConfig struct {
	// ReferencePeriod selects the consumption rule evaluated at every
	// period's market resources. Ignored when UseCurrentPeriodRule is set.
	ReferencePeriod      int     `yaml:"reference_period" envconfig:"REFERENCE_PERIOD" validate:"gte=0"`
	UseCurrentPeriodRule bool    `yaml:"use_current_period_rule" envconfig:"USE_CURRENT_PERIOD_RULE"`
	GrowthRatioFloor     float64 `yaml:"growth_ratio_floor" envconfig:"GROWTH_RATIO_FLOOR" validate:"gte=0"`
	HistogramBins        int     `yaml:"histogram_bins" envconfig:"HISTOGRAM_BINS" validate:"gte=0"`
	OutputDir            string  `yaml:"output_dir" envconfig:"OUTPUT_DIR" validate:"required"`
	WorkbookPath         string  `yaml:"workbook_path" envconfig:"WORKBOOK_PATH"`
}

// Load reads configuration from defaults, the YAML file named by
// LCS_CONFIG_FILE (config.yaml when unset) and LCS_* environment variables,
// in increasing order of precedence.
func Load() (*Config, error) {
	path := os.Getenv(ConfigFileEnv)
	explicit := path != ""
	if !explicit {
		path = "config.yaml"
	}
	return load(path, explicit)
}

// LoadFile is Load with an explicit YAML path that must exist.
func LoadFile(path string) (*Config, error) {
	return load(path, true)
}

func load(path string, mustExist bool) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := loadFromFile(path, cfg); err != nil {
				return nil, err
			}
		} else if mustExist {
			return nil, apperrors.NewConfigError(fmt.Sprintf("config file %s", path), err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, apperrors.NewConfigError("load config from env", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFromFile overlays a YAML file onto cfg. Keys absent from the file keep
// their current values.
func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return apperrors.NewConfigError(fmt.Sprintf("read config file %s", path), err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return apperrors.NewConfigError(fmt.Sprintf("parse config file %s", path), err)
	}
	return nil
}

var validate = validator.New()

// Validate checks every section, including the model parameters.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return apperrors.NewConfigError("config validation failed", err)
		}
		msgs := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			msgs = append(msgs, fmt.Sprintf("%s: %s %s", fe.Namespace(), fe.Tag(), fe.Param()))
		}
		return apperrors.NewConfigError("config validation failed", errors.New(strings.Join(msgs, "; ")))
	}

	if (c.Logging.Output == "file" || c.Logging.Output == "both") && c.Logging.FilePath == "" {
		return apperrors.NewConfigError("logging output requires a file path", nil)
	}
	return nil
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20,
			ShutdownTimeout: 30 * time.Second,
			RequestTimeout:  60 * time.Second,
			MaxBodyBytes:    64 << 20,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     20,
				Burst:   10,
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Output:   "stdout",
			FilePath: "logs/app.log",
		},
		Telemetry: TelemetryConfig{
			ServiceName:    "lifecycle-savings",
			TracesExporter: "none",
			MetricsEnabled: true,
		},
		Model: agenttype.DefaultParams(),
		Analysis: AnalysisConfig{
			ReferencePeriod:  0,
			GrowthRatioFloor: 0.2,
			HistogramBins:    50,
			OutputDir:        "reports",
		},
		Paths: PathsConfig{
			LogsDir: "logs",
		},
	}
}
