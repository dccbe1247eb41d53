// Package config provides configuration loading and validation for the
// githist engine.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Sentinel validation errors.
var (
	ErrInvalidFormat          = errors.New("invalid output format")
	ErrInvalidRenameThreshold = errors.New("rename threshold must be between 1 and 100")
	ErrInvalidSkip            = errors.New("skip must not be negative")
	ErrInvalidMaxCommits      = errors.New("max commits must not be negative")
	ErrInvalidLogLevel        = errors.New("invalid log level")
	ErrInvalidLogFormat       = errors.New("invalid log format")
)

// Default configuration values.
const (
	defaultFormat          = "csv"
	defaultRenameThreshold = 50
	maxRenameThreshold     = 100
	defaultShutdownTimeout = 10
)

// Config holds all configuration for the githist engine.
type Config struct {
	Output     OutputConfig     `mapstructure:"output"`
	History    HistoryConfig    `mapstructure:"history"`
	Checkpoint CheckpointConfig `mapstructure:"checkpoint"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
}

// OutputConfig holds record output configuration.
type OutputConfig struct {
	// Path is the output file; "-" streams to stdout.
	Path   string `mapstructure:"path"`
	Format string `mapstructure:"format"`
	Append bool   `mapstructure:"append"`
}

// HistoryConfig holds commit walk configuration.
type HistoryConfig struct {
	Skip            int  `mapstructure:"skip"`
	MaxCommits      int  `mapstructure:"max_commits"`
	RenameThreshold int  `mapstructure:"rename_threshold"`
	Strict          bool `mapstructure:"strict"`
	FirstParent     bool `mapstructure:"first_parent"`
}

// CheckpointConfig holds checkpoint configuration.
type CheckpointConfig struct {
	Directory string `mapstructure:"directory"`
	Enabled   bool   `mapstructure:"enabled"`
	Resume    bool   `mapstructure:"resume"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TelemetryConfig holds OpenTelemetry export configuration.
type TelemetryConfig struct {
	OTLPEndpoint       string `mapstructure:"otlp_endpoint"`
	PrometheusListen   string `mapstructure:"prometheus_listen"`
	Environment        string `mapstructure:"environment"`
	ShutdownTimeoutSec int    `mapstructure:"shutdown_timeout_sec"`
}

// LoadConfig loads configuration from file and environment variables.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	setDefaults(viperCfg)

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName("githist")
		viperCfg.SetConfigType("yaml")
		viperCfg.AddConfigPath(".")
		viperCfg.AddConfigPath("/etc/githist")
	}

	viperCfg.SetEnvPrefix("GITHIST")
	viperCfg.AutomaticEnv()
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFoundErr) {
			return nil, fmt.Errorf("failed to read config file: %w", readErr)
		}
	}

	var config Config

	unmarshalErr := viperCfg.Unmarshal(&config)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", unmarshalErr)
	}

	validateErr := validateConfig(&config)
	if validateErr != nil {
		return nil, fmt.Errorf("invalid configuration: %w", validateErr)
	}

	return &config, nil
}

// setDefaults sets default configuration values.
func setDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("output.path", "-")
	viperCfg.SetDefault("output.format", defaultFormat)
	viperCfg.SetDefault("output.append", false)

	viperCfg.SetDefault("history.skip", 0)
	viperCfg.SetDefault("history.max_commits", 0)
	viperCfg.SetDefault("history.rename_threshold", defaultRenameThreshold)
	viperCfg.SetDefault("history.strict", false)
	viperCfg.SetDefault("history.first_parent", true)

	viperCfg.SetDefault("checkpoint.enabled", false)
	viperCfg.SetDefault("checkpoint.directory", "")
	viperCfg.SetDefault("checkpoint.resume", true)

	viperCfg.SetDefault("logging.level", "info")
	viperCfg.SetDefault("logging.format", "text")

	viperCfg.SetDefault("telemetry.otlp_endpoint", "")
	viperCfg.SetDefault("telemetry.prometheus_listen", "")
	viperCfg.SetDefault("telemetry.environment", "")
	viperCfg.SetDefault("telemetry.shutdown_timeout_sec", defaultShutdownTimeout)
}

// Revalidate re-checks a configuration after the caller has overridden
// fields, for example from CLI flags.
func Revalidate(cfg *Config) error {
	err := validateConfig(cfg)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	return nil
}

// validateConfig validates the configuration.
func validateConfig(config *Config) error {
	switch config.Output.Format {
	case "csv", "yaml":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidFormat, config.Output.Format)
	}

	if config.History.RenameThreshold < 1 || config.History.RenameThreshold > maxRenameThreshold {
		return fmt.Errorf("%w: %d", ErrInvalidRenameThreshold, config.History.RenameThreshold)
	}

	if config.History.Skip < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidSkip, config.History.Skip)
	}

	if config.History.MaxCommits < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidMaxCommits, config.History.MaxCommits)
	}

	switch config.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, config.Logging.Level)
	}

	switch config.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, config.Logging.Format)
	}

	return nil
}
