package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mcuadros/go-defaults"
	"github.com/sirupsen/logrus"
	"github.com/srg/hibou/bleuio"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Output formats
const (
	FormatTable = "table"
	FormatJSON  = "json"
)

// Config holds application configuration
type Config struct {
	Port            string        `yaml:"port"`
	Transport       string        `yaml:"transport" default:"serial"`
	BaudRate        int           `yaml:"baud_rate" default:"115200"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"5s"`
	MinPayloadLen   int           `yaml:"min_payload_len" default:"60"`
	LogLevel        string        `yaml:"log_level" default:"info"`
	OutputFormat    string        `yaml:"output_format" default:"table"` // table, json
	RefreshInterval time.Duration `yaml:"refresh_interval" default:"1s"`
	MetricsAddr     string        `yaml:"metrics_addr"`
}

// DefaultConfig returns default configuration values
func DefaultConfig() *Config {
	cfg := &Config{}
	defaults.SetDefaults(cfg)
	return cfg
}

// Load reads a YAML file over the defaults. An empty path returns the
// defaults. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	var errs []error

	if _, err := bleuio.ParseTransport(c.Transport); err != nil {
		errs = append(errs, err)
	}
	if c.BaudRate <= 0 {
		errs = append(errs, fmt.Errorf("baud_rate must be positive, got %d", c.BaudRate))
	}
	if c.ReadTimeout <= 0 {
		errs = append(errs, fmt.Errorf("read_timeout must be positive, got %s", c.ReadTimeout))
	}
	if c.MinPayloadLen < 0 {
		errs = append(errs, fmt.Errorf("min_payload_len must not be negative, got %d", c.MinPayloadLen))
	}
	if c.RefreshInterval <= 0 {
		errs = append(errs, fmt.Errorf("refresh_interval must be positive, got %s", c.RefreshInterval))
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	switch c.OutputFormat {
	case FormatTable, FormatJSON:
	default:
		errs = append(errs, fmt.Errorf("output_format must be %q or %q, got %q", FormatTable, FormatJSON, c.OutputFormat))
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}

// Level returns the parsed log level, falling back to info.
func (c *Config) Level() logrus.Level {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}

// NewLogger creates a configured logger instance
func (c *Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(c.Level())

	// Use structured logging format
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})

	return logger
}

// DriverOptions maps the configuration onto driver options.
func (c *Config) DriverOptions(logger *logrus.Logger) bleuio.Options {
	return bleuio.Options{
		PortPath:      c.Port,
		BaudRate:      c.BaudRate,
		Transport:     bleuio.Transport(c.Transport),
		ReadTimeout:   c.ReadTimeout,
		MinPayloadLen: c.MinPayloadLen,
		Logger:        logger,
	}
}
