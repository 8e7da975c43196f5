// Package config loads the single TOML document that fully describes
// an ids-rs process for its lifetime: network bind, active parser,
// scan thresholds, alerting sinks, and cleanup cadence. It is loaded
// once at startup and never mutated afterward.
package config

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// DefaultConfigPath is used when no path is given on the command line.
const DefaultConfigPath = "./config.toml"

// ErrUnknownParser is returned when network.parser names a parser the
// ingest package does not implement.
type ErrUnknownParser struct{ Name string }

func (e *ErrUnknownParser) Error() string {
	return fmt.Sprintf("config: unknown parser %q", e.Name)
}

type NetworkConfig struct {
	ListenAddress string `mapstructure:"listen_address"`
	ListenPort    int    `mapstructure:"listen_port"`
	Parser        string `mapstructure:"parser"`
}

type ScanConfig struct {
	PortThreshold int           `mapstructure:"port_threshold"`
	TimeWindow    time.Duration `mapstructure:"time_window"`
}

type DetectionConfig struct {
	FastScan      ScanConfig    `mapstructure:"fast_scan"`
	SlowScan      ScanConfig    `mapstructure:"slow_scan"`
	AlertCooldown time.Duration `mapstructure:"alert_cooldown"`
}

type SIEMConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
}

type EmailConfig struct {
	Enabled    bool     `mapstructure:"enabled"`
	SMTPServer string   `mapstructure:"smtp_server"`
	Port       int      `mapstructure:"port"`
	TLS        bool     `mapstructure:"tls"`
	From       string   `mapstructure:"from"`
	To         []string `mapstructure:"to"`
	Username   string   `mapstructure:"username"`
	Password   string   `mapstructure:"password"`
}

type AlertingConfig struct {
	SIEM  SIEMConfig  `mapstructure:"siem"`
	Email EmailConfig `mapstructure:"email"`
}

type CleanupConfig struct {
	Interval    time.Duration `mapstructure:"interval"`
	MaxEntryAge time.Duration `mapstructure:"max_entry_age"`
}

// LoggingConfig is an ambient addition: not part of spec.md's data
// model, carried from the teacher's own config idiom of a configurable
// log level overridable by an environment variable.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// MetricsConfig is an ambient addition exposing the domain-stack
// Prometheus metrics on an HTTP endpoint. Disabled by default.
type MetricsConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	ListenAddress string `mapstructure:"listen_address"`
}

// Config is the fully loaded, immutable configuration document.
type Config struct {
	Network   NetworkConfig   `mapstructure:"network"`
	Detection DetectionConfig `mapstructure:"detection"`
	Alerting  AlertingConfig  `mapstructure:"alerting"`
	Cleanup   CleanupConfig   `mapstructure:"cleanup"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// Load reads and validates the TOML document at path. Unknown keys are
// rejected and missing required keys are a fatal startup error. The one
// value filled in when absent is logging.level, which becomes "info";
// an absent [metrics] section leaves metrics disabled.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	var cfg Config
	if err := v.UnmarshalExact(&cfg); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}

	if level := os.Getenv("IDS_RS_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Network.ListenAddress == "" {
		return fmt.Errorf("network.listen_address is required")
	}
	if c.Network.ListenPort == 0 {
		return fmt.Errorf("network.listen_port is required")
	}
	switch c.Network.Parser {
	case "gaia", "cef":
	default:
		return &ErrUnknownParser{Name: c.Network.Parser}
	}
	if c.Detection.FastScan.PortThreshold <= 0 || c.Detection.FastScan.TimeWindow <= 0 {
		return fmt.Errorf("detection.fast_scan requires a positive port_threshold and time_window")
	}
	if c.Detection.SlowScan.PortThreshold <= 0 || c.Detection.SlowScan.TimeWindow <= 0 {
		return fmt.Errorf("detection.slow_scan requires a positive port_threshold and time_window")
	}
	if c.Detection.AlertCooldown <= 0 {
		return fmt.Errorf("detection.alert_cooldown is required")
	}
	if c.Cleanup.Interval <= 0 || c.Cleanup.MaxEntryAge <= 0 {
		return fmt.Errorf("cleanup.interval and cleanup.max_entry_age are required")
	}
	if c.Alerting.SIEM.Enabled && (c.Alerting.SIEM.Host == "" || c.Alerting.SIEM.Port == 0) {
		return fmt.Errorf("alerting.siem.host and alerting.siem.port are required when siem is enabled")
	}
	if c.Alerting.Email.Enabled && (c.Alerting.Email.SMTPServer == "" || len(c.Alerting.Email.To) == 0) {
		return fmt.Errorf("alerting.email.smtp_server and alerting.email.to are required when email is enabled")
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	return nil
}
