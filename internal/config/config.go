// Package config loads calplanner settings from a YAML file and the
// environment. Environment variables win over the file.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cyp0633/calplanner/internal/instrumentation"
	"github.com/cyp0633/calplanner/internal/logging"
	"gopkg.in/yaml.v3"
)

// Environment variables read by Load.
const (
	EnvHost         = "NEXTCLOUD_HOST"
	EnvUsername     = "NEXTCLOUD_USERNAME"
	EnvPassword     = "NEXTCLOUD_PASSWORD"
	EnvCalendarHome = "CALPLANNER_CALENDAR_HOME"
	EnvDiscover     = "CALPLANNER_DISCOVER"
	EnvLogLevel     = "CALPLANNER_LOG_LEVEL"
	EnvTimezone     = "CALPLANNER_TIMEZONE"
	EnvTimeout      = "CALPLANNER_TIMEOUT"

	EnvMetricsExporter = "CALPLANNER_METRICS_EXPORTER"
	EnvTracingExporter = "CALPLANNER_TRACING_EXPORTER"
	EnvOTLPEndpoint    = "OTEL_EXPORTER_OTLP_ENDPOINT"
	EnvOTLPInsecure    = "OTEL_EXPORTER_OTLP_INSECURE"
)

const defaultTimeout = 30 * time.Second

// Hours is a working day as whole hours.
type Hours struct {
	Start int `yaml:"start"`
	End   int `yaml:"end"`
}

// AvailabilityConfig overrides the availability solver's working hours.
// Zero values keep the built-in hours.
type AvailabilityConfig struct {
	BusinessHours Hours `yaml:"business_hours"`
	ExtendedHours Hours `yaml:"extended_hours"`
}

// TelemetryConfig selects the OpenTelemetry exporters. Both default to none.
type TelemetryConfig struct {
	MetricsExporter string `yaml:"metrics_exporter"`
	TracingExporter string `yaml:"tracing_exporter"`
	OTLPEndpoint    string `yaml:"otlp_endpoint"`
	OTLPInsecure    bool   `yaml:"otlp_insecure"`
}

// Exporters converts t for instrumentation.NewProvider.
func (t TelemetryConfig) Exporters() instrumentation.ExporterConfig {
	return instrumentation.ExporterConfig{
		MetricsExporter: t.MetricsExporter,
		TracingExporter: t.TracingExporter,
		OTLPEndpoint:    t.OTLPEndpoint,
		OTLPInsecure:    t.OTLPInsecure,
	}
}

// Config is the top-level configuration.
type Config struct {
	// Host is the server root URL, e.g. https://cloud.example.com.
	Host     string `yaml:"host"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`

	// CalendarHome overrides the Nextcloud calendar home path.
	CalendarHome string `yaml:"calendar_home"`
	// Discover looks the calendar home up through the principal instead
	// of assuming the Nextcloud layout. Ignored when CalendarHome is set.
	Discover bool `yaml:"discover"`

	// Timezone is an IANA zone for availability slots; empty means local.
	Timezone string        `yaml:"timezone"`
	LogLevel string        `yaml:"log_level"`
	Timeout  time.Duration `yaml:"timeout"`

	Availability AvailabilityConfig `yaml:"availability"`
	Telemetry    TelemetryConfig    `yaml:"telemetry"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		Timeout:  defaultTimeout,
	}
}

// Load reads path (skipped when empty), applies environment overrides and
// validates the result.
func Load(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read is Load without validation, for callers that apply further
// overrides before calling Validate themselves.
func Read(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	cfg.Normalize()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Host = getenvDefault(EnvHost, c.Host)
	c.Username = getenvDefault(EnvUsername, c.Username)
	c.Password = getenvDefault(EnvPassword, c.Password)
	c.CalendarHome = getenvDefault(EnvCalendarHome, c.CalendarHome)
	c.Discover = getenvBool(EnvDiscover, c.Discover)
	c.LogLevel = getenvDefault(EnvLogLevel, c.LogLevel)
	c.Timezone = getenvDefault(EnvTimezone, c.Timezone)
	c.Timeout = getenvDuration(EnvTimeout, c.Timeout)

	c.Telemetry.MetricsExporter = getenvDefault(EnvMetricsExporter, c.Telemetry.MetricsExporter)
	c.Telemetry.TracingExporter = getenvDefault(EnvTracingExporter, c.Telemetry.TracingExporter)
	c.Telemetry.OTLPEndpoint = getenvDefault(EnvOTLPEndpoint, c.Telemetry.OTLPEndpoint)
	c.Telemetry.OTLPInsecure = getenvBool(EnvOTLPInsecure, c.Telemetry.OTLPInsecure)
}

// Normalize fills zero values with defaults.
func (c *Config) Normalize() {
	c.Host = strings.TrimRight(strings.TrimSpace(c.Host), "/")
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
}

// Validate reports the first missing or malformed setting.
func (c Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("%s is required", EnvHost)
	}
	u, err := url.Parse(c.Host)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("invalid host %q: want http(s)://host", c.Host)
	}
	if c.Username == "" {
		return fmt.Errorf("%s is required", EnvUsername)
	}
	if c.Password == "" {
		return fmt.Errorf("%s is required", EnvPassword)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	for name, h := range map[string]Hours{
		"business_hours": c.Availability.BusinessHours,
		"extended_hours": c.Availability.ExtendedHours,
	} {
		if h == (Hours{}) {
			continue
		}
		if h.Start < 0 || h.End > 24 || h.Start >= h.End {
			return fmt.Errorf("availability.%s: invalid range %d-%d", name, h.Start, h.End)
		}
	}
	if err := c.Telemetry.Exporters().Validate(); err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	return nil
}

// Location resolves Timezone. Empty and "Local" mean time.Local.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("invalid timezone %q", c.Timezone), err)
	}
	return loc, nil
}

func getenvDefault(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func getenvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	parsed, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}
