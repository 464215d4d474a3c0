package config

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/vango-dev/gaze/internal/errors"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "gaze.json"

	// DefaultPort is the default server port.
	DefaultPort = 7070

	// DefaultHost is the default server host.
	DefaultHost = "localhost"

	// DefaultMetricsPath is where Prometheus metrics are served.
	DefaultMetricsPath = "/metrics"

	// DefaultNamespace is the default metrics namespace and tracer name.
	DefaultNamespace = "gaze"

	// DefaultSnapshotPrefix is the default key prefix for snapshots.
	DefaultSnapshotPrefix = "gaze/"

	// DefaultSnapshotTimeout is the default per-write snapshot timeout.
	DefaultSnapshotTimeout = "5s"

	// DefaultLogLevel is the default log level.
	DefaultLogLevel = "info"
)

// Source types accepted in SourceConfig.Type.
const (
	TypeInt    = "int"
	TypeFloat  = "float"
	TypeString = "string"
	TypeBool   = "bool"
	TypeJSON   = "json"
)

// Config represents the complete gaze.json configuration.
type Config struct {
	// Name is an optional label for this server.
	Name string `json:"name,omitempty"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"logLevel,omitempty"`

	// Server contains HTTP listener configuration.
	Server ServerConfig `json:"server"`

	// Metrics contains Prometheus configuration.
	Metrics MetricsConfig `json:"metrics"`

	// Tracing contains OpenTelemetry configuration.
	Tracing TracingConfig `json:"tracing"`

	// Snapshot contains snapshot store configuration.
	Snapshot SnapshotConfig `json:"snapshot"`

	// Sources are the sources served by the bridge.
	Sources []SourceConfig `json:"sources,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// ServerConfig contains HTTP listener settings.
type ServerConfig struct {
	// Host is the host to bind to.
	Host string `json:"host,omitempty"`

	// Port is the port to listen on.
	Port int `json:"port,omitempty"`

	// AllowedOrigins are accepted WebSocket origins. Empty means
	// same-origin only; "*" allows any origin.
	AllowedOrigins []string `json:"allowedOrigins,omitempty"`
}

// MetricsConfig contains Prometheus settings.
type MetricsConfig struct {
	// Enabled serves metrics at Path.
	Enabled bool `json:"enabled"`

	// Path is the metrics endpoint.
	Path string `json:"path,omitempty"`

	// Namespace is the metrics namespace.
	Namespace string `json:"namespace,omitempty"`
}

// TracingConfig contains OpenTelemetry settings.
type TracingConfig struct {
	// Enabled wraps sets in spans using the global tracer provider.
	Enabled bool `json:"enabled"`

	// TracerName is the instrumentation name.
	TracerName string `json:"tracerName,omitempty"`
}

// SnapshotConfig contains snapshot store settings.
type SnapshotConfig struct {
	// Enabled persists sources on change and restores them on start.
	Enabled bool `json:"enabled"`

	// Bucket is the S3 bucket. Empty uses an in-memory store.
	Bucket string `json:"bucket,omitempty"`

	// Prefix is prepended to every key.
	Prefix string `json:"prefix,omitempty"`

	// Region overrides the AWS region from the environment.
	Region string `json:"region,omitempty"`

	// Timeout bounds each write (e.g., "5s").
	Timeout string `json:"timeout,omitempty"`
}

// SourceConfig declares one source.
type SourceConfig struct {
	// Name is the catalog name.
	Name string `json:"name"`

	// Type is one of int, float, string, bool, json.
	Type string `json:"type"`

	// Initial is the initial value as JSON.
	Initial json.RawMessage `json:"initial,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		LogLevel: DefaultLogLevel,
		Server: ServerConfig{
			Host: DefaultHost,
			Port: DefaultPort,
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Path:      DefaultMetricsPath,
			Namespace: DefaultNamespace,
		},
		Tracing: TracingConfig{
			TracerName: DefaultNamespace,
		},
		Snapshot: SnapshotConfig{
			Prefix:  DefaultSnapshotPrefix,
			Timeout: DefaultSnapshotTimeout,
		},
		Sources: []SourceConfig{
			{Name: "count", Type: TypeInt, Initial: json.RawMessage("0")},
		},
	}
}

// Load reads configuration from the specified directory.
// It looks for gaze.json in the directory.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads configuration from the specified file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("G100").
				WithDetail("No gaze.json found in " + filepath.Dir(path)).
				WithSuggestion("Run 'gaze config init' to create one")
		}
		return nil, errors.New("G101").Wrap(err)
	}

	cfg := New()
	cfg.Sources = nil
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New("G101").
			WithDetail("Failed to parse gaze.json: " + err.Error()).
			WithSuggestion("Check that gaze.json is valid JSON")
	}

	cfg.configPath = path
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New("G103").Wrap(err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("G103").Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.Server.Host == "" {
		c.Server.Host = DefaultHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = DefaultNamespace
	}
	if c.Tracing.TracerName == "" {
		c.Tracing.TracerName = DefaultNamespace
	}
	if c.Snapshot.Prefix == "" {
		c.Snapshot.Prefix = DefaultSnapshotPrefix
	}
	if c.Snapshot.Timeout == "" {
		c.Snapshot.Timeout = DefaultSnapshotTimeout
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return errors.New("G102").
			WithDetail("server.port must be between 0 and 65535")
	}
	if _, ok := parseLevel(c.LogLevel); !ok {
		return errors.New("G102").
			WithDetail("logLevel must be one of debug, info, warn, error")
	}
	if !strings.HasPrefix(c.Metrics.Path, "/") {
		return errors.New("G102").
			WithDetail("metrics.path must start with /")
	}
	if d, err := time.ParseDuration(c.Snapshot.Timeout); err != nil || d <= 0 {
		return errors.New("G102").
			WithDetail("snapshot.timeout must be a positive duration such as \"5s\"")
	}

	seen := make(map[string]bool, len(c.Sources))
	for i, s := range c.Sources {
		if s.Name == "" {
			return errors.New("G120").
				WithDetail("sources[" + strconv.Itoa(i) + "] has no name")
		}
		if seen[s.Name] {
			return errors.New("G120").
				WithDetail("duplicate source name " + strconv.Quote(s.Name))
		}
		seen[s.Name] = true

		switch s.Type {
		case TypeInt, TypeFloat, TypeString, TypeBool, TypeJSON:
		default:
			return errors.New("G120").
				WithDetail("source " + strconv.Quote(s.Name) + " has unsupported type " + strconv.Quote(s.Type)).
				WithSuggestion("Use one of int, float, string, bool, json")
		}
	}
	return nil
}

// Address returns the listen address for the server.
func (c *Config) Address() string {
	return c.Server.Host + ":" + strconv.Itoa(c.Server.Port)
}

// SnapshotTimeout returns the parsed snapshot write timeout.
func (c *Config) SnapshotTimeout() time.Duration {
	d, err := time.ParseDuration(c.Snapshot.Timeout)
	if err != nil || d <= 0 {
		d, _ = time.ParseDuration(DefaultSnapshotTimeout)
	}
	return d
}

// Level returns the slog level for LogLevel.
func (c *Config) Level() slog.Level {
	level, _ := parseLevel(c.LogLevel)
	return level
}

func parseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, true
	case "info", "":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	}
	return slog.LevelInfo, false
}
