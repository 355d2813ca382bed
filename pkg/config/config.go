package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/coreremoting/coreremoting/internal/bytesize"
)

// Config represents the CoreRemoting runtime configuration.
//
// This structure captures static configuration for both a hosting process
// (coreremotingd) and a connecting client (coreremotingctl): the transport
// endpoint, session/crypto policy, and the ambient logging/telemetry/metrics
// stack.
//
// Configuration sources (in order of precedence):
//  1. Environment variables (COREREMOTING_*)
//  2. Configuration file (YAML)
//  3. Default values (lowest priority)
type Config struct {
	// Logging controls log output behavior.
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Telemetry controls OpenTelemetry distributed tracing.
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`

	// Metrics controls the Prometheus metrics HTTP server.
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// Crypto governs the transport-level wire encryption policy (spec §3/§6).
	Crypto CryptoConfig `mapstructure:"crypto" yaml:"crypto"`

	// Session governs server-side idle-session sweeping (spec §4.11/§6).
	Session SessionConfig `mapstructure:"session" yaml:"session"`

	// Server configures the hosting side of a channel (coreremotingd).
	Server ServerConfig `mapstructure:"server" yaml:"server"`

	// Client configures the connecting side of a channel (coreremotingctl
	// and any embedding process using client.Session).
	Client ClientConfig `mapstructure:"client" yaml:"client"`
}

// LoggingConfig controls log output behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output.
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format.
	// Valid values: text, json
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written.
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// TelemetryConfig controls OpenTelemetry distributed tracing of handshake,
// dispatch, and delegate-invocation spans.
type TelemetryConfig struct {
	// Enabled controls whether distributed tracing is enabled.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the OTLP collector endpoint (host:port).
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// Insecure controls whether to use an insecure (non-TLS) connection.
	Insecure bool `mapstructure:"insecure" yaml:"insecure"`

	// SampleRate controls the trace sampling rate (0.0 to 1.0).
	SampleRate float64 `mapstructure:"sample_rate" validate:"omitempty,gte=0,lte=1" yaml:"sample_rate"`
}

// MetricsConfig configures the Prometheus metrics HTTP server. When Enabled
// is false, no metrics are collected.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// ListenAddr is the HTTP listen address serving /metrics, e.g. ":9090".
	ListenAddr string `mapstructure:"listen_addr" yaml:"listen_addr"`
}

// CryptoConfig governs whether envelope payloads are signed and encrypted
// under a handshake-negotiated shared secret, and the size of the RSA
// identity keys used to negotiate it (spec §3.2/§6).
type CryptoConfig struct {
	// MessageEncryption enables AES-encrypted, RSA-signed envelope payloads
	// once the handshake has negotiated a shared secret.
	MessageEncryption bool `mapstructure:"message_encryption" yaml:"message_encryption"`

	// RSAKeySizeBits is the modulus size for generated client/server
	// identity keys. Default 4096.
	RSAKeySizeBits int `mapstructure:"rsa_key_size" validate:"omitempty,gt=0" yaml:"rsa_key_size"`
}

// SessionConfig governs how the server reclaims idle sessions (spec §4.11).
type SessionConfig struct {
	// InactiveSessionSweepIntervalSeconds is how often the sweeper scans for
	// idle sessions.
	InactiveSessionSweepIntervalSeconds int `mapstructure:"inactive_session_sweep_interval_s" validate:"omitempty,gt=0" yaml:"inactive_session_sweep_interval_s"`

	// MaxInactiveSessionAgeSeconds is how long a session may sit idle before
	// the sweeper closes it.
	MaxInactiveSessionAgeSeconds int `mapstructure:"max_inactive_session_age_s" validate:"omitempty,gt=0" yaml:"max_inactive_session_age_s"`
}

// ServerConfig configures the hosting side of a channel.
type ServerConfig struct {
	// Host is the bind address.
	Host string `mapstructure:"host" yaml:"host"`

	// Port is the bind port. 0 lets the transport pick an ephemeral port.
	Port int `mapstructure:"port" validate:"omitempty,min=0,max=65535" yaml:"port"`

	// ChannelName identifies the named-pipe/channel for non-TCP transports.
	ChannelName string `mapstructure:"channel_name" yaml:"channel_name"`

	// MaxFrameBytes bounds the size of a single inbound wire frame. Accepts
	// human-readable sizes in the config file ("128KB", "1Mi").
	MaxFrameBytes bytesize.ByteSize `mapstructure:"max_frame_bytes" yaml:"max_frame_bytes"`

	// AuthTimeoutSeconds bounds how long the server waits for a client's
	// auth message after hello completes.
	AuthTimeoutSeconds int `mapstructure:"auth_timeout_s" validate:"omitempty,gt=0" yaml:"auth_timeout_s"`

	// Workers is the size of the dispatch worker pool.
	Workers int `mapstructure:"workers" validate:"omitempty,gt=0" yaml:"workers"`
}

// ClientConfig configures the connecting side of a channel.
type ClientConfig struct {
	// Host is the server address to dial.
	Host string `mapstructure:"host" yaml:"host"`

	// Port is the server port to dial.
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`

	// ChannelName identifies the named-pipe/channel for non-TCP transports.
	ChannelName string `mapstructure:"channel_name" yaml:"channel_name"`

	// ConnectionTimeoutSeconds bounds the hello+auth handshake.
	ConnectionTimeoutSeconds int `mapstructure:"connection_timeout_s" validate:"omitempty,gt=0" yaml:"connection_timeout_s"`

	// InvocationTimeoutSeconds bounds a single Invoke call, independent of
	// the connection timeout.
	InvocationTimeoutSeconds int `mapstructure:"invocation_timeout_s" validate:"omitempty,gt=0" yaml:"invocation_timeout_s"`

	// AutoReconnect redials and replays the handshake transparently when an
	// Invoke is attempted on a dropped session.
	AutoReconnect bool `mapstructure:"auto_reconnect" yaml:"auto_reconnect"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (COREREMOTING_*)
//  2. Configuration file
//  3. Default values
//
// When no configuration file is found, Load returns the default values
// without consulting environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	configFileFound, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	if !configFileFound {
		return GetDefaultConfig(), nil
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration with helpful error messages when no config
// file is present at the resolved path.
func MustLoad(configPath string) (*Config, error) {
	if configPath == "" {
		if !DefaultConfigExists() {
			return nil, fmt.Errorf("no configuration file found at default location: %s\n\n"+
				"Please initialize a configuration file first:\n"+
				"  coreremotingctl init\n\n"+
				"Or specify a custom config file:\n"+
				"  coreremotingd <command> --config /path/to/config.yaml",
				GetDefaultConfigPath())
		}
		configPath = GetDefaultConfigPath()
	} else if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s\n\n"+
			"Please create the configuration file:\n"+
			"  coreremotingctl init --config %s",
			configPath, configPath)
	}

	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to the specified file path in YAML.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// setupViper configures viper with environment variable and config file
// search settings.
func setupViper(v *viper.Viper, configPath string) {
	// Environment variables use the COREREMOTING_ prefix and underscores.
	// Example: COREREMOTING_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("COREREMOTING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		configDir := getConfigDir()
		v.AddConfigPath(configDir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if present. The bool return
// reports whether a file was found; its absence is not an error.
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}

	return true, nil
}

// configDecodeHooks returns the combined mapstructure decode hook used when
// unmarshaling into Config.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		byteSizeDecodeHook(),
		durationDecodeHook(),
	)
}

// byteSizeDecodeHook converts strings and numbers to bytesize.ByteSize,
// letting a config file spell ServerConfig.MaxFrameBytes as "1Mi" or
// "512000" interchangeably.
func byteSizeDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(bytesize.ByteSize(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return bytesize.ParseByteSize(v)
		case int:
			return bytesize.ByteSize(v), nil
		case int64:
			return bytesize.ByteSize(v), nil
		case uint64:
			return bytesize.ByteSize(v), nil
		case float64:
			return bytesize.ByteSize(v), nil
		default:
			return data, nil
		}
	}
}

// durationDecodeHook converts strings like "30s", "5m", "1h" into
// time.Duration during config unmarshaling. No field on Config is currently
// typed as time.Duration (timeouts are expressed in whole seconds to match
// spec §6's *_s keys), but it is kept wired for any future duration-typed
// field and is exercised directly by its own test.
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to the
// current directory if the home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "coreremoting")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "coreremoting")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists checks if a config file exists at the default location.
func DefaultConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the configuration directory path (exposed for the
// init command).
func GetConfigDir() string {
	return getConfigDir()
}
