package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/coreremoting/coreremoting/internal/bytesize"
	"github.com/coreremoting/coreremoting/wire"
)

// ApplyDefaults sets default values for any unspecified configuration
// fields. It is called after loading configuration from file and
// environment so that a partially-specified config file still yields a
// runnable Config.
//
// Zero values (0, "", false) are replaced with defaults; explicit values
// are preserved.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyMetricsDefaults(&cfg.Metrics)
	applyCryptoDefaults(&cfg.Crypto)
	applySessionDefaults(&cfg.Session)
	applyServerDefaults(&cfg.Server)
	applyClientDefaults(&cfg.Client)
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":9090"
	}
}

func applyCryptoDefaults(cfg *CryptoConfig) {
	if cfg.RSAKeySizeBits == 0 {
		cfg.RSAKeySizeBits = 4096
	}
}

func applySessionDefaults(cfg *SessionConfig) {
	if cfg.InactiveSessionSweepIntervalSeconds == 0 {
		cfg.InactiveSessionSweepIntervalSeconds = 30
	}
	if cfg.MaxInactiveSessionAgeSeconds == 0 {
		cfg.MaxInactiveSessionAgeSeconds = 300
	}
}

func applyServerDefaults(cfg *ServerConfig) {
	if cfg.Host == "" {
		cfg.Host = "0.0.0.0"
	}
	if cfg.ChannelName == "" {
		cfg.ChannelName = "coreremoting"
	}
	if cfg.MaxFrameBytes == 0 {
		cfg.MaxFrameBytes = bytesize.ByteSize(wire.DefaultMaxFrameBytes)
	}
	if cfg.AuthTimeoutSeconds == 0 {
		cfg.AuthTimeoutSeconds = 10
	}
	if cfg.Workers == 0 {
		cfg.Workers = 8
	}
}

func applyClientDefaults(cfg *ClientConfig) {
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.ChannelName == "" {
		cfg.ChannelName = "coreremoting"
	}
	if cfg.ConnectionTimeoutSeconds == 0 {
		cfg.ConnectionTimeoutSeconds = 10
	}
	if cfg.InvocationTimeoutSeconds == 0 {
		cfg.InvocationTimeoutSeconds = 30
	}
}

// GetDefaultConfig returns a Config populated entirely with default values,
// used when no config file is found.
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

var validate = validator.New()

// Validate checks cfg against its struct tags (see the `validate:"..."`
// tags on each Config sub-struct) plus a handful of cross-field invariants
// that validator's struct tags can't express.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if cfg.Crypto.MessageEncryption && cfg.Crypto.RSAKeySizeBits < 2048 {
		return fmt.Errorf("crypto.rsa_key_size must be at least 2048 when crypto.message_encryption is enabled")
	}
	if cfg.Session.MaxInactiveSessionAgeSeconds < cfg.Session.InactiveSessionSweepIntervalSeconds {
		return fmt.Errorf("session.max_inactive_session_age_s must be >= session.inactive_session_sweep_interval_s")
	}

	return nil
}
