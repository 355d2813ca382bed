package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyDefaultsFillsEveryZeroField(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, "stdout", cfg.Logging.Output)

	assert.Equal(t, "localhost:4317", cfg.Telemetry.Endpoint)
	assert.Equal(t, 1.0, cfg.Telemetry.SampleRate)

	assert.Equal(t, ":9090", cfg.Metrics.ListenAddr)

	assert.Equal(t, 4096, cfg.Crypto.RSAKeySizeBits)

	assert.Equal(t, 30, cfg.Session.InactiveSessionSweepIntervalSeconds)
	assert.Equal(t, 300, cfg.Session.MaxInactiveSessionAgeSeconds)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "coreremoting", cfg.Server.ChannelName)
	assert.Equal(t, int64(128<<20), int64(cfg.Server.MaxFrameBytes))
	assert.Equal(t, 10, cfg.Server.AuthTimeoutSeconds)
	assert.Equal(t, 8, cfg.Server.Workers)

	assert.Equal(t, "127.0.0.1", cfg.Client.Host)
	assert.Equal(t, "coreremoting", cfg.Client.ChannelName)
	assert.Equal(t, 10, cfg.Client.ConnectionTimeoutSeconds)
	assert.Equal(t, 30, cfg.Client.InvocationTimeoutSeconds)
}

func TestApplyDefaultsPreservesExplicitValues(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{Host: "10.0.0.1", Workers: 64},
		Crypto: CryptoConfig{RSAKeySizeBits: 2048},
	}
	ApplyDefaults(cfg)

	assert.Equal(t, "10.0.0.1", cfg.Server.Host)
	assert.Equal(t, 64, cfg.Server.Workers)
	assert.Equal(t, 2048, cfg.Crypto.RSAKeySizeBits)
	// Untouched fields still pick up defaults.
	assert.Equal(t, "coreremoting", cfg.Server.ChannelName)
}

func TestGetDefaultConfigIsValid(t *testing.T) {
	cfg := GetDefaultConfig()
	assert.NoError(t, Validate(cfg))
}
