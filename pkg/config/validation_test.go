package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validConfig() *Config {
	cfg := GetDefaultConfig()
	return cfg
}

func TestValidateAcceptsDefaultConfig(t *testing.T) {
	assert.NoError(t, Validate(validConfig()))
}

func TestValidateRejectsBadLogLevel(t *testing.T) {
	cfg := validConfig()
	cfg.Logging.Level = "LOUD"
	assert.Error(t, Validate(cfg))
}

func TestValidateRejectsBadLogFormat(t *testing.T) {
	cfg := validConfig()
	cfg.Logging.Format = "xml"
	assert.Error(t, Validate(cfg))
}

func TestValidateRejectsOutOfRangeSampleRate(t *testing.T) {
	cfg := validConfig()
	cfg.Telemetry.SampleRate = 1.5
	assert.Error(t, Validate(cfg))
}

func TestValidateRejectsWeakRSAKeyWhenEncryptionEnabled(t *testing.T) {
	cfg := validConfig()
	cfg.Crypto.MessageEncryption = true
	cfg.Crypto.RSAKeySizeBits = 1024
	assert.Error(t, Validate(cfg))
}

func TestValidateAllowsWeakRSAKeyWhenEncryptionDisabled(t *testing.T) {
	cfg := validConfig()
	cfg.Crypto.MessageEncryption = false
	cfg.Crypto.RSAKeySizeBits = 1024
	assert.NoError(t, Validate(cfg))
}

func TestValidateRejectsSweepIntervalLongerThanMaxAge(t *testing.T) {
	cfg := validConfig()
	cfg.Session.InactiveSessionSweepIntervalSeconds = 600
	cfg.Session.MaxInactiveSessionAgeSeconds = 60
	assert.Error(t, Validate(cfg))
}

func TestValidateRejectsOutOfRangePort(t *testing.T) {
	cfg := validConfig()
	cfg.Client.Port = 70000
	assert.Error(t, Validate(cfg))
}
