package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 100*time.Millisecond, cfg.RecvDelay)
	assert.Equal(t, 16, cfg.LPNGroups)
}

func TestLoadBytesOverridesDefaults(t *testing.T) {
	data := []byte(`
LPNGroups: 4
ClearAttempts: 3
Logger:
  LogLevel: debug
`)
	cfg, err := LoadBytes(data)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.LPNGroups)
	assert.Equal(t, 3, cfg.ClearAttempts)
	assert.Equal(t, "debug", cfg.Logger.LogLevel)
	// untouched fields keep their default.
	assert.Equal(t, 100*time.Millisecond, cfg.RecvDelay)
}

func TestLoadBytesRejectsUnknownField(t *testing.T) {
	_, err := LoadBytes([]byte("NotAField: 1\n"))
	assert.Error(t, err)
}

func TestValidateRejectsOutOfRangeRecvDelay(t *testing.T) {
	cfg := Default()
	cfg.RecvDelay = 5 * time.Millisecond
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.RecvDelay = 300 * time.Millisecond
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsBadLogEncoding(t *testing.T) {
	cfg := Default()
	cfg.Logger.LogEncoding = "xml"
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsNonPositiveLPNGroups(t *testing.T) {
	cfg := Default()
	cfg.LPNGroups = 0
	assert.Error(t, cfg.Validate())
}

func TestValidateClampsScanLatencyToRecvDelay(t *testing.T) {
	cfg := Default()
	cfg.ScanLatency = cfg.RecvDelay + 50*time.Millisecond
	require.NoError(t, cfg.Validate())
	assert.Equal(t, cfg.RecvDelay, cfg.ScanLatency)
}
