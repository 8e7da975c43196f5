package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

const validTOML = `
[network]
listen_address = "0.0.0.0"
listen_port = 514
parser = "gaia"

[detection.fast_scan]
port_threshold = 15
time_window = "10s"

[detection.slow_scan]
port_threshold = 30
time_window = "5m"

[detection]
alert_cooldown = "300s"

[alerting.siem]
enabled = true
host = "127.0.0.1"
port = 9999

[alerting.email]
enabled = false

[cleanup]
interval = "60s"
max_entry_age = "600s"
`

func TestLoadValidConfig(t *testing.T) {
	path := writeTemp(t, validTOML)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "gaia", cfg.Network.Parser)
	assert.Equal(t, 514, cfg.Network.ListenPort)
	assert.Equal(t, 15, cfg.Detection.FastScan.PortThreshold)
	assert.Equal(t, 10*time.Second, cfg.Detection.FastScan.TimeWindow)
	assert.Equal(t, 300*time.Second, cfg.Detection.AlertCooldown)
	assert.True(t, cfg.Alerting.SIEM.Enabled)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadRejectsUnknownTopLevelKey(t *testing.T) {
	path := writeTemp(t, validTOML+"\n[bogus]\nfield = 1\n")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsUnknownParser(t *testing.T) {
	bad := strings.Replace(validTOML, `parser = "gaia"`, `parser = "xml"`, 1)
	path := writeTemp(t, bad)

	_, err := Load(path)
	var unknown *ErrUnknownParser
	assert.ErrorAs(t, err, &unknown)
}

func TestLoadRejectsMissingRequiredField(t *testing.T) {
	path := writeTemp(t, `
[network]
listen_address = "0.0.0.0"
listen_port = 514
parser = "gaia"
`)

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadHonorsEnvLogLevelOverride(t *testing.T) {
	path := writeTemp(t, validTOML)
	t.Setenv("IDS_RS_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
}
