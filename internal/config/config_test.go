package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":9090", c.MetricsAddr)
	assert.Equal(t, "localhost", c.Switchboard.Host)
	assert.Equal(t, 1864, c.Switchboard.Port)
	assert.Equal(t, time.Second, c.PumpInterval)
	assert.Equal(t, 100, c.PumpBatch)
	assert.Equal(t, 30*time.Second, c.TokenLifetime)
	assert.NotEmpty(t, c.DataDir)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"metrics_addr: \":8000\"\n"+
			"pump_interval: 250ms\n"+
			"switchboard:\n  host: sb.internal\n  port: 2864\n"), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":8000", c.MetricsAddr)
	assert.Equal(t, 250*time.Millisecond, c.PumpInterval)
	assert.Equal(t, "sb.internal", c.Switchboard.Host)
	assert.Equal(t, 2864, c.Switchboard.Port)
	// Untouched keys keep their defaults.
	assert.Equal(t, 100, c.PumpBatch)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("NAUTILUS_METRICS_ADDR", ":7000")
	t.Setenv("NAUTILUS_SWITCHBOARD__HOST", "sb.env")
	t.Setenv("NAUTILUS_PUMP_BATCH", "25")

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":7000", c.MetricsAddr)
	assert.Equal(t, "sb.env", c.Switchboard.Host)
	assert.Equal(t, 25, c.PumpBatch)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	c.DataDir = filepath.Join(t.TempDir(), "data")
	require.NoError(t, c.Validate())
	assert.DirExists(t, c.DataDir)
	assert.Equal(t, filepath.Join(c.DataDir, "nautilus.db"), c.DBPath())
	assert.Equal(t, filepath.Join(c.DataDir, "storage"), c.StorageRoot())

	c.PumpBatch = 0
	assert.Error(t, c.Validate())
}
