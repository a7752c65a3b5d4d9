package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("MEDKIOSK_DATA_DIR", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.BroadcasterHost)
	assert.Equal(t, 8765, cfg.BroadcasterPort)
	assert.Equal(t, "127.0.0.1:8765", cfg.BroadcasterAddr())
	assert.Equal(t, 8090, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.RendererEnabled)
	assert.False(t, cfg.Backup.Enabled)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("MEDKIOSK_DATA_DIR", t.TempDir())
	t.Setenv("MEDKIOSK_BROADCASTER_HOST", "10.0.0.5")
	t.Setenv("MEDKIOSK_BROADCASTER_PORT", "9100")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("MEDKIOSK_RENDERER_ENABLED", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "10.0.0.5:9100", cfg.BroadcasterAddr())
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.RendererEnabled)
}

func TestValidateRejectsBadPort(t *testing.T) {
	cfg := &Config{
		BroadcasterHost: "127.0.0.1",
		BroadcasterPort: 0,
		Backup:          &BackupConfig{},
	}
	assert.Error(t, cfg.Validate())
}

func TestValidateBackupRequiresBucket(t *testing.T) {
	cfg := &Config{
		BroadcasterHost: "127.0.0.1",
		BroadcasterPort: 8765,
		Backup:          &BackupConfig{Enabled: true},
	}
	assert.Error(t, cfg.Validate())

	cfg.Backup.Bucket = "kiosk-backups"
	assert.NoError(t, cfg.Validate())
}

func TestDataPaths(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("MEDKIOSK_DATA_DIR", dir)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Contains(t, cfg.HistoryPath(), "dose_history.json")
	assert.Contains(t, cfg.AuditDBPath(), "audit.db")
}
