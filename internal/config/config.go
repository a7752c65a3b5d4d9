// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir         string // Base directory for history snapshot, audit db and exports (always absolute)
	BroadcasterHost string // TUIO broadcaster host
	BroadcasterPort int    // TUIO broadcaster port
	LogLevel        string
	Port            int // HTTP API port
	DevMode         bool
	RendererURL     string // Render service base URL (touchscreen UI)
	RendererEnabled bool   // Whether to push directives to the render service
	Backup          *BackupConfig
}

// BackupConfig holds off-device backup configuration (S3-compatible storage)
type BackupConfig struct {
	Enabled         bool
	Endpoint        string // Custom endpoint for S3-compatible providers (e.g. R2, MinIO)
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	Prefix          string // Object key prefix inside the bucket
	Schedule        string // Cron schedule for the backup job
}

// BroadcasterAddr returns the host:port the session manager dials.
func (c *Config) BroadcasterAddr() string {
	return net.JoinHostPort(c.BroadcasterHost, strconv.Itoa(c.BroadcasterPort))
}

// HistoryPath returns the path of the primary dose history snapshot.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.DataDir, "dose_history.json")
}

// AuditDBPath returns the path of the raw protocol event database.
func (c *Config) AuditDBPath() string {
	return filepath.Join(c.DataDir, "audit.db")
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	// Determine data directory with fallback logic:
	// 1. MEDKIOSK_DATA_DIR environment variable
	// 2. default ./data
	// Always resolved to an absolute path, created if missing.
	dataDir := getEnv("MEDKIOSK_DATA_DIR", "")
	if dataDir == "" {
		dataDir = "data"
	}

	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:         absDataDir,
		BroadcasterHost: getEnv("MEDKIOSK_BROADCASTER_HOST", "127.0.0.1"),
		BroadcasterPort: getEnvAsInt("MEDKIOSK_BROADCASTER_PORT", 8765),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		Port:            getEnvAsInt("MEDKIOSK_PORT", 8090),
		DevMode:         getEnvAsBool("DEV_MODE", false),
		RendererURL:     getEnv("MEDKIOSK_RENDERER_URL", "http://localhost:7000"),
		RendererEnabled: getEnvAsBool("MEDKIOSK_RENDERER_ENABLED", false),
		Backup:          loadBackupConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.BroadcasterHost == "" {
		return fmt.Errorf("broadcaster host must not be empty")
	}
	if c.BroadcasterPort <= 0 || c.BroadcasterPort > 65535 {
		return fmt.Errorf("broadcaster port out of range: %d", c.BroadcasterPort)
	}
	if c.Backup.Enabled && c.Backup.Bucket == "" {
		return fmt.Errorf("backup enabled but MEDKIOSK_BACKUP_BUCKET is empty")
	}
	return nil
}

// loadBackupConfig loads backup configuration. Backups are opt-in; the kiosk
// runs fine with no network storage at all.
func loadBackupConfig() *BackupConfig {
	return &BackupConfig{
		Enabled:         getEnvAsBool("MEDKIOSK_BACKUP_ENABLED", false),
		Endpoint:        getEnv("MEDKIOSK_BACKUP_ENDPOINT", ""),
		Region:          getEnv("MEDKIOSK_BACKUP_REGION", "auto"),
		Bucket:          getEnv("MEDKIOSK_BACKUP_BUCKET", ""),
		AccessKeyID:     getEnv("MEDKIOSK_BACKUP_ACCESS_KEY_ID", ""),
		SecretAccessKey: getEnv("MEDKIOSK_BACKUP_SECRET_ACCESS_KEY", ""),
		Prefix:          getEnv("MEDKIOSK_BACKUP_PREFIX", "medkiosk"),
		Schedule:        getEnv("MEDKIOSK_BACKUP_SCHEDULE", "0 0 3 * * *"),
	}
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
