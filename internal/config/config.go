// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Default analysis universe. The target's peer set drives comps and the
// 60/40 risk portfolio; the shock set drives the deterministic stress test.
var (
	DefaultPeerTickers  = []string{"AMD", "AVGO", "TSM", "ASML", "INTC"}
	DefaultShockTickers = []string{"TSM", "ASML"}
)

// Config holds application configuration
type Config struct {
	DataDir      string // Base directory for the cache database (always absolute)
	ArtifactsDir string // Output directory for CSV/JSON artifacts
	ReportsDir   string // Output directory for generated memos
	LogLevel     string
	Port         int
	DevMode      bool

	DefaultTicker string   // Target ticker used by the scheduler refresh job
	PeerTickers   []string // Peer set for comps and the risk portfolio
	ShockTickers  []string // Tickers shocked in the stress test
	ShockPct      float64  // Fractional shock applied in the stress test (e.g. -0.10)

	RefreshSchedule string // Cron spec for the scheduled analysis refresh
	CleanupSchedule string // Cron spec for cache cleanup
	BackupSchedule  string // Cron spec for artifact backups

	Backup *BackupConfig
}

// BackupConfig holds settings for the S3-compatible artifact backup service.
type BackupConfig struct {
	Enabled         bool
	Endpoint        string // Custom endpoint for S3-compatible stores; empty for AWS
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	Prefix          string
	RetentionDays   int // Backups older than this are rotated out; 0 keeps everything
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("STRATALPHA_DATA_DIR", "")
	if dataDir == "" {
		dataDir = "./data"
	}

	// Always resolve to absolute path
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	artifactsDir := getEnv("STRATALPHA_ARTIFACTS_DIR", filepath.Join(absDataDir, "artifacts"))
	reportsDir := getEnv("STRATALPHA_REPORTS_DIR", filepath.Join(absDataDir, "reports"))
	for _, dir := range []string{artifactsDir, reportsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create output directory %s: %w", dir, err)
		}
	}

	cfg := &Config{
		DataDir:      absDataDir,
		ArtifactsDir: artifactsDir,
		ReportsDir:   reportsDir,
		Port:         getEnvAsInt("STRATALPHA_PORT", 8001),
		DevMode:      getEnvAsBool("DEV_MODE", false),
		LogLevel:     getEnv("LOG_LEVEL", "info"),

		DefaultTicker: getEnv("STRATALPHA_TICKER", "NVDA"),
		PeerTickers:   getEnvAsList("RISK_PEER_TICKERS", DefaultPeerTickers),
		ShockTickers:  getEnvAsList("SUPPLY_SHOCK_TICKERS", DefaultShockTickers),
		ShockPct:      getEnvAsFloat("SHOCK_PCT", -0.10),

		RefreshSchedule: getEnv("REFRESH_SCHEDULE", "0 6 * * *"),
		CleanupSchedule: getEnv("CLEANUP_SCHEDULE", "30 * * * *"),
		BackupSchedule:  getEnv("BACKUP_SCHEDULE", "0 2 * * *"),

		Backup: loadBackupConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.ShockPct < -1.0 || c.ShockPct > 1.0 {
		return fmt.Errorf("SHOCK_PCT must be a fraction in [-1, 1], got %v", c.ShockPct)
	}
	if c.Backup.Enabled {
		if c.Backup.Bucket == "" {
			return fmt.Errorf("BACKUP_BUCKET required when backups are enabled")
		}
		if c.Backup.AccessKeyID == "" || c.Backup.SecretAccessKey == "" {
			return fmt.Errorf("BACKUP_ACCESS_KEY_ID and BACKUP_SECRET_ACCESS_KEY required when backups are enabled")
		}
	}
	return nil
}

func loadBackupConfig() *BackupConfig {
	return &BackupConfig{
		Enabled:         getEnvAsBool("BACKUP_ENABLED", false),
		Endpoint:        getEnv("BACKUP_ENDPOINT", ""),
		Region:          getEnv("BACKUP_REGION", "auto"),
		Bucket:          getEnv("BACKUP_BUCKET", ""),
		AccessKeyID:     getEnv("BACKUP_ACCESS_KEY_ID", ""),
		SecretAccessKey: getEnv("BACKUP_SECRET_ACCESS_KEY", ""),
		Prefix:          getEnv("BACKUP_PREFIX", "stratalpha"),
		RetentionDays:   getEnvAsInt("BACKUP_RETENTION_DAYS", 30),
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
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

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, strings.ToUpper(p))
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
