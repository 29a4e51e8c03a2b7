// Package config provides application configuration management with support for environment variables, command-line flags, .env files and a TOML tuning file.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/contactlyapp/contactly-server/internal/dedupe"
)

// Config holds the application configuration.
type Config struct {
	App    AppConfig
	Logger LoggerConfig
	Data   DataConfig
	Server ServerConfig
	Dedupe DedupeConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// DataConfig holds on-disk storage locations.
type DataConfig struct {
	BasePath string // Root for the database, kv store and search index
}

// DatabasePath is the SQLite file holding records and custom fields.
func (d DataConfig) DatabasePath() string {
	return filepath.Join(d.BasePath, "contactly.db")
}

// KVPath is the Badger directory holding saved searches.
func (d DataConfig) KVPath() string {
	return filepath.Join(d.BasePath, "kv")
}

// SearchIndexPath is the Bleve directory holding the duplicate candidate index.
func (d DataConfig) SearchIndexPath() string {
	return filepath.Join(d.BasePath, "search")
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Port           string        // Server port (default: 8080)
	AllowedOrigins []string      // CORS origins (default: *)
	ReadTimeout    time.Duration // HTTP read timeout (default: 15s)
	WriteTimeout   time.Duration // HTTP write timeout (default: 60s, scans can be slow)
	IdleTimeout    time.Duration // HTTP idle timeout (default: 60s)
	ScanRateLimit  int           // Duplicate scan requests per minute per client (default: 30)
	ScanBurst      int           // Burst allowance for scans (default: 5)
}

// DedupeConfig holds duplicate detection tuning.
type DedupeConfig struct {
	TuningFile  string            // Optional TOML file overriding thresholds and scan limits
	Thresholds  dedupe.Thresholds // Minimum pair score per sensitivity
	Workers     int               // Scoring workers per scan (default: NumCPU)
	MaxRecords  int               // Largest snapshot a single scan accepts (default: 5000)
	ScanTimeout time.Duration     // Upper bound for one scan (default: 30s)
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
//
// A dedupe tuning file, when configured, is applied last and overrides
// the threshold and scan settings it names.
func LoadConfig() (*Config, error) {
	env := flag.String("env", "", "Environment (development, staging, production)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	dataPath := flag.String("data-path", "", "Base path for database, kv store and search index")

	serverPort := flag.String("port", "", "Server port (default: 8080)")
	allowedOrigins := flag.String("allowed-origins", "", "Comma-separated CORS origins (default: *)")
	readTimeout := flag.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := flag.String("write-timeout", "", "HTTP write timeout (default: 60s)")
	idleTimeout := flag.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")
	scanRateLimit := flag.String("scan-rate-limit", "", "Duplicate scans per minute per client (default: 30)")

	dedupeTuning := flag.String("dedupe-tuning", "", "Path to dedupe tuning TOML file")
	dedupeWorkers := flag.String("dedupe-workers", "", "Scoring workers per scan (default: NumCPU)")
	dedupeMaxRecords := flag.String("dedupe-max-records", "", "Largest record batch per scan (default: 5000)")
	scanTimeout := flag.String("scan-timeout", "", "Upper bound for one duplicate scan (default: 30s)")

	envFile := flag.String("env-file", ".env", "Path to .env file")

	flag.Parse()

	// godotenv never overrides variables that are already set.
	_ = godotenv.Load(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Data: DataConfig{
			BasePath: getConfigValue(*dataPath, "DATA_PATH", ""),
		},
		Server: ServerConfig{
			Port:           getConfigValue(*serverPort, "SERVER_PORT", "8080"),
			AllowedOrigins: splitList(getConfigValue(*allowedOrigins, "ALLOWED_ORIGINS", "*")),
			ScanRateLimit:  getIntConfigValue(*scanRateLimit, "SCAN_RATE_LIMIT", 30),
			ScanBurst:      getIntConfigValue("", "SCAN_BURST", 5),
		},
		Dedupe: DedupeConfig{
			TuningFile: getConfigValue(*dedupeTuning, "DEDUPE_TUNING_FILE", ""),
			Thresholds: dedupe.DefaultThresholds(),
			Workers:    getIntConfigValue(*dedupeWorkers, "DEDUPE_WORKERS", 0),
			MaxRecords: getIntConfigValue(*dedupeMaxRecords, "DEDUPE_MAX_RECORDS", 5000),
		},
	}

	var err error
	if cfg.Server.ReadTimeout, err = getDurationConfigValue(*readTimeout, "SERVER_READ_TIMEOUT", "15s"); err != nil {
		return nil, fmt.Errorf("invalid read timeout: %w", err)
	}
	if cfg.Server.WriteTimeout, err = getDurationConfigValue(*writeTimeout, "SERVER_WRITE_TIMEOUT", "60s"); err != nil {
		return nil, fmt.Errorf("invalid write timeout: %w", err)
	}
	if cfg.Server.IdleTimeout, err = getDurationConfigValue(*idleTimeout, "SERVER_IDLE_TIMEOUT", "60s"); err != nil {
		return nil, fmt.Errorf("invalid idle timeout: %w", err)
	}
	if cfg.Dedupe.ScanTimeout, err = getDurationConfigValue(*scanTimeout, "SCAN_TIMEOUT", "30s"); err != nil {
		return nil, fmt.Errorf("invalid scan timeout: %w", err)
	}

	if err := cfg.expandDataPath(); err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}

	if cfg.Dedupe.TuningFile != "" {
		tuning, err := LoadDedupeTuning(cfg.Dedupe.TuningFile)
		if err != nil {
			return nil, err
		}
		tuning.Apply(&cfg.Dedupe)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if c.App.Environment == "" {
		return errors.New("ENV is required")
	}

	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Data.BasePath == "" {
		return errors.New("data base path cannot be empty after expansion")
	}

	if c.Dedupe.Workers < 0 {
		return fmt.Errorf("dedupe workers cannot be negative: %d", c.Dedupe.Workers)
	}
	if c.Dedupe.MaxRecords < 0 {
		return fmt.Errorf("dedupe max records cannot be negative: %d", c.Dedupe.MaxRecords)
	}
	if c.Dedupe.ScanTimeout <= 0 {
		return errors.New("scan timeout must be positive")
	}
	if err := c.Dedupe.Thresholds.Validate(); err != nil {
		return fmt.Errorf("invalid dedupe thresholds: %w", err)
	}

	if c.Server.ScanRateLimit <= 0 || c.Server.ScanBurst <= 0 {
		return errors.New("scan rate limit and burst must be positive")
	}

	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// expandDataPath expands ~ and makes the path absolute.
// Defaults to ~/Contactly/data.
func (c *Config) expandDataPath() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	defaultPath := filepath.Join(homeDir, "Contactly", "data")

	expanded, err := expandPath(c.Data.BasePath, defaultPath)
	if err != nil {
		return err
	}
	c.Data.BasePath = expanded
	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}

	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}

	return defaultValue
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result int
	if _, err := fmt.Sscanf(strValue, "%d", &result); err != nil {
		return defaultValue
	}
	return result
}

// getDurationConfigValue parses a duration from flag, env var, or default.
func getDurationConfigValue(flagValue, envKey, defaultValue string) (time.Duration, error) {
	s := getConfigValue(flagValue, envKey, defaultValue)
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%q: %w", s, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
