package project

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/piwi3910/GridCut/internal/engine"
	"github.com/piwi3910/GridCut/internal/model"
)

// ErrInvalidConfig is returned by AppConfig.Validate.
var ErrInvalidConfig = errors.New("invalid config")

// AppConfig holds application-wide preferences.
type AppConfig struct {
	PolicyID      int    `json:"policy_id"`
	LogLevel      string `json:"log_level"` // "debug", "info", "warn", "error"
	LogPretty     bool   `json:"log_pretty"`
	MaxSteps      int    `json:"max_steps"` // 0 = no limit
	OffcutMinArea int    `json:"offcut_min_area"`
	ListenAddr    string `json:"listen_addr"`
	MetricsFile   string `json:"metrics_file"` // Textfile collector output; empty = disabled
}

// DefaultAppConfig returns an AppConfig populated with defaults.
func DefaultAppConfig() AppConfig {
	return AppConfig{
		PolicyID:      engine.FirstFitID,
		LogLevel:      "info",
		OffcutMinArea: model.DefaultMinOffcutArea,
		ListenAddr:    ":8080",
	}
}

// Validate rejects unknown policies, log levels and negative limits.
func (c AppConfig) Validate() error {
	if c.PolicyID != engine.FirstFitID {
		return fmt.Errorf("%w: policy_id %d is not supported", ErrInvalidConfig, c.PolicyID)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: unknown log_level %q", ErrInvalidConfig, c.LogLevel)
	}
	if c.MaxSteps < 0 {
		return fmt.Errorf("%w: max_steps must not be negative", ErrInvalidConfig)
	}
	if c.OffcutMinArea < 0 {
		return fmt.Errorf("%w: offcut_min_area must not be negative", ErrInvalidConfig)
	}
	return nil
}

// ApplyEnv overrides fields from GRIDCUT_* environment variables.
func (c *AppConfig) ApplyEnv() {
	c.LogLevel = getEnv("GRIDCUT_LOG_LEVEL", c.LogLevel)
	c.LogPretty = getEnvBool("GRIDCUT_LOG_PRETTY", c.LogPretty)
	c.MaxSteps = getEnvInt("GRIDCUT_MAX_STEPS", c.MaxSteps)
	c.ListenAddr = getEnv("GRIDCUT_LISTEN_ADDR", c.ListenAddr)
	c.MetricsFile = getEnv("GRIDCUT_METRICS_FILE", c.MetricsFile)
}

// DefaultConfigPath returns ~/.gridcut/config.json, or a relative
// .gridcut/config.json when the home directory is unknown.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".gridcut", "config.json")
}

// SaveAppConfig writes config to path, creating parent directories.
func SaveAppConfig(path string, config AppConfig) error {
	return writeJSON(path, config)
}

// LoadAppConfig reads the config at path over DefaultAppConfig. A missing
// file is not an error.
func LoadAppConfig(path string) (AppConfig, error) {
	config := DefaultAppConfig()
	err := readJSON(path, &config)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return DefaultAppConfig(), nil
	case err != nil:
		return AppConfig{}, err
	}
	return config, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
