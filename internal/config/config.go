// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package config loads the application configuration from a TOML file,
// creating a commented default on first run. Every setting can be
// overridden with a SEEDCROSS__ environment variable.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/autobrr/seedcross/internal/domain"
)

const envPrefix = "SEEDCROSS__"

var configTemplate = `# config.toml - Auto-generated on first run

# Hostname / IP
# Default: "localhost"
host = "localhost"

# Port
# Default: 7477
port = 7477

# API key
# If empty, the API is unauthenticated; only do this behind a trusted
# reverse proxy.
#apiKey = ""

# Log level
# Default: "INFO"
# Options: "ERROR", "DEBUG", "INFO", "WARN", "TRACE"
logLevel = "INFO"

# Log file path
# If not defined, logs to stdout
# Optional
#logPath = "log/seedcross.log"

# Maximum log file size in megabytes before rotation
# Default: 50
#logMaxSize = 50

# Number of rotated log files to retain (0 keeps all)
# Default: 3
#logMaxBackups = 3

# Data directory for the torrent metadata cache and staged dry-run output
# Default: the config file's directory
#dataDir = ""

# Database file path
# Default: "seedcross.db" next to the config file
#databasePath = ""

# Prometheus metrics endpoint at /metrics
# Default: false
#metricsEnabled = false
`

// AppConfig is the loaded configuration plus the paths it was derived from.
type AppConfig struct {
	Config *domain.Config

	viper      *viper.Viper
	configPath string
}

// New loads the config file at configPath, creating it with defaults when
// it does not exist. configPath may be a directory or a .toml file.
func New(configPath string) (*AppConfig, error) {
	c := &AppConfig{
		Config: &domain.Config{},
		viper:  viper.New(),
	}

	path, err := resolveConfigFile(configPath)
	if err != nil {
		return nil, err
	}
	c.configPath = path

	c.setDefaults()

	if err := c.writeDefaultIfMissing(); err != nil {
		return nil, err
	}

	c.viper.SetConfigFile(c.configPath)
	c.viper.SetConfigType("toml")

	if err := c.viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	c.bindEnv()

	if err := c.viper.Unmarshal(c.Config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return c, nil
}

// ConfigPath returns the resolved config file location.
func (c *AppConfig) ConfigPath() string {
	return c.configPath
}

// GetDatabasePath returns the configured database file, defaulting to
// seedcross.db next to the config file.
func (c *AppConfig) GetDatabasePath() string {
	if c.Config.DatabasePath != "" {
		return c.Config.DatabasePath
	}
	return filepath.Join(filepath.Dir(c.configPath), "seedcross.db")
}

// GetDataDir returns the directory for cache and staged output, defaulting
// to the config file's directory.
func (c *AppConfig) GetDataDir() string {
	if c.Config.DataDir != "" {
		return c.Config.DataDir
	}
	return filepath.Dir(c.configPath)
}

func (c *AppConfig) setDefaults() {
	c.viper.SetDefault("host", "localhost")
	c.viper.SetDefault("port", 7477)
	c.viper.SetDefault("apiKey", "")
	c.viper.SetDefault("logLevel", "INFO")
	c.viper.SetDefault("logPath", "")
	c.viper.SetDefault("logMaxSize", 50)
	c.viper.SetDefault("logMaxBackups", 3)
	c.viper.SetDefault("dataDir", "")
	c.viper.SetDefault("databasePath", "")
	c.viper.SetDefault("metricsEnabled", false)
}

// bindEnv maps SEEDCROSS__SNAKE_CASE variables onto config keys.
func (c *AppConfig) bindEnv() {
	bindings := map[string]string{
		"host":           "HOST",
		"port":           "PORT",
		"apiKey":         "API_KEY",
		"logLevel":       "LOG_LEVEL",
		"logPath":        "LOG_PATH",
		"logMaxSize":     "LOG_MAX_SIZE",
		"logMaxBackups":  "LOG_MAX_BACKUPS",
		"dataDir":        "DATA_DIR",
		"databasePath":   "DATABASE_PATH",
		"metricsEnabled": "METRICS_ENABLED",
	}

	for key, env := range bindings {
		if value, ok := os.LookupEnv(envPrefix + env); ok {
			c.viper.Set(key, value)
		}
	}
}

func (c *AppConfig) writeDefaultIfMissing() error {
	if _, err := os.Stat(c.configPath); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(c.configPath), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(c.configPath, []byte(configTemplate), 0o644); err != nil {
		return fmt.Errorf("failed to write default config: %w", err)
	}

	log.Info().Str("path", c.configPath).Msg("Created default config file")
	return nil
}

// resolveConfigFile turns a directory or file argument into a config file
// path, defaulting to the user config dir when empty.
func resolveConfigFile(configPath string) (string, error) {
	if configPath == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("failed to resolve config directory: %w", err)
		}
		return filepath.Join(base, "seedcross", "config.toml"), nil
	}

	if strings.HasSuffix(configPath, ".toml") {
		return configPath, nil
	}
	return filepath.Join(configPath, "config.toml"), nil
}
