// Package config loads nixplan's own configuration (not the install plan)
// from file and environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	Path  string `mapstructure:"path"`
}

// Config represents the application configuration.
type Config struct {
	// Filesystem is the default root filesystem for the default layout.
	Filesystem string `mapstructure:"filesystem"`

	// Output is the path the plan document is written to on confirm.
	Output string `mapstructure:"output"`

	// Bootloader is the preselected bootloader.
	Bootloader string `mapstructure:"bootloader"`

	Logging LoggingConfig `mapstructure:"logging"`
}

// Load loads configuration from file and environment variables.
// Config file locations (in order of precedence):
//   - $XDG_CONFIG_HOME/nixplan/config.yaml
//   - $HOME/.config/nixplan/config.yaml
//
// Environment variables are prefixed with NIXPLAN_ (e.g. NIXPLAN_OUTPUT).
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		v.AddConfigPath(filepath.Join(xdgConfigHome, "nixplan"))
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}
	v.AddConfigPath(filepath.Join(homeDir, ".config", "nixplan"))

	v.SetEnvPrefix("NIXPLAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("filesystem", DefaultFilesystem)
	v.SetDefault("output", DefaultOutput)
	v.SetDefault("bootloader", DefaultBootloader)
	v.SetDefault("logging.level", DefaultLogLevel)
	v.SetDefault("logging.path", "")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is acceptable; we use defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}
