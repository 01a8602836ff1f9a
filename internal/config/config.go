// Package config loads quill.yml, the project configuration of the quill CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/simonhull/firebird-suite/quill/internal/logger"
	"github.com/simonhull/firebird-suite/quill/internal/plan"
)

// FileName is the configuration file looked for in the working directory
const FileName = "quill.yml"

// Config holds the settings of a generation run
type Config struct {
	SourceRoot     string `mapstructure:"source_root"`     // Primary resource root and directive scan root
	ResourceRoot   string `mapstructure:"resource_root"`   // Secondary resource root (empty disables the fallback)
	OutputRoot     string `mapstructure:"output_root"`     // Where providers are written
	Manifest       string `mapstructure:"manifest"`        // Manifest path (a missing default manifest is ignored)
	Scan           bool   `mapstructure:"scan"`            // Scan Go source for directives
	EmbeddedSuffix string `mapstructure:"embedded_suffix"` // Suffix of embedded providers
	Workers        int    `mapstructure:"workers"`         // 0 means one per CPU
	RuntimeImport  string `mapstructure:"runtime_import"`  // Import path of the runtime loader
	LogLevel       string `mapstructure:"log_level"`

	// Path of the file the settings were read from, empty for defaults
	Path string `mapstructure:"-"`
}

// Default returns the configuration used when no quill.yml exists
func Default() *Config {
	return &Config{
		SourceRoot:     ".",
		ResourceRoot:   "build/resources",
		OutputRoot:     ".",
		Manifest:       "quill.resources.yml",
		Scan:           true,
		EmbeddedSuffix: plan.DefaultEmbeddedSuffix,
		LogLevel:       "warn",
	}
}

// Load reads configuration from path. With an empty path, quill.yml in the
// working directory is used when present and defaults otherwise.
// QUILL_* environment variables override file values.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix("QUILL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(strings.TrimSuffix(FileName, ".yml"))
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read %s: %w", describe(path), err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", describe(path), err)
	}
	cfg.Path = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that cannot be defaulted
func (c *Config) Validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	if c.SourceRoot == "" {
		return fmt.Errorf("source_root must not be empty")
	}
	if c.OutputRoot == "" {
		return fmt.Errorf("output_root must not be empty")
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("source_root", d.SourceRoot)
	v.SetDefault("resource_root", d.ResourceRoot)
	v.SetDefault("output_root", d.OutputRoot)
	v.SetDefault("manifest", d.Manifest)
	v.SetDefault("scan", d.Scan)
	v.SetDefault("embedded_suffix", d.EmbeddedSuffix)
	v.SetDefault("workers", d.Workers)
	v.SetDefault("runtime_import", d.RuntimeImport)
	v.SetDefault("log_level", d.LogLevel)
}

func describe(path string) string {
	if path == "" {
		return FileName
	}
	return path
}
