// Package config loads CLI settings from defaults, an optional YAML file and
// MACFILES_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/viper"
)

const (
	// AppName is the base name of the config file
	AppName = "macfiles"

	// EnvPrefix is the prefix for environment variables
	EnvPrefix = "MACFILES"
)

// AppConfig holds the application configuration
type AppConfig struct {
	Debug     bool   `mapstructure:"debug" yaml:"debug"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`
	LogFile   string `mapstructure:"log_file" yaml:"log_file"`

	Store struct {
		// PageSize bounds node size in newly created stores
		PageSize int `mapstructure:"page_size" yaml:"page_size"`
	} `mapstructure:"store" yaml:"store"`

	// Volume settings feed alias and bookmark generation
	Volume struct {
		RootName string `mapstructure:"root_name" yaml:"root_name"`
		UUID     string `mapstructure:"uuid" yaml:"uuid"`
	} `mapstructure:"volume" yaml:"volume"`

	Output struct {
		Format string `mapstructure:"format" yaml:"format"`
	} `mapstructure:"output" yaml:"output"`

	// File is the config file that was read, if any
	File string `mapstructure:"-" yaml:"-"`
}

// Load reads the configuration. An empty cfgFile searches the current
// directory and the user config directory for macfiles.yaml; a missing file
// there is not an error.
func Load(cfgFile string) (*AppConfig, error) {
	v := viper.New()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(AppName)
		v.SetConfigType("yaml")
		addSearchPaths(v)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	cfg := &AppConfig{}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	} else {
		cfg.File = v.ConfigFileUsed()
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("debug", false)
	v.SetDefault("log_format", "human")
	v.SetDefault("log_file", "")
	v.SetDefault("store.page_size", 4096)
	v.SetDefault("volume.root_name", "Macintosh HD")
	v.SetDefault("volume.uuid", "")
	v.SetDefault("output.format", "table")
}

func addSearchPaths(v *viper.Viper) {
	v.AddConfigPath(".")
	if dir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(dir, AppName))
	}
}

// Validate checks the values that the rest of the program relies on
func (c *AppConfig) Validate() error {
	if c.Store.PageSize < 32 {
		return fmt.Errorf("store.page_size must be at least 32, got %d", c.Store.PageSize)
	}
	if !slices.Contains([]string{"human", "json"}, c.LogFormat) {
		return fmt.Errorf("log_format must be human or json, got %q", c.LogFormat)
	}
	if !slices.Contains([]string{"table", "json", "yaml"}, c.Output.Format) {
		return fmt.Errorf("output.format must be table, json or yaml, got %q", c.Output.Format)
	}
	if _, err := c.VolumeUUID(); err != nil {
		return err
	}
	return nil
}

// VolumeUUID parses volume.uuid, returning uuid.Nil when it is unset
func (c *AppConfig) VolumeUUID() (uuid.UUID, error) {
	if c.Volume.UUID == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(c.Volume.UUID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid volume.uuid: %w", err)
	}
	return id, nil
}

// WriteDefault writes a config file holding the default settings. It does
// not overwrite an existing file.
func WriteDefault(path string) error {
	v := viper.New()
	setDefaults(v)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := v.SafeWriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
