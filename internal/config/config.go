// Package config loads signflow settings from a TOML file and the
// environment. Environment variables use the SIGNFLOW_ prefix with dots
// replaced by underscores, e.g. SIGNFLOW_STORE_PATH.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SIGNFLOW"

// Config holds application configuration.
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Store  StoreConfig  `mapstructure:"store"`
	Remote RemoteConfig `mapstructure:"remote"`
	Editor EditorConfig `mapstructure:"editor"`
}

// ServerConfig holds persistence service settings.
type ServerConfig struct {
	Addr         string `mapstructure:"addr"`
	MaxBodyBytes int64  `mapstructure:"max_body_bytes"`
}

// StoreConfig holds sqlite settings.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// RemoteConfig holds client settings for talking to the service.
type RemoteConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// EditorConfig holds editor session settings.
type EditorConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
	Profile  string        `mapstructure:"profile"`
}

// Load reads configuration from path, or from SIGNFLOW_CONFIG, or from
// $HOME/.config/signflow/config.toml, then applies env overrides. An
// explicitly named file must exist; the default location is optional.
func Load(path string) (Config, error) {
	v := viper.New()

	v.SetDefault("server.addr", "127.0.0.1:8080")
	v.SetDefault("server.max_body_bytes", 1<<20)
	v.SetDefault("store.path", "signflow.db")
	v.SetDefault("remote.base_url", "http://127.0.0.1:8080")
	v.SetDefault("remote.timeout", 10*time.Second)
	v.SetDefault("editor.debounce", time.Second)
	v.SetDefault("editor.profile", "")

	v.SetConfigType("toml")

	if path == "" {
		path = os.Getenv(EnvPrefix + "_CONFIG")
	}
	explicit := path != ""
	if explicit {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "signflow"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.Editor.Debounce <= 0 {
		return Config{}, fmt.Errorf("editor.debounce must be positive, got %s", c.Editor.Debounce)
	}
	return c, nil
}
