package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Loader handles configuration loading from file and environment.
type Loader struct {
	configPath string
	envPrefix  string
}

// NewLoader creates a config loader. An empty path means the default
// locations are probed.
func NewLoader(configPath string) *Loader {
	return &Loader{
		configPath: configPath,
		envPrefix:  "LOCKER",
	}
}

// Load reads configuration, applying file values over defaults and
// environment variables over both.
func (l *Loader) Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("json")

	// Defaults first so partial files and env overrides merge cleanly.
	cfg := DefaultConfig()
	v.SetDefault("storage", map[string]interface{}{})
	v.SetDefault("crypto", map[string]interface{}{})
	v.SetDefault("server", map[string]interface{}{})
	v.SetDefault("log", map[string]interface{}{})

	path := l.configPath
	if path == "" {
		path = l.findDefault()
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("load config file %s: %w", path, err)
			}
		}
	}

	v.SetEnvPrefix(l.envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	l.bindEnv(v)

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// bindEnv registers the keys AutomaticEnv cannot discover through
// Unmarshal alone.
func (l *Loader) bindEnv(v *viper.Viper) {
	keys := []string{
		"storage.data_dir",
		"storage.vault_dir",
		"storage.recycle_dir",
		"storage.metadata_backend",
		"storage.metadata_path",
		"storage.users_path",
		"storage.max_file_size",
		"crypto.iterations",
		"server.addr",
		"server.session_ttl",
		"log.level",
		"log.format",
		"log.file",
	}
	for _, key := range keys {
		_ = v.BindEnv(key)
	}
}

// findDefault returns the first existing default config path.
func (l *Loader) findDefault() string {
	paths := []string{
		"locker.json",
		".locker.json",
	}

	if homeDir, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(homeDir, ".config", "locker", "config.json"),
			filepath.Join(homeDir, ".locker", "config.json"),
		)
	}

	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
