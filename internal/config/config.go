package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Storage paths and backends
	Storage StorageConfig `json:"storage" mapstructure:"storage"`

	// Crypto parameters
	Crypto CryptoConfig `json:"crypto" mapstructure:"crypto"`

	// HTTP server
	Server ServerConfig `json:"server" mapstructure:"server"`

	// Logging
	Log LogConfig `json:"log" mapstructure:"log"`
}

// StorageConfig locates the vault and recycle areas plus the metadata
// and user documents. Everything lives under DataDir by default so one
// config value is enough to isolate a whole vault instance.
type StorageConfig struct {
	DataDir         string `json:"data_dir" mapstructure:"data_dir"`
	VaultDir        string `json:"vault_dir" mapstructure:"vault_dir"`
	RecycleDir      string `json:"recycle_dir" mapstructure:"recycle_dir"`
	MetadataBackend string `json:"metadata_backend" mapstructure:"metadata_backend"` // json, sqlite
	MetadataPath    string `json:"metadata_path" mapstructure:"metadata_path"`
	UsersPath       string `json:"users_path" mapstructure:"users_path"`
	MaxFileSize     int64  `json:"max_file_size" mapstructure:"max_file_size"`
}

// CryptoConfig for key derivation.
type CryptoConfig struct {
	Iterations int `json:"iterations" mapstructure:"iterations"`
}

// ServerConfig for the HTTP API.
type ServerConfig struct {
	Addr            string        `json:"addr" mapstructure:"addr"`
	SessionTTL      time.Duration `json:"session_ttl" mapstructure:"session_ttl"`
	LoginRatePerMin int           `json:"login_rate_per_min" mapstructure:"login_rate_per_min"`
	LoginBurst      int           `json:"login_burst" mapstructure:"login_burst"`
}

// LogConfig for logging behavior.
type LogConfig struct {
	Level  string `json:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `json:"format" mapstructure:"format"` // text, json
	File   string `json:"file" mapstructure:"file"`     // log file path (empty = stdout)
}

// DefaultConfig returns config with sensible defaults.
func DefaultConfig() *Config {
	dataDir := ".locker"

	return &Config{
		Storage: StorageConfig{
			DataDir:         dataDir,
			VaultDir:        filepath.Join(dataDir, "vault"),
			RecycleDir:      filepath.Join(dataDir, "recycle"),
			MetadataBackend: "json",
			MetadataPath:    filepath.Join(dataDir, "metadata.json"),
			UsersPath:       filepath.Join(dataDir, "users.json"),
			MaxFileSize:     100 * 1024 * 1024, // 100MB
		},
		Crypto: CryptoConfig{
			Iterations: 100000,
		},
		Server: ServerConfig{
			Addr:            ":5000",
			SessionTTL:      30 * time.Minute,
			LoginRatePerMin: 10,
			LoginBurst:      5,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
			File:   "",
		},
	}
}

// Validate checks configuration validity.
func (c *Config) Validate() error {
	if c.Storage.DataDir == "" {
		return errors.New("storage.data_dir is required")
	}

	if c.Storage.VaultDir == c.Storage.RecycleDir {
		return errors.New("storage.vault_dir and storage.recycle_dir must differ")
	}

	if c.Storage.MaxFileSize <= 0 {
		return errors.New("storage.max_file_size must be positive")
	}

	validBackends := map[string]bool{"json": true, "sqlite": true}
	if !validBackends[c.Storage.MetadataBackend] {
		return fmt.Errorf("invalid metadata backend: %s", c.Storage.MetadataBackend)
	}

	if c.Crypto.Iterations < 100000 {
		return fmt.Errorf("crypto.iterations must be at least 100000, got %d", c.Crypto.Iterations)
	}

	if c.Server.SessionTTL <= 0 {
		return errors.New("server.session_ttl must be positive")
	}

	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[c.Log.Level] {
		return fmt.Errorf("invalid log level: %s", c.Log.Level)
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[c.Log.Format] {
		return fmt.Errorf("invalid log format: %s", c.Log.Format)
	}

	return nil
}

// EnsureDirectories creates required directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Storage.DataDir,
		c.Storage.VaultDir,
		c.Storage.RecycleDir,
		filepath.Dir(c.Storage.MetadataPath),
		filepath.Dir(c.Storage.UsersPath),
	}

	if c.Log.File != "" {
		dirs = append(dirs, filepath.Dir(c.Log.File))
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	return nil
}
