package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Config holds all pennywise configuration.
type Config struct {
	API     APIConfig     `toml:"api"`
	General GeneralConfig `toml:"general"`
	Daemon  DaemonConfig  `toml:"daemon"`
}

// APIConfig holds remote budget service settings.
type APIConfig struct {
	BaseURL string `toml:"base_url,omitempty"`
	Token   string `toml:"token,omitempty"`
}

// GeneralConfig holds general preferences.
type GeneralConfig struct {
	RefreshIntervalSecs int    `toml:"refresh_interval_secs"`
	CacheDir            string `toml:"cache_dir,omitempty"`
}

// DaemonConfig holds background service settings.
type DaemonConfig struct {
	Addr         string `toml:"addr,omitempty"`
	EventsBuffer int    `toml:"events_buffer,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			BaseURL: "http://localhost:8000",
		},
		General: GeneralConfig{
			RefreshIntervalSecs: 30,
		},
		Daemon: DaemonConfig{
			Addr:         "127.0.0.1:8177",
			EventsBuffer: 200,
		},
	}
}

// ConfigDir returns the XDG-compliant config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "pennywise")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "pennywise")
}

// ConfigPath returns the full path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// CacheDir returns the directory for the local snapshot mirror.
func CacheDir(cfg Config) string {
	if cfg.General.CacheDir != "" {
		return cfg.General.CacheDir
	}
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, "pennywise")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".cache", "pennywise")
}

// CachePath returns the snapshot mirror database path.
func CachePath(cfg Config) string {
	return filepath.Join(CacheDir(cfg), "snapshot.db")
}

// Load reads the config file, returning defaults if it doesn't exist.
// A .env file in the working directory is honored, and PENNYWISE_API_URL /
// PENNYWISE_TOKEN env vars override the file.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig()

	data, err := os.ReadFile(ConfigPath())
	if err != nil {
		if os.IsNotExist(err) {
			return applyEnv(cfg), nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	return applyEnv(cfg), nil
}

// Save writes the config to disk.
func Save(cfg Config) error {
	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(ConfigPath(), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	return enc.Encode(cfg)
}

// RefreshInterval returns the background refresh cadence.
func RefreshInterval(cfg Config) time.Duration {
	secs := cfg.General.RefreshIntervalSecs
	if secs < 1 {
		secs = 30
	}
	return time.Duration(secs) * time.Second
}

// Exists returns true if a config file exists on disk.
func Exists() bool {
	_, err := os.Stat(ConfigPath())
	return err == nil
}

func applyEnv(cfg Config) Config {
	if url := os.Getenv("PENNYWISE_API_URL"); url != "" {
		cfg.API.BaseURL = url
	}
	if token := os.Getenv("PENNYWISE_TOKEN"); token != "" {
		cfg.API.Token = token
	}
	return cfg
}
