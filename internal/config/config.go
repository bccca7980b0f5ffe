// Package config loads and saves the breathsave TOML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config holds all breathsave configuration.
type Config struct {
	General      GeneralConfig      `toml:"general"`
	Segmentation SegmentationConfig `toml:"segmentation"`
	Predictions  PredictionsConfig  `toml:"predictions"`
	Auth         AuthConfig         `toml:"auth"`
	Appearance   AppearanceConfig   `toml:"appearance"`
	Daemon       DaemonConfig       `toml:"daemon"`
}

// GeneralConfig holds general preferences.
type GeneralConfig struct {
	DataDir  string `toml:"data_dir,omitempty"`
	UseCache bool   `toml:"use_cache"`
}

// SegmentationConfig holds k-means settings.
type SegmentationConfig struct {
	Clusters      int    `toml:"clusters"`
	Seed          uint64 `toml:"seed"`
	Restarts      int    `toml:"restarts"`
	MaxIter       int    `toml:"max_iter"`
	RankBySavings bool   `toml:"rank_by_savings"`
}

// PredictionsConfig holds regression chart settings.
type PredictionsConfig struct {
	RangePoints int     `toml:"range_points"`
	RangeMax    float64 `toml:"range_max"`    // 0 uses the largest cigarettes avoided
	DefaultGoal float64 `toml:"default_goal"` // cigarettes avoided
}

// AuthConfig selects the credential backend.
type AuthConfig struct {
	Backend         string `toml:"backend"` // "sqlite" or "json"
	CredentialsPath string `toml:"credentials_path,omitempty"`
	MinPasswordLen  int    `toml:"min_password_len"`
}

// AppearanceConfig holds theme settings.
type AppearanceConfig struct {
	Theme string `toml:"theme"`
}

// DaemonConfig holds HTTP API settings.
type DaemonConfig struct {
	Addr            string `toml:"addr"`
	RefreshSchedule string `toml:"refresh_schedule"` // cron spec, empty disables
	Watch           bool   `toml:"watch"`
}

// Credential backends.
const (
	BackendSQLite = "sqlite"
	BackendJSON   = "json"
)

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		General: GeneralConfig{
			DataDir:  "data",
			UseCache: true,
		},
		Segmentation: SegmentationConfig{
			Clusters: 3,
			Seed:     42,
			Restarts: 10,
			MaxIter:  300,
		},
		Predictions: PredictionsConfig{
			RangePoints: 100,
			DefaultGoal: 500,
		},
		Auth: AuthConfig{
			Backend:        BackendSQLite,
			MinPasswordLen: 6,
		},
		Appearance: AppearanceConfig{
			Theme: "flexoki-dark",
		},
		Daemon: DaemonConfig{
			Addr:            "127.0.0.1:8417",
			RefreshSchedule: "@every 5m",
			Watch:           true,
		},
	}
}

// ConfigDir returns the XDG-compliant config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "breathsave")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "breathsave")
}

// ConfigPath returns the full path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// Load reads the config file, returning defaults if it doesn't exist.
func Load() (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(ConfigPath())
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
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

// GetDataDir returns the data directory from env var or config, in that order.
func GetDataDir(cfg Config) string {
	if dir := os.Getenv("BREATHSAVE_DATA_DIR"); dir != "" {
		return dir
	}
	return cfg.General.DataDir
}

// CredentialsPath returns the configured credential store path. The default
// lives in the config directory: users.json for the json backend and
// credentials.db for sqlite.
func CredentialsPath(cfg Config) string {
	if cfg.Auth.CredentialsPath != "" {
		return cfg.Auth.CredentialsPath
	}
	if cfg.Auth.Backend == BackendJSON {
		return filepath.Join(ConfigDir(), "users.json")
	}
	return filepath.Join(ConfigDir(), "credentials.db")
}

// Exists returns true if a config file exists on disk.
func Exists() bool {
	_, err := os.Stat(ConfigPath())
	return err == nil
}
