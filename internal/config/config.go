package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration.
type Config struct {
	// Persistence substrate
	Storage StorageConfig `toml:"storage"`

	// Card catalog source
	Catalog CatalogConfig `toml:"catalog"`

	// Filter recomputation
	Filter FilterConfig `toml:"filter"`

	// Local HTTP API
	Server ServerConfig `toml:"server"`

	// Application configuration
	App AppConfig `toml:"app"`
}

// StorageConfig selects and configures the key/value substrate.
type StorageConfig struct {
	Backend      string `toml:"backend"`       // sqlite, badger, redis or memory
	Path         string `toml:"path"`          // SQLite file or Badger directory
	RedisURL     string `toml:"redis_url"`     // e.g. redis://localhost:6379/0
	RedisPrefix  string `toml:"redis_prefix"`  // Key prefix for the redis backend
	OwnershipKey string `toml:"ownership_key"` // Key of the ownership document
	GroupsKey    string `toml:"groups_key"`    // Key of the group document
	Passphrase   string `toml:"passphrase"`    // Encrypt values at rest when set
}

// CatalogConfig points at the card list.
type CatalogConfig struct {
	Path  string `toml:"path"`  // JSON, CSV or YAML card list
	Watch bool   `toml:"watch"` // Reload when the file changes
}

// FilterConfig contains filter settings.
type FilterConfig struct {
	KeywordDebounce string `toml:"keyword_debounce"` // e.g. "300ms"
}

// ServerConfig contains API server settings.
type ServerConfig struct {
	Port           int      `toml:"port"`
	AllowedOrigins []string `toml:"allowed_origins"`
}

// AppConfig contains general application settings.
type AppConfig struct {
	DebugMode bool `toml:"debug_mode"` // Enable debug logging
}

var backends = []string{"sqlite", "badger", "redis", "memory"}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Backend:      "sqlite",
			Path:         "",
			RedisURL:     "",
			RedisPrefix:  "cardfinder:",
			OwnershipKey: "owned_cards_v1",
			GroupsKey:    "card_groups_v1",
		},
		Catalog: CatalogConfig{
			Path:  "",
			Watch: true,
		},
		Filter: FilterConfig{
			KeywordDebounce: "300ms",
		},
		Server: ServerConfig{
			Port:           8787,
			AllowedOrigins: []string{"http://localhost:*", "http://127.0.0.1:*"},
		},
		App: AppConfig{
			DebugMode: false,
		},
	}
}

// Dir returns the configuration directory, creating it if needed.
func Dir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}

	configDir := filepath.Join(homeDir, ".cardfinder")
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return "", fmt.Errorf("create config directory: %w", err)
	}

	return configDir, nil
}

// configPath returns the path to the configuration file.
func configPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load loads the configuration from the default location. Returns default
// config if the file doesn't exist.
func Load() (*Config, error) {
	path, err := configPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom loads the configuration at path. Keys missing from the file keep
// their default values.
func LoadFrom(path string) (*Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return config, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	return config, nil
}

// Save saves the configuration to the default location.
func (c *Config) Save() error {
	path, err := configPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes the configuration to path.
func (c *Config) SaveTo(path string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration values.
func (c *Config) Validate() error {
	if !slices.Contains(backends, c.Storage.Backend) {
		return fmt.Errorf("unknown storage backend %q (want one of %v)", c.Storage.Backend, backends)
	}
	if c.Storage.Backend == "redis" && c.Storage.RedisURL == "" {
		return fmt.Errorf("redis backend requires storage.redis_url")
	}
	if c.Storage.OwnershipKey == "" || c.Storage.GroupsKey == "" {
		return fmt.Errorf("storage keys cannot be empty")
	}
	if c.Storage.OwnershipKey == c.Storage.GroupsKey {
		return fmt.Errorf("ownership and groups keys must differ, both are %q", c.Storage.GroupsKey)
	}

	debounce, err := time.ParseDuration(c.Filter.KeywordDebounce)
	if err != nil {
		return fmt.Errorf("invalid keyword debounce %q: %w", c.Filter.KeywordDebounce, err)
	}
	if debounce < 0 {
		return fmt.Errorf("keyword debounce cannot be negative: %s", debounce)
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	return nil
}

// GetKeywordDebounce returns the keyword debounce as a duration.
func (c *Config) GetKeywordDebounce() (time.Duration, error) {
	return time.ParseDuration(c.Filter.KeywordDebounce)
}

// StoragePath returns the configured storage path, or a default inside the
// configuration directory for file-backed backends.
func (c *Config) StoragePath() (string, error) {
	if c.Storage.Path != "" || (c.Storage.Backend != "sqlite" && c.Storage.Backend != "badger") {
		return c.Storage.Path, nil
	}

	dir, err := Dir()
	if err != nil {
		return "", err
	}
	if c.Storage.Backend == "badger" {
		return filepath.Join(dir, "badger"), nil
	}
	return filepath.Join(dir, "cardfinder.db"), nil
}
