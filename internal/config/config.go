package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Config holds all application configuration
type Config struct {
	General       GeneralConfig       `toml:"general"`
	Notifications NotificationsConfig `toml:"notifications"`
	Server        ServerConfig        `toml:"server"`
}

// GeneralConfig holds general settings
type GeneralConfig struct {
	WorktreeDir  string `toml:"worktree_dir"`
	DatabasePath string `toml:"database_path"`
}

// NotificationsConfig holds notification settings
type NotificationsConfig struct {
	Desktop      bool   `toml:"desktop"`
	SlackWebhook string `toml:"slack_webhook"`
}

// ServerConfig holds API server settings
type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

// Default returns a Config with sensible defaults
func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		General: GeneralConfig{
			WorktreeDir:  filepath.Join(home, ".automaker", "worktrees"),
			DatabasePath: filepath.Join(home, ".automaker", "automaker.db"),
		},
		Notifications: NotificationsConfig{
			Desktop: true,
		},
		Server: ServerConfig{
			Port: 8080,
			Host: "127.0.0.1",
		},
	}
}

// Load reads configuration from a TOML file, falling back to defaults
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	// Expand paths
	cfg.General.WorktreeDir = ExpandPath(cfg.General.WorktreeDir)
	cfg.General.DatabasePath = ExpandPath(cfg.General.DatabasePath)

	return cfg, nil
}

// ExpandPath expands ~ to the user's home directory
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// DefaultConfigPath returns the default config file location
func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "automaker", "config.toml")
}

// Addr returns the host:port the API server listens on
func (c *Config) Addr() string {
	return c.Server.Host + ":" + strconv.Itoa(c.Server.Port)
}
