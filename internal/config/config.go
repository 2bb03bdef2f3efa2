// Package config loads and writes the bot's config.yaml. The setup
// binary writes this file; the main binary reads it, with CLI flags
// taking precedence over file values.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/Dimah98/CBot/internal/bot"
	"github.com/Dimah98/CBot/internal/farm"
)

// DefaultGameURL is where the game client lives; the browser session
// navigates here before any clicking.
const DefaultGameURL = "https://sunflower-land.com/play/"

type Config struct {
	Farm    FarmConfig    `yaml:"farm"`
	Browser BrowserConfig `yaml:"browser"`
	Store   StoreConfig   `yaml:"store"`
	History HistoryConfig `yaml:"history"`
}

type FarmConfig struct {
	ID      string `yaml:"id"`
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

type BrowserConfig struct {
	ProfileDir string `yaml:"profile_dir"`
	GameURL    string `yaml:"game_url"`
	DebugPort  int    `yaml:"debug_port"`
	ChromePath string `yaml:"chrome_path"`
}

type StoreConfig struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
}

type HistoryConfig struct {
	// Path of the sqlite database; empty disables run history.
	Path string `yaml:"path"`
}

func Defaults() Config {
	var c Config
	c.Farm.BaseURL = farm.DefaultBaseURL
	c.Browser.GameURL = DefaultGameURL
	c.Browser.DebugPort = 9222
	return c
}

// Load reads the config file and fills unset ambient fields with
// defaults. Credentials and coordinates are validated at run time,
// not here, so setup can write partial files.
func Load(path string) (Config, error) {
	c := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return c, fmt.Errorf("config.yaml: %w", err)
	}
	if c.Farm.BaseURL == "" {
		c.Farm.BaseURL = farm.DefaultBaseURL
	}
	if c.Browser.GameURL == "" {
		c.Browser.GameURL = DefaultGameURL
	}
	if c.Browser.DebugPort == 0 {
		c.Browser.DebugPort = 9222
	}
	return c, nil
}

// Save writes the config file, creating parent directories as needed.
func Save(path string, c Config) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	raw, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}

// Validate checks the fields a run cannot start without.
func (c Config) Validate() error {
	if c.Farm.ID == "" {
		return fmt.Errorf("farm id is required")
	}
	if c.Farm.APIKey == "" {
		return fmt.Errorf("farm api key is required")
	}
	if c.Browser.ProfileDir == "" {
		return fmt.Errorf("browser profile dir is required")
	}
	return nil
}

// StoreCoordinate converts the configured store position.
func (c Config) StoreCoordinate() bot.Coordinate {
	return bot.Coordinate{X: c.Store.X, Y: c.Store.Y}
}
