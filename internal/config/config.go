package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment overrides.
const (
	EnvDB     = "MOMENTUM_DB"
	EnvConfig = "MOMENTUM_CONFIG"
	EnvURL    = "MOMENTUM_URL"
)

// Coach personas understood by the reply collaborator.
const (
	PersonaSupportive = "supportive"
	PersonaStoic      = "stoic"
	PersonaDrill      = "drill"
	PersonaFriend     = "friend"
	PersonaAnalyst    = "analyst"
)

var personas = map[string]bool{
	PersonaSupportive: true,
	PersonaStoic:      true,
	PersonaDrill:      true,
	PersonaFriend:     true,
	PersonaAnalyst:    true,
}

// Config holds all momentum configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Energy    EnergyConfig    `yaml:"energy"`
	Analytics AnalyticsConfig `yaml:"analytics"`
	Coach     CoachConfig     `yaml:"coach"`
}

type ServerConfig struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// EnergyConfig sets the ledger amounts the engine applies.
type EnergyConfig struct {
	StartingBalance int64 `yaml:"starting_balance"`
	DailyBase       int64 `yaml:"daily_base"`
	DailyStreakCap  int64 `yaml:"daily_streak_cap"` // streak bonus ceiling on the daily credit

	// Impacts maps qualifying event types to their ledger amount.
	Impacts map[string]int64 `yaml:"impacts"`
}

type AnalyticsConfig struct {
	Timezone        string        `yaml:"timezone"` // IANA name used for local-hour risk rules
	RefreshInterval time.Duration `yaml:"refresh_interval"`
	Workers         int           `yaml:"workers"`
}

type CoachConfig struct {
	Persona string `yaml:"persona"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Bind: "127.0.0.1",
			Port: 37778,
		},
		Database: DatabaseConfig{
			Path: "", // resolved at runtime via store.DefaultDBPath()
		},
		Energy: EnergyConfig{
			StartingBalance: 50,
			DailyBase:       10,
			DailyStreakCap:  30,
			Impacts: map[string]int64{
				"relapse":         -50,
				"sexual_activity": 0,
				"achievement":     20,
				"sos_trigger":     -5,
			},
		},
		Analytics: AnalyticsConfig{
			Timezone:        "UTC",
			RefreshInterval: 15 * time.Minute,
			Workers:         4,
		},
		Coach: CoachConfig{
			Persona: PersonaSupportive,
		},
	}
}

// DefaultPath returns ~/.momentum/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".momentum", "config.yaml"), nil
}

// Load reads path over the defaults and applies environment overrides.
// An empty path falls back to $MOMENTUM_CONFIG, then DefaultPath. A missing
// file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	if path == "" {
		if p, err := DefaultPath(); err == nil {
			path = p
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if p := os.Getenv(EnvDB); p != "" {
		cfg.Database.Path = p
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if _, err := time.LoadLocation(c.Analytics.Timezone); err != nil {
		return fmt.Errorf("analytics.timezone: %w", err)
	}
	if c.Analytics.RefreshInterval < 0 {
		return fmt.Errorf("analytics.refresh_interval must not be negative")
	}
	if c.Analytics.Workers < 1 {
		return fmt.Errorf("analytics.workers must be at least 1")
	}
	if c.Energy.DailyStreakCap < 0 {
		return fmt.Errorf("energy.daily_streak_cap must not be negative")
	}
	if !personas[c.Coach.Persona] {
		return fmt.Errorf("coach.persona %q: want one of supportive, stoic, drill, friend, analyst", c.Coach.Persona)
	}
	return nil
}

// Location returns the configured analytics timezone, or UTC if it does not load.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Analytics.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ListenAddr returns the bind:port address string.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}

// ServerURL returns the base URL clients use to reach the server,
// honoring $MOMENTUM_URL.
func (c *Config) ServerURL() string {
	if u := os.Getenv(EnvURL); u != "" {
		return u
	}
	return "http://" + c.ListenAddr()
}
