// Package config provides YAML-based configuration loading for Shopflow.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level Shopflow configuration, loaded from config.yaml.
type Config struct {
	Shop      string          `yaml:"shop"`
	Database  DatabaseConfig  `yaml:"database"`
	Server    ServerConfig    `yaml:"server"`
	Roles     map[string]string `yaml:"roles"`
	Broadcast BroadcastConfig `yaml:"broadcast"`
	AI        AIConfig        `yaml:"ai"`
	Calendar  CalendarConfig  `yaml:"calendar"`
}

// DatabaseConfig selects the system of record. When Host is set the shop
// runs against a remote MySQL backend; otherwise Path names the local
// sqlite fallback file.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	Path     string `yaml:"path"`
}

// Remote reports whether a remote backend is configured.
func (d DatabaseConfig) Remote() bool { return d.Host != "" }

// ServerConfig holds the board server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// BroadcastConfig wires the shop-wide broadcast channel mirrors.
type BroadcastConfig struct {
	SlackToken     string `yaml:"slack_token"`
	SlackChannel   string `yaml:"slack_channel"`
	DiscordToken   string `yaml:"discord_token"`
	DiscordChannel string `yaml:"discord_channel"`
}

// AIConfig points at the VIN-decode and diagnostic advice service.
type AIConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
}

// CalendarConfig controls the zero-touch sweep schedule.
type CalendarConfig struct {
	SyncCron string `yaml:"sync_cron"`
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Database.Port == 0 {
		c.Database.Port = 3306
	}
	if c.Database.User == "" {
		c.Database.User = "root"
	}
	if c.Database.Database == "" && c.Shop != "" {
		c.Database.Database = "shopflow_" + strings.ToLower(c.Shop)
	}
	if c.Database.Path == "" {
		c.Database.Path = "shopflow.db"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Calendar.SyncCron == "" {
		c.Calendar.SyncCron = "0 6 * * *"
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	if c.Shop == "" {
		errs = append(errs, "shop is required")
	}
	valid := map[string]bool{"OWNER": true, "ADVISOR": true, "FOREMAN": true}
	for identity, role := range c.Roles {
		if !valid[role] {
			errs = append(errs, fmt.Sprintf("roles[%s]: unknown role %q", identity, role))
		}
	}
	if (c.Broadcast.SlackToken == "") != (c.Broadcast.SlackChannel == "") {
		errs = append(errs, "broadcast: slack_token and slack_channel must be set together")
	}
	if (c.Broadcast.DiscordToken == "") != (c.Broadcast.DiscordChannel == "") {
		errs = append(errs, "broadcast: discord_token and discord_channel must be set together")
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// ResolveRole maps an authenticated identity to its shop role. Empty
// string means the identity has no role and every capability is denied.
func (c *Config) ResolveRole(identity string) string {
	return c.Roles[identity]
}
