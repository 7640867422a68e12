// Package config provides YAML-based configuration loading for Ratchet.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level Ratchet configuration, loaded from ratchet.yaml.
type Config struct {
	Owner     string          `yaml:"owner"`
	Database  DatabaseConfig  `yaml:"database"`
	GitHub    GitHubConfig    `yaml:"github"`
	Ratchet   RatchetConfig   `yaml:"ratchet"`
	Agent     AgentConfig     `yaml:"agent"`
	Notify    NotifyConfig    `yaml:"notify"`
	Dashboard DashboardConfig `yaml:"dashboard"`
	Digest    DigestConfig    `yaml:"digest"`
	Projects  []ProjectConfig `yaml:"projects"`
}

// DatabaseConfig selects and configures the storage backend.
type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // sqlite (default) or mysql
	Path     string `yaml:"path"`   // sqlite file
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

// GitHubConfig holds code-host API settings. The token falls back to the
// GITHUB_TOKEN environment variable when unset.
type GitHubConfig struct {
	Token        string `yaml:"token"`
	APITimeoutMs int    `yaml:"api_timeout_ms"`
}

// RatchetConfig holds the scheduler knobs.
type RatchetConfig struct {
	IntervalMs             int `yaml:"interval_ms"`
	Concurrency            int `yaml:"concurrency"`
	MaxFixerSessions       int `yaml:"max_fixer_sessions"`
	NotificationCooldownMs int `yaml:"notification_cooldown_ms"`
	SessionIdleTimeoutMs   int `yaml:"session_idle_timeout_ms"`
}

// Interval returns the poll cadence as a Duration.
func (r RatchetConfig) Interval() time.Duration {
	return time.Duration(r.IntervalMs) * time.Millisecond
}

// NotificationCooldown returns the repeat-notification cooldown as a Duration.
func (r RatchetConfig) NotificationCooldown() time.Duration {
	return time.Duration(r.NotificationCooldownMs) * time.Millisecond
}

// SessionIdleTimeout returns the stale-session heartbeat timeout as a Duration.
func (r RatchetConfig) SessionIdleTimeout() time.Duration {
	return time.Duration(r.SessionIdleTimeoutMs) * time.Millisecond
}

// AgentConfig configures the coding-agent CLI used for fixer sessions.
type AgentConfig struct {
	Binary string `yaml:"binary"`
}

// NotifyConfig configures human-facing notification sinks.
type NotifyConfig struct {
	Command string              `yaml:"command"` // shell template, e.g. notify-send
	Slack   SlackNotifyConfig   `yaml:"slack"`
	Discord DiscordNotifyConfig `yaml:"discord"`
}

// SlackNotifyConfig configures the Slack sink. Token falls back to
// SLACK_BOT_TOKEN.
type SlackNotifyConfig struct {
	Token   string `yaml:"token"`
	Channel string `yaml:"channel"`
}

// DiscordNotifyConfig configures the Discord sink. Token falls back to
// DISCORD_BOT_TOKEN.
type DiscordNotifyConfig struct {
	Token   string `yaml:"token"`
	Channel string `yaml:"channel"`
}

// DashboardConfig configures the read-only status API.
type DashboardConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// DigestConfig configures the scheduled audit digest.
type DigestConfig struct {
	Enabled bool   `yaml:"enabled"`
	Cron    string `yaml:"cron"` // 5-field cron expression
}

// ProjectConfig defines a repository that workspaces attach to.
type ProjectConfig struct {
	Name          string `yaml:"name"`
	Owner         string `yaml:"owner"`
	Repo          string `yaml:"repo"`
	Path          string `yaml:"path"`
	DefaultBranch string `yaml:"default_branch"`
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
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.Path == "" && c.Owner != "" {
		c.Database.Path = "ratchet_" + c.Owner + ".db"
	}
	if c.Database.Host == "" {
		c.Database.Host = "127.0.0.1"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 3306
	}
	if c.Database.Name == "" && c.Owner != "" {
		c.Database.Name = "ratchet_" + c.Owner
	}
	if c.GitHub.Token == "" {
		c.GitHub.Token = os.Getenv("GITHUB_TOKEN")
	}
	if c.GitHub.APITimeoutMs == 0 {
		c.GitHub.APITimeoutMs = 10000
	}
	if c.Ratchet.IntervalMs == 0 {
		c.Ratchet.IntervalMs = 60000
	}
	if c.Ratchet.Concurrency == 0 {
		c.Ratchet.Concurrency = 3
	}
	if c.Ratchet.MaxFixerSessions == 0 {
		c.Ratchet.MaxFixerSessions = 1
	}
	if c.Ratchet.NotificationCooldownMs == 0 {
		c.Ratchet.NotificationCooldownMs = 30 * 60 * 1000
	}
	if c.Ratchet.SessionIdleTimeoutMs == 0 {
		c.Ratchet.SessionIdleTimeoutMs = 15 * 60 * 1000
	}
	if c.Agent.Binary == "" {
		c.Agent.Binary = "claude"
	}
	if c.Notify.Slack.Token == "" {
		c.Notify.Slack.Token = os.Getenv("SLACK_BOT_TOKEN")
	}
	if c.Notify.Discord.Token == "" {
		c.Notify.Discord.Token = os.Getenv("DISCORD_BOT_TOKEN")
	}
	if c.Dashboard.Port == 0 {
		c.Dashboard.Port = 8080
	}
	if c.Digest.Cron == "" {
		c.Digest.Cron = "0 9 * * *"
	}
	for i := range c.Projects {
		if c.Projects[i].DefaultBranch == "" {
			c.Projects[i].DefaultBranch = "main"
		}
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	if c.Owner == "" {
		errs = append(errs, "owner is required")
	}
	switch c.Database.Driver {
	case "sqlite", "mysql":
	default:
		errs = append(errs, fmt.Sprintf("database.driver %q is not supported (sqlite, mysql)", c.Database.Driver))
	}
	if c.Ratchet.Concurrency < 1 {
		errs = append(errs, "ratchet.concurrency must be at least 1")
	}
	if c.Ratchet.MaxFixerSessions < 1 {
		errs = append(errs, "ratchet.max_fixer_sessions must be at least 1")
	}
	for i, p := range c.Projects {
		if p.Name == "" {
			errs = append(errs, fmt.Sprintf("projects[%d].name is required", i))
		}
		if p.Owner == "" || p.Repo == "" {
			errs = append(errs, fmt.Sprintf("projects[%d] owner and repo are required", i))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
