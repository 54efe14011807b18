// Copyright 2026 The Roompack Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roompack/roompack/lib/ref"
)

// Config is the master configuration for roompack.
type Config struct {
	// Matrix configures the homeserver connection.
	Matrix MatrixConfig `yaml:"matrix"`

	// Bot configures the in-room command interface.
	Bot BotConfig `yaml:"bot"`

	// Rollout configures the bulk rollout pass.
	Rollout RolloutConfig `yaml:"rollout"`

	// Control configures the local admin socket.
	Control ControlConfig `yaml:"control"`

	// Packs defines presets inline in the config file.
	Packs map[string]PackConfig `yaml:"packs"`

	// PresetFiles lists additional preset library files (JSONC).
	// Presets from files must not collide with inline pack names.
	PresetFiles []string `yaml:"preset_files"`
}

// MatrixConfig configures the homeserver connection.
type MatrixConfig struct {
	// HomeserverURL is the base URL of the homeserver
	// (e.g., https://matrix.example.org).
	HomeserverURL string `yaml:"homeserver_url"`

	// UserID is the fully-qualified Matrix user the bot acts as.
	UserID string `yaml:"user_id"`

	// AccessTokenFile is the path to a file holding the access
	// token. Use "-" to read the token from stdin.
	AccessTokenFile string `yaml:"access_token_file"`

	// PasswordFile is the path to a file holding the account
	// password. When set, the daemon performs a password login at
	// startup instead of reusing a long-lived token. Exactly one of
	// AccessTokenFile and PasswordFile must be set.
	PasswordFile string `yaml:"password_file"`
}

// BotConfig configures the in-room command interface.
type BotConfig struct {
	// CommandPrefix introduces bot commands in room messages.
	// Default: "!"
	CommandPrefix string `yaml:"command_prefix"`

	// AllowedUsers restricts who may issue commands. Empty means
	// every user in a shared room is allowed.
	AllowedUsers []string `yaml:"allowed_users"`
}

// RolloutConfig configures the bulk rollout pass.
type RolloutConfig struct {
	// Targets are the rooms a rollout visits, in order. Each entry
	// is a room alias (#name:server) or a room ID (!id:server).
	Targets []string `yaml:"targets"`

	// Delay is the pause between consecutive targets, as a Go
	// duration string. Default: 2s
	Delay string `yaml:"delay"`
}

// ControlConfig configures the local admin socket.
type ControlConfig struct {
	// SocketPath is the Unix socket the daemon listens on for
	// roompackctl. Empty disables the control socket.
	SocketPath string `yaml:"socket_path"`
}

// PackConfig is one inline preset definition. The emotes mapping is
// kept as a raw YAML node so that entry order — which drives warning
// order and listing output — survives decoding.
type PackConfig struct {
	// DisplayName names the pack in clients. Optional; an unnamed
	// pack is rolled out without idempotency detection.
	DisplayName string `yaml:"display_name"`

	// Attributes are additional pack metadata fields carried through
	// to the state event unmodified.
	Attributes map[string]any `yaml:"attributes"`

	// Emotes maps shortcodes to entry objects with a "url" key.
	Emotes yaml.Node `yaml:"emotes"`
}

// Default returns the default configuration. These defaults are a base
// before loading the config file, not a substitute for it.
func Default() *Config {
	return &Config{
		Bot: BotConfig{
			CommandPrefix: "!",
		},
		Rollout: RolloutConfig{
			Delay: "2s",
		},
	}
}

// Load loads configuration from the file named by the ROOMPACK_CONFIG
// environment variable. There are no fallbacks or automatic discovery;
// if the variable is not set, this fails.
func Load() (*Config, error) {
	configPath := os.Getenv("ROOMPACK_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("ROOMPACK_CONFIG environment variable not set; " +
			"set it to the path of your roompack.yaml config file, or use --config flag")
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path. Environment
// variables do not override config values; the only expansion performed
// is ${HOME} and similar path variables for portability.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	cfg.expandVariables()
	return cfg, nil
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}

	c.Matrix.AccessTokenFile = expandVars(c.Matrix.AccessTokenFile, vars)
	c.Matrix.PasswordFile = expandVars(c.Matrix.PasswordFile, vars)
	c.Control.SocketPath = expandVars(c.Control.SocketPath, vars)
	for i, path := range c.PresetFiles {
		c.PresetFiles[i] = expandVars(path, vars)
	}
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors. All problems are
// reported together rather than one at a time.
func (c *Config) Validate() error {
	var errs []error

	if c.Matrix.HomeserverURL == "" {
		errs = append(errs, fmt.Errorf("matrix.homeserver_url is required"))
	} else if _, err := url.Parse(c.Matrix.HomeserverURL); err != nil {
		errs = append(errs, fmt.Errorf("matrix.homeserver_url: %w", err))
	}

	if c.Matrix.UserID == "" {
		errs = append(errs, fmt.Errorf("matrix.user_id is required"))
	} else if _, err := ref.ParseUserID(c.Matrix.UserID); err != nil {
		errs = append(errs, fmt.Errorf("matrix.user_id: %w", err))
	}

	switch {
	case c.Matrix.AccessTokenFile == "" && c.Matrix.PasswordFile == "":
		errs = append(errs, fmt.Errorf("one of matrix.access_token_file or matrix.password_file is required"))
	case c.Matrix.AccessTokenFile != "" && c.Matrix.PasswordFile != "":
		errs = append(errs, fmt.Errorf("matrix.access_token_file and matrix.password_file are mutually exclusive"))
	}

	if c.Bot.CommandPrefix == "" {
		errs = append(errs, fmt.Errorf("bot.command_prefix is required"))
	}
	for _, user := range c.Bot.AllowedUsers {
		if _, err := ref.ParseUserID(user); err != nil {
			errs = append(errs, fmt.Errorf("bot.allowed_users: %w", err))
		}
	}

	if _, err := c.Rollout.DelayDuration(); err != nil {
		errs = append(errs, fmt.Errorf("rollout.delay: %w", err))
	}
	for _, target := range c.Rollout.Targets {
		if target == "" || (target[0] != '#' && target[0] != '!') {
			errs = append(errs, fmt.Errorf("rollout.targets: %q is neither an alias nor a room ID", target))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// DelayDuration parses the inter-target delay. A negative delay is an
// error; zero disables pacing.
func (r *RolloutConfig) DelayDuration() (time.Duration, error) {
	if r.Delay == "" {
		return 0, nil
	}
	delay, err := time.ParseDuration(r.Delay)
	if err != nil {
		return 0, err
	}
	if delay < 0 {
		return 0, fmt.Errorf("delay %s is negative", r.Delay)
	}
	return delay, nil
}

// AllowedUserIDs returns bot.allowed_users as parsed user IDs.
func (b *BotConfig) AllowedUserIDs() ([]ref.UserID, error) {
	users := make([]ref.UserID, 0, len(b.AllowedUsers))
	for _, raw := range b.AllowedUsers {
		user, err := ref.ParseUserID(raw)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}
