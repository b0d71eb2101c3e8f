// Package config loads botpanel settings from botpanel.toml and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"

	"github.com/steveyegge/botpanel/internal/botcli"
)

// FileName is the config file looked up in the working directory.
const FileName = "botpanel.toml"

// DefaultBotDirectory is used when neither the config file nor
// BOT_DIRECTORY names a bot.
const DefaultBotDirectory = "agile_bot/bots/story_bot"

// Config is the full botpanel configuration.
type Config struct {
	CLI    CLIConfig    `toml:"cli"`
	Bot    BotConfig    `toml:"bot"`
	Server ServerConfig `toml:"server"`
	Log    LogConfig    `toml:"log"`
	Chat   ChatConfig   `toml:"chat"`

	// Path is the file the config was loaded from, empty for defaults.
	Path string `toml:"-"`
}

// CLIConfig describes the bot CLI executable.
type CLIConfig struct {
	Command string            `toml:"command"`
	Args    []string          `toml:"args"`
	Env     map[string]string `toml:"env"`
}

// BotConfig selects the bot.
type BotConfig struct {
	Directory string `toml:"directory"`
	BotsRoot  string `toml:"bots_root"`
}

// ServerConfig configures the web host.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
	Open bool   `toml:"open"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level      string `toml:"level"`
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
}

// ChatConfig configures where "send to chat" delivers instructions.
type ChatConfig struct {
	// Command receives the text on stdin. Empty means the chat message is
	// only echoed back to the panel.
	Command string `toml:"command"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		CLI: CLIConfig{
			Command: "python",
			Args:    []string{"-m", "agile_bot.cli"},
		},
		Bot: BotConfig{Directory: DefaultBotDirectory},
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8765,
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

// Load reads the config at path over the defaults, then applies the
// environment. An empty path means FileName in the working directory,
// which may be absent.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = FileName
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		cfg.Path = path
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv applies environment overrides.
func (c *Config) ApplyEnv() {
	if dir := os.Getenv(EnvBotDirectory); dir != "" {
		c.Bot.Directory = dir
	}
	if lvl := os.Getenv(EnvLogLevel); lvl != "" {
		c.Log.Level = lvl
	}
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.CLI.Command) == "" {
		return fmt.Errorf("[cli] command is empty")
	}
	if c.Bot.Directory == "" {
		return fmt.Errorf("[bot] directory is empty")
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("[server] port %d out of range", c.Server.Port)
	}
	if _, err := zap.ParseAtomicLevel(c.Log.Level); err != nil {
		return fmt.Errorf("[log] level: %w", err)
	}
	return nil
}

// BotDir returns the absolute active bot directory.
func (c *Config) BotDir() (string, error) {
	return filepath.Abs(c.Bot.Directory)
}

// BotName is the active bot's directory name.
func (c *Config) BotName() string {
	return filepath.Base(filepath.Clean(c.Bot.Directory))
}

// BotsRoot returns the directory holding all bots: [bot] bots_root, or the
// parent of the active bot directory.
func (c *Config) BotsRoot() (string, error) {
	if c.Bot.BotsRoot != "" {
		return filepath.Abs(c.Bot.BotsRoot)
	}
	dir, err := c.BotDir()
	if err != nil {
		return "", err
	}
	return filepath.Dir(dir), nil
}

// ListBots returns the names of the bot directories under root, sorted.
// Hidden directories are skipped.
func ListBots(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("listing bots: %w", err)
	}
	var bots []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			bots = append(bots, e.Name())
		}
	}
	sort.Strings(bots)
	return bots, nil
}

// SessionConfig returns the botcli configuration for a bot directory.
func (c *Config) SessionConfig(botDir string, log *zap.Logger) botcli.Config {
	return botcli.Config{
		Command: c.CLI.Command,
		Args:    append([]string(nil), c.CLI.Args...),
		Dir:     botDir,
		Env:     EnvToSlice(c.BotEnv(botDir)),
		Logger:  log,
	}
}

// Addr is the listen address of the web host.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
