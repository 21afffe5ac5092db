package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/iancoleman/strcase"
	"github.com/mcncl/rnbdview/internal/projector"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "RNBDVIEW_"

// Display formats understood by the renderer.
const (
	FormatTree  = "tree"
	FormatPaths = "paths"
)

// DefaultDumpCommand is the local command that prints the full dump.
const DefaultDumpCommand = "rnbd dump json all"

// Config represents the complete configuration for rnbdview
type Config struct {
	Projection ProjectionConfig `yaml:"projection"`
	Display    DisplayConfig    `yaml:"display"`
	Remote     RemoteConfig     `yaml:"remote"`
	Server     ServerConfig     `yaml:"server"`
	Dev        DevConfig        `yaml:"dev"`
}

// ProjectionConfig controls how dumps are turned into trees
type ProjectionConfig struct {
	OnError  string `yaml:"on_error"` // abort or placeholder
	MaxDepth int    `yaml:"max_depth"`
}

// DisplayConfig controls text output
type DisplayConfig struct {
	Format string `yaml:"format"`
	Color  bool   `yaml:"color"`
}

// RemoteConfig controls the ping probe and the ssh fetch
type RemoteConfig struct {
	SSHCommand  string        `yaml:"ssh_command"`
	SSHOptions  []string      `yaml:"ssh_options"`
	PingCommand string        `yaml:"ping_command"`
	DumpCommand string        `yaml:"dump_command"`
	Timeout     time.Duration `yaml:"timeout"`
}

// ServerConfig controls the HTTP passthrough endpoint
type ServerConfig struct {
	Bind           string        `yaml:"bind"`
	Port           int           `yaml:"port"`
	DumpCommand    string        `yaml:"dump_command"`
	Compress       bool          `yaml:"compress"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	CommandTimeout time.Duration `yaml:"command_timeout"`
}

// DevConfig contains development/debug options
type DevConfig struct {
	Debug bool `yaml:"debug"`
}

// NewConfig creates a new Config with default values
func NewConfig() *Config {
	return &Config{
		Projection: ProjectionConfig{
			OnError:  string(projector.Abort),
			MaxDepth: projector.DefaultMaxDepth,
		},
		Display: DisplayConfig{
			Format: FormatTree,
			Color:  true,
		},
		Remote: RemoteConfig{
			SSHCommand:  "ssh",
			SSHOptions:  []string{"-o", "BatchMode=yes"},
			PingCommand: "ping",
			DumpCommand: DefaultDumpCommand,
			Timeout:     10 * time.Second,
		},
		Server: ServerConfig{
			Bind:           "",
			Port:           8000,
			DumpCommand:    DefaultDumpCommand,
			Compress:       false,
			ReadTimeout:    10 * time.Second,
			CommandTimeout: 30 * time.Second,
		},
		Dev: DevConfig{
			Debug: false,
		},
	}
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Start with defaults
	cfg := NewConfig()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Load builds the effective configuration: defaults, then the file at path
// (if any), then environment overrides read through lookup.
func Load(path string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := NewConfig()
	if path != "" {
		fileConfig, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = fileConfig
	}

	if lookup != nil {
		if err := cfg.ApplyEnv(lookup); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FindConfigFile searches for a config file in current directory and parents
func FindConfigFile() string {
	configNames := []string{".rnbdview.yml", ".rnbdview.yaml", "rnbdview.yml", "rnbdview.yaml"}

	currentDir, err := os.Getwd()
	if err != nil {
		return ""
	}

	// Search up the directory tree
	for {
		for _, name := range configNames {
			configPath := filepath.Join(currentDir, name)
			if _, err := os.Stat(configPath); err == nil {
				return configPath
			}
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			// Reached root directory
			break
		}
		currentDir = parentDir
	}

	return ""
}

// Validate checks that settings hold usable values
func (c *Config) Validate() error {
	if _, err := projector.ParseErrorPolicy(c.Projection.OnError); err != nil {
		return fmt.Errorf("invalid projection.on_error: %w", err)
	}
	if c.Projection.MaxDepth < 0 {
		return fmt.Errorf("invalid projection.max_depth %d: must not be negative", c.Projection.MaxDepth)
	}
	switch c.Display.Format {
	case FormatTree, FormatPaths:
	default:
		return fmt.Errorf("invalid display.format %q (want %q or %q)", c.Display.Format, FormatTree, FormatPaths)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	if strings.TrimSpace(c.Server.DumpCommand) == "" {
		return fmt.Errorf("server.dump_command must not be empty")
	}
	if strings.TrimSpace(c.Remote.DumpCommand) == "" {
		return fmt.Errorf("remote.dump_command must not be empty")
	}
	return nil
}

// ErrorPolicy returns the parsed projection.on_error setting.
func (c *Config) ErrorPolicy() projector.ErrorPolicy {
	policy, err := projector.ParseErrorPolicy(c.Projection.OnError)
	if err != nil {
		return projector.Abort
	}
	return policy
}

// setting is a config value that can be overridden from the environment.
type setting struct {
	key string
	set func(c *Config, value string) error
}

var settings = []setting{
	{"projection.on_error", func(c *Config, v string) error { c.Projection.OnError = v; return nil }},
	{"projection.max_depth", func(c *Config, v string) error { return setInt(&c.Projection.MaxDepth, v) }},
	{"display.format", func(c *Config, v string) error { c.Display.Format = v; return nil }},
	{"display.color", func(c *Config, v string) error { return setBool(&c.Display.Color, v) }},
	{"remote.ssh_command", func(c *Config, v string) error { c.Remote.SSHCommand = v; return nil }},
	{"remote.ssh_options", func(c *Config, v string) error { c.Remote.SSHOptions = strings.Fields(v); return nil }},
	{"remote.ping_command", func(c *Config, v string) error { c.Remote.PingCommand = v; return nil }},
	{"remote.dump_command", func(c *Config, v string) error { c.Remote.DumpCommand = v; return nil }},
	{"remote.timeout", func(c *Config, v string) error { return setDuration(&c.Remote.Timeout, v) }},
	{"server.bind", func(c *Config, v string) error { c.Server.Bind = v; return nil }},
	{"server.port", func(c *Config, v string) error { return setInt(&c.Server.Port, v) }},
	{"server.dump_command", func(c *Config, v string) error { c.Server.DumpCommand = v; return nil }},
	{"server.compress", func(c *Config, v string) error { return setBool(&c.Server.Compress, v) }},
	{"server.read_timeout", func(c *Config, v string) error { return setDuration(&c.Server.ReadTimeout, v) }},
	{"server.command_timeout", func(c *Config, v string) error { return setDuration(&c.Server.CommandTimeout, v) }},
	{"dev.debug", func(c *Config, v string) error { return setBool(&c.Dev.Debug, v) }},
}

// EnvName returns the environment variable that overrides the setting at key,
// e.g. "server.dump_command" -> "RNBDVIEW_SERVER_DUMP_COMMAND".
func EnvName(key string) string {
	return EnvPrefix + strcase.ToScreamingSnake(strings.ReplaceAll(key, ".", " "))
}

// EnvNames lists every supported environment override.
func EnvNames() []string {
	names := make([]string, len(settings))
	for i, s := range settings {
		names[i] = EnvName(s.key)
	}
	return names
}

// ApplyEnv overrides settings from environment variables found by lookup
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	for _, s := range settings {
		name := EnvName(s.key)
		value, ok := lookup(name)
		if !ok {
			continue
		}
		if err := s.set(c, value); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}
	return nil
}

func setInt(dst *int, v string) error {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return err
	}
	*dst = n
	return nil
}

func setBool(dst *bool, v string) error {
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return err
	}
	*dst = b
	return nil
}

func setDuration(dst *time.Duration, v string) error {
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		return err
	}
	*dst = d
	return nil
}
