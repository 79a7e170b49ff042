// Package config loads the codeobjctl configuration file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/joshuapare/codeobjkit/internal/bridge"
	"github.com/joshuapare/codeobjkit/internal/logger"
	"github.com/joshuapare/codeobjkit/pkg/comgr"
	"github.com/joshuapare/codeobjkit/pkg/types"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "CODEOBJ_"

// Config is the top-level configuration.
type Config struct {
	Decode  DecodeConfig  `yaml:"decode"`
	Logging LoggingConfig `yaml:"logging"`
	Bridge  BridgeConfig  `yaml:"bridge"`
}

// DecodeConfig mirrors types.OpenOptions.
type DecodeConfig struct {
	Format             string `yaml:"format"` // "", elf, msgpack or yaml
	MaxStringLen       int    `yaml:"max_string_len"`
	MaxEntries         int    `yaml:"max_entries"`
	LegacyRegisterSlot bool   `yaml:"legacy_register_slot"`
}

// LoggingConfig configures internal/logger.
type LoggingConfig struct {
	Enabled bool   `yaml:"enabled"`
	Level   string `yaml:"level"`
	Format  string `yaml:"format"`
	Dir     string `yaml:"dir"`
}

// BridgeConfig configures the external tools behind the assembly and compile
// chains.
type BridgeConfig struct {
	ISA              string              `yaml:"isa"`
	Language         string              `yaml:"language"`
	WorkingDirectory string              `yaml:"working_directory,omitempty"`
	Env              []string            `yaml:"env,omitempty"`
	Tools            map[string][]string `yaml:"tools,omitempty"` // action name -> argv template
}

// DefaultConfig returns the built-in configuration. No tools are configured.
func DefaultConfig() *Config {
	return &Config{
		Decode: DecodeConfig{
			MaxStringLen: types.DefaultMaxStringLen,
			MaxEntries:   types.DefaultMaxEntries,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Bridge: BridgeConfig{
			ISA:      "amdgcn-amd-amdhsa--gfx900",
			Language: types.LanguageOpenCL12.String(),
		},
	}
}

// DefaultPath is $XDG_CONFIG_HOME/codeobjctl/config.yaml, or the equivalent
// under the user's config directory.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "codeobjctl", "config.yaml")
}

// Load reads the configuration at path on top of the defaults and applies
// environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to path, creating parent directories.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv(EnvPrefix + "FORMAT"); v != "" {
		c.Decode.Format = v
	}
	if v := os.Getenv(EnvPrefix + "MAX_STRING_LEN"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sMAX_STRING_LEN: %w", EnvPrefix, err)
		}
		c.Decode.MaxStringLen = n
	}
	if v := os.Getenv(EnvPrefix + "MAX_ENTRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sMAX_ENTRIES: %w", EnvPrefix, err)
		}
		c.Decode.MaxEntries = n
	}
	if v := os.Getenv(EnvPrefix + "LEGACY_REGISTER_SLOT"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sLEGACY_REGISTER_SLOT: %w", EnvPrefix, err)
		}
		c.Decode.LegacyRegisterSlot = b
	}
	if v := os.Getenv(EnvPrefix + "LOG_LEVEL"); v != "" {
		c.Logging.Enabled = true
		c.Logging.Level = v
	}
	if v := os.Getenv(EnvPrefix + "LOG_DIR"); v != "" {
		c.Logging.Dir = v
	}
	if v := os.Getenv(EnvPrefix + "ISA"); v != "" {
		c.Bridge.ISA = v
	}
	return nil
}

// Validate checks enumerated fields and tool names.
func (c *Config) Validate() error {
	switch types.MetadataFormat(strings.ToLower(c.Decode.Format)) {
	case types.FormatAuto, types.FormatELF, types.FormatMsgPack, types.FormatYAML:
	default:
		return fmt.Errorf("decode.format: unknown format %q", c.Decode.Format)
	}
	if c.Decode.MaxStringLen < 0 || c.Decode.MaxEntries < 0 {
		return fmt.Errorf("decode limits must not be negative")
	}
	if _, err := types.ParseLanguage(c.Bridge.Language); err != nil {
		return fmt.Errorf("bridge.language: %w", err)
	}
	for name, argv := range c.Bridge.Tools {
		if _, err := comgr.ParseAction(name); err != nil {
			return fmt.Errorf("bridge.tools: %w", err)
		}
		if len(argv) == 0 {
			return fmt.Errorf("bridge.tools.%s: empty command", name)
		}
	}
	return nil
}

// OpenOptions converts the decode section.
func (c *Config) OpenOptions() types.OpenOptions {
	return types.OpenOptions{
		Format:             types.MetadataFormat(strings.ToLower(c.Decode.Format)),
		MaxStringLen:       c.Decode.MaxStringLen,
		MaxEntries:         c.Decode.MaxEntries,
		LegacyRegisterSlot: c.Decode.LegacyRegisterSlot,
	}
}

// LoggerOptions converts the logging section.
func (c *Config) LoggerOptions() logger.Options {
	return logger.Options{
		Enabled: c.Logging.Enabled,
		Level:   logger.ParseLevel(c.Logging.Level),
		Format:  c.Logging.Format,
		LogDir:  c.Logging.Dir,
	}
}

// Language returns the configured source language.
func (c *Config) Language() types.Language {
	l, err := types.ParseLanguage(c.Bridge.Language)
	if err != nil {
		return types.LanguageNone
	}
	return l
}

// Actor builds an ExecActor from the tool table. It returns nil when no tools
// are configured.
func (c *Config) Actor(log *slog.Logger) (*bridge.ExecActor, error) {
	if len(c.Bridge.Tools) == 0 {
		return nil, nil
	}
	tools := make(map[comgr.Action][]string, len(c.Bridge.Tools))
	for name, argv := range c.Bridge.Tools {
		action, err := comgr.ParseAction(name)
		if err != nil {
			return nil, fmt.Errorf("bridge.tools: %w", err)
		}
		tools[action] = append([]string(nil), argv...)
	}
	return &bridge.ExecActor{Tools: tools, Env: c.Bridge.Env, Log: log}, nil
}

// ToolNames lists the configured actions in sorted order.
func (c *Config) ToolNames() []string {
	names := make([]string, 0, len(c.Bridge.Tools))
	for name := range c.Bridge.Tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
