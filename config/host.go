package config

import (
	"github.com/go-playground/validator/v10"
	"github.com/leeforge/extcore/logging"
	"github.com/leeforge/extcore/plugin"
)

// HostConfig is everything the extcore host reads at startup.
type HostConfig struct {
	PluginDir      string `mapstructure:"pluginDir" json:"pluginDir" yaml:"pluginDir"`
	LogRules       string `mapstructure:"logRules" json:"logRules" yaml:"logRules"`
	LogFile        string `mapstructure:"logFile" json:"logFile" yaml:"logFile"`
	ConsoleLogging bool   `mapstructure:"consoleLogging" json:"consoleLogging" yaml:"consoleLogging"`
	JSONFormat     bool   `mapstructure:"jsonFormat" json:"jsonFormat" yaml:"jsonFormat"`

	Admin AdminConfig    `mapstructure:"admin" json:"admin" yaml:"admin"`
	Log   logging.Config `mapstructure:"log" json:"log" yaml:"log"`
}

// AdminConfig configures the diagnostics panel.
type AdminConfig struct {
	Enabled bool   `mapstructure:"enabled" json:"enabled" yaml:"enabled"`
	Addr    string `mapstructure:"addr" json:"addr" yaml:"addr" default:"127.0.0.1:7070" validate:"required,hostname_port"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func (h *HostConfig) Validate() error {
	return validate.Struct(h)
}

// HostDefaults seeds the keys that must exist before environment overrides
// are applied. Booleans that default to true live here rather than in
// struct tags, which cannot tell false from unset.
func HostDefaults() map[string]any {
	return map[string]any{
		plugin.KeyPluginDir:      "",
		plugin.KeyLogRules:       "",
		plugin.KeyLogFile:        "",
		plugin.KeyConsoleLogging: true,
		plugin.KeyJSONFormat:     false,
		"admin.enabled":          false,
		"admin.addr":             "127.0.0.1:7070",
		"log.level":              "info",
		"log.format":             "console",
		"log.log-in-terminal":    true,
		"log.log-in-file":        false,
		"log.show-line-number":   true,
	}
}

// LoadHost reads the host config with HostDefaults applied. The returned
// Config is kept for Watch and Reload.
func LoadHost(opts ConfigOptions) (*HostConfig, *Config, error) {
	if opts.Defaults == nil {
		opts.Defaults = HostDefaults()
	}
	c, err := NewConfig(opts)
	if err != nil {
		return nil, nil, err
	}
	host, err := c.Host()
	if err != nil {
		return nil, nil, err
	}
	return host, c, nil
}

// Host binds a fresh HostConfig from the current settings.
func (c *Config) Host() (*HostConfig, error) {
	var host HostConfig
	if err := c.BindWithDefaults(&host); err != nil {
		return nil, err
	}
	return &host, nil
}

// Bootstrap renders the keys handed to the plugin loader and to every
// plugin's Initialize.
func (h *HostConfig) Bootstrap() map[string]any {
	return map[string]any{
		plugin.KeyPluginDir:      h.PluginDir,
		plugin.KeyLogRules:       h.LogRules,
		plugin.KeyLogFile:        h.LogFile,
		plugin.KeyConsoleLogging: h.ConsoleLogging,
		plugin.KeyJSONFormat:     h.JSONFormat,
	}
}
