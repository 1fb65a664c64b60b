package smartlog

import (
	perrors "github.com/leeforge/extcore/errors"
	"github.com/leeforge/extcore/plugin"
	"go.uber.org/zap"
)

// Identity of the logging plugin.
const (
	PluginName        = "SmartLogPlugin"
	PluginVersion     = "1.0.0"
	PluginDescription = "Intelligent logging system with automatic categorization"
	PluginAuthor      = "Logging System Team"
)

// Plugin hosts an Engine. Initializing it applies the logging keys of the
// bootstrap configuration and installs the engine as the global sink;
// shutting it down restores the previous sink and closes the log file.
type Plugin struct {
	*plugin.Base
	engine *Engine
}

// New creates the logging plugin around a fresh Engine.
func New(opts Options) *Plugin {
	p := &Plugin{engine: NewEngine(opts)}
	p.Base = plugin.NewBase(plugin.Metadata{
		Name:        PluginName,
		Version:     PluginVersion,
		Description: PluginDescription,
		Author:      PluginAuthor,
	}, plugin.Hooks{
		OnInitialize:  p.onInitialize,
		OnShutdown:    p.onShutdown,
		OnSetSettings: p.onSetSettings,
		OnGetSettings: p.onGetSettings,
	})
	return p
}

// NewPlugin is the entry point used by the plugin loader.
func NewPlugin() plugin.Plugin {
	return New(Options{})
}

// Engine returns the plugin's engine.
func (p *Plugin) Engine() *Engine {
	return p.engine
}

// onInitialize never fails: a log file that cannot be opened is reported
// and the engine is installed without file output.
func (p *Plugin) onInitialize(cfg plugin.Config) error {
	if err := p.apply(cfg); err != nil {
		p.Host().Logger.Warn("logging configuration partially applied",
			zap.String("plugin", PluginName), zap.Error(err))
	}
	p.engine.Install()
	return nil
}

func (p *Plugin) onShutdown() error {
	return p.engine.Close()
}

func (p *Plugin) onSetSettings(settings map[string]any) error {
	return p.apply(plugin.NewMapConfig(settings))
}

func (p *Plugin) onGetSettings() map[string]any {
	s := p.engine.Snapshot()
	return map[string]any{
		plugin.KeyLogRules:       s.LogRules,
		plugin.KeyLogFile:        s.LogFile,
		plugin.KeyConsoleLogging: s.ConsoleLogging,
		plugin.KeyJSONFormat:     s.JSONFormat,
	}
}

// apply honors the recognized logging keys present in cfg. The log file
// is handled last; an empty logFile turns file output off.
func (p *Plugin) apply(cfg plugin.Config) error {
	if cfg.Has(plugin.KeyLogRules) {
		p.engine.SetRules(cfg.GetString(plugin.KeyLogRules, ""))
	}
	if cfg.Has(plugin.KeyConsoleLogging) {
		p.engine.EnableConsoleLogging(cfg.GetBool(plugin.KeyConsoleLogging, true))
	}
	if cfg.Has(plugin.KeyJSONFormat) {
		p.engine.SetJSONFormat(cfg.GetBool(plugin.KeyJSONFormat, false))
	}
	if !cfg.Has(plugin.KeyLogFile) {
		return nil
	}

	path := cfg.GetString(plugin.KeyLogFile, "")
	var err error
	if path == "" {
		err = p.engine.DisableFileLogging()
	} else {
		err = p.engine.EnableFileLogging(path)
	}
	if err != nil {
		return perrors.Wrap(err, perrors.ErrorTypeResource, PluginName, "log file unavailable")
	}
	return nil
}

var _ plugin.SettingsProvider = (*Plugin)(nil)
