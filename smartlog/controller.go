package smartlog

import (
	"strings"

	perrors "github.com/leeforge/extcore/errors"
	"github.com/leeforge/extcore/plugin"
)

// ErrNotLoaded is returned by Controller methods when the logging plugin
// is not registered.
var ErrNotLoaded = perrors.New(perrors.ErrorTypeNotFound, PluginName, "logging plugin not loaded")

// Registry looks up loaded plugins by name. *runtime.Manager satisfies it.
type Registry interface {
	Plugin(name string) (plugin.Plugin, bool)
}

// CategoryConfig describes how one category is filtered.
type CategoryConfig struct {
	Category    string `json:"category"`
	Enabled     bool   `json:"enabled"`
	MinSeverity string `json:"minSeverity"`
	// Explicit is false when the category falls back to the wildcard or
	// default rule.
	Explicit bool   `json:"explicit"`
	Rules    string `json:"rules"`
}

// Controller is the runtime control surface for the logging plugin. Each
// call resolves the plugin through the registry, forwards to its Engine
// and raises the matching logging.* notification.
type Controller struct {
	registry Registry
	host     *plugin.Host
}

// NewController creates a Controller. host may be nil, in which case no
// notifications are raised.
func NewController(registry Registry, host *plugin.Host) *Controller {
	return &Controller{registry: registry, host: host}
}

// Available reports whether the logging plugin is loaded.
func (c *Controller) Available() bool {
	_, err := c.engine()
	return err == nil
}

func (c *Controller) engine() (*Engine, error) {
	if c.registry == nil {
		return nil, ErrNotLoaded
	}
	p, ok := c.registry.Plugin(PluginName)
	if !ok {
		return nil, ErrNotLoaded
	}
	lp, ok := p.(*Plugin)
	if !ok {
		return nil, perrors.New(perrors.ErrorTypeContract, PluginName, "registered plugin is not the logging plugin")
	}
	return lp.Engine(), nil
}

func (c *Controller) notify(name string, data any) {
	c.host.Notify(name, PluginName, data)
}

// SetLogLevel sets the minimum severity of category. Unknown levels are
// ignored.
func (c *Controller) SetLogLevel(category, level string) error {
	e, err := c.engine()
	if err != nil {
		return err
	}
	e.SetLogLevel(category, level)
	c.notify(plugin.EventRulesChanged, e.Rules())
	return nil
}

// EnableCategory turns category on or off, keeping its severity.
func (c *Controller) EnableCategory(category string, enabled bool) error {
	e, err := c.engine()
	if err != nil {
		return err
	}
	e.EnableCategory(category, enabled)
	c.notify(plugin.EventRulesChanged, e.Rules())
	return nil
}

// DisableCategory is EnableCategory(category, false).
func (c *Controller) DisableCategory(category string) error {
	return c.EnableCategory(category, false)
}

// SetGlobalRules merges a rule string into the current rules.
func (c *Controller) SetGlobalRules(rules string) error {
	e, err := c.engine()
	if err != nil {
		return err
	}
	e.SetRules(rules)
	c.notify(plugin.EventRulesChanged, e.Rules())
	return nil
}

// CurrentRules renders the current rules, or "" when the plugin is absent.
func (c *Controller) CurrentRules() string {
	e, err := c.engine()
	if err != nil {
		return ""
	}
	return e.Rules()
}

func (c *Controller) EnableFileLogging(path string) error {
	e, err := c.engine()
	if err != nil {
		return err
	}
	if err := e.EnableFileLogging(path); err != nil {
		return perrors.Wrap(err, perrors.ErrorTypeResource, PluginName, "log file unavailable")
	}
	c.notify(plugin.EventFileChanged, true)
	return nil
}

func (c *Controller) DisableFileLogging() error {
	e, err := c.engine()
	if err != nil {
		return err
	}
	if err := e.DisableFileLogging(); err != nil {
		return perrors.Wrap(err, perrors.ErrorTypeResource, PluginName, "log file close failed")
	}
	c.notify(plugin.EventFileChanged, false)
	return nil
}

func (c *Controller) EnableConsoleLogging(enabled bool) error {
	e, err := c.engine()
	if err != nil {
		return err
	}
	e.EnableConsoleLogging(enabled)
	c.notify(plugin.EventConsoleChanged, enabled)
	return nil
}

func (c *Controller) SetJSONFormat(enabled bool) error {
	e, err := c.engine()
	if err != nil {
		return err
	}
	e.SetJSONFormat(enabled)
	c.notify(plugin.EventFormatChanged, enabled)
	return nil
}

// AvailableCategories lists the categories call sites can be classified
// into.
func (c *Controller) AvailableCategories() []string {
	if e, err := c.engine(); err == nil {
		return e.Mapping().Categories()
	}
	return DefaultMapping().Categories()
}

// CategoryConfig reports the effective rule for category.
func (c *Controller) CategoryConfig(category string) (CategoryConfig, error) {
	e, err := c.engine()
	if err != nil {
		return CategoryConfig{}, err
	}
	_, explicit := e.Rule(category)
	rule := e.EffectiveRule(category)
	return CategoryConfig{
		Category:    category,
		Enabled:     rule.Enabled,
		MinSeverity: rule.MinSeverity.String(),
		Explicit:    explicit,
		Rules:       e.Rules(),
	}, nil
}

// TestLog emits message through the engine under category at level.
// Empty arguments default to app.default, debug and "Test log message".
func (c *Controller) TestLog(category, level, message string) error {
	e, err := c.engine()
	if err != nil {
		return err
	}
	if strings.TrimSpace(category) == "" {
		category = DefaultCategory
	}
	if message == "" {
		message = "Test log message"
	}
	sev, _ := ParseSeverity(level)

	e.Logger().Named(category).Log(sev.Level(), message)
	return nil
}
