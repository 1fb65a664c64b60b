package smartlog

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	perrors "github.com/leeforge/extcore/errors"
	"github.com/leeforge/extcore/plugin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type registry map[string]plugin.Plugin

func (r registry) Plugin(name string) (plugin.Plugin, bool) {
	p, ok := r[name]
	return p, ok
}

type recordingBus struct {
	mu     sync.Mutex
	events []plugin.Event
}

func (b *recordingBus) Publish(_ context.Context, e plugin.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
	return nil
}

func (b *recordingBus) Subscribe(string, plugin.EventHandler) plugin.Subscription { return nil }
func (b *recordingBus) Close() error                                               { return nil }

func (b *recordingBus) named(name string) []plugin.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []plugin.Event
	for _, e := range b.events {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}

func newTestController(t *testing.T) (*Controller, *Plugin, *syncBuffer, *recordingBus) {
	t.Helper()
	p, buf := newTestPlugin(t)
	bus := &recordingBus{}
	return NewController(registry{PluginName: p}, plugin.NewHost(nil, bus)), p, buf, bus
}

func TestController_NotLoaded(t *testing.T) {
	c := NewController(registry{}, nil)

	assert.False(t, c.Available())
	assert.True(t, perrors.Is(c.SetGlobalRules("*=false"), perrors.ErrNotFound))
	assert.ErrorIs(t, c.EnableConsoleLogging(true), ErrNotLoaded)
	assert.Empty(t, c.CurrentRules())
	assert.Equal(t, DefaultMapping().Categories(), c.AvailableCategories())

	_, err := c.CategoryConfig("app.ui")
	assert.ErrorIs(t, err, ErrNotLoaded)
	assert.ErrorIs(t, c.TestLog("app.ui", "info", "x"), ErrNotLoaded)
}

func TestController_WrongPluginType(t *testing.T) {
	c := NewController(registry{PluginName: plugin.NewBase(plugin.Metadata{Name: PluginName}, plugin.Hooks{})}, nil)

	err := c.SetJSONFormat(true)
	assert.True(t, perrors.Is(err, perrors.ErrContract))
}

func TestController_RuleChanges(t *testing.T) {
	c, _, _, bus := newTestController(t)

	require.NoError(t, c.SetLogLevel("app.ui", "warning"))
	require.NoError(t, c.DisableCategory("app.network"))
	require.NoError(t, c.SetGlobalRules("*=critical"))

	want := "*=critical; app.network=false; app.ui=warning"
	assert.Equal(t, want, c.CurrentRules())

	events := bus.named(plugin.EventRulesChanged)
	require.Len(t, events, 3)
	assert.Equal(t, want, events[2].Data)
	assert.Equal(t, PluginName, events[2].Source)

	require.NoError(t, c.EnableCategory("app.network", true))
	assert.Equal(t, "*=critical; app.network; app.ui=warning", c.CurrentRules())
}

func TestController_CategoryConfig(t *testing.T) {
	c, _, _, _ := newTestController(t)
	require.NoError(t, c.SetGlobalRules("*=false.info; app.ui=warning"))

	cfg, err := c.CategoryConfig("app.ui")
	require.NoError(t, err)
	assert.Equal(t, CategoryConfig{
		Category:    "app.ui",
		Enabled:     true,
		MinSeverity: "warning",
		Explicit:    true,
		Rules:       "*=false.info; app.ui=warning",
	}, cfg)

	cfg, err = c.CategoryConfig("app.other")
	require.NoError(t, err)
	assert.False(t, cfg.Enabled)
	assert.Equal(t, "info", cfg.MinSeverity)
	assert.False(t, cfg.Explicit)
}

func TestController_OutputToggles(t *testing.T) {
	c, p, _, bus := newTestController(t)
	path := filepath.Join(t.TempDir(), "ctl.log")

	require.NoError(t, c.EnableFileLogging(path))
	assert.Equal(t, path, p.Engine().FilePath())
	require.NoError(t, c.DisableFileLogging())
	assert.Empty(t, p.Engine().FilePath())

	require.NoError(t, c.EnableConsoleLogging(false))
	assert.False(t, p.Engine().ConsoleEnabled())
	require.NoError(t, c.SetJSONFormat(true))
	assert.True(t, p.Engine().JSONFormat())

	file := bus.named(plugin.EventFileChanged)
	require.Len(t, file, 2)
	assert.Equal(t, true, file[0].Data)
	assert.Equal(t, false, file[1].Data)
	assert.Len(t, bus.named(plugin.EventConsoleChanged), 1)
	assert.Len(t, bus.named(plugin.EventFormatChanged), 1)

	assert.Error(t, c.EnableFileLogging(""))
	assert.Len(t, bus.named(plugin.EventFileChanged), 2, "failed enable raises no notification")
}

func TestController_TestLog(t *testing.T) {
	c, _, buf, _ := newTestController(t)
	require.NoError(t, c.SetLogLevel("app.ui", "warning"))

	require.NoError(t, c.TestLog("app.ui", "warning", "hello"))
	require.NoError(t, c.TestLog("app.ui", "debug", "filtered out"))
	require.NoError(t, c.TestLog("", "", ""))
	require.NoError(t, c.TestLog("app.core", "fatal", "still running"))

	out := buf.String()
	assert.Contains(t, out, "[WARNING] [app.ui]")
	assert.Contains(t, out, "hello")
	assert.NotContains(t, out, "filtered out")
	assert.Contains(t, out, "[DEBUG] [app.default]")
	assert.Contains(t, out, "Test log message")
	assert.Contains(t, out, "[FATAL] [app.core]")
}

func TestController_AvailableCategories(t *testing.T) {
	c, _, _, _ := newTestController(t)

	cats := c.AvailableCategories()
	assert.Contains(t, cats, "app.network")
	assert.Equal(t, DefaultCategory, cats[len(cats)-1])
}
