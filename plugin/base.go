package plugin

import (
	"fmt"
	"sync"

	perrors "github.com/leeforge/extcore/errors"
	"go.uber.org/zap"
)

// Hooks are the author-supplied lifecycle functions wrapped by Base.
// Any of them may be nil.
type Hooks struct {
	OnInitialize  func(cfg Config) error
	OnShutdown    func() error
	OnSetSettings func(settings map[string]any) error
	OnGetSettings func() map[string]any
}

// Base enforces the init/shutdown state machine around Hooks.
// Concrete plugins embed *Base and supply their hooks at construction.
//
// Hooks are called without Base's lock held, so they may call back into
// Base (for example Settings or Host).
type Base struct {
	meta  Metadata
	hooks Hooks

	mu           sync.RWMutex
	state        State
	initializing bool
	enabled      bool
	settings     map[string]any
	host         *Host
}

// NewBase creates a Base in StateLoaded, enabled, with no host attached.
func NewBase(meta Metadata, hooks Hooks) *Base {
	return &Base{
		meta:     meta,
		hooks:    hooks,
		state:    StateLoaded,
		enabled:  true,
		settings: map[string]any{},
	}
}

func (b *Base) Name() string        { return b.meta.Name }
func (b *Base) Version() string     { return b.meta.Version }
func (b *Base) Description() string { return b.meta.Description }
func (b *Base) Author() string      { return b.meta.Author }

// Metadata returns the plugin identity.
func (b *Base) Metadata() Metadata { return b.meta }

// Attach implements HostAware.
func (b *Base) Attach(host *Host) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.host = host
}

// Host returns the attached host, or a detached one that logs nowhere.
func (b *Base) Host() *Host {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.host == nil {
		return NewHost(nil, nil)
	}
	return b.host
}

// State implements Stateful.
func (b *Base) State() State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

func (b *Base) Enabled() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.enabled
}

func (b *Base) SetEnabled(enabled bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.enabled = enabled
}

// Initialize fails without calling the hook if the plugin is already
// initialized or another Initialize is running. A failing hook leaves the
// plugin in StateLoaded.
func (b *Base) Initialize(cfg Config) error {
	if cfg == nil {
		cfg = EmptyConfig()
	}
	host := b.Host()

	b.mu.Lock()
	switch {
	case b.state == StateInitialized:
		b.mu.Unlock()
		host.Logger.Warn("plugin already initialized", zap.String("plugin", b.meta.Name))
		return perrors.New(perrors.ErrorTypeLifecycle, b.meta.Name, "plugin already initialized").
			WithOp("initialize")
	case b.initializing:
		b.mu.Unlock()
		return perrors.New(perrors.ErrorTypeLifecycle, b.meta.Name, "initialization already in progress").
			WithOp("initialize")
	}
	b.initializing = true
	b.mu.Unlock()

	err := b.callInitialize(cfg)

	b.mu.Lock()
	b.initializing = false
	if err == nil {
		b.state = StateInitialized
	}
	b.mu.Unlock()

	if err != nil {
		host.Logger.Warn("plugin initialization failed",
			zap.String("plugin", b.meta.Name), zap.Error(err))
		return perrors.Wrap(err, perrors.ErrorTypeLifecycle, b.meta.Name, "initialization hook failed").
			WithOp("initialize")
	}

	host.Notify(EventPluginInitialized, b.meta.Name, nil)
	return nil
}

// Shutdown is a no-op unless initialized. The hook always runs to
// completion from Base's point of view: its error or panic is logged and
// the plugin still returns to StateLoaded.
func (b *Base) Shutdown() {
	if b.State() != StateInitialized {
		return
	}
	host := b.Host()

	if err := b.callShutdown(); err != nil {
		host.Logger.Warn("plugin shutdown hook failed",
			zap.String("plugin", b.meta.Name), zap.Error(err))
	}

	b.mu.Lock()
	b.state = StateLoaded
	b.mu.Unlock()

	host.Notify(EventPluginShutdown, b.meta.Name, nil)
}

// HasSettings reports whether the plugin exposes a non-empty settings blob.
func (b *Base) HasSettings() bool {
	return len(b.callGetSettings()) > 0
}

// Settings returns an empty map until the plugin is initialized.
func (b *Base) Settings() map[string]any {
	if b.State() != StateInitialized {
		return map[string]any{}
	}
	s := b.callGetSettings()
	if s == nil {
		return map[string]any{}
	}
	return s
}

// SetSettings commits settings and raises a change notification only if
// the hook accepts them.
func (b *Base) SetSettings(settings map[string]any) error {
	if b.State() != StateInitialized {
		return perrors.New(perrors.ErrorTypeLifecycle, b.meta.Name, "plugin not initialized").
			WithOp("set settings")
	}
	if b.hooks.OnSetSettings == nil {
		return perrors.New(perrors.ErrorTypeLifecycle, b.meta.Name, "plugin has no settings").
			WithOp("set settings")
	}
	if err := b.hooks.OnSetSettings(settings); err != nil {
		return perrors.Wrap(err, perrors.ErrorTypeLifecycle, b.meta.Name, "settings rejected").
			WithOp("set settings")
	}

	committed := make(map[string]any, len(settings))
	for k, v := range settings {
		committed[k] = v
	}
	b.mu.Lock()
	b.settings = committed
	b.mu.Unlock()

	b.Host().Notify(EventSettingsChanged, b.meta.Name, committed)
	return nil
}

// LastSettings returns the settings most recently accepted by SetSettings.
func (b *Base) LastSettings() map[string]any {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[string]any, len(b.settings))
	for k, v := range b.settings {
		out[k] = v
	}
	return out
}

func (b *Base) callInitialize(cfg Config) (err error) {
	if b.hooks.OnInitialize == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in initialize hook: %v", r)
		}
	}()
	return b.hooks.OnInitialize(cfg)
}

func (b *Base) callShutdown() (err error) {
	if b.hooks.OnShutdown == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in shutdown hook: %v", r)
		}
	}()
	return b.hooks.OnShutdown()
}

func (b *Base) callGetSettings() map[string]any {
	if b.hooks.OnGetSettings == nil {
		return nil
	}
	return b.hooks.OnGetSettings()
}

// Compile-time assertions
var (
	_ Plugin           = (*Base)(nil)
	_ SettingsProvider = (*Base)(nil)
	_ HostAware        = (*Base)(nil)
	_ Stateful         = (*Base)(nil)
)
