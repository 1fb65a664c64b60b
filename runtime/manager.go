package runtime

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	perrors "github.com/leeforge/extcore/errors"
	"github.com/leeforge/extcore/plugin"
	"go.uber.org/zap"
)

// DefaultExtensions are the platform-native module suffixes scanned by LoadPlugins.
var DefaultExtensions = []string{".so", ".dylib", ".dll"}

// Config holds configuration for creating a new Manager.
type Config struct {
	Logger *zap.Logger
	// Events receives notifications. When nil the Manager creates and owns a bus.
	Events      plugin.EventBus
	EventBuffer int // default 1024
	// Opener links module files. Defaults to NativeOpener.
	Opener     Opener
	Extensions []string
}

// record is one loaded extension. The Manager owns module; instance lives
// in the module's memory and is only borrowed.
type record struct {
	name     string
	module   Module
	instance plugin.Plugin
	state    plugin.State
}

// Info is a read-only snapshot of a loaded plugin for diagnostics.
type Info struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description"`
	Author      string `json:"author"`
	Enabled     bool   `json:"enabled"`
	HasSettings bool   `json:"hasSettings"`
	State       string `json:"state"`
	Path        string `json:"path,omitempty"`
}

// IsZero reports whether the snapshot is the empty result returned for unknown names.
func (i Info) IsZero() bool { return i.Name == "" }

// Manager discovers, links, validates and tracks plugins by name.
//
// Load and unload are expected to run from a single goroutine (the host's
// bootstrap/shutdown path). Queries are safe from any goroutine.
type Manager struct {
	logger     *zap.Logger
	opener     Opener
	extensions []string
	events     plugin.EventBus
	ownsBus    bool
	host       *plugin.Host

	mu      sync.RWMutex
	records map[string]*record
}

// NewManager creates an empty registry.
func NewManager(cfg Config) *Manager {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = 1024
	}
	if cfg.Opener == nil {
		cfg.Opener = NativeOpener{}
	}
	if len(cfg.Extensions) == 0 {
		cfg.Extensions = DefaultExtensions
	}

	m := &Manager{
		logger:     cfg.Logger.Named("plugin.manager"),
		opener:     cfg.Opener,
		extensions: cfg.Extensions,
		events:     cfg.Events,
		records:    make(map[string]*record),
	}
	if m.events == nil {
		m.events = NewEventBus(cfg.EventBuffer, cfg.Logger)
		m.ownsBus = true
	}
	m.host = plugin.NewHost(cfg.Logger, m.events)
	return m
}

// Events returns the bus notifications are published on.
func (m *Manager) Events() plugin.EventBus {
	return m.events
}

// Host returns the context handed to HostAware plugins.
func (m *Manager) Host() *plugin.Host {
	return m.host
}

// Close releases the event bus if the Manager created it. It does not
// unload plugins; call UnloadAll first.
func (m *Manager) Close() error {
	if m.ownsBus {
		return m.events.Close()
	}
	return nil
}

// LoadPlugins attempts every module file directly inside dir. Discovery
// order is the directory listing order and is not guaranteed across
// platforms. A failing file does not stop the scan; the returned error
// joins every per-file failure.
func (m *Manager) LoadPlugins(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		e := perrors.Wrap(err, perrors.ErrorTypeResource, "", fmt.Sprintf("cannot read plugin directory %s", dir)).
			WithOp("load")
		m.logger.Debug("plugin directory unavailable", zap.String("dir", dir), zap.Error(err))
		return e
	}

	var errs []error
	for _, entry := range entries {
		if entry.IsDir() || !m.isModuleFile(entry.Name()) {
			continue
		}
		if err := m.LoadPlugin(filepath.Join(dir, entry.Name())); err != nil {
			errs = append(errs, err)
		}
	}
	return perrors.Join(errs...)
}

// LoadPlugin links one module, resolves its entry point and registers the
// plugin it yields. On any failure the module is closed again and nothing
// is registered.
func (m *Manager) LoadPlugin(path string) error {
	mod, err := m.opener.Open(path)
	if err != nil {
		return m.fail(perrors.ForModule(perrors.ErrorTypeLink, path, "cannot link module", err))
	}

	sym, err := mod.Lookup(plugin.EntryPoint)
	if err != nil {
		if inst, ierr := mod.Lookup(plugin.InstanceSymbol); ierr == nil {
			sym, err = inst, nil
		}
	}
	if err != nil {
		m.closeQuietly(mod)
		return m.fail(perrors.ForModule(perrors.ErrorTypeEntryPoint, path,
			fmt.Sprintf("missing %s symbol", plugin.EntryPoint), err))
	}

	instance, err := resolveEntryPoint(sym)
	if err != nil || instance == nil {
		m.closeQuietly(mod)
		if err == nil {
			err = fmt.Errorf("%s returned nil", plugin.EntryPoint)
		}
		return m.fail(perrors.ForModule(perrors.ErrorTypeEntryPoint, path, "invalid entry point", err))
	}

	p, ok := instance.(plugin.Plugin)
	if !ok {
		m.closeQuietly(mod)
		return m.fail(perrors.ForModule(perrors.ErrorTypeContract, path,
			fmt.Sprintf("%T does not implement the plugin interface", instance), nil))
	}

	if err := m.register(p, mod); err != nil {
		m.closeQuietly(mod)
		return m.fail(err)
	}
	return nil
}

// Register adds a plugin compiled into the host through the same
// validation path as LoadPlugin.
func (m *Manager) Register(p plugin.Plugin) error {
	if p == nil {
		return m.fail(perrors.New(perrors.ErrorTypeContract, "", "nil plugin").WithOp("register"))
	}
	if err := m.register(p, builtinModule{}); err != nil {
		return m.fail(err)
	}
	return nil
}

func (m *Manager) register(p plugin.Plugin, mod Module) error {
	var name, version string
	if err := guard("identity", func() { name, version = p.Name(), p.Version() }); err != nil {
		return perrors.ForModule(perrors.ErrorTypeContract, mod.Path(), "plugin identity failed", err)
	}
	if strings.TrimSpace(name) == "" {
		return perrors.ForModule(perrors.ErrorTypeContract, mod.Path(), "plugin reports an empty name", nil)
	}

	m.mu.Lock()
	if _, exists := m.records[name]; exists {
		m.mu.Unlock()
		return perrors.New(perrors.ErrorTypeNameCollision, name, "plugin already loaded").WithOp("load")
	}
	m.records[name] = &record{
		name:     name,
		module:   mod,
		instance: p,
		state:    plugin.StateLoaded,
	}
	m.mu.Unlock()

	if aware, ok := p.(plugin.HostAware); ok {
		if err := guard("attach", func() { aware.Attach(m.host) }); err != nil {
			m.mu.Lock()
			delete(m.records, name)
			m.mu.Unlock()
			return perrors.Wrap(err, perrors.ErrorTypeContract, name, "plugin rejected the host").WithOp("load")
		}
	}

	m.logger.Info("plugin loaded",
		zap.String("name", name),
		zap.String("version", version),
		zap.String("path", mod.Path()))
	m.host.Notify(plugin.EventPluginLoaded, name, nil)
	return nil
}

// UnloadPlugin shuts the plugin down and unlinks its module. If unlinking
// fails the record stays registered, still owning its module.
func (m *Manager) UnloadPlugin(name string) error {
	rec, ok := m.lookup(name)
	if !ok {
		return m.fail(perrors.New(perrors.ErrorTypeNotFound, name, "plugin not loaded").WithOp("unload"))
	}

	// A failing shutdown is reported but does not stop the unload.
	if err := guard("shutdown", rec.instance.Shutdown); err != nil {
		m.fail(perrors.Wrap(err, perrors.ErrorTypeLifecycle, name, "shutdown failed").WithOp("unload"))
	}
	m.setState(name, plugin.StateLoaded)

	if err := rec.module.Close(); err != nil {
		m.logger.Warn("failed to unlink plugin module",
			zap.String("name", name), zap.Error(err))
		return m.fail(perrors.Wrap(err, perrors.ErrorTypeUnload, name, "module unlink failed").WithOp("unload"))
	}

	m.mu.Lock()
	delete(m.records, name)
	m.mu.Unlock()

	m.logger.Info("plugin unloaded", zap.String("name", name))
	m.host.Notify(plugin.EventPluginUnloaded, name, nil)
	return nil
}

// UnloadAll attempts to unload every plugin, even after failures.
func (m *Manager) UnloadAll() error {
	var errs []error
	for _, name := range m.Names() {
		if err := m.UnloadPlugin(name); err != nil {
			errs = append(errs, err)
		}
	}
	return perrors.Join(errs...)
}

// InitializeAll initializes every registered plugin in name order. A
// failing plugin does not stop the batch.
func (m *Manager) InitializeAll(cfg plugin.Config) error {
	var errs []error
	for _, name := range m.Names() {
		if err := m.InitializePlugin(name, cfg); err != nil {
			errs = append(errs, err)
		}
	}
	return perrors.Join(errs...)
}

// InitializePlugin initializes one plugin by name.
func (m *Manager) InitializePlugin(name string, cfg plugin.Config) error {
	rec, ok := m.lookup(name)
	if !ok {
		return m.fail(perrors.New(perrors.ErrorTypeNotFound, name, "plugin not loaded").WithOp("initialize"))
	}
	if cfg == nil {
		cfg = plugin.EmptyConfig()
	}

	var err error
	if perr := guard("initialize", func() { err = rec.instance.Initialize(cfg) }); perr != nil {
		err = perr
	}
	if err != nil {
		if _, typed := perrors.TypeOf(err); !typed {
			err = perrors.Wrap(err, perrors.ErrorTypeLifecycle, name, "initialization failed").WithOp("initialize")
		}
		return m.fail(err)
	}

	m.setState(name, plugin.StateInitialized)
	m.logger.Debug("plugin initialized", zap.String("name", name))
	return nil
}

// PluginInfo returns a snapshot for name, or the zero Info if it is unknown.
func (m *Manager) PluginInfo(name string) Info {
	rec, ok := m.lookup(name)
	if !ok {
		return Info{}
	}
	p := rec.instance
	info := Info{
		Name:        p.Name(),
		Version:     p.Version(),
		Description: p.Description(),
		Author:      p.Author(),
		Enabled:     p.Enabled(),
		State:       m.stateOf(rec).String(),
		Path:        rec.module.Path(),
	}
	if sp, ok := p.(plugin.SettingsProvider); ok {
		info.HasSettings = sp.HasSettings()
	}
	return info
}

// Plugin returns the plugin registered under name.
func (m *Manager) Plugin(name string) (plugin.Plugin, bool) {
	rec, ok := m.lookup(name)
	if !ok {
		return nil, false
	}
	return rec.instance, true
}

// Plugins returns every registered plugin in name order.
func (m *Manager) Plugins() []plugin.Plugin {
	names := m.Names()
	out := make([]plugin.Plugin, 0, len(names))
	for _, name := range names {
		if p, ok := m.Plugin(name); ok {
			out = append(out, p)
		}
	}
	return out
}

// Names returns all registered plugin names, sorted alphabetically.
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.records))
	for name := range m.records {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsLoaded reports whether name is registered.
func (m *Manager) IsLoaded(name string) bool {
	_, ok := m.lookup(name)
	return ok
}

// Resolve returns the plugin registered under name as T.
func Resolve[T any](m *Manager, name string) (T, error) {
	var zero T
	p, ok := m.Plugin(name)
	if !ok {
		return zero, perrors.New(perrors.ErrorTypeNotFound, name, "plugin not loaded").WithOp("resolve")
	}
	typed, ok := p.(T)
	if !ok {
		return zero, perrors.New(perrors.ErrorTypeContract, name, fmt.Sprintf("plugin is %T, want %T", p, zero)).
			WithOp("resolve")
	}
	return typed, nil
}

// --- Internal ---

func (m *Manager) lookup(name string) (*record, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[name]
	return rec, ok
}

func (m *Manager) setState(name string, state plugin.State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.records[name]; ok {
		rec.state = state
	}
}

// stateOf prefers the plugin's own view of its state when it reports one.
func (m *Manager) stateOf(rec *record) plugin.State {
	if s, ok := rec.instance.(plugin.Stateful); ok {
		return s.State()
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return rec.state
}

func (m *Manager) isModuleFile(name string) bool {
	ext := filepath.Ext(name)
	for _, want := range m.extensions {
		if strings.EqualFold(ext, want) {
			return true
		}
	}
	return false
}

func (m *Manager) closeQuietly(mod Module) {
	if err := mod.Close(); err != nil {
		m.logger.Warn("failed to release module after load error",
			zap.String("path", mod.Path()), zap.Error(err))
	}
}

// guard runs a call into plugin code, turning a panic into an error.
func guard(op string, fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v", op, r)
		}
	}()
	fn()
	return nil
}

// fail logs err and raises a plugin.error notification carrying it.
func (m *Manager) fail(err error) error {
	name := perrors.PluginOf(err)
	m.logger.Warn("plugin error", zap.String("plugin", name), zap.Error(err))
	m.host.Notify(plugin.EventPluginError, name, plugin.ErrorData{Reason: err.Error(), Err: err})
	return err
}
