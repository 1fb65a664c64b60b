package runtime

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	perrors "github.com/leeforge/extcore/errors"
	"github.com/leeforge/extcore/plugin"
	"go.uber.org/zap"
)

// DefaultPluginDirName is the directory next to the host binary used when
// no plugin directory is configured.
const DefaultPluginDirName = "plugins"

// Loader drives the one-shot bootstrap and teardown of the plugin system.
// The host constructs one Loader and calls Load at startup and Shutdown at exit.
type Loader struct {
	manager *Manager
	logger  *zap.Logger

	mu     sync.Mutex
	loaded bool
	dir    string
}

// NewLoader creates a Loader around manager.
func NewLoader(manager *Manager, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{
		manager: manager,
		logger:  logger.Named("plugin.loader"),
	}
}

// Manager returns the registry the Loader drives.
func (l *Loader) Manager() *Manager {
	return l.manager
}

// Load resolves the plugin directory, loads every module in it and
// initializes all registered plugins. Individual load or initialization
// failures are logged and published but do not fail Load. Calling Load
// again while loaded is a no-op.
func (l *Loader) Load(cfg plugin.Config) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.loaded {
		return nil
	}
	if cfg == nil {
		cfg = plugin.EmptyConfig()
	}
	startTime := time.Now()

	dir, err := PluginDir(cfg)
	if err != nil {
		return err
	}
	l.dir = dir

	if err := l.manager.LoadPlugins(dir); err != nil {
		l.logger.Warn("some plugins failed to load", zap.String("dir", dir), zap.Error(err))
	}
	if err := l.manager.InitializeAll(cfg); err != nil {
		l.logger.Warn("some plugins failed to initialize", zap.Error(err))
	}

	l.loaded = true
	l.logger.Info("plugin system loaded",
		zap.String("dir", dir),
		zap.Strings("plugins", l.manager.Names()),
		zap.Duration("duration", time.Since(startTime)))
	l.manager.Host().Notify(plugin.EventSystemLoaded, "", l.manager.Names())
	return nil
}

// Shutdown unloads every plugin and marks the system not loaded, even if
// some modules could not be unlinked. It is a no-op when not loaded.
func (l *Loader) Shutdown() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.loaded {
		return nil
	}

	err := l.manager.UnloadAll()
	if err != nil {
		l.logger.Error("plugin system shutdown incomplete", zap.Error(err))
	}
	l.loaded = false
	l.logger.Info("plugin system shut down")
	l.manager.Host().Notify(plugin.EventSystemShutdown, "", nil)
	return err
}

// Loaded reports whether Load has completed without a matching Shutdown.
func (l *Loader) Loaded() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loaded
}

// Dir returns the plugin directory resolved by the last Load.
func (l *Loader) Dir() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dir
}

// PluginDir returns the configured plugin directory, falling back to a
// "plugins" directory next to the executable, and creates it if absent.
func PluginDir(cfg plugin.Config) (string, error) {
	dir := cfg.GetString(plugin.KeyPluginDir, "")
	if dir == "" {
		exe, err := os.Executable()
		if err != nil {
			return "", fmt.Errorf("resolve executable path: %w", err)
		}
		dir = filepath.Join(filepath.Dir(exe), DefaultPluginDirName)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", perrors.Wrap(err, perrors.ErrorTypeResource, "", fmt.Sprintf("cannot create plugin directory %s", dir)).
			WithOp("load")
	}
	return dir, nil
}
