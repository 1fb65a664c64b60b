package runtime

import (
	"fmt"
	goplugin "plugin"
	"sync"

	"github.com/leeforge/extcore/plugin"
)

// Module is an opened dynamic module owned by the Manager.
type Module interface {
	// Path is the file the module was opened from; empty for built-ins.
	Path() string
	// Lookup resolves an exported symbol.
	Lookup(symbol string) (any, error)
	// Close unlinks the module. After a successful Close the plugin
	// instance it produced must no longer be used.
	Close() error
}

// Opener links module files.
type Opener interface {
	Open(path string) (Module, error)
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(path string) (Module, error)

func (f OpenerFunc) Open(path string) (Module, error) { return f(path) }

// NativeOpener links Go plugins built with -buildmode=plugin.
type NativeOpener struct{}

func (NativeOpener) Open(path string) (Module, error) {
	p, err := goplugin.Open(path)
	if err != nil {
		return nil, err
	}
	return &nativeModule{path: path, p: p}, nil
}

// nativeModule wraps a *plugin.Plugin. The Go runtime never unmaps a
// loaded plugin, so Close only releases the handle: the symbols stay in
// memory but are unreachable through the Manager.
type nativeModule struct {
	mu     sync.Mutex
	path   string
	p      *goplugin.Plugin
	closed bool
}

func (m *nativeModule) Path() string { return m.path }

func (m *nativeModule) Lookup(symbol string) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, fmt.Errorf("module %s is closed", m.path)
	}
	return m.p.Lookup(symbol)
}

func (m *nativeModule) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.p = nil
	return nil
}

// builtinModule backs plugins compiled into the host binary.
type builtinModule struct{}

func (builtinModule) Path() string { return "" }

func (builtinModule) Lookup(symbol string) (any, error) {
	return nil, fmt.Errorf("built-in plugin has no symbol %q", symbol)
}

func (builtinModule) Close() error { return nil }

// resolveEntryPoint turns the exported entry symbol into a plugin.
// Accepted shapes: func() plugin.Plugin, func() (plugin.Plugin, error),
// func() any, and an exported plugin.Plugin variable.
func resolveEntryPoint(sym any) (instance any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("entry point panicked: %v", r)
		}
	}()

	switch fn := sym.(type) {
	case func() plugin.Plugin:
		return fn(), nil
	case func() (plugin.Plugin, error):
		return fn()
	case func() any:
		return fn(), nil
	case *plugin.Plugin:
		if fn == nil {
			return nil, nil
		}
		return *fn, nil
	case plugin.Plugin:
		return fn, nil
	default:
		return nil, fmt.Errorf("unsupported entry point type %T", sym)
	}
}
