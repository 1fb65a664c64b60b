package plugin

// Plugin is the capability contract every extension must satisfy.
// The registry holds plugins only through this interface and never assumes
// a concrete type.
type Plugin interface {
	Name() string
	Version() string
	Description() string
	Author() string

	// Initialize runs the plugin's setup exactly once per load.
	Initialize(cfg Config) error
	// Shutdown tears the plugin down. It is idempotent and never panics.
	Shutdown()

	Enabled() bool
	SetEnabled(enabled bool)
}

// --- Optional Capability Interfaces ---
// The registry detects these via type assertion: if p, ok := plugin.(SettingsProvider); ok { ... }

// SettingsProvider -- exposes a key/value settings blob.
type SettingsProvider interface {
	HasSettings() bool
	Settings() map[string]any
	SetSettings(settings map[string]any) error
}

// HostAware -- receives the host context (logger, event bus) on load.
type HostAware interface {
	Attach(host *Host)
}

// Stateful -- reports its lifecycle state.
type Stateful interface {
	State() State
}

// Metadata is the identity of a plugin.
type Metadata struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description"`
	Author      string `json:"author"`
}

// EntryPoint is the exported symbol name a dynamic module must provide.
// Its value is a func() Plugin, a func() (Plugin, error), or a Plugin.
const EntryPoint = "NewPlugin"

// InstanceSymbol is looked up when a module has no EntryPoint: an exported
// Plugin variable.
const InstanceSymbol = "Plugin"
