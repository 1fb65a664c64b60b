package plugin

// State represents the lifecycle state of a plugin.
type State int

const (
	StateLoaded      State = iota // Linked and registered, Initialize not yet succeeded
	StateInitialized              // Initialize() succeeded, running
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateLoaded:
		return "loaded"
	case StateInitialized:
		return "initialized"
	default:
		return "unknown"
	}
}

// IsRunning returns true if the plugin's hooks have been initialized.
func (s State) IsRunning() bool {
	return s == StateInitialized
}
