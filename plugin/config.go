package plugin

import (
	"strconv"

	"github.com/leeforge/extcore/json"
)

// Recognized bootstrap configuration keys. Unknown keys are ignored.
const (
	KeyPluginDir      = "pluginDir"
	KeyLogRules       = "logRules"
	KeyLogFile        = "logFile"
	KeyConsoleLogging = "consoleLogging"
	KeyJSONFormat     = "jsonFormat"
)

// Config gives plugins typed access to the key/value configuration map
// passed to Initialize.
type Config interface {
	Get(key string) (any, bool)
	Has(key string) bool
	GetString(key string, defaultVal string) string
	GetInt(key string, defaultVal int) int
	GetBool(key string, defaultVal bool) bool
	Bind(target any) error
	Map() map[string]any
}

// MapConfig is a Config backed by a map.
type MapConfig struct {
	settings map[string]any
}

// NewMapConfig creates a Config from a settings map. A nil map is treated as empty.
func NewMapConfig(settings map[string]any) *MapConfig {
	if settings == nil {
		settings = make(map[string]any)
	}
	return &MapConfig{settings: settings}
}

func (c *MapConfig) Get(key string) (any, bool) {
	v, ok := c.settings[key]
	return v, ok
}

func (c *MapConfig) Has(key string) bool {
	_, ok := c.settings[key]
	return ok
}

func (c *MapConfig) GetString(key string, defaultVal string) string {
	v, ok := c.settings[key]
	if !ok {
		return defaultVal
	}
	s, ok := v.(string)
	if !ok {
		return defaultVal
	}
	return s
}

func (c *MapConfig) GetInt(key string, defaultVal int) int {
	v, ok := c.settings[key]
	if !ok {
		return defaultVal
	}
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	case int64:
		return int(n)
	case string:
		if i, err := strconv.Atoi(n); err == nil {
			return i
		}
		return defaultVal
	default:
		return defaultVal
	}
}

// GetBool also accepts string values, since environment overrides arrive as text.
func (c *MapConfig) GetBool(key string, defaultVal bool) bool {
	v, ok := c.settings[key]
	if !ok {
		return defaultVal
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		if parsed, err := strconv.ParseBool(b); err == nil {
			return parsed
		}
		return defaultVal
	default:
		return defaultVal
	}
}

// Bind decodes the settings into target, applying `default` struct tags first.
func (c *MapConfig) Bind(target any) error {
	data, err := json.Marshal(c.settings)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, target)
}

// Map returns a copy of the underlying settings.
func (c *MapConfig) Map() map[string]any {
	out := make(map[string]any, len(c.settings))
	for k, v := range c.settings {
		out[k] = v
	}
	return out
}

// EmptyConfig returns a Config with no keys.
func EmptyConfig() Config { return NewMapConfig(nil) }
