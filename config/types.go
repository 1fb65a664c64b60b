package config

import (
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Validator is implemented by bound structs that check themselves.
type Validator interface {
	Validate() error
}

// Config is a layered view over the config files in one directory.
type Config struct {
	opts ConfigOptions

	mu       sync.RWMutex
	instance *viper.Viper
	files    []string

	watchMu  sync.Mutex
	watcher  *fsnotify.Watcher
	done     chan struct{}
	onChange func(e fsnotify.Event)
}

type ConfigOptions struct {
	BasePath string
	FileName string
	FileType string

	// EnvPrefix scopes environment overrides: key a.b is read from
	// <PREFIX>_A_B.
	EnvPrefix string

	// Defaults seed keys that may be absent from every file, so they can
	// still be overridden from the environment.
	Defaults map[string]any

	// OnChange runs after a watched file changed and the config reloaded.
	OnChange func(e fsnotify.Event)

	Logger *zap.Logger
}
