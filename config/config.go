package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/creasty/defaults"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// ConfigPathEnv overrides the default config directory.
const ConfigPathEnv = "EXTCORE_CONFIG_PATH"

func DefaultConfigOptions() ConfigOptions {
	basePath := os.Getenv(ConfigPathEnv)
	if basePath == "" {
		basePath = "config"
	}

	return ConfigOptions{
		BasePath:  basePath,
		FileName:  "config",
		FileType:  "yaml",
		EnvPrefix: "EXTCORE",
	}
}

// NewConfig reads every existing layer of opts. A directory without config
// files is not an error; defaults and the environment still apply.
func NewConfig(opts ConfigOptions) (*Config, error) {
	if opts.FileName == "" {
		opts.FileName = "config"
	}
	if opts.FileType == "" {
		opts.FileType = "yaml"
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	instance, files, err := CreateConfig(opts)
	if err != nil {
		return nil, err
	}

	return &Config{opts: opts, instance: instance, files: files, onChange: opts.OnChange}, nil
}

// Bind decodes the config into instance and validates it when it
// implements Validator.
func (c *Config) Bind(instance any) error {
	if c == nil || c.instance == nil {
		return errors.New("config instance is nil")
	}
	if instance == nil {
		return errors.New("target instance is nil")
	}

	c.mu.RLock()
	err := c.instance.Unmarshal(instance)
	c.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("unmarshal config (path: %s, file: %s.%s): %w",
			c.opts.BasePath, c.opts.FileName, c.opts.FileType, err)
	}

	if v, ok := instance.(Validator); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("config validation failed: %w", err)
		}
	}
	return nil
}

// BindWithDefaults fills `default` tags before and after decoding.
func (c *Config) BindWithDefaults(instance any) error {
	if err := defaults.Set(instance); err != nil {
		return fmt.Errorf("set defaults: %w", err)
	}
	if err := c.Bind(instance); err != nil {
		return err
	}
	if err := defaults.Set(instance); err != nil {
		return fmt.Errorf("set defaults after unmarshal: %w", err)
	}
	return nil
}

func (c *Config) Get(key string) any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.instance.Get(key)
}

func (c *Config) GetString(key string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.instance.GetString(key)
}

func (c *Config) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.instance.Set(key, value)
}

// AllSettings returns the merged settings as a nested map.
func (c *Config) AllSettings() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.instance.AllSettings()
}

// Files lists the layers read, lowest priority first.
func (c *Config) Files() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.files...)
}

// Reload re-reads every layer. Values set with Set are discarded.
func (c *Config) Reload() error {
	instance, files, err := CreateConfig(c.opts)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.instance = instance
	c.files = files
	c.mu.Unlock()
	return nil
}

// Watch reloads the config whenever one of its layer files is written,
// created, renamed or removed, then calls OnChange. Calling Watch twice is
// a no-op.
func (c *Config) Watch() error {
	c.watchMu.Lock()
	defer c.watchMu.Unlock()
	if c.watcher != nil {
		return nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(c.opts.BasePath); err != nil {
		_ = w.Close()
		return fmt.Errorf("watch %s: %w", c.opts.BasePath, err)
	}

	c.watcher = w
	c.done = make(chan struct{})
	go c.watchLoop(w, c.done)
	return nil
}

func (c *Config) watchLoop(w *fsnotify.Watcher, done chan struct{}) {
	defer close(done)
	names := make(map[string]struct{})
	for _, name := range layerNames(c.opts) {
		names[name] = struct{}{}
	}

	for {
		select {
		case e, ok := <-w.Events:
			if !ok {
				return
			}
			if _, ok := names[filepath.Base(e.Name)]; !ok {
				continue
			}
			if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) && !e.Has(fsnotify.Rename) && !e.Has(fsnotify.Remove) {
				continue
			}
			if err := c.Reload(); err != nil {
				c.opts.Logger.Warn("config reload failed", zap.String("file", e.Name), zap.Error(err))
				continue
			}
			c.opts.Logger.Info("config reloaded", zap.String("file", e.Name))
			c.watchMu.Lock()
			onChange := c.onChange
			c.watchMu.Unlock()
			if onChange != nil {
				onChange(e)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			c.opts.Logger.Warn("config watch error", zap.Error(err))
		}
	}
}

// OnChange replaces the callback run after each reload.
func (c *Config) OnChange(fn func(e fsnotify.Event)) {
	c.watchMu.Lock()
	defer c.watchMu.Unlock()
	c.onChange = fn
}

// Close stops watching.
func (c *Config) Close() error {
	c.watchMu.Lock()
	w, done := c.watcher, c.done
	c.watcher, c.done = nil, nil
	c.watchMu.Unlock()
	if w == nil {
		return nil
	}
	err := w.Close()
	<-done
	return err
}

// CreateConfig merges the existing layers of opts into a fresh viper
// instance, then applies environment overrides.
func CreateConfig(opts ConfigOptions) (*viper.Viper, []string, error) {
	v := viper.New()
	v.SetConfigType(opts.FileType)
	for key, value := range opts.Defaults {
		v.SetDefault(key, value)
	}

	files := existingLayers(opts)
	for _, path := range files {
		tempV := viper.New()
		tempV.SetConfigFile(path)
		if err := tempV.ReadInConfig(); err != nil {
			return nil, nil, fmt.Errorf("read config file %s: %w", path, err)
		}
		for _, key := range tempV.AllKeys() {
			v.Set(key, tempV.Get(key))
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	if opts.EnvPrefix != "" {
		v.SetEnvPrefix(opts.EnvPrefix)
	}
	v.AutomaticEnv()
	applyEnvOverrides(v, opts.EnvPrefix)

	return v, files, nil
}

// applyEnvOverrides gives environment variables priority over file values,
// which viper.Set would otherwise shadow.
func applyEnvOverrides(v *viper.Viper, envPrefix string) {
	replacer := strings.NewReplacer(".", "_", "-", "_")
	for _, key := range v.AllKeys() {
		envKey := strings.ToUpper(replacer.Replace(key))
		if envPrefix != "" {
			envKey = envPrefix + "_" + envKey
		}
		if envValue, ok := os.LookupEnv(envKey); ok && envValue != "" {
			v.Set(key, envValue)
		}
	}
}

// layerNames lists candidate file names, lowest priority first:
// config, config.local, config.<mode>[.local] and the mode's aliases.
func layerNames(opts ConfigOptions) []string {
	mode := Mode()
	bases := []string{opts.FileName, opts.FileName + ".local"}
	for _, suffix := range append([]string{string(mode)}, mode.aliases()...) {
		bases = append(bases, opts.FileName+"."+suffix, opts.FileName+"."+suffix+".local")
	}

	names := make([]string, len(bases))
	for i, base := range bases {
		names[i] = base + "." + opts.FileType
	}
	return names
}

func existingLayers(opts ConfigOptions) []string {
	var files []string
	for _, name := range layerNames(opts) {
		path := filepath.Join(opts.BasePath, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			files = append(files, path)
		}
	}
	return files
}
