package main

import (
	"errors"
	"io"

	"github.com/fsnotify/fsnotify"
	"github.com/leeforge/extcore/admin"
	"github.com/leeforge/extcore/config"
	"github.com/leeforge/extcore/logging"
	"github.com/leeforge/extcore/metrics"
	"github.com/leeforge/extcore/plugin"
	"github.com/leeforge/extcore/runtime"
	"github.com/leeforge/extcore/smartlog"
	"go.uber.org/zap"
)

// app wires one host: base logger, plugin manager and loader, logging
// controller.
type app struct {
	host   *config.HostConfig
	logger logging.Logger

	manager *runtime.Manager
	loader  *runtime.Loader
	logs    *smartlog.Controller
	metrics *metrics.Collector

	eventsSub      plugin.Subscription
	restoreGlobals func()
}

func newApp(host *config.HostConfig, terminal io.Writer) *app {
	logger := logging.New(host.Log, terminal)
	restore := zap.ReplaceGlobals(logger.Zap())

	manager := runtime.NewManager(runtime.Config{Logger: logger.Zap()})
	collector := metrics.NewCollector()
	loaded := func() int { return len(manager.Names()) }
	return &app{
		host:           host,
		logger:         logger,
		manager:        manager,
		loader:         runtime.NewLoader(manager, logger.Zap()),
		logs:           smartlog.NewController(manager, manager.Host()),
		metrics:        collector,
		eventsSub:      metrics.Subscribe(manager.Events(), runtime.AllEvents, collector, loaded),
		restoreGlobals: restore,
	}
}

func (a *app) bootstrap() plugin.Config {
	return plugin.NewMapConfig(a.host.Bootstrap())
}

// start loads and initializes every plugin. With builtinLogging the
// logging plugin is registered in-process when no module provided it.
func (a *app) start(builtinLogging bool) error {
	if err := a.loader.Load(a.bootstrap()); err != nil {
		return err
	}
	if !builtinLogging || a.manager.IsLoaded(smartlog.PluginName) {
		return nil
	}
	if err := a.manager.Register(smartlog.NewPlugin()); err != nil {
		return err
	}
	return a.manager.InitializePlugin(smartlog.PluginName, a.bootstrap())
}

// adminServer builds the diagnostics panel for this host.
func (a *app) adminServer() *admin.Server {
	h := admin.NewHandler(admin.Options{
		Manager:    a.manager,
		Controller: a.logs,
		Logger:     a.logger.Named("admin"),
		Bootstrap:  a.bootstrap(),
		Metrics:    a.metrics,
	})
	return admin.NewServer(a.host.Admin.Addr, h, a.logger.Zap())
}

// onConfigChange re-applies the rule string after the config files change.
func (a *app) onConfigChange(cfg *config.Config) func(fsnotify.Event) {
	return func(e fsnotify.Event) {
		host, err := cfg.Host()
		if err != nil {
			a.logger.Warn("ignoring invalid config", zap.String("file", e.Name), zap.Error(err))
			return
		}
		if host.LogRules == "" || !a.logs.Available() {
			return
		}
		if err := a.logs.SetGlobalRules(host.LogRules); err != nil {
			a.logger.Warn("apply log rules", zap.Error(err))
			return
		}
		a.logger.Info("log rules reloaded", zap.String("rules", a.logs.CurrentRules()))
	}
}

// stop unloads every plugin, then restores the loggers.
func (a *app) stop() error {
	err := a.loader.Shutdown()
	a.eventsSub.Unsubscribe()
	err = errors.Join(err, a.manager.Close())
	a.restoreGlobals()
	return errors.Join(err, a.logger.Close())
}
