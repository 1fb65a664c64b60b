package metrics

import (
	"context"

	"github.com/leeforge/extcore/plugin"
)

const (
	// MetricPluginEvents counts bus notifications by event and source.
	MetricPluginEvents = "extcore_plugin_events_total"
	// MetricPluginErrors counts plugin.error notifications by plugin.
	MetricPluginErrors = "extcore_plugin_errors_total"
	// MetricPluginsLoaded is the registry size after each load or unload.
	MetricPluginsLoaded = "extcore_plugins_loaded"
)

// Counter reports how many plugins are registered.
type Counter func() int

// Subscribe records every notification published on bus under topic
// (usually all of them). loaded may be nil.
func Subscribe(bus plugin.EventBus, topic string, c *Collector, loaded Counter) plugin.Subscription {
	return bus.Subscribe(topic, func(_ context.Context, e plugin.Event) error {
		c.IncCounter(MetricPluginEvents, map[string]string{"event": e.Name, "source": e.Source})

		switch e.Name {
		case plugin.EventPluginError:
			c.IncCounter(MetricPluginErrors, map[string]string{"plugin": e.Source})
		case plugin.EventPluginLoaded, plugin.EventPluginUnloaded, plugin.EventSystemLoaded, plugin.EventSystemShutdown:
			if loaded != nil {
				c.SetGauge(MetricPluginsLoaded, float64(loaded()), nil)
			}
		}
		return nil
	})
}
