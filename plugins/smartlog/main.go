// Command smartlog is the logging plugin built as a loadable module:
//
//	go build -buildmode=plugin -o plugins/smartlog.so ./plugins/smartlog
package main

import (
	"github.com/leeforge/extcore/plugin"
	"github.com/leeforge/extcore/smartlog"
)

// NewPlugin is the module entry point resolved by the plugin manager.
func NewPlugin() plugin.Plugin {
	return smartlog.NewPlugin()
}

func main() {}
