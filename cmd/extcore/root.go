package main

import (
	"fmt"

	"github.com/leeforge/extcore/config"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configDir string
	pluginDir string
}

// hostConfig loads the layered host config and applies flag overrides.
func (o *rootOptions) hostConfig() (*config.HostConfig, *config.Config, error) {
	opts := config.DefaultConfigOptions()
	if o.configDir != "" {
		opts.BasePath = o.configDir
	}
	host, cfg, err := config.LoadHost(opts)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if o.pluginDir != "" {
		host.PluginDir = o.pluginDir
	}
	return host, cfg, nil
}

func NewRootCommand(version, commit, date string) *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "extcore",
		Short: "Plugin host with rule-based logging",
		Long: `extcore discovers native plugin modules in a directory, initializes them
with the host configuration and keeps them running until it is stopped.

Logging is controlled by category rules such as "*=warning; app.network=false"
that can be changed at runtime through the diagnostics panel.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.configDir, "config", "", "directory holding config.yaml and its overlays")
	rootCmd.PersistentFlags().StringVar(&opts.pluginDir, "plugin-dir", "", "plugin directory (overrides pluginDir)")

	rootCmd.AddCommand(newRunCommand(opts))
	rootCmd.AddCommand(newPluginsCommand(opts))
	rootCmd.AddCommand(newRulesCommand())

	return rootCmd
}
