package main

import (
	"fmt"
	"io"

	"github.com/leeforge/extcore/json"
	"github.com/leeforge/extcore/runtime"
	"github.com/spf13/cobra"
)

func newPluginsCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "plugins",
		Short: "Load every plugin and print its info as JSON",
		Long: `Plugins loads and initializes the modules in the plugin directory exactly
as run does, prints one info object per plugin, then unloads them again.
Load failures are logged and the affected modules are left out.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			host, _, err := root.hostConfig()
			if err != nil {
				return err
			}
			host.Log.LogInTerminal = false
			host.Log.LogInFile = false

			a := newApp(host, cmd.ErrOrStderr())
			defer func() {
				if stopErr := a.stop(); stopErr != nil && err == nil {
					err = stopErr
				}
			}()

			if err := a.start(false); err != nil {
				return err
			}
			return printInfos(cmd.OutOrStdout(), a.manager)
		},
	}
}

func printInfos(w io.Writer, m *runtime.Manager) error {
	names := m.Names()
	infos := make([]runtime.Info, 0, len(names))
	for _, name := range names {
		infos = append(infos, m.PluginInfo(name))
	}
	out, err := json.MarshalIndent(infos, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}
