package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/leeforge/extcore/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRunCommand(root *rootOptions) *cobra.Command {
	var builtinLogging, watch bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Load plugins and run until interrupted",
		Long: `Run loads every module in the plugin directory, initializes it with the
host configuration, serves the diagnostics panel when admin.enabled is set,
and unloads everything on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			host, cfg, err := root.hostConfig()
			if err != nil {
				return err
			}
			a := newApp(host, cmd.OutOrStdout())
			return runApp(ctx, a, cfg, builtinLogging, watch)
		},
	}

	cmd.Flags().BoolVar(&builtinLogging, "builtin-logging", true, "register the logging plugin in-process when no module provides it")
	cmd.Flags().BoolVar(&watch, "watch", true, "re-apply logRules when the config files change")
	return cmd
}

// runApp starts a, optionally watches cfg, and blocks until ctx ends or the
// panel fails. a is always stopped on return.
func runApp(ctx context.Context, a *app, cfg *config.Config, builtinLogging, watch bool) (err error) {
	defer func() {
		if stopErr := a.stop(); stopErr != nil && err == nil {
			err = stopErr
		}
	}()

	if err := a.start(builtinLogging); err != nil {
		return err
	}
	a.logger.Info("host started", zap.Strings("plugins", a.manager.Names()), zap.String("dir", a.loader.Dir()))

	if watch && cfg != nil {
		cfg.OnChange(a.onConfigChange(cfg))
		if err := cfg.Watch(); err != nil {
			a.logger.Warn("config watch unavailable", zap.Error(err))
		} else {
			defer func() { _ = cfg.Close() }()
		}
	}

	if !a.host.Admin.Enabled {
		<-ctx.Done()
		a.logger.Info("shutting down")
		return nil
	}
	return a.adminServer().ListenAndServe(ctx)
}
