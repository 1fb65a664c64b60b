package main

import (
	"errors"
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/leeforge/extcore/smartlog"
	"github.com/spf13/cobra"
)

func newRulesCommand() *cobra.Command {
	var check string
	var verbose bool

	cmd := &cobra.Command{
		Use:   "rules --check <rules>",
		Short: "Parse a rule string and print its normalized form",
		Example: `  extcore rules --check "*=warning; app.network=false; app.ui=debug"
  extcore rules --check "app.db=true.critical" -v`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("check") {
				return errors.New("--check is required")
			}
			rs := smartlog.ParseRules(check)
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, rs.String())
			if !verbose {
				return nil
			}

			rules := rs.Rules()
			keys := make([]string, 0, len(rules))
			for k := range rules {
				keys = append(keys, k)
			}
			sort.Strings(keys)

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "CATEGORY\tENABLED\tMIN SEVERITY")
			for _, k := range keys {
				fmt.Fprintf(tw, "%s\t%t\t%s\n", k, rules[k].Enabled, rules[k].MinSeverity)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&check, "check", "", "rule string to parse")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "also print one line per rule")
	return cmd
}
