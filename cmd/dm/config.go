package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/steveyegge/docmerge/internal/config"
)

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show effective configuration",
		Long: `Show the effective configuration after merging defaults, the config file
and DM_* environment variables.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings := flatten("", config.AllSettings())
			if jsonOutput {
				return outputJSON(cmd.OutOrStdout(), map[string]interface{}{
					"file":     config.ConfigFileUsed(),
					"settings": settings,
				})
			}

			w := cmd.OutOrStdout()
			if file := config.ConfigFileUsed(); file != "" {
				fmt.Fprintf(w, "# %s\n", file)
			} else {
				fmt.Fprintln(w, "# no config file, using defaults")
			}
			keys := make([]string, 0, len(settings))
			for k := range settings {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(w, "%s = %v\n", k, settings[k])
			}
			return nil
		},
	}
}

// flatten turns viper's nested settings into dotted keys.
func flatten(prefix string, m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{})
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := v.(map[string]interface{}); ok {
			for sk, sv := range flatten(key, sub) {
				out[sk] = sv
			}
			continue
		}
		out[key] = v
	}
	return out
}
