// Command maestro runs the agentic execution engine from the terminal.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	flagConfig    string
	flagWorkspace string
	flagModel     string
	flagThink     bool
	flagVerbose   bool
)

func main() {
	root := &cobra.Command{
		Use:           "maestro",
		Short:         "Multi-agent execution engine for software tasks",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "path to a YAML config file")
	root.PersistentFlags().StringVarP(&flagWorkspace, "workspace", "w", "", "workspace root (default from config)")
	root.PersistentFlags().StringVarP(&flagModel, "model", "m", "", "model name (default from config)")
	root.PersistentFlags().BoolVar(&flagThink, "think", false, "enable think mode")
	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "show tool calls and status events")

	root.AddCommand(newRunCmd(), newRouteCmd(), newAgentsCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
