// Command agentbridge serves LangGraph agents to real-time voice and text
// clients over websockets.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:          "agentbridge",
		Short:        "Bridge LangGraph agents to voice and text clients",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")

	root.AddCommand(newServeCmd(&configPath), newConfigSchemaCmd())
	return root
}
