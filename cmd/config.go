package cmd

import (
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:     "config",
	Aliases: []string{"cfg"},
	Short:   "Work with the server configuration file",
	Long: `Commands that operate on the YAML server configuration (-c, default bbms.yaml)
without starting the server.`,
	Args: cobra.NoArgs,
}

func init() {
	rootCmd.AddCommand(configCmd)
}
