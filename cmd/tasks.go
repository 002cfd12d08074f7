package cmd

import (
	"github.com/spf13/cobra"
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "Administrative background task commands",
	Long:  `List, trigger and inspect background tasks such as the registry sweep. Requires a session with the admin role.`,
}

func init() {
	rootCmd.AddCommand(tasksCmd)
}
