package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var tasksLogsCmd = &cobra.Command{
	Use:   "logs NAME",
	Short: "See logs of the last run of a background task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		if name == "" {
			return fmt.Errorf("task name cannot be empty")
		}

		cli, err := f.GetClient()
		if err != nil {
			return err
		}

		log.Debug().Msgf("Retrieving logs for task '%s'...", name)
		logs, err := cli.GetTaskLogs(cmd.Context(), name)
		if err != nil {
			return logError(err, "", "failed to retrieve task logs")
		}
		if len(logs) == 0 {
			log.Info().Msgf("Task '%s' has no logs yet.", name)
			return nil
		}

		fmt.Println(bold("── " + name + " ──"))
		for _, entry := range logs {
			fmt.Printf("%s | %s | %s\n", entry.Time.Local().Format("15:04:05"), levelTag(entry.Level), entry.Message)
		}
		return nil
	},
}

func levelTag(level string) string {
	switch level {
	case "info":
		return color.GreenString("inf")
	case "warn":
		return color.YellowString("wrn")
	case "error":
		return color.RedString("err")
	case "debug":
		return faint("dbg")
	default:
		return level
	}
}

func init() {
	tasksCmd.AddCommand(tasksLogsCmd)
}
