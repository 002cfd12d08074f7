package cmd

import (
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/rosilesmarcos01/bbms-sub000/internal/tasks"
)

var tasksListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List all background tasks",
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := f.GetClient()
		if err != nil {
			return err
		}

		log.Debug().Msg("Retrieving tasks...")
		statuses, err := cli.ListTasks(cmd.Context())
		if err != nil {
			return logError(err, "", "failed to list tasks")
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Name", "State", "Every", "Runs", "Last Run", "Next Run", "Last Result"})
		for _, task := range statuses {
			t.AppendRow(taskRow(task, time.Now()))
		}

		applyTableFormat(t)
		t.Render()
		return nil
	},
}

func taskRow(task tasks.TaskStatus, now time.Time) table.Row {
	state := "idle"
	if task.Running {
		state = color.BlueString("running")
	}

	interval := task.Interval
	if interval == "" {
		interval = "manual"
	}

	lastRun := "never"
	if !task.LastRun.IsZero() {
		lastRun = now.Sub(task.LastRun).Round(time.Second).String() + " ago"
	}

	nextRun := "n/a"
	if !task.NextRun.IsZero() {
		nextRun = "in " + task.NextRun.Sub(now).Round(time.Second).String()
	}

	prefix := ""
	switch {
	case task.LastResult == "success":
		prefix = greenCheck + " "
	case task.LastResult != "":
		prefix = redCross + " "
	}

	return table.Row{
		bold(task.Name),
		state,
		interval,
		task.Runs,
		lastRun,
		nextRun,
		prefix + task.LastResult,
	}
}

func init() {
	tasksCmd.AddCommand(tasksListCmd)
}
