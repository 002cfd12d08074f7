package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the identity of the current session",
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := f.GetClient()
		if err != nil {
			return err
		}

		me, err := cli.Me(cmd.Context())
		if err != nil {
			return logError(err, "", "failed to load session")
		}

		fmt.Println(bold("\n── Session ──"))
		fmt.Printf("  %-16s %s\n", faint("Subject:"), me.Claims.SubjectID)
		if me.Identity != nil {
			fmt.Printf("  %-16s %s\n", faint("Email:"), me.Identity.Email)
			fmt.Printf("  %-16s %s\n", faint("Role:"), me.Identity.Role)
			fmt.Printf("  %-16s %d\n", faint("Access level:"), me.Identity.AccessLevel)
			fmt.Printf("  %-16s %t\n", faint("Enrolled:"), me.Identity.Enrolled)
		}
		fmt.Printf("  %-16s %s (in %s)\n", faint("Expires:"),
			me.Claims.ExpiresAt.Local().Format(time.RFC1123),
			time.Until(me.Claims.ExpiresAt).Round(time.Second))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(whoamiCmd)
}
