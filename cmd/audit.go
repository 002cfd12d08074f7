package cmd

import (
	"github.com/spf13/cobra"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Read the session audit trail",
	Long: `Initiations, poll outcomes and refreshes are audited by the server.
These commands query it remotely and need a session with the admin role (bbms login).`,
	Args: cobra.NoArgs,
}

func init() {
	rootCmd.AddCommand(auditCmd)
}
