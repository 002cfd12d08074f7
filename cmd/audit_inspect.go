package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/rosilesmarcos01/bbms-sub000/pkg/client"
)

var auditInspectCmd = &cobra.Command{
	Use:     "inspect CORRELATION-ID",
	Short:   "Show full details of the audit entries of one request",
	Example: `  bbms audit inspect cq1v8l8s4q1c73b0e9h0`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		correlationID := args[0]
		if correlationID == "" {
			return fmt.Errorf("correlation ID cannot be empty")
		}

		cli, err := f.GetClient()
		if err != nil {
			return err
		}

		log.Debug().Msgf("Retrieving entries with correlation ID '%s'...", correlationID)
		audits, correlation, err := cli.ListAudits(cmd.Context(), client.ListAuditsOpts{
			Limit:         10,
			CorrelationID: correlationID,
		})
		if err != nil {
			return logError(err, correlation, "failed to retrieve audit log entry")
		}
		if len(audits) == 0 {
			log.Warn().Str("correlation_id", correlationID).Msg("no audit log entries found")
			return nil
		}

		green := color.New(color.FgGreen).SprintFunc()
		red := color.New(color.FgRed).SprintFunc()

		printKV := func(key string, val any) {
			if s, ok := val.(string); ok && s == "" {
				val = faint("(none)")
			}
			fmt.Printf("  %-26s %v\n", faint(key)+":", val)
		}

		for _, entry := range audits {
			status := green("success")
			if !entry.Success {
				status = red("no success")
			}

			fmt.Println(bold("\n── Audit Entry ──"))
			printKV("Correlation ID", entry.ID)
			printKV("Time", entry.Time.Local().Format(time.RFC1123))
			printKV("Action", entry.Action)
			printKV("Result", status)
			printKV("Outcome", entry.Outcome)

			fmt.Println(bold("\n── Operation ──"))
			printKV("Identity", entry.IdentityRef)
			printKV("Operation ID", entry.OperationID)
			printKV("Purpose", string(entry.Purpose))
			printKV("Reason codes", strings.Join(entry.ReasonCodes, ", "))
			printKV("Token fingerprint", entry.TokenFingerprint)

			if entry.Error != "" {
				fmt.Println(bold("\n── Error ──"))
				fmt.Printf("  %s\n", red(entry.Error))
			}
		}
		return nil
	},
}

func init() {
	auditCmd.AddCommand(auditInspectCmd)
}
