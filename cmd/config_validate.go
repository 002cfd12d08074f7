package cmd

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// configValidateCmd represents the config validate command
var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the server configuration file",
	Long: `Parses the configuration file, applies defaults and checks the provider,
registry, token, policy, identity and audit sections. Nothing is connected.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := f.LoadServerConfig()
		if err != nil {
			log.Error().Err(err).Msgf("%s Configuration is invalid.", redCross)
			return BeQuietError{}
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Section", "Setting", "Value"})
		t.AppendRows([]table.Row{
			{"server", "addr", cfg.Server.Addr},
			{"provider", "type", cfg.Provider.Type},
			{"registry", "type", cfg.Registry.Type},
			{"registry", "operation_ttl", cfg.Registry.OperationTTL},
			{"registry", "sweep_interval", cfg.Registry.SweepInterval},
			{"policy", "face_match_threshold", cfg.Policy.FaceMatch()},
			{"policy", "confidence_threshold", cfg.Policy.Confidence()},
			{"policy", "rules", len(cfg.Policy.Rules)},
			{"identities", "type", cfg.Identities.Type},
			{"audit", "enabled", fmt.Sprintf("%t (%s)", cfg.Audit.Enabled, cfg.Audit.Type)},
		})
		applyTableFormat(t)
		t.Render()

		logSuccess("Configuration is valid.")
		return nil
	},
}

func init() {
	configCmd.AddCommand(configValidateCmd)

	f.bindConfigFlag(configValidateCmd.Flags())
}
