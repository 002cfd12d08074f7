package cmd

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/rosilesmarcos01/bbms-sub000/internal/api"
	"github.com/rosilesmarcos01/bbms-sub000/internal/cliconfig"
	"github.com/rosilesmarcos01/bbms-sub000/internal/core"
	"github.com/rosilesmarcos01/bbms-sub000/internal/service"
	"github.com/rosilesmarcos01/bbms-sub000/pkg/client"
)

var (
	loginEnroll       bool
	loginPollInterval time.Duration
	loginTimeout      time.Duration
)

var loginCmd = &cobra.Command{
	Use:   "login IDENTITY-REF",
	Short: "Authenticate with a biometric capture",
	Long: `Opens a verification operation for the identity and prints the capture link of the
identity provider. Complete the capture there; the command polls until the proof was
checked. On success the session is saved locally for later authenticated commands.

Use --enroll for the first capture of an identity.`,
	Example: `  bbms login user-42 --server https://auth.example.com
  bbms login user-42 --enroll`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		identityRef := args[0]
		if identityRef == "" {
			return fmt.Errorf("identity ref cannot be empty")
		}

		server, err := f.serverAddr()
		if err != nil {
			return err
		}
		cli := client.New(server)

		purpose := core.PurposeAuthentication
		if loginEnroll {
			purpose = core.PurposeEnrollment
		}

		op, err := cli.Initiate(cmd.Context(), identityRef, purpose)
		if err != nil {
			return logError(err, "", "failed to start verification")
		}

		fmt.Println(bold("\n── Biometric " + string(op.Purpose) + " ──"))
		fmt.Printf("  %s: %s\n", faint("Open"), color.CyanString(op.ProviderHandoffURL))
		fmt.Printf("  %s: %s\n\n", faint("Expires"), op.ExpiresAt.Local().Format(time.Kitchen))

		resp, err := cli.WaitForSession(cmd.Context(), op.OperationID, client.WaitOptions{
			Interval: loginPollInterval,
			Timeout:  loginTimeout,
			OnPoll: func(_ *api.PollResponse, err error) {
				if err != nil {
					log.Warn().Err(err).Msg("provider temporarily unavailable, retrying")
					return
				}
				log.Debug().Msg("waiting for capture...")
			},
		})
		if err != nil {
			return logError(err, "", "verification did not finish")
		}

		if resp.Status != service.PollCompleted {
			log.Error().Msgf("%s verification ended with status %s", redCross, bold(string(resp.Status)))
			for _, reason := range resp.Reasons {
				log.Error().Msgf("  - %s", reason)
			}
			if resp.Status == service.PollManualReview {
				log.Info().Msg("An operator has to review this capture before you can log in.")
			}
			return BeQuietError{}
		}

		cfg, err := cliconfig.Load()
		if err != nil {
			return fmt.Errorf("loading credentials: %w", err)
		}
		if err := cfg.SetCredential(server, &cliconfig.Credential{
			IdentityRef:  identityRef,
			AccessToken:  resp.AccessToken,
			RefreshToken: resp.RefreshToken,
			ExpiresAt:    time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second),
		}); err != nil {
			return err
		}
		if err := cliconfig.Save(cfg); err != nil {
			return logError(err, "", "login succeeded but could not save credentials")
		}

		logSuccess("logged in as %s", bold(identityRef))
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session for the server",
	RunE: func(cmd *cobra.Command, args []string) error {
		server, err := f.serverAddr()
		if err != nil {
			return err
		}
		cfg, err := cliconfig.Load()
		if err != nil {
			return err
		}
		if err := cfg.RemoveCredential(server); err != nil {
			return err
		}
		if err := cliconfig.Save(cfg); err != nil {
			return err
		}
		logSuccess("removed session for %s", server)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)

	loginCmd.Flags().BoolVar(&loginEnroll, "enroll", false, "Enroll the identity instead of authenticating")
	loginCmd.Flags().DurationVar(&loginPollInterval, "poll-interval", client.DefaultPollInterval, "Interval between status polls")
	loginCmd.Flags().DurationVar(&loginTimeout, "timeout", client.DefaultWaitTimeout, "How long to wait for the capture")
}
