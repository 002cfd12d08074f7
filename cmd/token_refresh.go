package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rosilesmarcos01/bbms-sub000/internal/cliconfig"
	"github.com/rosilesmarcos01/bbms-sub000/pkg/client"
)

var tokenRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Exchange the stored refresh token for a new session",
	RunE: func(cmd *cobra.Command, args []string) error {
		server, err := f.serverAddr()
		if err != nil {
			return err
		}
		cfg, err := cliconfig.Load()
		if err != nil {
			return err
		}
		cred, err := cfg.GetCredential(server)
		if err != nil {
			return fmt.Errorf("no stored session for %s, run 'bbms login' first: %w", server, err)
		}
		if cred.RefreshToken == "" {
			return fmt.Errorf("stored session for %s has no refresh token", server)
		}

		tokens, err := client.New(server).Refresh(cmd.Context(), cred.RefreshToken)
		if err != nil {
			return logError(err, "", "failed to refresh session")
		}

		cred.AccessToken = tokens.AccessToken
		cred.RefreshToken = tokens.RefreshToken
		cred.ExpiresAt = time.Now().Add(time.Duration(tokens.ExpiresIn) * time.Second)
		if err := cliconfig.Save(cfg); err != nil {
			return logError(err, "", "refresh succeeded but could not save credentials")
		}

		logSuccess("session refreshed, valid until %s", cred.ExpiresAt.Local().Format(time.RFC1123))
		return nil
	},
}

func init() {
	tokenCmd.AddCommand(tokenRefreshCmd)
}
