package cmd

import (
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/rosilesmarcos01/bbms-sub000/internal/config"
	"github.com/rosilesmarcos01/bbms-sub000/internal/core"
)

var tokenInspectCmd = &cobra.Command{
	Use:   "inspect TOKEN",
	Short: "Verify a session token locally and show its claims",
	Long: `Verifies the signature, expiry, issuer and audience of an access token with the
signing key from BBMS_SIGNING_KEY. Issuer and audience are taken from the server config
if --config points to one. Pass --refresh to inspect a refresh token and "-" to read
the token from stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		token, err := readTokenArg(args[0])
		if err != nil {
			return err
		}

		var tokenCfg config.TokenConfig
		if _, statErr := os.Stat(f.ConfigPath); statErr == nil {
			cfg, err := f.LoadServerConfig()
			if err != nil {
				return err
			}
			tokenCfg = cfg.Tokens
		}

		issuer, err := f.NewTokenIssuer(tokenCfg)
		if err != nil {
			return err
		}

		verify := issuer.Verify
		if refresh, _ := cmd.Flags().GetBool("refresh"); refresh {
			verify = issuer.VerifyRefresh
		}
		claims, err := verify(token)
		if err != nil {
			return logError(err, "", "token is not valid")
		}

		printClaims(claims)
		return nil
	},
}

func printClaims(claims *core.Claims) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Claim", "Value"})
	t.AppendRows([]table.Row{
		{"sub", claims.SubjectID},
		{"token_type", claims.Type},
		{"email", claims.Email},
		{"role", claims.Role},
		{"access_level", claims.AccessLevel},
		{"iss", claims.Issuer},
		{"aud", strings.Join(claims.Audience, ", ")},
		{"iat", claims.IssuedAt.Local().Format(time.RFC3339)},
		{"exp", claims.ExpiresAt.Local().Format(time.RFC3339) + " " +
			color.New(color.Faint).Sprintf("(in %s)", time.Until(claims.ExpiresAt).Round(time.Second))},
		{"jti", claims.ID},
	})
	applyTableFormat(t)
	t.Render()
	logSuccess("token is valid")
}

func init() {
	tokenCmd.AddCommand(tokenInspectCmd)

	f.bindConfigFlag(tokenInspectCmd.Flags())
	tokenInspectCmd.Flags().Bool("refresh", false, "Inspect a refresh token instead of an access token")
}
