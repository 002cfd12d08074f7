package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rosilesmarcos01/bbms-sub000/internal/audit"
)

var fingerprintRaw bool

var tokenFingerprintCmd = &cobra.Command{
	Use:     "fingerprint TOKEN",
	Aliases: []string{"fp"},
	Short:   `Calculate the audit fingerprint of a token`,
	Long: `Calculates the fingerprint of an access token (SHA256, then base64).
This is the value stored in the audit log in the 'token_fingerprint' field.`,
	Example: `  # find the audit entry that issued a token
  bbms audit log --fingerprint "$(bbms token fingerprint -r "$TOKEN")"

  # read the token from stdin
  echo "$TOKEN" | bbms token fingerprint -`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		token, err := readTokenArg(args[0])
		if err != nil {
			return err
		}

		fp := audit.Fingerprint(token)
		if fingerprintRaw {
			fmt.Println(fp)
		} else {
			fmt.Println("Fingerprint:", fp)
		}
		return nil
	},
}

func init() {
	tokenCmd.AddCommand(tokenFingerprintCmd)

	tokenFingerprintCmd.Flags().BoolVarP(&fingerprintRaw, "raw", "r", false,
		"Output only the fingerprint value without additional text")
}
