package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// tokenCmd represents the token command
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Interact with session tokens",
}

func init() {
	rootCmd.AddCommand(tokenCmd)
}

// readTokenArg returns the token argument, reading stdin for "-".
func readTokenArg(arg string) (string, error) {
	token := arg
	if arg == "-" {
		log.Debug().Msg("Reading token from stdin")
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read token from stdin: %w", err)
		}
		token = string(data)
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", fmt.Errorf("token cannot be empty")
	}
	return token, nil
}
