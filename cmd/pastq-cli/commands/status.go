package commands

import (
	"fmt"

	"pastquestions-backend/cmd/pastq-cli/globals"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check that the server is reachable.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := globals.Get(cmd.Context())

		health, err := ctx.Client.Health(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("%s: %s (%s)\n", ctx.Client.BaseURL, health.Status, health.Message)
		return nil
	},
}
