package commands

import (
	"fmt"

	"pastquestions-backend/cmd/pastq-cli/globals"

	"github.com/spf13/cobra"
)

var alocCount int

func init() {
	alocCmd.Flags().IntVar(&alocCount, "count", 50, "Number of questions to request from ALOC.")
	rootCmd.AddCommand(alocCmd)
}

var alocCmd = &cobra.Command{
	Use:   "aloc <subject>",
	Short: "Have the server import questions for a subject from ALOC.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := globals.Get(cmd.Context())

		msg, err := ctx.Client.FetchAloc(cmd.Context(), args[0], alocCount)
		if err != nil {
			return err
		}
		fmt.Println(msg.Message)
		return nil
	},
}
