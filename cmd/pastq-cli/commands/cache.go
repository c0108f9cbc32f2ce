package commands

import (
	"fmt"

	"pastquestions-backend/cmd/pastq-cli/globals"

	"github.com/spf13/cobra"
)

func init() {
	cacheCmd.AddCommand(clearEmptyCmd)
	rootCmd.AddCommand(cacheCmd)
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the local partition cache.",
}

var clearEmptyCmd = &cobra.Command{
	Use:   "clear-empty",
	Short: "Remove cached partitions that hold no questions so they are scraped again.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := globals.Get(cmd.Context())

		removed, err := ctx.Cache.ClearEmpty()
		if err != nil {
			return err
		}
		for _, path := range removed {
			fmt.Println(path)
		}
		fmt.Printf("removed %d empty partitions from %s\n", len(removed), ctx.Cache.Root)
		return nil
	},
}
