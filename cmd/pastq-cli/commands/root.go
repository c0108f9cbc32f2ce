package commands

import (
	"context"
	"fmt"
	"os"

	"pastquestions-backend/cmd/pastq-cli/globals"
	"pastquestions-backend/internal/components/telemetry"

	"github.com/spf13/cobra"
)

var (
	verbose    bool
	configPath string
	serverUrl  string
	dataDir    string
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging and dump http exchanges into the data dir.")
	flags.StringVar(&configPath, "config", "pastq.json5", "Path to the config file.")
	flags.StringVar(&serverUrl, "server", "", "Past questions server url, overrides the config.")
	flags.StringVar(&dataDir, "data-dir", "", "Directory for cached scrapes, overrides the config.")
}

var rootCmd = &cobra.Command{
	Use:          "pastq-cli",
	Short:        "pastq-cli scrapes exam past questions and syncs them into a past questions server.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		telemetry.InitSlog(verbose)

		config, err := globals.LoadConfig(configPath)
		if err != nil {
			return err
		}
		if serverUrl != "" {
			config.Server = serverUrl
		}
		if dataDir != "" {
			config.DataDir = dataDir
		}

		value, err := globals.New(config, verbose)
		if err != nil {
			return err
		}
		cmd.SetContext(globals.Set(cmd.Context(), value))
		return nil
	},
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
