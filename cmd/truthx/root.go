package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var (
		configFlag   string
		logLevelFlag string
		verboseFlag  bool
	)

	ctx := newCommandContext(&configFlag, &logLevelFlag, &verboseFlag)

	rootCmd := &cobra.Command{
		Use:           "truthx",
		Short:         "Media authenticity analysis",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Override logging.level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Shorthand for --log-level=debug")

	rootCmd.AddCommand(newServeCommand(ctx))
	rootCmd.AddCommand(newAnalyzeCommand(ctx))
	rootCmd.AddCommand(newTextCommand(ctx))
	rootCmd.AddCommand(newProbeCommand(ctx))
	rootCmd.AddCommand(newHistoryCommand(ctx))
	rootCmd.AddCommand(newStatusCommand(ctx))
	rootCmd.AddCommand(newConfigCommand())
	rootCmd.AddCommand(newTestNotifyCommand(ctx))

	return rootCmd
}
