package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"truthx/internal/config"
	"truthx/internal/metadata"
)

func newProbeCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "probe <file>",
		Short: "Extract media metadata without scoring",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.cliLogger()
			if err != nil {
				return err
			}
			path, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); err != nil {
				return fmt.Errorf("inspect path %q: %w", path, err)
			}

			extractor := metadata.NewExtractor(cfg.Probe.FFprobeBinary, cfg.Probe.FFmpegBinary, cfg.ProbeTimeout(), logger)
			result := extractor.Extract(cmd.Context(), path)
			if jsonOutput {
				return writeJSON(cmd, struct {
					Strategy metadata.Strategy  `json:"strategy"`
					Attempts []metadata.Attempt `json:"failed_attempts"`
					Metadata metadata.Metadata  `json:"metadata"`
				}{result.Strategy, nonNilAttempts(result.Attempts), result.Metadata})
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			kind := statusOK
			if result.Degraded() {
				kind = statusWarn
			}
			fmt.Fprintln(out, renderStatusLine("Strategy", kind, string(result.Strategy), colorize))
			for _, attempt := range result.Attempts {
				fmt.Fprintln(out, renderStatusLine("Failed "+string(attempt.Strategy), statusWarn, strings.TrimSpace(attempt.Err.Error()), colorize))
			}
			fmt.Fprintln(out)
			renderMetadata(out, result.Metadata, colorize)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output metadata as JSON")
	return cmd
}

func nonNilAttempts(attempts []metadata.Attempt) []metadata.Attempt {
	if attempts == nil {
		return []metadata.Attempt{}
	}
	return attempts
}
