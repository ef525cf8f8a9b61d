package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"truthx/internal/audit"
	"truthx/internal/preflight"
	"truthx/internal/risk"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check dependencies, collaborators, and the analysis log",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			lines := renderSectionHeader("Dependencies", colorize)
			for _, status := range preflight.CheckSystemDeps(cfg) {
				kind := statusOK
				message := status.Path
				if !status.Available {
					kind = statusError
					if status.Optional {
						kind = statusWarn
					}
					message = status.Detail
				}
				lines = append(lines, renderStatusLine(status.Name, kind, message, colorize))
			}

			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Checks", colorize)...)
			for _, result := range preflight.RunAll(cmd.Context(), cfg) {
				kind := statusOK
				if !result.Passed {
					kind = statusError
				}
				lines = append(lines, renderStatusLine(result.Name, kind, result.Detail, colorize))
			}

			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Models", colorize)...)
			lines = append(lines,
				renderStatusLine("Frame classifier", statusInfo, classifierMode(cfg.Video.InferenceURL), colorize),
				renderStatusLine("Text classifier", statusInfo, classifierMode(cfg.LLM.APIKey), colorize),
				renderStatusLine("Article search", statusInfo, yesNo(cfg.Search.Enabled), colorize),
				renderStatusLine("REST audit sink", statusInfo, yesNo(cfg.Audit.Enabled && cfg.Audit.RestURL != ""), colorize),
				renderStatusLine("Notifications", statusInfo, yesNo(cfg.Notifications.NtfyTopic != ""), colorize),
			)

			if cfg.Audit.Enabled {
				lines = append(lines, "")
				lines = append(lines, renderSectionHeader("History", colorize)...)
				lines = append(lines, historyStatusLines(cmd, cfg.AuditDBPath(), colorize)...)
			}

			fmt.Fprintln(out, strings.Join(lines, "\n"))
			return nil
		},
	}
}

func historyStatusLines(cmd *cobra.Command, path string, colorize bool) []string {
	store, err := audit.OpenPath(path)
	if err != nil {
		return []string{renderStatusLine("Analysis log", statusError, err.Error(), colorize)}
	}
	defer store.Close()
	stats, err := store.Stats(cmd.Context())
	if err != nil {
		return []string{renderStatusLine("Analysis log", statusError, err.Error(), colorize)}
	}
	lines := []string{renderStatusLine("Analysis log", statusOK, path, colorize)}
	lines = append(lines, renderStatusLine("Analyses", statusInfo, fmt.Sprintf("%d total", stats.Total), colorize))
	for _, level := range []risk.Level{risk.LevelLow, risk.LevelMedium, risk.LevelHigh} {
		lines = append(lines, renderStatusLine(string(level)+" risk", riskKind(level), strconv.Itoa(stats.ByLevel[string(level)]), colorize))
	}
	return lines
}
