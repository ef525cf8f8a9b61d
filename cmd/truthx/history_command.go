package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"truthx/internal/audit"
	"truthx/internal/risk"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var (
		limit      int
		jsonOutput bool
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent analyses from the local log",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cfg.Audit.Enabled {
				return errors.New("analysis history is disabled (audit.enabled = false)")
			}
			store, err := audit.Open(cfg)
			if err != nil {
				return fmt.Errorf("open audit store: %w", err)
			}
			defer store.Close()

			entries, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, entries)
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No analyses recorded")
				return nil
			}
			colorize := shouldColorize(out)
			rows := make([][]string, 0, len(entries))
			for _, entry := range entries {
				level := risk.Level(entry.RiskLevel)
				rows = append(rows, []string{
					entry.CreatedAt.Local().Format(time.DateTime),
					entry.FileName,
					entry.FileType,
					strconv.Itoa(entry.Score),
					paint(string(level), statusKindColor(riskKind(level)), colorize),
					entry.Summary,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Analyzed", "File", "Type", "Score", "Risk", "Summary"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight},
			))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of entries to show")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output entries as JSON")
	return cmd
}
