package main

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"truthx/internal/analyzer"
	"truthx/internal/report"
)

func newAnalyzeCommand(ctx *commandContext) *cobra.Command {
	var (
		query      string
		jsonOutput bool
	)
	cmd := &cobra.Command{
		Use:   "analyze <file>",
		Short: "Analyze a local media file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalysis(cmd, ctx, jsonOutput, func(a *analyzer.Analyzer) (report.Report, error) {
				return a.AnalyzeFile(cmd.Context(), args[0], query)
			})
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "Text to analyze alongside the file")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the report as JSON")
	return cmd
}

func newTextCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "text <query>",
		Short: "Analyze a text claim",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return runAnalysis(cmd, ctx, jsonOutput, func(a *analyzer.Analyzer) (report.Report, error) {
				return a.Analyze(cmd.Context(), analyzer.Request{Query: query})
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the report as JSON")
	return cmd
}

func runAnalysis(cmd *cobra.Command, ctx *commandContext, jsonOutput bool, run func(*analyzer.Analyzer) (report.Report, error)) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := ctx.cliLogger()
	if err != nil {
		return err
	}
	p, err := openPipeline(cfg, logger)
	if err != nil {
		return err
	}
	defer p.Close()

	rep, err := run(p.analyzer)
	if errors.Is(err, analyzer.ErrNoInput) {
		return errors.New(analyzer.NoInputMessage)
	}
	if err != nil {
		return err
	}
	if jsonOutput {
		return writeJSON(cmd, rep)
	}
	out := cmd.OutOrStdout()
	renderReport(out, rep, shouldColorize(out))
	return nil
}
