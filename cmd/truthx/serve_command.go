package main

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"truthx/internal/analyzer"
	"truthx/internal/logging"
	"truthx/internal/preflight"
	"truthx/internal/search"
	"truthx/internal/server"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP analysis API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), ctx)
		},
	}
}

func runServe(cmdCtx context.Context, ctx *commandContext) error {
	if cmdCtx == nil {
		cmdCtx = context.Background()
	}
	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := ctx.ensureConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logName := fmt.Sprintf("truthx-%s.log", runID)
	logger, err := logging.NewFromConfig(cfg, logName)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "truthx-*.log", Exclude: []string{filepath.Join(cfg.Paths.LogDir, logName)}},
	)

	for _, status := range preflight.CheckSystemDeps(cfg) {
		if !status.Available {
			logging.WarnWithContext(logger, "dependency unavailable", "dependency_missing",
				logging.String("dependency", status.Name),
				logging.String("detail", status.Detail),
				logging.String(logging.FieldImpact, status.Description),
			)
		}
	}
	for _, result := range preflight.Failed(preflight.RunAll(signalCtx, cfg)) {
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
		)
	}

	var opts []analyzer.Option
	if cfg.Search.Enabled {
		index, err := search.NewIndex(cfg.Paths.ArticlesPath, logger)
		if err != nil {
			logging.WarnWithContext(logger, "article index unavailable", "articles_invalid",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "fix paths.articles_path; the file is reloaded on change"),
			)
		}
		opts = append(opts, analyzer.WithArticleSearcher(index))
		if cfg.Search.Watch {
			go func() {
				if err := index.Watch(signalCtx, search.DefaultDebounce); err != nil {
					logging.WarnWithContext(logger, "article watcher stopped", "articles_watch_failed", logging.Error(err))
				}
			}()
		}
	}

	p, err := openPipeline(cfg, logger, opts...)
	if err != nil {
		return err
	}
	defer p.Close()

	var serverOpts []server.Option
	if p.store != nil {
		serverOpts = append(serverOpts, server.WithHistory(p.store))
	}
	srv, err := server.New(cfg, p.analyzer, logger, serverOpts...)
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}
	if err := srv.Start(signalCtx); err != nil {
		return err
	}
	logger.Info("truthx serving",
		logging.String("address", srv.Addr()),
		logging.String("models", p.analyzer.ModelsUsed()),
	)

	<-signalCtx.Done()
	srv.Stop()
	logger.Info("truthx shutting down")
	return nil
}
