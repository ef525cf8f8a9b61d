package main

import (
	"fmt"
	"log/slog"

	"truthx/internal/analyzer"
	"truthx/internal/audit"
	"truthx/internal/config"
)

// pipeline bundles an analyzer with the audit store it writes to.
type pipeline struct {
	analyzer *analyzer.Analyzer
	store    *audit.Store
}

// openPipeline builds the analyzer with the configured audit sinks. The store
// is nil when auditing is disabled.
func openPipeline(cfg *config.Config, logger *slog.Logger, opts ...analyzer.Option) (*pipeline, error) {
	p := &pipeline{}
	if cfg.Audit.Enabled {
		store, err := audit.Open(cfg)
		if err != nil {
			return nil, fmt.Errorf("open audit store: %w", err)
		}
		p.store = store
	}
	sink, err := audit.NewSink(cfg, p.store, logger)
	if err != nil {
		p.closeStore()
		return nil, fmt.Errorf("configure audit sinks: %w", err)
	}
	base := []analyzer.Option{analyzer.WithLogger(logger), analyzer.WithSink(sink)}
	a, err := analyzer.New(cfg, append(base, opts...)...)
	if err != nil {
		p.closeStore()
		return nil, err
	}
	p.analyzer = a
	return p, nil
}

// Close drains background writes before closing the store.
func (p *pipeline) Close() {
	if p.analyzer != nil {
		_ = p.analyzer.Close()
	}
	p.closeStore()
}

func (p *pipeline) closeStore() {
	if p.store != nil {
		_ = p.store.Close()
		p.store = nil
	}
}
