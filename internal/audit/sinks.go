package audit

import (
	"log/slog"
	"time"

	"truthx/internal/config"
)

// NewSink assembles the sinks enabled in cfg. store may be nil when the local
// history is unavailable. The result is never nil.
func NewSink(cfg *config.Config, store *Store, logger *slog.Logger) (Sink, error) {
	if cfg == nil || !cfg.Audit.Enabled {
		return Nop{}, nil
	}
	var sinks Multi
	if store != nil {
		sinks = append(sinks, store)
	}
	if cfg.Audit.RestURL != "" {
		rest, err := NewRESTSink(
			cfg.Audit.RestURL,
			cfg.Audit.RestKey,
			cfg.Audit.RestTable,
			time.Duration(cfg.Audit.TimeoutSeconds)*time.Second,
			logger,
		)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, rest)
	}
	switch len(sinks) {
	case 0:
		return Nop{}, nil
	case 1:
		return sinks[0], nil
	}
	return sinks, nil
}
