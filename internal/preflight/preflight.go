package preflight

import (
	"context"
	"strings"

	"truthx/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
// Checks are only run when the corresponding feature is enabled.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckDirectoryAccess("Temp directory", cfg.Paths.TempDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}

	if cfg.Search.Enabled {
		results = append(results, CheckArticles(cfg.Paths.ArticlesPath))
	}
	if strings.TrimSpace(cfg.Video.InferenceURL) != "" {
		results = append(results, CheckInference(ctx, cfg.Video.InferenceURL))
	}
	if strings.TrimSpace(cfg.LLM.APIKey) != "" {
		results = append(results, CheckLLM(ctx, "Text classifier LLM", cfg.LLM))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
