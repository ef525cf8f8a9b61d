package analyzer

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"truthx/internal/classify"
	"truthx/internal/logging"
	"truthx/internal/search"
)

// classifyAndSearch runs the text classifier and the article search
// concurrently. Neither task can fail the request.
func (a *Analyzer) classifyAndSearch(ctx context.Context, query string, logger *slog.Logger) (classify.TextResult, []search.Result) {
	var (
		text     classify.TextResult
		articles []search.Result
	)
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		text = classify.SafeClassifyText(groupCtx, a.text, query, logger)
		return nil
	})
	if a.articles != nil {
		group.Go(func() error {
			articles = a.safeSearch(query, logger)
			return nil
		})
	}
	_ = group.Wait()
	return text, articles
}

func (a *Analyzer) safeSearch(query string, logger *slog.Logger) (results []search.Result) {
	defer func() {
		if r := recover(); r != nil {
			logging.ErrorWithContext(logger, "article search failed", "search_failed",
				logging.Error(fmt.Errorf("article search panic: %v", r)),
				logging.String(logging.FieldImpact, "report carries no related articles"),
			)
			results = nil
		}
	}()
	results = a.articles.Search(query, a.topK)
	logger.Debug("article search complete", logging.Int("results", len(results)))
	return results
}
