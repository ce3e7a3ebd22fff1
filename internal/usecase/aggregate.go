package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/yuukiLike/cc-catch-news/internal/domain"
	"github.com/yuukiLike/cc-catch-news/internal/ports"
)

// Aggregate fetches from each source in order and concatenates the results.
// A failing or panicking source is logged and skipped.
func Aggregate(ctx context.Context, sources []ports.Source, since time.Time, logger *slog.Logger, metrics Metrics) []domain.RawArticle {
	var all []domain.RawArticle
	for _, src := range sources {
		logger.Info("fetching from source", "source", src.Name())

		articles, err := fetchSource(ctx, src, since)
		if err != nil {
			logger.Error("source fetch failed", "source", src.Name(), "error", err)
			metrics.SourceFailed(src.Name())
			continue
		}

		logger.Info("source fetch complete", "source", src.Name(), "count", len(articles))
		metrics.SourceFetched(src.Name(), len(articles))
		all = append(all, articles...)
	}
	return all
}

func fetchSource(ctx context.Context, src ports.Source, since time.Time) (articles []domain.RawArticle, err error) {
	defer func() {
		if r := recover(); r != nil {
			articles, err = nil, fmt.Errorf("source panic: %v", r)
		}
	}()
	return src.Fetch(ctx, since)
}
