package source

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/yuukiLike/cc-catch-news/internal/config"
	"github.com/yuukiLike/cc-catch-news/internal/domain"
	"github.com/yuukiLike/cc-catch-news/internal/ports"
	"github.com/yuukiLike/cc-catch-news/internal/retry"
)

const defaultRSSMaxItems = 50

// RSS reads one RSS or Atom feed. Each configured feed is its own source so a
// broken feed never hides the others.
type RSS struct {
	name     string
	feedURL  string
	maxItems int
	parser   *gofeed.Parser
	retrier  *retry.Retrier
	logger   *slog.Logger
}

var _ ports.Source = (*RSS)(nil)

// NewRSS builds a feed source.
func NewRSS(feed config.FeedConfig, maxItems int, retrier *retry.Retrier, logger *slog.Logger) *RSS {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if maxItems <= 0 {
		maxItems = defaultRSSMaxItems
	}
	parser := gofeed.NewParser()
	parser.Client = newHTTPClient()
	parser.UserAgent = userAgent

	r := &RSS{
		name:     feed.Name,
		feedURL:  feed.URL,
		maxItems: maxItems,
		parser:   parser,
		retrier:  retrier,
	}
	r.logger = logger.With("source", r.Name())
	return r
}

// NewRSSSources builds one source per configured feed.
func NewRSSSources(cfg config.RSSConfig, retrier *retry.Retrier, logger *slog.Logger) []*RSS {
	sources := make([]*RSS, 0, len(cfg.Feeds))
	for _, feed := range cfg.Feeds {
		sources = append(sources, NewRSS(feed, cfg.MaxItems, retrier, logger))
	}
	return sources
}

// Name identifies the source in logs, metrics and run records.
func (r *RSS) Name() string { return "rss:" + r.name }

// Label is the human-readable source name.
func (r *RSS) Label() string { return r.name }

// Enabled reports whether the feed has a URL.
func (r *RSS) Enabled() bool { return r.feedURL != "" }

// Fetch returns feed items published after since. Items without a date are kept.
func (r *RSS) Fetch(ctx context.Context, since time.Time) ([]domain.RawArticle, error) {
	feed, err := retry.Do(ctx, r.retrier, "rss-"+r.name, func(ctx context.Context) (*gofeed.Feed, error) {
		return r.parser.ParseURLWithContext(r.feedURL, ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", r.name, err)
	}

	articles := make([]domain.RawArticle, 0, min(len(feed.Items), r.maxItems))
	for _, item := range feed.Items {
		if len(articles) == r.maxItems {
			break
		}
		if item.Link == "" {
			continue
		}

		published := item.PublishedParsed
		if published == nil {
			published = item.UpdatedParsed
		}
		if published != nil && !published.After(since) {
			continue
		}

		id := item.GUID
		if id == "" {
			id = item.Link
		}
		author := ""
		if item.Author != nil {
			author = item.Author.Name
		}

		articles = append(articles, domain.RawArticle{
			SourceID:   id,
			Title:      item.Title,
			URL:        item.Link,
			Author:     author,
			CreatedAt:  published,
			SourceName: r.Name(),
			Meta: map[string]any{
				"feed":       feed.Title,
				"categories": item.Categories,
			},
		})
	}

	r.logger.Info("fetched feed items", "count", len(articles), "items", len(feed.Items))
	return articles, nil
}
