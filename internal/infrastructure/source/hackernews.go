package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/yuukiLike/cc-catch-news/internal/config"
	"github.com/yuukiLike/cc-catch-news/internal/domain"
	"github.com/yuukiLike/cc-catch-news/internal/ports"
	"github.com/yuukiLike/cc-catch-news/internal/retry"
)

const (
	defaultHNBaseURL  = "https://hn.algolia.com/api/v1"
	hnItemURL         = "https://news.ycombinator.com/item?id="
	hnQueryGap        = 250 * time.Millisecond
	defaultHNPageSize = 50
)

type hnHit struct {
	ObjectID    string  `json:"objectID"`
	Title       string  `json:"title"`
	URL         *string `json:"url"`
	StoryURL    *string `json:"story_url"`
	Points      *int    `json:"points"`
	NumComments *int    `json:"num_comments"`
	Author      string  `json:"author"`
	CreatedAt   string  `json:"created_at"`
	CreatedAtI  int64   `json:"created_at_i"`
}

type hnSearchResponse struct {
	Hits   []hnHit `json:"hits"`
	NbHits int     `json:"nbHits"`
}

// HackerNews searches Algolia's HN index for recent AI stories.
type HackerNews struct {
	enabled     bool
	baseURL     string
	queries     []string
	hitsPerPage int
	client      *http.Client
	retrier     *retry.Retrier
	limiter     *rate.Limiter
	logger      *slog.Logger
}

var _ ports.Source = (*HackerNews)(nil)

// NewHackerNews builds the connector from configuration.
func NewHackerNews(cfg config.HackerNewsConfig, retrier *retry.Retrier, logger *slog.Logger) *HackerNews {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultHNBaseURL
	}
	hitsPerPage := cfg.HitsPerPage
	if hitsPerPage <= 0 {
		hitsPerPage = defaultHNPageSize
	}
	return &HackerNews{
		enabled:     cfg.Enabled,
		baseURL:     baseURL,
		queries:     cfg.Queries,
		hitsPerPage: hitsPerPage,
		client:      newHTTPClient(),
		retrier:     retrier,
		limiter:     rate.NewLimiter(rate.Every(hnQueryGap), 1),
		logger:      logger.With("source", "hackernews"),
	}
}

// Name identifies the source in logs, metrics and run records.
func (h *HackerNews) Name() string { return "hackernews" }

// Label is the human-readable source name.
func (h *HackerNews) Label() string { return "Hacker News" }

// Enabled reports whether it is switched on and has queries.
func (h *HackerNews) Enabled() bool { return h.enabled && len(h.queries) > 0 }

// Fetch runs every query, merging hits by object id. A failing query is logged
// and skipped; only when every query fails is an error returned.
func (h *HackerNews) Fetch(ctx context.Context, since time.Time) ([]domain.RawArticle, error) {
	seen := make(map[string]struct{})
	var (
		articles []domain.RawArticle
		errs     []error
	)

	for _, query := range h.queries {
		if err := h.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("pace hn queries: %w", err)
		}

		endpoint := h.searchURL(query, since)
		resp, err := retry.Do(ctx, h.retrier, "hn-search-"+query, func(ctx context.Context) (hnSearchResponse, error) {
			var out hnSearchResponse
			err := getJSON(ctx, h.client, endpoint, &out)
			return out, err
		})
		if err != nil {
			h.logger.Error("failed to fetch hn results for query", "query", query, "error", err)
			errs = append(errs, fmt.Errorf("query %q: %w", query, err))
			continue
		}

		for _, hit := range resp.Hits {
			if _, ok := seen[hit.ObjectID]; ok {
				continue
			}
			seen[hit.ObjectID] = struct{}{}
			if article, ok := hit.toArticle(); ok {
				articles = append(articles, article)
			}
		}
	}

	if len(errs) == len(h.queries) && len(errs) > 0 {
		return nil, fmt.Errorf("all hn queries failed: %w", errors.Join(errs...))
	}

	h.logger.Info("fetched hn articles", "count", len(articles))
	return articles, nil
}

func (h *HackerNews) searchURL(query string, since time.Time) string {
	params := url.Values{}
	params.Set("query", query)
	params.Set("tags", "story")
	params.Set("numericFilters", "created_at_i>"+strconv.FormatInt(since.Unix(), 10))
	params.Set("hitsPerPage", strconv.Itoa(h.hitsPerPage))
	return h.baseURL + "/search?" + params.Encode()
}

func (hit hnHit) toArticle() (domain.RawArticle, bool) {
	link := ""
	if hit.URL != nil && *hit.URL != "" {
		link = *hit.URL
	} else if hit.StoryURL != nil {
		link = *hit.StoryURL
	}
	if link == "" {
		return domain.RawArticle{}, false
	}

	article := domain.RawArticle{
		SourceID:     hit.ObjectID,
		Title:        hit.Title,
		URL:          link,
		Score:        hit.Points,
		CommentCount: hit.NumComments,
		Author:       hit.Author,
		SourceName:   "hackernews",
		Meta:         map[string]any{"hnUrl": hnItemURL + hit.ObjectID},
	}
	if created, err := time.Parse(time.RFC3339, hit.CreatedAt); err == nil {
		article.CreatedAt = &created
	} else if hit.CreatedAtI > 0 {
		created := time.Unix(hit.CreatedAtI, 0).UTC()
		article.CreatedAt = &created
	}
	return article, true
}
