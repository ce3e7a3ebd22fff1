package source

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/yuukiLike/cc-catch-news/internal/config"
	"github.com/yuukiLike/cc-catch-news/internal/domain"
	"github.com/yuukiLike/cc-catch-news/internal/ports"
	"github.com/yuukiLike/cc-catch-news/internal/retry"
)

const (
	arxivBaseURL      = "https://arxiv.org"
	defaultArxivPages = 200
)

var dateExpr = regexp.MustCompile(`\d{1,2} [A-Za-z]{3} \d{4}`)

// Arxiv crawls category listing pages and returns papers announced since the cutoff day.
type Arxiv struct {
	enabled    bool
	categories []config.CategoryConfig
	client     *http.Client
	pageSize   int
	retrier    *retry.Retrier
	logger     *slog.Logger
}

var _ ports.Source = (*Arxiv)(nil)

type arxivEntry struct {
	id          string
	title       string
	abstract    string
	link        string
	publishedAt time.Time
}

// NewArxiv wires an HTTP client; pageSize defaults to 200.
func NewArxiv(cfg config.ArxivConfig, client *http.Client, retrier *retry.Retrier, logger *slog.Logger) *Arxiv {
	if client == nil {
		client = newHTTPClient()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Arxiv{
		enabled:    cfg.Enabled,
		categories: cfg.Categories,
		client:     client,
		pageSize:   defaultArxivPages,
		retrier:    retrier,
		logger:     logger.With("source", "arxiv"),
	}
}

// Name identifies the source in logs, metrics and run records.
func (a *Arxiv) Name() string { return "arxiv" }

// Label is the human-readable source name.
func (a *Arxiv) Label() string { return "arXiv" }

// Enabled reports whether it is switched on and has categories.
func (a *Arxiv) Enabled() bool { return a.enabled && len(a.categories) > 0 }

// Fetch walks each category, page by page, until it reaches entries older than since's day.
func (a *Arxiv) Fetch(ctx context.Context, since time.Time) ([]domain.RawArticle, error) {
	if len(a.categories) == 0 {
		return nil, fmt.Errorf("no arxiv categories configured")
	}

	cutoff := since.UTC().Truncate(24 * time.Hour)
	results := make([]domain.RawArticle, 0)
	seen := map[string]struct{}{}

	for _, cat := range a.categories {
		skip := 0
		for {
			pageURL, err := buildPageURL(cat.URL, skip, a.pageSize)
			if err != nil {
				return nil, fmt.Errorf("category %s: %w", cat.Name, err)
			}

			doc, err := retry.Do(ctx, a.retrier, "arxiv-"+cat.Name, func(ctx context.Context) (*goquery.Document, error) {
				return a.fetchDocument(ctx, pageURL)
			})
			if err != nil {
				return nil, fmt.Errorf("category %s: %w", cat.Name, err)
			}

			entries, shouldContinue := a.extractEntries(doc, cutoff)
			for _, entry := range entries {
				if _, ok := seen[entry.id]; ok {
					continue
				}
				seen[entry.id] = struct{}{}
				results = append(results, entry.toArticle(cat.Name))
			}

			if !shouldContinue {
				break
			}
			skip += a.pageSize
		}
	}

	a.logger.Info("fetched arxiv papers", "count", len(results), "categories", len(a.categories))
	return results, nil
}

func (a *Arxiv) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arxiv returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	return doc, nil
}

func (a *Arxiv) extractEntries(doc *goquery.Document, cutoff time.Time) ([]arxivEntry, bool) {
	var (
		collected    []arxivEntry
		continueScan = true
		processed    int
	)

	doc.Find("dl > dt").EachWithBreak(func(i int, dt *goquery.Selection) bool {
		processed++
		entry := parseEntry(dt, dt.Next())

		entryDay := entry.publishedAt.UTC().Truncate(24 * time.Hour)
		if entryDay.Before(cutoff) {
			continueScan = false
			return false
		}
		collected = append(collected, entry)
		return true
	})

	if processed < a.pageSize {
		continueScan = false
	}

	return collected, continueScan
}

func parseEntry(dt, dd *goquery.Selection) arxivEntry {
	link := dt.Find("a[href*=\"/abs/\"]").First()

	id := strings.TrimSpace(link.Text())
	href, _ := link.Attr("href")
	if id == "" {
		id = strings.TrimPrefix(href, "/abs/")
	}
	if href != "" && !strings.HasPrefix(href, "http") {
		href = strings.TrimSuffix(arxivBaseURL, "/") + href
	}

	title := strings.TrimSpace(dd.Find(".list-title").First().Text())
	title = strings.TrimSpace(strings.TrimPrefix(title, "Title:"))

	abstract := dd.Find("p.mathjax").First().Text()
	abstract = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(abstract), "Abstract:"))

	dateText := strings.TrimSpace(dd.Find(".list-date").First().Text())
	if dateText == "" {
		dateText = strings.TrimSpace(dd.Find(".list-dateline").First().Text())
	}

	publishedAt := time.Now().UTC()
	if match := dateExpr.FindString(dateText); match != "" {
		if parsed, err := time.Parse("2 Jan 2006", match); err == nil {
			publishedAt = parsed
		}
	}

	if id == "" {
		id = href
	}

	return arxivEntry{
		id:          id,
		title:       title,
		abstract:    abstract,
		link:        href,
		publishedAt: publishedAt,
	}
}

func (e arxivEntry) toArticle(category string) domain.RawArticle {
	published := e.publishedAt
	return domain.RawArticle{
		SourceID:   e.id,
		Title:      e.title,
		URL:        e.link,
		CreatedAt:  &published,
		SourceName: "arxiv",
		Meta: map[string]any{
			"category": category,
			"abstract": e.abstract,
		},
	}
}

func buildPageURL(base string, skip, pageSize int) (string, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid category url %s: %w", base, err)
	}

	query := parsed.Query()
	query.Set("skip", strconv.Itoa(skip))
	query.Set("show", strconv.Itoa(pageSize))
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}
