package source

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/yuukiLike/cc-catch-news/internal/config"
	"github.com/yuukiLike/cc-catch-news/internal/domain"
	"github.com/yuukiLike/cc-catch-news/internal/ports"
	"github.com/yuukiLike/cc-catch-news/internal/retry"
)

const (
	defaultPHEndpoint = "https://api.producthunt.com/v2/api/graphql"
	defaultPHTopic    = "artificial-intelligence"
	phPageSize        = 50
)

const phPostsQuery = `query Posts($first: Int!, $postedAfter: DateTime!, $topic: String!) {
  posts(first: $first, postedAfter: $postedAfter, topic: $topic) {
    edges {
      node {
        id
        name
        tagline
        url
        votesCount
        website
        createdAt
        topics { edges { node { name } } }
      }
    }
  }
}`

type phRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type phNode struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Tagline    string `json:"tagline"`
	URL        string `json:"url"`
	VotesCount *int   `json:"votesCount"`
	Website    string `json:"website"`
	CreatedAt  string `json:"createdAt"`
	Topics     struct {
		Edges []struct {
			Node struct {
				Name string `json:"name"`
			} `json:"node"`
		} `json:"edges"`
	} `json:"topics"`
}

type phResponse struct {
	Data struct {
		Posts struct {
			Edges []struct {
				Node phNode `json:"node"`
			} `json:"edges"`
		} `json:"posts"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// ProductHunt queries the Product Hunt GraphQL API for launches in the AI topic.
type ProductHunt struct {
	token    string
	endpoint string
	topic    string
	client   *http.Client
	retrier  *retry.Retrier
	logger   *slog.Logger
}

var _ ports.Source = (*ProductHunt)(nil)

// NewProductHunt builds the connector; it is enabled only with an API token.
func NewProductHunt(cfg config.ProductHuntConfig, retrier *retry.Retrier, logger *slog.Logger) *ProductHunt {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultPHEndpoint
	}
	topic := cfg.Topic
	if topic == "" {
		topic = defaultPHTopic
	}
	return &ProductHunt{
		token:    cfg.Token,
		endpoint: endpoint,
		topic:    topic,
		client:   newHTTPClient(),
		retrier:  retrier,
		logger:   logger.With("source", "producthunt"),
	}
}

// Name identifies the source in logs, metrics and run records.
func (p *ProductHunt) Name() string { return "producthunt" }

// Label is the human-readable source name.
func (p *ProductHunt) Label() string { return "Product Hunt" }

// Enabled reports whether an API token is configured.
func (p *ProductHunt) Enabled() bool { return p.token != "" }

// Fetch returns posts launched after since.
func (p *ProductHunt) Fetch(ctx context.Context, since time.Time) ([]domain.RawArticle, error) {
	if p.token == "" {
		p.logger.Warn("product hunt token not set, skipping")
		return nil, nil
	}

	payload := phRequest{
		Query: phPostsQuery,
		Variables: map[string]any{
			"first":       phPageSize,
			"postedAfter": since.UTC().Format(time.RFC3339),
			"topic":       p.topic,
		},
	}

	resp, err := retry.Do(ctx, p.retrier, "producthunt-fetch", func(ctx context.Context) (phResponse, error) {
		var out phResponse
		if err := postJSON(ctx, p.client, p.endpoint, p.token, payload, &out); err != nil {
			return out, err
		}
		if len(out.Errors) > 0 {
			return out, fmt.Errorf("graphql error: %s", out.Errors[0].Message)
		}
		return out, nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetch product hunt posts: %w", err)
	}

	articles := make([]domain.RawArticle, 0, len(resp.Data.Posts.Edges))
	for _, edge := range resp.Data.Posts.Edges {
		articles = append(articles, edge.Node.toArticle())
	}

	p.logger.Info("fetched product hunt posts", "count", len(articles))
	return articles, nil
}

func (n phNode) toArticle() domain.RawArticle {
	link := n.Website
	if link == "" {
		link = n.URL
	}

	topics := make([]string, 0, len(n.Topics.Edges))
	for _, edge := range n.Topics.Edges {
		topics = append(topics, edge.Node.Name)
	}

	article := domain.RawArticle{
		SourceID:   n.ID,
		Title:      n.Name + " — " + n.Tagline,
		URL:        link,
		Score:      n.VotesCount,
		SourceName: "producthunt",
		Meta: map[string]any{
			"phUrl":  n.URL,
			"topics": topics,
		},
	}
	if created, err := time.Parse(time.RFC3339, n.CreatedAt); err == nil {
		article.CreatedAt = &created
	}
	return article
}
