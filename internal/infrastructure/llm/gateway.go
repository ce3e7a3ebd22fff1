package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/yuukiLike/cc-catch-news/internal/config"
	"github.com/yuukiLike/cc-catch-news/internal/domain"
	"github.com/yuukiLike/cc-catch-news/internal/ports"
	"github.com/yuukiLike/cc-catch-news/internal/retry"
)

const retryLabel = "ai-filter"

var errEmptyCompletion = errors.New("no text in ai response")

// Gateway implements ports.Summarizer backed by any OpenAI-compatible chat API.
type Gateway struct {
	client    *openai.Client
	model     string
	maxTokens int
	retrier   *retry.Retrier
	logger    *slog.Logger
}

var _ ports.Summarizer = (*Gateway)(nil)

// NewGateway builds a gateway from configuration. The retrier is narrowed by cfg.Retry.
func NewGateway(cfg config.AIConfig, retrier *retry.Retrier, logger *slog.Logger) (*Gateway, error) {
	if cfg.APIKey == "" || cfg.Model == "" {
		return nil, fmt.Errorf("ai gateway misconfigured")
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	clientCfg.HTTPClient = &http.Client{Timeout: timeout}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Gateway{
		client:    openai.NewClientWithConfig(clientCfg),
		model:     cfg.Model,
		maxTokens: maxTokens,
		retrier: retrier.With(retry.Policy{
			MaxAttempts: cfg.Retry.MaxAttempts,
			BaseDelay:   cfg.Retry.BaseDelay,
			MaxDelay:    cfg.Retry.MaxDelay,
		}),
		logger: logger,
	}, nil
}

// SummarizeAndRank sends the numbered article list to the model and returns at most topN
// results ordered by descending score. A reply that is not a JSON array yields no results
// and no error; transport failures surface once retries are exhausted.
func (g *Gateway) SummarizeAndRank(ctx context.Context, articles []domain.RawArticle, topN int) ([]domain.RankedResult, error) {
	if len(articles) == 0 {
		g.logger.Warn("no articles to filter")
		return nil, nil
	}

	prompt := BuildFilterPrompt(articles, topN)
	g.logger.Info("sending articles to ai for filtering", "articles", len(articles), "model", g.model)

	text, err := retry.Do(ctx, g.retrier, retryLabel, func(ctx context.Context) (string, error) {
		return g.complete(ctx, prompt)
	})
	if err != nil {
		return nil, fmt.Errorf("ai completion: %w", err)
	}

	results, err := ParseRankedResults(text)
	if err != nil {
		g.logger.Error("failed to parse ai response", "error", err, "text", truncate(text, 500))
		return nil, nil
	}

	ranked := Reconcile(results, topN)
	g.logger.Info("ai filtering complete", "results", len(results), "kept", len(ranked))
	return ranked, nil
}

func (g *Gateway) complete(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     g.model,
		MaxTokens: g.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", errEmptyCompletion
	}
	return resp.Choices[0].Message.Content, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
