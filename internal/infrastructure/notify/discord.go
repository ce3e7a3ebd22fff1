package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/yuukiLike/cc-catch-news/internal/config"
	"github.com/yuukiLike/cc-catch-news/internal/domain"
	"github.com/yuukiLike/cc-catch-news/internal/ports"
	"github.com/yuukiLike/cc-catch-news/internal/retry"
)

const (
	discordMessageLimit = 2000
	discordChunkGap     = 500 * time.Millisecond
)

// Discord posts digests to a channel incoming webhook.
type Discord struct {
	webhookURL string
	client     *http.Client
	retrier    *retry.Retrier
	limiter    *rate.Limiter
	logger     *slog.Logger
}

var _ ports.Output = (*Discord)(nil)

// NewDiscord creates the channel; it reports Enabled only with a webhook URL.
func NewDiscord(cfg config.WebhookConfig, retrier *retry.Retrier, logger *slog.Logger) *Discord {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Discord{
		webhookURL: cfg.WebhookURL,
		client:     newHTTPClient(),
		retrier:    retrier,
		limiter:    rate.NewLimiter(rate.Every(discordChunkGap), 1),
		logger:     logger.With("output", "discord"),
	}
}

// Name identifies the output in logs, metrics and run records.
func (d *Discord) Name() string { return "discord" }

// Label is the human-readable output name.
func (d *Discord) Label() string { return "Discord" }

// Enabled reports whether it has a webhook URL.
func (d *Discord) Enabled() bool { return d.webhookURL != "" }

// Send splits the formatted digest at the message limit and posts each chunk,
// paced so consecutive chunks are at least 500ms apart.
func (d *Discord) Send(ctx context.Context, digest domain.Digest) error {
	if d.webhookURL == "" || d.client == nil {
		return fmt.Errorf("discord output misconfigured")
	}

	chunks := SplitMessage(FormatDiscord(digest), discordMessageLimit)
	for i, chunk := range chunks {
		if err := d.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("pace discord chunk: %w", err)
		}
		payload := map[string]string{"content": chunk}
		if err := d.retrier.Run(ctx, "discord-send", func(ctx context.Context) error {
			return postJSON(ctx, d.client, "discord", d.webhookURL, payload)
		}); err != nil {
			return fmt.Errorf("send discord chunk %d/%d: %w", i+1, len(chunks), err)
		}
	}

	d.logger.Info("sent digest to discord", "items", len(digest.Items), "chunks", len(chunks))
	return nil
}
