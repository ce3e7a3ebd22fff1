package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/yuukiLike/cc-catch-news/internal/config"
	"github.com/yuukiLike/cc-catch-news/internal/domain"
	"github.com/yuukiLike/cc-catch-news/internal/ports"
	"github.com/yuukiLike/cc-catch-news/internal/retry"
)

// WeChatWork posts digests to a WeChat Work group robot.
type WeChatWork struct {
	webhookURL string
	client     *http.Client
	retrier    *retry.Retrier
	logger     *slog.Logger
}

var _ ports.Output = (*WeChatWork)(nil)

type wechatMarkdown struct {
	MsgType  string `json:"msgtype"`
	Markdown struct {
		Content string `json:"content"`
	} `json:"markdown"`
}

// NewWeChatWork creates the channel; it reports Enabled only with a webhook URL.
func NewWeChatWork(cfg config.WebhookConfig, retrier *retry.Retrier, logger *slog.Logger) *WeChatWork {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &WeChatWork{
		webhookURL: cfg.WebhookURL,
		client:     newHTTPClient(),
		retrier:    retrier,
		logger:     logger.With("output", "wechat_work"),
	}
}

// Name identifies the output in logs, metrics and run records.
func (w *WeChatWork) Name() string { return "wechat_work" }

// Label is the human-readable output name.
func (w *WeChatWork) Label() string { return "WeChat Work" }

// Enabled reports whether it has a webhook URL.
func (w *WeChatWork) Enabled() bool { return w.webhookURL != "" }

// Send posts the digest as a single markdown message.
func (w *WeChatWork) Send(ctx context.Context, digest domain.Digest) error {
	if w.webhookURL == "" || w.client == nil {
		return fmt.Errorf("wechat work output misconfigured")
	}

	var payload wechatMarkdown
	payload.MsgType = "markdown"
	payload.Markdown.Content = FormatWeChatWork(digest)

	if err := w.retrier.Run(ctx, "wechat-work-send", func(ctx context.Context) error {
		return postJSON(ctx, w.client, "wechat work", w.webhookURL, payload)
	}); err != nil {
		return fmt.Errorf("send wechat work digest: %w", err)
	}

	w.logger.Info("sent digest to wechat work", "items", len(digest.Items))
	return nil
}
