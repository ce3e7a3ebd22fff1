package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/yuukiLike/cc-catch-news/internal/config"
	"github.com/yuukiLike/cc-catch-news/internal/domain"
	"github.com/yuukiLike/cc-catch-news/internal/ports"
	"github.com/yuukiLike/cc-catch-news/internal/retry"
)

const (
	telegramMessageLimit = 4096
	defaultTelegramAPI   = "https://api.telegram.org"
)

// Telegram sends digests to a Telegram chat via bot API.
type Telegram struct {
	botToken string
	chatID   string
	apiBase  string
	client   *http.Client
	retrier  *retry.Retrier
	logger   *slog.Logger
}

var _ ports.Output = (*Telegram)(nil)

// NewTelegram registers bot token and chat identifier.
func NewTelegram(cfg config.TelegramConfig, retrier *retry.Retrier, logger *slog.Logger) *Telegram {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	apiBase := strings.TrimSuffix(cfg.APIBaseURL, "/")
	if apiBase == "" {
		apiBase = defaultTelegramAPI
	}
	return &Telegram{
		botToken: cfg.BotToken,
		chatID:   cfg.ChatID,
		apiBase:  apiBase,
		client:   newHTTPClient(),
		retrier:  retrier,
		logger:   logger.With("output", "telegram"),
	}
}

// Name identifies the output in logs, metrics and run records.
func (t *Telegram) Name() string { return "telegram" }

// Label is the human-readable output name.
func (t *Telegram) Label() string { return "Telegram" }

// Enabled reports whether both bot token and chat id are set.
func (t *Telegram) Enabled() bool { return t.botToken != "" && t.chatID != "" }

// Send posts Markdown messages to Telegram, split at the message limit.
func (t *Telegram) Send(ctx context.Context, digest domain.Digest) error {
	if t.botToken == "" || t.chatID == "" || t.client == nil {
		return fmt.Errorf("telegram notifier misconfigured")
	}

	chunks := SplitMessage(FormatTelegram(digest), telegramMessageLimit)
	for i, chunk := range chunks {
		if err := t.retrier.Run(ctx, "telegram-send", func(ctx context.Context) error {
			return t.sendMessage(ctx, chunk)
		}); err != nil {
			return fmt.Errorf("send telegram chunk %d/%d: %w", i+1, len(chunks), err)
		}
	}

	t.logger.Info("sent digest to telegram", "items", len(digest.Items), "chunks", len(chunks))
	return nil
}

func (t *Telegram) sendMessage(ctx context.Context, text string) error {
	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", t.apiBase, t.botToken)
	form := url.Values{}
	form.Set("chat_id", t.chatID)
	form.Set("text", text)
	form.Set("parse_mode", "Markdown")
	form.Set("disable_web_page_preview", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return do(t.client, "telegram", req)
}
