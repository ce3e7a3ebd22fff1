package config

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone = "UTC"

	configPathEnv       = "CATCHNEWS_CONFIG"
	aiAPIKeyEnv         = "AI_API_KEY"
	aiBaseURLEnv        = "AI_BASE_URL"
	aiModelEnv          = "AI_MODEL"
	databaseURLEnv      = "DATABASE_URL"
	discordWebhookEnv   = "DISCORD_WEBHOOK_URL"
	wechatWebhookEnv    = "WECHAT_WORK_WEBHOOK_URL"
	telegramTokenEnv    = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv   = "TELEGRAM_CHAT_ID"
	productHuntTokenEnv = "PRODUCTHUNT_API_TOKEN"
	cronScheduleEnv     = "CRON_SCHEDULE"
	topNEnv             = "TOP_N"
	logLevelEnv         = "LOG_LEVEL"
	metricsAddrEnv      = "METRICS_ADDR"
)

// ErrInvalid wraps every validation failure returned by Load.
var ErrInvalid = errors.New("invalid configuration")

// Config holds high-level settings required across the application.
type Config struct {
	AI            AIConfig           `yaml:"ai"`
	Sources       SourcesConfig      `yaml:"sources"`
	Notifications NotificationConfig `yaml:"notifications"`
	Database      DatabaseConfig     `yaml:"database"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Pipeline      PipelineConfig     `yaml:"pipeline"`
	Retry         RetryConfig        `yaml:"retry"`
	Logging       LoggingConfig      `yaml:"logging"`
	Metrics       MetricsConfig      `yaml:"metrics"`
}

// AIConfig defines how to contact the OpenAI-compatible gateway.
type AIConfig struct {
	APIKey    string        `yaml:"apiKey"`
	BaseURL   string        `yaml:"baseUrl"`
	Model     string        `yaml:"model"`
	MaxTokens int           `yaml:"maxTokens"`
	Timeout   time.Duration `yaml:"timeout"`
	Retry     RetryConfig   `yaml:"retry"`
}

// RetryConfig mirrors the backoff policy; zero values mean library defaults.
type RetryConfig struct {
	MaxAttempts int           `yaml:"maxAttempts"`
	BaseDelay   time.Duration `yaml:"baseDelay"`
	MaxDelay    time.Duration `yaml:"maxDelay"`
}

// SourcesConfig groups settings for article sources.
type SourcesConfig struct {
	HackerNews  HackerNewsConfig  `yaml:"hackernews"`
	ProductHunt ProductHuntConfig `yaml:"producthunt"`
	RSS         RSSConfig         `yaml:"rss"`
	Arxiv       ArxivConfig       `yaml:"arxiv"`
}

// HackerNewsConfig configures the Algolia search connector.
type HackerNewsConfig struct {
	Enabled     bool     `yaml:"enabled"`
	BaseURL     string   `yaml:"baseUrl"`
	Queries     []string `yaml:"queries"`
	HitsPerPage int      `yaml:"hitsPerPage"`
}

// ProductHuntConfig configures the GraphQL connector; it is off without a token.
type ProductHuntConfig struct {
	Token    string `yaml:"token"`
	Endpoint string `yaml:"endpoint"`
	Topic    string `yaml:"topic"`
}

// RSSConfig lists plain RSS/Atom feeds.
type RSSConfig struct {
	Feeds    []FeedConfig `yaml:"feeds"`
	MaxItems int          `yaml:"maxItems"`
}

// FeedConfig is one named feed URL.
type FeedConfig struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// ArxivConfig describes arXiv listing pages to crawl.
type ArxivConfig struct {
	Enabled    bool             `yaml:"enabled"`
	Categories []CategoryConfig `yaml:"categories"`
}

// CategoryConfig holds the concrete endpoints to crawl (e.g., Arxiv category URLs).
type CategoryConfig struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// NotificationConfig encapsulates outbound channels. A channel without credentials is disabled.
type NotificationConfig struct {
	Discord    WebhookConfig  `yaml:"discord"`
	WeChatWork WebhookConfig  `yaml:"wechatWork"`
	Telegram   TelegramConfig `yaml:"telegram"`
}

// WebhookConfig holds an incoming-webhook URL.
type WebhookConfig struct {
	WebhookURL string `yaml:"webhookUrl"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken   string `yaml:"botToken"`
	ChatID     string `yaml:"chatId"`
	APIBaseURL string `yaml:"apiBaseUrl"`
}

// DatabaseConfig describes the optional Postgres connection.
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// SchedulerConfig defines when the pipeline should run.
type SchedulerConfig struct {
	CronExpression string         `yaml:"cronExpression"`
	Timezone       string         `yaml:"timezone"`
	location       *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// PipelineConfig tunes a single run.
type PipelineConfig struct {
	TopN     int           `yaml:"topN"`
	Lookback time.Duration `yaml:"lookback"`
}

// LoggingConfig selects verbosity and handler format (text or json).
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig enables the Prometheus endpoint when Addr is set.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Load reads YAML configuration (if present), applies environment overrides and validates.
// An empty path falls back to $CATCHNEWS_CONFIG.
func Load(path string) (Config, error) {
	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return Config{}, err
	}
	cfg.bindTimezone()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() error {
	overrides := map[string]*string{
		aiAPIKeyEnv:         &c.AI.APIKey,
		aiBaseURLEnv:        &c.AI.BaseURL,
		aiModelEnv:          &c.AI.Model,
		databaseURLEnv:      &c.Database.URL,
		discordWebhookEnv:   &c.Notifications.Discord.WebhookURL,
		wechatWebhookEnv:    &c.Notifications.WeChatWork.WebhookURL,
		telegramTokenEnv:    &c.Notifications.Telegram.BotToken,
		telegramChatIDEnv:   &c.Notifications.Telegram.ChatID,
		productHuntTokenEnv: &c.Sources.ProductHunt.Token,
		cronScheduleEnv:     &c.Scheduler.CronExpression,
		logLevelEnv:         &c.Logging.Level,
		metricsAddrEnv:      &c.Metrics.Addr,
	}
	for env, target := range overrides {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			*target = v
		}
	}

	if v := strings.TrimSpace(os.Getenv(topNEnv)); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s must be an integer, got %q", ErrInvalid, topNEnv, v)
		}
		c.Pipeline.TopN = n
	}

	return nil
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

// Validate reports every missing or malformed required option at once.
func (c Config) Validate() error {
	var problems []error
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Errorf(format, args...))
	}

	if strings.TrimSpace(c.AI.APIKey) == "" {
		add("ai.apiKey (%s) is required", aiAPIKeyEnv)
	}
	if !isAbsoluteURL(c.AI.BaseURL) {
		add("ai.baseUrl must be an absolute URL, got %q", c.AI.BaseURL)
	}
	if strings.TrimSpace(c.AI.Model) == "" {
		add("ai.model is required")
	}
	if c.Pipeline.TopN <= 0 {
		add("pipeline.topN must be positive, got %d", c.Pipeline.TopN)
	}
	if c.Pipeline.Lookback <= 0 {
		add("pipeline.lookback must be positive, got %s", c.Pipeline.Lookback)
	}
	if _, err := cron.ParseStandard(c.Scheduler.CronExpression); err != nil {
		add("scheduler.cronExpression %q: %v", c.Scheduler.CronExpression, err)
	}
	if !validLevel(c.Logging.Level) {
		add("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}

	webhooks := map[string]string{
		"notifications.discord.webhookUrl":    c.Notifications.Discord.WebhookURL,
		"notifications.wechatWork.webhookUrl": c.Notifications.WeChatWork.WebhookURL,
	}
	for name, value := range webhooks {
		if value != "" && !isAbsoluteURL(value) {
			add("%s must be an absolute URL, got %q", name, value)
		}
	}

	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(problems...))
}

func isAbsoluteURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && u.IsAbs() && u.Host != ""
}

func validLevel(level string) bool {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug", "info", "warn", "warning", "error":
		return true
	default:
		return false
	}
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		AI: AIConfig{
			BaseURL:   "https://api.deepseek.com",
			Model:     "deepseek-chat",
			MaxTokens: 4096,
			Timeout:   2 * time.Minute,
			Retry:     RetryConfig{MaxAttempts: 2, BaseDelay: 5 * time.Second},
		},
		Sources: SourcesConfig{
			HackerNews: HackerNewsConfig{
				Enabled:     true,
				BaseURL:     "https://hn.algolia.com/api/v1",
				Queries:     []string{"AI", "LLM", "GPT", "machine learning", "deep learning", "Claude", "neural network"},
				HitsPerPage: 50,
			},
			ProductHunt: ProductHuntConfig{
				Endpoint: "https://api.producthunt.com/v2/api/graphql",
				Topic:    "artificial-intelligence",
			},
			RSS: RSSConfig{MaxItems: 50},
			Arxiv: ArxivConfig{
				Categories: []CategoryConfig{
					{Name: "cs.AI", URL: "https://export.arxiv.org/list/cs.AI/pastweek"},
				},
			},
		},
		Notifications: NotificationConfig{
			Telegram: TelegramConfig{APIBaseURL: "https://api.telegram.org"},
		},
		Scheduler: SchedulerConfig{CronExpression: "0 */6 * * *", Timezone: defaultTimezone, location: tz},
		Pipeline:  PipelineConfig{TopN: 10, Lookback: 24 * time.Hour},
		Retry:     RetryConfig{MaxAttempts: 3, BaseDelay: time.Second, MaxDelay: 30 * time.Second},
		Logging:   LoggingConfig{Level: "info", Format: "text"},
	}
}
