package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/yuukiLike/cc-catch-news/internal/config"
	"github.com/yuukiLike/cc-catch-news/internal/domain"
	"github.com/yuukiLike/cc-catch-news/internal/infrastructure/llm"
	"github.com/yuukiLike/cc-catch-news/internal/infrastructure/notify"
	"github.com/yuukiLike/cc-catch-news/internal/infrastructure/scheduler"
	"github.com/yuukiLike/cc-catch-news/internal/infrastructure/source"
	"github.com/yuukiLike/cc-catch-news/internal/infrastructure/storage"
	"github.com/yuukiLike/cc-catch-news/internal/logging"
	"github.com/yuukiLike/cc-catch-news/internal/metrics"
	"github.com/yuukiLike/cc-catch-news/internal/ports"
	"github.com/yuukiLike/cc-catch-news/internal/retry"
	"github.com/yuukiLike/cc-catch-news/internal/usecase"
)

const shutdownTimeout = 30 * time.Second

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	metrics   *metrics.Recorder
	pipeline  *usecase.Pipeline
	scheduler *usecase.Scheduler
	closeDB   func()
}

// New builds every adapter from cfg and fails when the pipeline could never run.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	recorderMetrics := metrics.New()
	retrier := retry.New(retry.Policy{
		MaxAttempts: cfg.Retry.MaxAttempts,
		BaseDelay:   cfg.Retry.BaseDelay,
		MaxDelay:    cfg.Retry.MaxDelay,
	}, baseLogger.With("component", "retry"), recorderMetrics)

	gateway, err := llm.NewGateway(cfg.AI, retrier, baseLogger.With("component", "llm"))
	if err != nil {
		return nil, err
	}

	pipelineDeps := usecase.PipelineDeps{
		Sources:    buildSources(cfg.Sources, retrier, baseLogger),
		Outputs:    buildOutputs(cfg.Notifications, retrier, baseLogger),
		Summarizer: gateway,
		Metrics:    recorderMetrics,
		Logger:     baseLogger,
		TopN:       cfg.Pipeline.TopN,
		Lookback:   cfg.Pipeline.Lookback,
	}

	application := &Application{cfg: cfg, logger: baseLogger, metrics: recorderMetrics, closeDB: func() {}}

	// Preconditions are checked before touching the database.
	if err := usecase.NewPipeline(pipelineDeps).Check(); err != nil {
		return nil, err
	}

	if cfg.Database.URL != "" {
		recorder, err := storage.OpenPostgres(ctx, cfg.Database.URL, baseLogger.With("component", "storage"))
		if err != nil {
			return nil, err
		}
		pipelineDeps.Recorder = recorder
		application.closeDB = recorder.Close
	} else {
		baseLogger.Warn("database url not set, run history is not persisted")
		pipelineDeps.Recorder = storage.NoopRecorder{}
	}

	application.pipeline = usecase.NewPipeline(pipelineDeps)

	driver := scheduler.NewCronScheduler(cfg.Scheduler.CronExpression, cfg.Scheduler.Location(), baseLogger)
	application.scheduler = usecase.NewScheduler(driver, application.pipeline, recorderMetrics, baseLogger)

	return application, nil
}

func buildSources(cfg config.SourcesConfig, retrier *retry.Retrier, logger *slog.Logger) []ports.Source {
	sources := []ports.Source{
		source.NewHackerNews(cfg.HackerNews, retrier, logger),
		source.NewProductHunt(cfg.ProductHunt, retrier, logger),
	}
	for _, feed := range source.NewRSSSources(cfg.RSS, retrier, logger) {
		sources = append(sources, feed)
	}
	return append(sources, source.NewArxiv(cfg.Arxiv, nil, retrier, logger))
}

func buildOutputs(cfg config.NotificationConfig, retrier *retry.Retrier, logger *slog.Logger) []ports.Output {
	return []ports.Output{
		notify.NewDiscord(cfg.Discord, retrier, logger),
		notify.NewWeChatWork(cfg.WeChatWork, retrier, logger),
		notify.NewTelegram(cfg.Telegram, retrier, logger),
	}
}

// RunOnce executes a single pipeline run and reports its outcome.
func (a *Application) RunOnce(ctx context.Context) (domain.RunReport, error) {
	defer a.closeDB()
	return a.pipeline.Run(ctx)
}

// Run keeps the schedule alive until ctx is cancelled, then drains the active run.
func (a *Application) Run(ctx context.Context) error {
	defer a.closeDB()

	serveErr := make(chan error, 1)
	if a.cfg.Metrics.Addr != "" {
		go func() {
			serveErr <- a.metrics.Serve(ctx, a.cfg.Metrics.Addr, a.logger.With("component", "metrics"))
		}()
	}

	if err := a.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		runErr = err
	}

	a.logger.Info("shutting down")
	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := a.scheduler.Stop(stopCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return errors.Join(runErr, fmt.Errorf("stop scheduler: %w", err))
	}
	return runErr
}
