package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/yuukiLike/cc-catch-news/internal/dedup"
	"github.com/yuukiLike/cc-catch-news/internal/domain"
	"github.com/yuukiLike/cc-catch-news/internal/ports"
)

var (
	// ErrNoSources aborts a run before it is recorded when no source is enabled.
	ErrNoSources = errors.New("no enabled sources")
	// ErrNoOutputs aborts a run before it is recorded when no output is enabled.
	ErrNoOutputs = errors.New("no enabled outputs")
)

const defaultLookback = 24 * time.Hour

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Sources    []ports.Source
	Outputs    []ports.Output
	Summarizer ports.Summarizer
	Recorder   ports.RunRecorder
	Metrics    Metrics
	Logger     *slog.Logger
	TopN       int
	Lookback   time.Duration
}

// Pipeline runs fetch, dedupe, rank, assemble and dispatch as one recorded run.
type Pipeline struct {
	sources    []ports.Source
	outputs    []ports.Output
	summarizer ports.Summarizer
	recorder   ports.RunRecorder
	metrics    Metrics
	logger     *slog.Logger
	topN       int
	lookback   time.Duration
	now        func() time.Time
	newRunID   func() string
}

// NewPipeline constructs the orchestration component. Summarizer and Recorder
// are required; nil metrics or logger fall back to no-ops.
func NewPipeline(deps PipelineDeps) *Pipeline {
	metrics := deps.Metrics
	if metrics == nil {
		metrics = NopMetrics{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	lookback := deps.Lookback
	if lookback <= 0 {
		lookback = defaultLookback
	}

	return &Pipeline{
		sources:    deps.Sources,
		outputs:    deps.Outputs,
		summarizer: deps.Summarizer,
		recorder:   deps.Recorder,
		metrics:    metrics,
		logger:     logger.With("component", "pipeline"),
		topN:       deps.TopN,
		lookback:   lookback,
		now:        time.Now,
		newRunID:   uuid.NewString,
	}
}

// EnabledSources returns the sources that report Enabled, in registration order.
func (p *Pipeline) EnabledSources() []ports.Source {
	var enabled []ports.Source
	for _, src := range p.sources {
		if src.Enabled() {
			enabled = append(enabled, src)
		}
	}
	return enabled
}

// EnabledOutputs returns the outputs that report Enabled, in registration order.
func (p *Pipeline) EnabledOutputs() []ports.Output {
	var enabled []ports.Output
	for _, out := range p.outputs {
		if out.Enabled() {
			enabled = append(enabled, out)
		}
	}
	return enabled
}

// Check reports the precondition error a run would abort with, if any.
func (p *Pipeline) Check() error {
	if len(p.EnabledSources()) == 0 {
		return ErrNoSources
	}
	if len(p.EnabledOutputs()) == 0 {
		return ErrNoOutputs
	}
	return nil
}

// Run executes one pipeline run. Precondition failures return ErrNoSources or
// ErrNoOutputs without creating a run record. Any failure outside the
// per-source and per-output boundaries marks the run as error and is returned.
func (p *Pipeline) Run(ctx context.Context) (domain.RunReport, error) {
	if p.summarizer == nil || p.recorder == nil {
		return domain.RunReport{}, fmt.Errorf("pipeline misconfigured")
	}

	sources := p.EnabledSources()
	outputs := p.EnabledOutputs()

	if len(sources) == 0 {
		p.logger.Error("no enabled sources, aborting")
		return domain.RunReport{}, ErrNoSources
	}
	if len(outputs) == 0 {
		p.logger.Error("no enabled outputs, aborting")
		return domain.RunReport{}, ErrNoOutputs
	}

	startedAt := p.now()
	report := domain.RunReport{RunID: p.newRunID(), Status: domain.RunRunning}
	log := p.logger.With("run_id", report.RunID)
	defer func() {
		p.metrics.ObserveRun(report, p.now().Sub(startedAt))
	}()

	log.Info("pipeline started", "sources", sourceNames(sources), "outputs", outputNames(outputs))

	handle, err := p.recorder.CreateRun(ctx, sourceNames(sources), outputNames(outputs))
	if err != nil {
		report.Status = domain.RunError
		log.Error("pipeline failed", "error", err)
		return report, fmt.Errorf("create run: %w", err)
	}

	outcome, digest, err := p.execute(ctx, log, sources, outputs, handle, startedAt)
	if err != nil {
		report.Status = domain.RunError
		log.Error("pipeline failed", "error", err)
		_ = p.finish(ctx, log, handle, domain.RunOutcome{Status: domain.RunError, Error: err.Error()})
		return report, err
	}

	report.Status = outcome.Status
	report.ArticleCount = outcome.ArticleCount
	report.DigestCount = outcome.DigestCount
	report.Digest = digest

	if err := p.finish(ctx, log, handle, outcome); err != nil {
		return report, fmt.Errorf("finish run: %w", err)
	}

	log.Info("pipeline finished",
		"status", outcome.Status,
		"articles", outcome.ArticleCount,
		"digest_items", outcome.DigestCount,
		"elapsed", p.now().Sub(startedAt),
	)
	return report, nil
}

func (p *Pipeline) execute(
	ctx context.Context,
	log *slog.Logger,
	sources []ports.Source,
	outputs []ports.Output,
	handle domain.RunHandle,
	startedAt time.Time,
) (outcome domain.RunOutcome, digest domain.Digest, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pipeline panic: %v", r)
		}
	}()

	since := startedAt.Add(-p.lookback)
	articles := Aggregate(ctx, sources, since, log, p.metrics)
	if len(articles) == 0 {
		log.Warn("no articles fetched from any source")
		return domain.RunOutcome{Status: domain.RunEmpty}, digest, nil
	}
	if err := ctx.Err(); err != nil {
		return outcome, digest, fmt.Errorf("aggregate: %w", err)
	}

	unique := dedup.Articles(articles)
	log.Info("deduplication complete", "before", len(articles), "after", len(unique))

	articleIDs, err := p.recorder.UpsertArticles(ctx, unique)
	if err != nil {
		return outcome, digest, fmt.Errorf("upsert articles: %w", err)
	}

	results, err := p.summarizer.SummarizeAndRank(ctx, unique, p.topN)
	if err != nil {
		return outcome, digest, fmt.Errorf("summarize: %w", err)
	}
	if len(results) == 0 {
		log.Warn("ai returned no results")
		return domain.RunOutcome{Status: domain.RunNoResults, ArticleCount: len(unique)}, digest, nil
	}

	digest = Assemble(results, unique, startedAt)

	if err := p.recorder.InsertDigestItems(ctx, handle, digest.Items, articleIDs); err != nil {
		return outcome, digest, fmt.Errorf("insert digest items: %w", err)
	}

	delivered := Dispatch(ctx, outputs, digest, log, p.metrics)
	log.Info("dispatch complete", "delivered", delivered, "outputs", len(outputs))

	return domain.RunOutcome{
		Status:       domain.RunSuccess,
		ArticleCount: len(unique),
		DigestCount:  len(digest.Items),
	}, digest, nil
}

// finish records the outcome even when ctx was cancelled mid-run.
func (p *Pipeline) finish(ctx context.Context, log *slog.Logger, handle domain.RunHandle, outcome domain.RunOutcome) error {
	if err := p.recorder.FinishRun(context.WithoutCancel(ctx), handle, outcome); err != nil {
		log.Error("failed to record run outcome", "status", outcome.Status, "error", err)
		return err
	}
	return nil
}

func sourceNames(sources []ports.Source) []string {
	out := make([]string, 0, len(sources))
	for _, src := range sources {
		out = append(out, src.Name())
	}
	return out
}

func outputNames(outputs []ports.Output) []string {
	out := make([]string, 0, len(outputs))
	for _, o := range outputs {
		out = append(out, o.Name())
	}
	return out
}
