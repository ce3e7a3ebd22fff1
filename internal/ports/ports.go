package ports

import (
	"context"
	"time"

	"github.com/yuukiLike/cc-catch-news/internal/domain"
)

// Source pulls recent articles from one upstream provider.
type Source interface {
	Name() string
	Label() string
	Enabled() bool
	Fetch(ctx context.Context, since time.Time) ([]domain.RawArticle, error)
}

// Output delivers a finished digest to one notification channel.
type Output interface {
	Name() string
	Label() string
	Enabled() bool
	Send(ctx context.Context, digest domain.Digest) error
}

// Summarizer filters, ranks and summarizes articles through an LLM.
// Results are score-descending and hold at most topN entries.
type Summarizer interface {
	SummarizeAndRank(ctx context.Context, articles []domain.RawArticle, topN int) ([]domain.RankedResult, error)
}

// RunRecorder persists run metadata, raw articles and digest items.
// Implementations without a backend return zero values and nil errors.
type RunRecorder interface {
	CreateRun(ctx context.Context, sourceNames, outputNames []string) (domain.RunHandle, error)
	FinishRun(ctx context.Context, run domain.RunHandle, outcome domain.RunOutcome) error
	UpsertArticles(ctx context.Context, articles []domain.RawArticle) (map[string]int64, error)
	InsertDigestItems(ctx context.Context, run domain.RunHandle, items []domain.DigestItem, urlToID map[string]int64) error
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
