package storage

import (
	"context"

	"github.com/yuukiLike/cc-catch-news/internal/domain"
	"github.com/yuukiLike/cc-catch-news/internal/ports"
)

// NoopRecorder stands in when no database is configured. Every call succeeds
// and nothing is stored.
type NoopRecorder struct{}

var _ ports.RunRecorder = NoopRecorder{}

func (NoopRecorder) CreateRun(context.Context, []string, []string) (domain.RunHandle, error) {
	return domain.RunHandle{}, nil
}

func (NoopRecorder) FinishRun(context.Context, domain.RunHandle, domain.RunOutcome) error {
	return nil
}

func (NoopRecorder) UpsertArticles(context.Context, []domain.RawArticle) (map[string]int64, error) {
	return map[string]int64{}, nil
}

func (NoopRecorder) InsertDigestItems(context.Context, domain.RunHandle, []domain.DigestItem, map[string]int64) error {
	return nil
}
