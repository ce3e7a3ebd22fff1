package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/yuukiLike/cc-catch-news/internal/domain"
)

type fakeSource struct {
	name     string
	disabled bool
	articles []domain.RawArticle
	err      error
	panics   bool
	calls    int
	since    time.Time
}

func (f *fakeSource) Name() string  { return f.name }
func (f *fakeSource) Label() string { return f.name }
func (f *fakeSource) Enabled() bool { return !f.disabled }

func (f *fakeSource) Fetch(_ context.Context, since time.Time) ([]domain.RawArticle, error) {
	f.calls++
	f.since = since
	if f.panics {
		panic("nil feed")
	}
	return f.articles, f.err
}

type fakeOutput struct {
	name     string
	disabled bool
	err      error
	panics   bool
	sent     []domain.Digest
}

func (f *fakeOutput) Name() string  { return f.name }
func (f *fakeOutput) Label() string { return f.name }
func (f *fakeOutput) Enabled() bool { return !f.disabled }

func (f *fakeOutput) Send(_ context.Context, digest domain.Digest) error {
	f.sent = append(f.sent, digest)
	if f.panics {
		panic("nil client")
	}
	return f.err
}

type fakeSummarizer struct {
	results []domain.RankedResult
	err     error
	panics  bool
	got     []domain.RawArticle
	calls   int
}

func (f *fakeSummarizer) SummarizeAndRank(_ context.Context, articles []domain.RawArticle, _ int) ([]domain.RankedResult, error) {
	f.calls++
	f.got = articles
	if f.panics {
		panic("index out of range")
	}
	return f.results, f.err
}

type fakeRecorder struct {
	mu        sync.Mutex
	created   int
	finished  []domain.RunOutcome
	upserted  int
	digests   [][]domain.DigestItem
	createErr error
	upsertErr error
	finishErr error
}

func (f *fakeRecorder) CreateRun(context.Context, []string, []string) (domain.RunHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created++
	if f.createErr != nil {
		return domain.RunHandle{}, f.createErr
	}
	return domain.RunHandle{ID: 1}, nil
}

func (f *fakeRecorder) FinishRun(_ context.Context, _ domain.RunHandle, outcome domain.RunOutcome) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finished = append(f.finished, outcome)
	return f.finishErr
}

func (f *fakeRecorder) UpsertArticles(_ context.Context, articles []domain.RawArticle) (map[string]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserted += len(articles)
	if f.upsertErr != nil {
		return nil, f.upsertErr
	}
	ids := make(map[string]int64, len(articles))
	for i, a := range articles {
		ids[a.URL] = int64(i + 1)
	}
	return ids, nil
}

func (f *fakeRecorder) InsertDigestItems(_ context.Context, _ domain.RunHandle, items []domain.DigestItem, _ map[string]int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.digests = append(f.digests, items)
	return nil
}

type countingMetrics struct {
	NopMetrics
	mu      sync.Mutex
	runs    []domain.RunStatus
	srcFail []string
	outFail []string
	skipped int
}

func (m *countingMetrics) ObserveRun(report domain.RunReport, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, report.Status)
}

func (m *countingMetrics) SourceFailed(source string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.srcFail = append(m.srcFail, source)
}

func (m *countingMetrics) OutputFailed(output string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outFail = append(m.outFail, output)
}

func (m *countingMetrics) TriggerSkipped() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.skipped++
}

var errBoom = errors.New("boom")
