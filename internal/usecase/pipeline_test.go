package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuukiLike/cc-catch-news/internal/domain"
	"github.com/yuukiLike/cc-catch-news/internal/ports"
)

var runStart = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

type harness struct {
	hn, ph     *fakeSource
	discord    *fakeOutput
	telegram   *fakeOutput
	summarizer *fakeSummarizer
	recorder   *fakeRecorder
	metrics    *countingMetrics
}

func newHarness() *harness {
	return &harness{
		hn: &fakeSource{name: "hackernews", articles: []domain.RawArticle{
			{Title: "A", URL: "https://a.com/x?utm_source=hn", SourceName: "hackernews"},
			{Title: "B", URL: "https://b.com", SourceName: "hackernews"},
		}},
		ph: &fakeSource{name: "producthunt", articles: []domain.RawArticle{
			{Title: "A again", URL: "https://a.com/x/", SourceName: "producthunt"},
			{Title: "C", URL: "https://c.com", SourceName: "producthunt"},
		}},
		discord:    &fakeOutput{name: "discord"},
		telegram:   &fakeOutput{name: "telegram"},
		summarizer: &fakeSummarizer{},
		recorder:   &fakeRecorder{},
		metrics:    &countingMetrics{},
	}
}

func (h *harness) pipeline() *Pipeline {
	p := NewPipeline(PipelineDeps{
		Sources:    []ports.Source{h.hn, h.ph},
		Outputs:    []ports.Output{h.discord, h.telegram},
		Summarizer: h.summarizer,
		Recorder:   h.recorder,
		Metrics:    h.metrics,
		TopN:       5,
		Lookback:   12 * time.Hour,
	})
	p.now = func() time.Time { return runStart }
	p.newRunID = func() string { return "run-1" }
	return p
}

func TestPipeline_Success(t *testing.T) {
	t.Parallel()
	h := newHarness()
	h.summarizer.results = []domain.RankedResult{
		{Index: 3, Title: "C", Score: 9, Summary: "c", Tags: []string{"LLM"}},
		{Index: 1, Title: "A", Score: 7, Summary: "a"},
	}

	report, err := h.pipeline().Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, domain.RunSuccess, report.Status)
	assert.Equal(t, "run-1", report.RunID)
	assert.Equal(t, 3, report.ArticleCount, "duplicate A dropped")
	assert.Equal(t, 2, report.DigestCount)

	require.Len(t, h.summarizer.got, 3)
	assert.Equal(t, []string{"A", "B", "C"}, titles(h.summarizer.got))
	assert.Equal(t, runStart.Add(-12*time.Hour), h.hn.since)

	require.Len(t, h.discord.sent, 1)
	digest := h.discord.sent[0]
	assert.Equal(t, runStart, digest.GeneratedAt)
	assert.Equal(t, "https://c.com", digest.Items[0].URL)
	assert.Equal(t, 1, digest.Items[0].Rank)
	assert.Equal(t, "https://a.com/x?utm_source=hn", digest.Items[1].URL)
	assert.Equal(t, h.discord.sent, h.telegram.sent)

	assert.Equal(t, 1, h.recorder.created)
	assert.Equal(t, 3, h.recorder.upserted)
	require.Len(t, h.recorder.digests, 1)
	assert.Equal(t, []domain.RunOutcome{{Status: domain.RunSuccess, ArticleCount: 3, DigestCount: 2}}, h.recorder.finished)
	assert.Equal(t, []domain.RunStatus{domain.RunSuccess}, h.metrics.runs)
}

func TestPipeline_EmptyAggregation(t *testing.T) {
	t.Parallel()
	h := newHarness()
	h.hn.articles = nil
	h.ph.articles = nil

	report, err := h.pipeline().Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, domain.RunEmpty, report.Status)
	assert.Equal(t, 1, h.recorder.created)
	assert.Zero(t, h.recorder.upserted)
	assert.Empty(t, h.recorder.digests)
	assert.Equal(t, []domain.RunOutcome{{Status: domain.RunEmpty}}, h.recorder.finished)
	assert.Zero(t, h.summarizer.calls)
	assert.Empty(t, h.discord.sent)
	assert.Empty(t, h.telegram.sent)
}

func TestPipeline_AllSourcesFailingIsEmpty(t *testing.T) {
	t.Parallel()
	h := newHarness()
	h.hn.err = errBoom
	h.ph.err = errBoom

	report, err := h.pipeline().Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, domain.RunEmpty, report.Status)
	assert.Equal(t, []string{"hackernews", "producthunt"}, h.metrics.srcFail)
}

func TestPipeline_UnparseableGatewayReplyIsNoResults(t *testing.T) {
	t.Parallel()
	h := newHarness()
	h.summarizer.results = nil

	report, err := h.pipeline().Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, domain.RunNoResults, report.Status)
	assert.Equal(t, []domain.RunOutcome{{Status: domain.RunNoResults, ArticleCount: 3}}, h.recorder.finished)
	assert.Empty(t, h.recorder.digests)
	assert.Empty(t, h.discord.sent)
	assert.Empty(t, h.telegram.sent)
}

func TestPipeline_OneOutputFails(t *testing.T) {
	t.Parallel()
	h := newHarness()
	h.discord.err = errBoom
	h.summarizer.results = []domain.RankedResult{{Index: 2, Title: "B", Score: 5}}

	report, err := h.pipeline().Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, domain.RunSuccess, report.Status)
	assert.Len(t, h.discord.sent, 1)
	assert.Len(t, h.telegram.sent, 1)
	assert.Equal(t, []string{"discord"}, h.metrics.outFail)
}

func TestPipeline_PartialSourceFailureStillSucceeds(t *testing.T) {
	t.Parallel()
	h := newHarness()
	h.hn.err = errBoom
	h.summarizer.results = []domain.RankedResult{{Index: 1, Title: "A again", Score: 5}}

	report, err := h.pipeline().Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, domain.RunSuccess, report.Status)
	assert.Equal(t, 2, report.ArticleCount)
	assert.Equal(t, 1, h.ph.calls)
}

func TestPipeline_GatewayFailureMarksError(t *testing.T) {
	t.Parallel()
	h := newHarness()
	h.summarizer.err = errBoom

	report, err := h.pipeline().Run(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, domain.RunError, report.Status)
	require.Len(t, h.recorder.finished, 1)
	assert.Equal(t, domain.RunError, h.recorder.finished[0].Status)
	assert.Zero(t, h.recorder.finished[0].ArticleCount)
	assert.Contains(t, h.recorder.finished[0].Error, "boom")
	assert.Empty(t, h.discord.sent)
	assert.Equal(t, []domain.RunStatus{domain.RunError}, h.metrics.runs)
}

func TestPipeline_PanicIsRecoveredAsError(t *testing.T) {
	t.Parallel()
	h := newHarness()
	h.summarizer.panics = true

	report, err := h.pipeline().Run(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "pipeline panic")
	assert.Equal(t, domain.RunError, report.Status)
	require.Len(t, h.recorder.finished, 1)
	assert.Equal(t, domain.RunError, h.recorder.finished[0].Status)
}

func TestPipeline_PersistenceFailureMarksError(t *testing.T) {
	t.Parallel()
	h := newHarness()
	h.recorder.upsertErr = errBoom

	report, err := h.pipeline().Run(context.Background())

	require.ErrorIs(t, err, errBoom)
	assert.Equal(t, domain.RunError, report.Status)
	assert.Zero(t, h.summarizer.calls)
}

func TestPipeline_FinishFailureIsReturned(t *testing.T) {
	t.Parallel()
	h := newHarness()
	h.recorder.finishErr = errBoom
	h.summarizer.results = []domain.RankedResult{{Index: 1, Score: 5}}

	report, err := h.pipeline().Run(context.Background())

	require.ErrorIs(t, err, errBoom)
	assert.Equal(t, domain.RunSuccess, report.Status)
	assert.Len(t, h.discord.sent, 1)
}

func TestPipeline_PreconditionGuards(t *testing.T) {
	t.Parallel()

	t.Run("no enabled sources", func(t *testing.T) {
		t.Parallel()
		h := newHarness()
		h.hn.disabled = true
		h.ph.disabled = true

		_, err := h.pipeline().Run(context.Background())

		require.ErrorIs(t, err, ErrNoSources)
		assert.Zero(t, h.recorder.created)
		assert.Empty(t, h.metrics.runs)
	})

	t.Run("no enabled outputs", func(t *testing.T) {
		t.Parallel()
		h := newHarness()
		h.discord.disabled = true
		h.telegram.disabled = true

		p := h.pipeline()
		_, err := p.Run(context.Background())

		require.ErrorIs(t, err, ErrNoOutputs)
		assert.ErrorIs(t, p.Check(), ErrNoOutputs)
		assert.Zero(t, h.recorder.created)
		assert.Zero(t, h.hn.calls)
	})

	t.Run("disabled sources are skipped", func(t *testing.T) {
		t.Parallel()
		h := newHarness()
		h.ph.disabled = true
		h.summarizer.results = []domain.RankedResult{{Index: 1, Score: 5}}

		_, err := h.pipeline().Run(context.Background())

		require.NoError(t, err)
		assert.Zero(t, h.ph.calls)
		assert.Equal(t, 1, h.hn.calls)
	})
}

func TestPipeline_CreateRunFailure(t *testing.T) {
	t.Parallel()
	h := newHarness()
	h.recorder.createErr = errBoom

	report, err := h.pipeline().Run(context.Background())

	require.ErrorIs(t, err, errBoom)
	assert.Equal(t, domain.RunError, report.Status)
	assert.Zero(t, h.hn.calls)
	assert.Empty(t, h.recorder.finished)
}

func TestPipeline_Misconfigured(t *testing.T) {
	t.Parallel()

	_, err := NewPipeline(PipelineDeps{}).Run(context.Background())
	assert.EqualError(t, err, "pipeline misconfigured")
}

func titles(articles []domain.RawArticle) []string {
	out := make([]string, 0, len(articles))
	for _, a := range articles {
		out = append(out, a.Title)
	}
	return out
}

func TestPipeline_OutputPanicDoesNotFailRun(t *testing.T) {
	t.Parallel()
	h := newHarness()
	h.discord.panics = true
	h.summarizer.results = []domain.RankedResult{{Index: 2, Title: "B", Score: 5}}

	report, err := h.pipeline().Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, domain.RunSuccess, report.Status)
	assert.Len(t, h.telegram.sent, 1)
	assert.Equal(t, []string{"discord"}, h.metrics.outFail)
}
