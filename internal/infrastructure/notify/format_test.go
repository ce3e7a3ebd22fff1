package notify

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuukiLike/cc-catch-news/internal/domain"
)

var sampleDigest = domain.Digest{
	GeneratedAt: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
	Items: []domain.DigestItem{
		{Rank: 1, Title: "Open weights model", URL: "https://a.com", Score: 9, Summary: "A new model.", Tags: []string{"LLM", "Open Source"}, SourceName: "hackernews"},
		{Rank: 2, Title: "Agent_kit", URL: "https://b.com", Score: 7.5, Summary: "Tooling for agents.", SourceName: "producthunt"},
	},
}

func TestFormatDiscord(t *testing.T) {
	t.Parallel()

	out := FormatDiscord(sampleDigest)

	assert.True(t, strings.HasPrefix(out, "## 🤖 AI News Digest — 2026-03-01\n"))
	assert.Contains(t, out, "**1. [Open weights model](https://a.com)** `LLM` `Open Source`")
	assert.Contains(t, out, "> 📊 Score: 7.5 | 📰 producthunt")
	assert.Contains(t, out, "**2. [Agent_kit](https://b.com)**\n")
}

func TestFormatWeChatWork(t *testing.T) {
	t.Parallel()

	out := FormatWeChatWork(sampleDigest)

	assert.True(t, strings.HasPrefix(out, "# AI News Digest — 2026-03-01\n"))
	assert.Contains(t, out, "**1. Open weights model** [LLM] [Open Source]")
	assert.Contains(t, out, "> [Read more](https://a.com) | Score: 9")
}

func TestFormatTelegram_EscapesMarkdown(t *testing.T) {
	t.Parallel()

	out := FormatTelegram(sampleDigest)

	assert.Contains(t, out, "[Agent\\_kit](https://b.com)")
	assert.Contains(t, out, "_Score: 9 | hackernews | LLM, Open Source_")
}

func TestSplitMessage(t *testing.T) {
	t.Parallel()

	t.Run("short content is one chunk", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, []string{"hello\nworld"}, SplitMessage("hello\nworld", 100))
	})

	t.Run("splits on line boundaries", func(t *testing.T) {
		t.Parallel()
		content := strings.Repeat("0123456789\n", 30)
		chunks := SplitMessage(content, 50)

		require.Greater(t, len(chunks), 1)
		for _, c := range chunks {
			assert.LessOrEqual(t, len(c), 50)
			for _, line := range strings.Split(c, "\n") {
				if line != "" {
					assert.Equal(t, "0123456789", line)
				}
			}
		}
	})

	t.Run("hard cuts long lines on rune boundaries", func(t *testing.T) {
		t.Parallel()
		content := strings.Repeat("日本語", 20)
		chunks := SplitMessage(content, 10)

		require.Greater(t, len(chunks), 1)
		assert.Equal(t, content, strings.Join(chunks, ""))
		for _, c := range chunks {
			assert.LessOrEqual(t, len(c), 10)
			assert.True(t, utf8.ValidString(c))
		}
	})
}
