package notify

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/yuukiLike/cc-catch-news/internal/domain"
)

const digestHeading = "AI News Digest"

func digestDate(digest domain.Digest) string {
	return digest.GeneratedAt.UTC().Format("2006-01-02")
}

func formatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', -1, 64)
}

// FormatDiscord renders the digest as Discord Markdown.
func FormatDiscord(digest domain.Digest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## 🤖 %s — %s\n", digestHeading, digestDate(digest))

	for _, item := range digest.Items {
		tags := ""
		if len(item.Tags) > 0 {
			tags = " `" + strings.Join(item.Tags, "` `") + "`"
		}
		fmt.Fprintf(&b, "\n**%d. [%s](%s)**%s\n", item.Rank, item.Title, item.URL, tags)
		fmt.Fprintf(&b, "> %s\n", item.Summary)
		fmt.Fprintf(&b, "> 📊 Score: %s | 📰 %s\n", formatScore(item.Score), item.SourceName)
	}
	return b.String()
}

// FormatWeChatWork renders the digest in the WeChat Work markdown dialect.
func FormatWeChatWork(digest domain.Digest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s — %s\n", digestHeading, digestDate(digest))

	for _, item := range digest.Items {
		tags := ""
		if len(item.Tags) > 0 {
			tags = " [" + strings.Join(item.Tags, "] [") + "]"
		}
		fmt.Fprintf(&b, "\n**%d. %s**%s\n", item.Rank, item.Title, tags)
		fmt.Fprintf(&b, "> %s\n", item.Summary)
		fmt.Fprintf(&b, "> [Read more](%s) | Score: %s\n", item.URL, formatScore(item.Score))
	}
	return b.String()
}

// FormatTelegram renders the digest for Telegram's legacy Markdown parse mode.
func FormatTelegram(digest domain.Digest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*%s — %s*\n", digestHeading, digestDate(digest))

	for _, item := range digest.Items {
		fmt.Fprintf(&b, "\n*%d.* [%s](%s)\n", item.Rank, escapeTelegram(item.Title), item.URL)
		fmt.Fprintf(&b, "%s\n", escapeTelegram(item.Summary))
		line := fmt.Sprintf("Score: %s | %s", formatScore(item.Score), item.SourceName)
		if len(item.Tags) > 0 {
			line += " | " + strings.Join(item.Tags, ", ")
		}
		fmt.Fprintf(&b, "_%s_\n", escapeTelegram(line))
	}
	return b.String()
}

var telegramEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

func escapeTelegram(s string) string {
	return telegramEscaper.Replace(s)
}

// SplitMessage cuts content into chunks of at most limit bytes, breaking on
// line boundaries so formatting survives. A single line longer than limit is
// hard-cut on a rune boundary.
func SplitMessage(content string, limit int) []string {
	if len(content) <= limit {
		return []string{content}
	}

	var chunks []string
	var current strings.Builder
	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
		}
	}

	for _, line := range strings.Split(content, "\n") {
		for len(line) > limit {
			flush()
			cut := limit
			for cut > 0 && !utf8.RuneStart(line[cut]) {
				cut--
			}
			if cut == 0 {
				cut = limit
			}
			chunks = append(chunks, line[:cut])
			line = line[cut:]
		}

		extra := len(line)
		if current.Len() > 0 {
			extra++
		}
		if current.Len()+extra > limit {
			flush()
		}
		if current.Len() > 0 {
			current.WriteByte('\n')
		}
		current.WriteString(line)
	}
	flush()
	return chunks
}
