package llm

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/yuukiLike/cc-catch-news/internal/domain"
)

// BuildFilterPrompt numbers the articles from 1 so the model can reference them by index.
func BuildFilterPrompt(articles []domain.RawArticle, topN int) string {
	var list strings.Builder
	for i, a := range articles {
		if i > 0 {
			list.WriteString("\n\n")
		}
		fmt.Fprintf(&list, "[%d] %s\n    URL: %s\n    Source: %s | Score: %s | Comments: %s",
			i+1, a.Title, a.URL, a.SourceName, optionalInt(a.Score), optionalInt(a.CommentCount))
	}

	return fmt.Sprintf(`You are an editor of an AI and technology news digest. From the article list below:

1. Keep only items about AI, machine learning, LLMs, deep learning, robotics or automation.
2. Deduplicate semantically: when several articles cover the same event, product launch or paper, keep only the one with the highest score or the richest information.
3. Write a one-sentence summary for every kept item.
4. Give every kept item a relevance score from 1 to 10 (10 = core AI content).
5. Tag every kept item (for example: LLM, CV, Robotics, Open Source, Paper, Product, Funding).
6. Sort by score, highest first, and keep the top %d.

Articles:
%s

Reply with JSON only, exactly in this shape:
`+"```json"+`
[
  {
    "index": 1,
    "title": "Original title",
    "score": 9,
    "summary": "One-sentence summary",
    "tags": ["LLM", "Open Source"]
  }
]
`+"```"+`

Notes:
- index is the number of the article in the list above
- return only the JSON array, no commentary
- if nothing is AI related, return an empty array []`, topN, list.String())
}

func optionalInt(v *int) string {
	if v == nil {
		return "N/A"
	}
	return strconv.Itoa(*v)
}
