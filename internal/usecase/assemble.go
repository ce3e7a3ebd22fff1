package usecase

import (
	"time"

	"github.com/yuukiLike/cc-catch-news/internal/domain"
)

// Assemble joins ranked results back to the articles they were produced from.
// An index outside articles keeps the result with its own title, an empty URL
// and the unknown source name.
func Assemble(results []domain.RankedResult, articles []domain.RawArticle, generatedAt time.Time) domain.Digest {
	items := make([]domain.DigestItem, 0, len(results))
	for i, result := range results {
		item := domain.DigestItem{
			Rank:       i + 1,
			Title:      result.Title,
			Score:      result.Score,
			Summary:    result.Summary,
			Tags:       result.Tags,
			SourceName: domain.UnknownSource,
		}
		if result.Index >= 1 && result.Index <= len(articles) {
			article := articles[result.Index-1]
			item.Title = article.Title
			item.URL = article.URL
			item.SourceName = article.SourceName
		}
		if item.Tags == nil {
			item.Tags = []string{}
		}
		items = append(items, item)
	}
	return domain.Digest{GeneratedAt: generatedAt, Items: items}
}
